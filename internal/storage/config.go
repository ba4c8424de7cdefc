package storage

import (
	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
)

// NewDuckDBRepositoryFromConfig opens the history database named by cfg
func NewDuckDBRepositoryFromConfig(cfg config.HistoryConfig) (*DuckDBRepository, error) {
	if !cfg.Enabled {
		return nil, errors.New(errors.ErrTypeConfig, "history is disabled")
	}

	return NewDuckDBRepository(config.ExpandPath(cfg.Path))
}
