package query

import (
	"time"

	"github.com/google/uuid"

	"github.com/kyleking/askdb/internal/executor"
	"github.com/kyleking/askdb/internal/guard"
	"github.com/kyleking/askdb/internal/storage"
	"github.com/kyleking/askdb/internal/translate"
)

// Answer is the outcome of one question. SQL is always the text that was
// attempted, so a failure can be shown next to it.
type Answer struct {
	ID          uuid.UUID             `json:"id"`
	Question    string                `json:"question"`
	Translation translate.Translation `json:"translation"`
	SQL         string                `json:"sql"`
	Result      *executor.Result      `json:"result,omitempty"`
	Err         error                 `json:"-"`
	Duration    time.Duration         `json:"duration"`
}

// OK reports whether the query ran
func (a *Answer) OK() bool {
	return a.Err == nil && a.Result != nil
}

// Status classifies the answer for the history store
func (a *Answer) Status() storage.Status {
	switch {
	case a.Err == nil:
		return storage.StatusOK
	case guard.IsUnsafe(a.Err):
		return storage.StatusRejected
	default:
		return storage.StatusFailed
	}
}

// RowCount is the number of rows returned, 0 on failure
func (a *Answer) RowCount() int {
	if a.Result == nil {
		return 0
	}

	return a.Result.Len()
}

func (a *Answer) historyEntry() storage.Entry {
	entry := storage.Entry{
		ID:         a.ID.String(),
		Question:   a.Question,
		SQL:        a.SQL,
		Source:     a.Translation.Source,
		Status:     a.Status(),
		RowCount:   a.RowCount(),
		DurationMS: a.Duration.Milliseconds(),
	}

	if a.Err != nil {
		entry.Error = a.Err.Error()
	}

	return entry
}
