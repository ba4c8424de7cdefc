package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the current active configuration including all settings from file, environment variables, and command-line flags.`,
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			return RunConfigWithConfig(stdout(cmd), cfg)
		},
	}
}

// RunConfigWithConfig prints cfg with the API key masked
func RunConfigWithConfig(w io.Writer, cfg *config.Config) error {
	if cfg == nil {
		return errors.NewConfigError("failed to load configuration", "")
	}

	fmt.Fprintln(w, "Active Configuration:")

	fmt.Fprintln(w, "\nDatabase:")
	fmt.Fprintf(w, "  Path: %s\n", cfg.Database.Path)
	fmt.Fprintf(w, "  Query Timeout: %s\n", cfg.Database.QueryTimeout)
	fmt.Fprintf(w, "  Max Rows: %d\n", cfg.Database.MaxRows)

	fmt.Fprintln(w, "\nLLM:")
	fmt.Fprintf(w, "  Enabled: %t\n", cfg.LLM.Enabled)
	fmt.Fprintf(w, "  Provider: %s\n", cfg.LLM.Provider)
	fmt.Fprintf(w, "  Model: %s\n", cfg.LLM.Model)
	fmt.Fprintf(w, "  API Key: %s\n", cfg.LLM.MaskedAPIKey())

	if cfg.LLM.BaseURL != "" {
		fmt.Fprintf(w, "  Base URL: %s\n", cfg.LLM.BaseURL)
	}

	if len(cfg.LLM.FallbackProviders) > 0 {
		fmt.Fprintf(w, "  Fallback Providers: %s\n", strings.Join(cfg.LLM.FallbackProviders, ", "))
	}

	fmt.Fprintf(w, "  Timeout: %s\n", cfg.LLM.Timeout)
	fmt.Fprintf(w, "  Retry Attempts: %d\n", cfg.LLM.RetryAttempts)

	fmt.Fprintln(w, "\nHistory:")
	fmt.Fprintf(w, "  Enabled: %t\n", cfg.History.Enabled)
	fmt.Fprintf(w, "  Path: %s\n", cfg.History.Path)

	fmt.Fprintln(w, "\nCache:")
	fmt.Fprintf(w, "  Enabled: %t\n", cfg.Cache.Enabled)
	fmt.Fprintf(w, "  Directory: %s\n", cfg.Cache.Directory)
	fmt.Fprintf(w, "  Max Size: %d MB\n", cfg.Cache.MaxSizeMB)
	fmt.Fprintf(w, "  TTL: %d hours\n", cfg.Cache.TTLHours)

	fmt.Fprintln(w, "\nLogging:")
	fmt.Fprintf(w, "  Level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "  Format: %s\n", cfg.Logging.Format)
	fmt.Fprintf(w, "  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Fprintf(w, "  File: %s\n", cfg.Logging.File)
	}

	fmt.Fprintf(w, "  Add Source: %t\n", cfg.Logging.AddSource)

	fmt.Fprintln(w, "\nDebug:")
	fmt.Fprintf(w, "  Enabled: %t\n", cfg.Debug.Enabled)
	fmt.Fprintf(w, "  Verbose: %t\n", cfg.Debug.Verbose)

	if !cfg.Debug.Enabled {
		return nil
	}

	masked := *cfg
	if masked.LLM.APIKey != "" {
		masked.LLM.APIKey = cfg.LLM.MaskedAPIKey()
	}

	jsonData, err := json.MarshalIndent(masked, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to marshal config to JSON")
	}

	fmt.Fprintln(w, "\nRaw Configuration (JSON):")
	_, err = fmt.Fprintln(w, string(jsonData))

	return err
}
