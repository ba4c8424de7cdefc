package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "./data/sample.db", cfg.Database.Path)
	assert.Equal(t, "30s", cfg.Database.QueryTimeout)
	assert.Equal(t, DefaultMaxRows, cfg.Database.MaxRows)
	assert.True(t, cfg.LLM.Enabled)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4", cfg.LLM.Model)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 168, cfg.Cache.TTLHours)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.False(t, cfg.Debug.Enabled)
	assert.NoError(t, validateConfig(cfg))
}

func TestLoadConfigFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	testConfig := map[string]any{
		"database": map[string]any{
			"path":     "/custom/path/shop.db",
			"max_rows": 50,
		},
		"llm": map[string]any{
			"provider":           "anthropic",
			"fallback_providers": []string{"ollama"},
		},
		"logging": map[string]any{
			"level":  "debug",
			"format": "json",
		},
		"debug": map[string]any{
			"verbose": true,
		},
	}

	data, err := json.MarshalIndent(testConfig, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0o600))

	config := DefaultConfig()
	require.NoError(t, loadConfigFromFile(config, configPath))

	assert.Equal(t, "/custom/path/shop.db", config.Database.Path)
	assert.Equal(t, 50, config.Database.MaxRows)
	assert.Equal(t, "anthropic", config.LLM.Provider)
	assert.Equal(t, []string{"ollama"}, config.LLM.FallbackProviders)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.True(t, config.Debug.Verbose)

	// Keys missing from the file keep their defaults
	assert.Equal(t, "30s", config.Database.QueryTimeout)
	assert.Equal(t, "gpt-4", config.LLM.Model)
	assert.True(t, config.LLM.Enabled)
	assert.True(t, config.History.Enabled)
	assert.Equal(t, "stderr", config.Logging.Output)
}

func TestLoadConfigFromFileInvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0o600))

	err := loadConfigFromFile(DefaultConfig(), configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	t.Setenv("ASKDB_DB_PATH", "/env/shop.db")
	t.Setenv("ASKDB_DB_MAX_ROWS", "25")
	t.Setenv("ASKDB_LLM_PROVIDER", "ollama")
	t.Setenv("ASKDB_LLM_FALLBACK_PROVIDERS", "openai,anthropic")
	t.Setenv("ASKDB_LLM_ENABLED", "false")
	t.Setenv("ASKDB_LOG_LEVEL", "warn")
	t.Setenv("ASKDB_DEBUG", "true")

	config := DefaultConfig()
	require.NoError(t, applyEnvironmentOverrides(config))

	assert.Equal(t, "/env/shop.db", config.Database.Path)
	assert.Equal(t, 25, config.Database.MaxRows)
	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, []string{"openai", "anthropic"}, config.LLM.FallbackProviders)
	assert.False(t, config.LLM.Enabled)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.True(t, config.Debug.Enabled)

	// Unset variables leave values alone
	assert.Equal(t, "30s", config.Database.QueryTimeout)
	assert.Equal(t, "gpt-4", config.LLM.Model)
}

func TestApplyEnvironmentOverridesProviderKeyFallback(t *testing.T) {
	t.Setenv("ASKDB_LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-anthropic")

	config := DefaultConfig()
	require.NoError(t, applyEnvironmentOverrides(config))
	assert.Equal(t, "sk-openai", config.LLM.APIKey)

	t.Setenv("ASKDB_LLM_PROVIDER", "anthropic")
	config = DefaultConfig()
	require.NoError(t, applyEnvironmentOverrides(config))
	assert.Equal(t, "sk-anthropic", config.LLM.APIKey)

	t.Setenv("ASKDB_LLM_API_KEY", "sk-explicit")
	config = DefaultConfig()
	require.NoError(t, applyEnvironmentOverrides(config))
	assert.Equal(t, "sk-explicit", config.LLM.APIKey)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := DefaultConfig()

	overrides := map[string]any{
		"db-path":   "/flag/shop.db",
		"max-rows":  10,
		"log-level": "error",
		"no-llm":    true,
		"verbose":   true,
		"debug":     true,
	}

	require.NoError(t, applyFlagOverrides(config, overrides))

	assert.Equal(t, "/flag/shop.db", config.Database.Path)
	assert.Equal(t, 10, config.Database.MaxRows)
	assert.Equal(t, "error", config.Logging.Level)
	assert.False(t, config.LLM.Enabled)
	assert.True(t, config.Debug.Verbose)
	assert.True(t, config.Debug.Enabled)
}

func TestApplyFlagOverridesIgnoresZeroValues(t *testing.T) {
	config := DefaultConfig()

	require.NoError(t, applyFlagOverrides(config, map[string]any{
		"db-path":  "",
		"max-rows": 0,
		"no-llm":   false,
	}))

	assert.Equal(t, "./data/sample.db", config.Database.Path)
	assert.Equal(t, DefaultMaxRows, config.Database.MaxRows)
	assert.True(t, config.LLM.Enabled)
}

func TestApplyFlagOverridesUnknownKey(t *testing.T) {
	err := applyFlagOverrides(DefaultConfig(), map[string]any{"bogus": 1})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag override")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectError string
	}{
		{name: "valid default config", modify: func(*Config) {}},
		{
			name:        "invalid log level",
			modify:      func(c *Config) { c.Logging.Level = "loud" },
			expectError: "invalid log level",
		},
		{
			name:        "invalid log format",
			modify:      func(c *Config) { c.Logging.Format = "xml" },
			expectError: "invalid log format",
		},
		{
			name:        "invalid log output",
			modify:      func(c *Config) { c.Logging.Output = "syslog" },
			expectError: "invalid log output",
		},
		{
			name:        "empty database path",
			modify:      func(c *Config) { c.Database.Path = "" },
			expectError: "database path is required",
		},
		{
			name:        "invalid query timeout",
			modify:      func(c *Config) { c.Database.QueryTimeout = "soon" },
			expectError: "invalid database query timeout",
		},
		{
			name:        "non-positive max rows",
			modify:      func(c *Config) { c.Database.MaxRows = 0 },
			expectError: "max rows must be positive",
		},
		{
			name:        "unknown provider",
			modify:      func(c *Config) { c.LLM.Provider = "gemini" },
			expectError: "invalid llm provider",
		},
		{
			name:        "unknown fallback provider",
			modify:      func(c *Config) { c.LLM.FallbackProviders = []string{"ollama", "bard"} },
			expectError: "invalid llm fallback provider",
		},
		{
			name:        "negative retries",
			modify:      func(c *Config) { c.LLM.RetryAttempts = -1 },
			expectError: "retry attempts cannot be negative",
		},
		{
			name:        "invalid cache size",
			modify:      func(c *Config) { c.Cache.MaxSizeMB = 0 },
			expectError: "cache max size must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			err := validateConfig(config)
			if tt.expectError == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestLoadConfigWithOverridesPrecedence(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"database":{"path":"/file.db","max_rows":5},"logging":{"level":"debug"}}`), 0o600))

	t.Setenv("ASKDB_CONFIG", configPath)
	t.Setenv("ASKDB_DB_MAX_ROWS", "7")

	cfg, err := LoadConfigWithOverrides(map[string]any{"log-level": "error"})
	require.NoError(t, err)

	assert.Equal(t, "/file.db", cfg.Database.Path)
	assert.Equal(t, 7, cfg.Database.MaxRows)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ASKDB_CONFIG", filepath.Join(t.TempDir(), "absent.json"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRows, cfg.Database.MaxRows)
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.Database.QueryTimeoutDuration())
	assert.Equal(t, time.Minute, cfg.LLM.TimeoutDuration())
	assert.Equal(t, time.Second, cfg.LLM.RetryDelayDuration())
	assert.Equal(t, 168*time.Hour, cfg.Cache.TTL())

	cfg.Database.QueryTimeout = "nope"
	assert.Equal(t, 30*time.Second, cfg.Database.QueryTimeoutDuration())
}

func TestMaskedAPIKey(t *testing.T) {
	assert.Equal(t, "(not set)", LLMConfig{}.MaskedAPIKey())
	assert.Equal(t, "****", LLMConfig{APIKey: "abc"}.MaskedAPIKey())
	assert.Equal(t, "****wxyz", LLMConfig{APIKey: "sk-abcdwxyz"}.MaskedAPIKey())
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		input    string
		expected string
	}{
		{"~/test/path", filepath.Join(homeDir, "test/path")},
		{"~", homeDir},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandPath(tt.input))
		})
	}
}

func TestExpandAllPaths(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.ExpandAllPaths()

	assert.Equal(t, "./data/sample.db", cfg.Database.Path)
	assert.Equal(t, filepath.Join(homeDir, ".local/share/askdb/history.duckdb"), cfg.History.Path)
	assert.Equal(t, filepath.Join(homeDir, ".cache/askdb"), cfg.Cache.Directory)
}
