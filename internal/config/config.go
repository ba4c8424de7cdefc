package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	envPrefix = "ASKDB_"

	// DefaultMaxRows caps every guarded query unless overridden
	DefaultMaxRows = 1000
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `json:"database" envPrefix:"DB_"`
	LLM      LLMConfig      `json:"llm"      envPrefix:"LLM_"`
	History  HistoryConfig  `json:"history"  envPrefix:"HISTORY_"`
	Cache    CacheConfig    `json:"cache"    envPrefix:"CACHE_"`
	Logging  LoggingConfig  `json:"logging"  envPrefix:"LOG_"`
	Debug    DebugConfig    `json:"debug"`
}

// DatabaseConfig points at the SQLite dataset questions are asked about
type DatabaseConfig struct {
	Path         string `json:"path"          env:"PATH"`
	QueryTimeout string `json:"query_timeout" env:"QUERY_TIMEOUT"`
	MaxRows      int    `json:"max_rows"      env:"MAX_ROWS"`
}

// LLMConfig configures the optional hosted or local language model
type LLMConfig struct {
	Enabled           bool     `json:"enabled"                      env:"ENABLED"`
	Provider          string   `json:"provider"                     env:"PROVIDER"` // openai, anthropic, ollama
	Model             string   `json:"model"                        env:"MODEL"`
	APIKey            string   `json:"api_key,omitempty"            env:"API_KEY"`
	BaseURL           string   `json:"base_url,omitempty"           env:"BASE_URL"`
	FallbackProviders []string `json:"fallback_providers,omitempty" env:"FALLBACK_PROVIDERS" envSeparator:","`
	Timeout           string   `json:"timeout"                      env:"TIMEOUT"`
	RetryAttempts     int      `json:"retry_attempts"               env:"RETRY_ATTEMPTS"`
	RetryDelay        string   `json:"retry_delay"                  env:"RETRY_DELAY"`
}

// HistoryConfig configures the DuckDB-backed question history
type HistoryConfig struct {
	Enabled bool   `json:"enabled" env:"ENABLED"`
	Path    string `json:"path"    env:"PATH"`
}

// CacheConfig configures the provider answer cache
type CacheConfig struct {
	Enabled   bool   `json:"enabled"     env:"ENABLED"`
	Directory string `json:"directory"   env:"DIR"`
	MaxSizeMB int    `json:"max_size_mb" env:"MAX_SIZE_MB"`
	TTLHours  int    `json:"ttl_hours"   env:"TTL_HOURS"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level     string `json:"level"      env:"LEVEL"`  // debug, info, warn, error
	Format    string `json:"format"     env:"FORMAT"` // text, json
	Output    string `json:"output"     env:"OUTPUT"` // stdout, stderr, file
	File      string `json:"file"       env:"FILE"`
	AddSource bool   `json:"add_source" env:"ADD_SOURCE"`
}

// DebugConfig represents debug configuration
type DebugConfig struct {
	Enabled bool `json:"enabled" env:"DEBUG"`
	Verbose bool `json:"verbose" env:"VERBOSE"`
}

// DefaultConfig returns the configuration used before file, environment and
// flag overrides are applied
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "./data/sample.db",
			QueryTimeout: "30s",
			MaxRows:      DefaultMaxRows,
		},
		LLM: LLMConfig{
			Enabled:       true,
			Provider:      "openai",
			Model:         "gpt-4",
			Timeout:       "60s",
			RetryAttempts: 1,
			RetryDelay:    "1s",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "~/.local/share/askdb/history.duckdb",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Directory: "~/.cache/askdb",
			MaxSizeMB: 50,
			TTLHours:  168,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
			File:   "~/.config/askdb/logs/askdb.log",
		},
	}
}

// LoadConfig loads configuration from file, environment variables, and command-line flags
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides.
// Precedence is defaults, then config file, then environment, then flags.
func LoadConfigWithOverrides(flagOverrides map[string]any) (*Config, error) {
	config := DefaultConfig()

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := applyEnvironmentOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile overlays the JSON file onto config; keys absent from the
// file keep their current value
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides sets every field whose ASKDB_* variable is present
func applyEnvironmentOverrides(config *Config) error {
	if err := env.ParseWithOptions(config, env.Options{Prefix: envPrefix}); err != nil {
		return err
	}

	if config.LLM.APIKey == "" {
		config.LLM.APIKey = ProviderAPIKey(config.LLM.Provider)
	}

	return nil
}

// ProviderAPIKey reads the vendor's conventional API key variable
func ProviderAPIKey(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]any) error {
	for key, value := range overrides {
		switch key {
		case "db-path":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Path = str
			}
		case "max-rows":
			if n, ok := value.(int); ok && n > 0 {
				config.Database.MaxRows = n
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "no-llm":
			if b, ok := value.(bool); ok && b {
				config.LLM.Enabled = false
			}
		case "provider":
			if str, ok := value.(string); ok && str != "" {
				config.LLM.Provider = str
			}
		case "model":
			if str, ok := value.(string); ok && str != "" {
				config.LLM.Model = str
			}
		case "no-history":
			if b, ok := value.(bool); ok && b {
				config.History.Enabled = false
			}
		case "verbose":
			if b, ok := value.(bool); ok {
				config.Debug.Verbose = b
			}
		case "debug":
			if b, ok := value.(bool); ok {
				config.Debug.Enabled = b
			}
		default:
			return fmt.Errorf("unknown flag override: %s", key)
		}
	}

	return nil
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{"stdout": true, "stderr": true, "file": true}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if _, err := time.ParseDuration(config.Database.QueryTimeout); err != nil {
		return fmt.Errorf("invalid database query timeout: %s", config.Database.QueryTimeout)
	}

	if config.Database.MaxRows <= 0 {
		return fmt.Errorf("database max rows must be positive: %d", config.Database.MaxRows)
	}

	validProviders := map[string]bool{"openai": true, "anthropic": true, "ollama": true}
	if !validProviders[strings.ToLower(config.LLM.Provider)] {
		return fmt.Errorf(
			"invalid llm provider: %s (must be openai, anthropic, or ollama)",
			config.LLM.Provider,
		)
	}

	for _, p := range config.LLM.FallbackProviders {
		if !validProviders[strings.ToLower(p)] {
			return fmt.Errorf("invalid llm fallback provider: %s", p)
		}
	}

	if _, err := time.ParseDuration(config.LLM.Timeout); err != nil {
		return fmt.Errorf("invalid llm timeout: %s", config.LLM.Timeout)
	}

	if _, err := time.ParseDuration(config.LLM.RetryDelay); err != nil {
		return fmt.Errorf("invalid llm retry delay: %s", config.LLM.RetryDelay)
	}

	if config.LLM.RetryAttempts < 0 {
		return fmt.Errorf("llm retry attempts cannot be negative: %d", config.LLM.RetryAttempts)
	}

	if config.Cache.MaxSizeMB <= 0 {
		return fmt.Errorf("cache max size must be positive: %d", config.Cache.MaxSizeMB)
	}

	return nil
}

// QueryTimeoutDuration returns the parsed query timeout
func (d DatabaseConfig) QueryTimeoutDuration() time.Duration {
	timeout, err := time.ParseDuration(d.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}

	return timeout
}

// TimeoutDuration returns the parsed provider timeout
func (l LLMConfig) TimeoutDuration() time.Duration {
	timeout, err := time.ParseDuration(l.Timeout)
	if err != nil {
		return time.Minute
	}

	return timeout
}

// RetryDelayDuration returns the parsed delay between provider retries
func (l LLMConfig) RetryDelayDuration() time.Duration {
	delay, err := time.ParseDuration(l.RetryDelay)
	if err != nil {
		return time.Second
	}

	return delay
}

// TTL returns the cache entry lifetime
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// MaskedAPIKey returns the API key with everything but the last four characters hidden
func (l LLMConfig) MaskedAPIKey() string {
	if l.APIKey == "" {
		return "(not set)"
	}

	if len(l.APIKey) <= 4 {
		return "****"
	}

	return "****" + l.APIKey[len(l.APIKey)-4:]
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("ASKDB_CONFIG"); configPath != "" {
		return ExpandPath(configPath)
	}

	return filepath.Join(GetConfigDir(), "config.json")
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Database.Path = ExpandPath(c.Database.Path)
	c.History.Path = ExpandPath(c.History.Path)
	c.Cache.Directory = ExpandPath(c.Cache.Directory)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/askdb"
	}

	return filepath.Join(homeDir, ".config", "askdb")
}
