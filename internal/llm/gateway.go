package llm

import (
	"context"
	"time"
)

// Gateway turns a question plus schema summary into SQL text
type Gateway interface {
	Name() string
	GenerateSQL(ctx context.Context, req Request) Result
}

// Request is the input handed to a provider
type Request struct {
	Question      string `json:"question"`
	SchemaSummary string `json:"schema_summary"`
}

// Status tags the outcome of a provider call
type Status int

const (
	StatusSuccess Status = iota
	StatusUnavailable
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnavailable:
		return "unavailable"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of GenerateSQL. SQL is set only on success.
type Result struct {
	Status   Status
	SQL      string
	Provider string
	Reason   error
}

// OK reports whether the result carries usable SQL
func (r Result) OK() bool {
	return r.Status == StatusSuccess && r.SQL != ""
}

func Success(provider, sql string) Result {
	return Result{Status: StatusSuccess, SQL: sql, Provider: provider}
}

func Unavailable(provider string, reason error) Result {
	return Result{Status: StatusUnavailable, Provider: provider, Reason: reason}
}

func Failed(provider string, reason error) Result {
	return Result{Status: StatusFailed, Provider: provider, Reason: reason}
}

// Config represents a single provider's configuration
type Config struct {
	Provider string        `json:"provider"` // openai, anthropic, ollama
	Model    string        `json:"model"`
	APIKey   string        `json:"api_key,omitempty"`
	BaseURL  string        `json:"base_url,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}

// Provider constants for different LLM providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Model constants for common models
const (
	ModelGPT4      = "gpt-4"
	ModelClaude3   = "claude-3-sonnet-20240229"
	ModelCodeLlama = "codellama"
)

// DefaultModel returns the model used when none is configured
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return ModelClaude3
	case ProviderOllama:
		return ModelCodeLlama
	default:
		return ModelGPT4
	}
}

// DefaultBaseURL returns the API root for a provider
func DefaultBaseURL(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "https://api.openai.com/v1"
	case ProviderAnthropic:
		return "https://api.anthropic.com/v1"
	case ProviderOllama:
		return "http://localhost:11434"
	default:
		return ""
	}
}

// RequiresAPIKey reports whether the provider is a hosted API
func RequiresAPIKey(provider string) bool {
	return provider == ProviderOpenAI || provider == ProviderAnthropic
}
