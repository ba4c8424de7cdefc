package llm

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kyleking/askdb/internal/cache"
	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/logging"
)

// AnswerCache stores SQL returned by a provider
type AnswerCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// ManagerConfig configures the provider chain
type ManagerConfig struct {
	DefaultProvider   string        `json:"default_provider"`
	FallbackProviders []string      `json:"fallback_providers"`
	RetryAttempts     int           `json:"retry_attempts"`
	RetryDelay        time.Duration `json:"retry_delay"`
	Timeout           time.Duration `json:"timeout"`
	CacheTTL          time.Duration `json:"cache_ttl"`
}

// DefaultManagerConfig returns a sensible default configuration
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		DefaultProvider: ProviderOpenAI,
		RetryAttempts:   1,
		RetryDelay:      time.Second,
		Timeout:         time.Minute,
	}
}

// Manager tries the default provider and then each fallback in order
type Manager struct {
	providers map[string]Gateway
	models    map[string]string
	config    ManagerConfig
	cache     AnswerCache
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewManager creates a new LLM manager with the given configuration
func NewManager(config ManagerConfig) *Manager {
	return &Manager{
		providers: make(map[string]Gateway),
		models:    make(map[string]string),
		config:    config,
		sleep:     sleepContext,
	}
}

// RegisterProvider registers a gateway under name. model feeds the cache key.
func (m *Manager) RegisterProvider(name, model string, gateway Gateway) error {
	if name == "" {
		return errors.New(errors.ErrTypeValidation, "provider name cannot be empty")
	}

	if gateway == nil {
		return errors.New(errors.ErrTypeValidation, "gateway cannot be nil")
	}

	m.providers[name] = gateway
	m.models[name] = model

	return nil
}

// WithCache enables caching of successful answers
func (m *Manager) WithCache(c AnswerCache) *Manager {
	m.cache = c
	return m
}

// Name returns the default provider's name
func (m *Manager) Name() string {
	return m.config.DefaultProvider
}

// GetAvailableProviders returns registered provider names in the order they are tried
func (m *Manager) GetAvailableProviders() []string {
	var names []string

	for _, name := range m.chain() {
		if _, ok := m.providers[name]; ok {
			names = append(names, name)
		}
	}

	return names
}

// IsProviderRegistered checks if a provider is registered
func (m *Manager) IsProviderRegistered(name string) bool {
	_, exists := m.providers[name]
	return exists
}

// GenerateSQL walks the provider chain within the configured timeout.
// The first success wins. If every provider was unavailable the result is
// Unavailable, otherwise it is Failed with the last failure reason.
func (m *Manager) GenerateSQL(ctx context.Context, req Request) Result {
	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	var (
		lastFailure Result
		failed      bool
	)

	for _, name := range m.chain() {
		gateway, ok := m.providers[name]
		if !ok {
			continue
		}

		if sql, hit := m.cached(ctx, name, req); hit {
			logging.WithField("provider", name).Debug("Using cached provider answer")
			return Success(name, sql)
		}

		result := m.tryProvider(ctx, gateway, req)

		switch result.Status {
		case StatusSuccess:
			m.store(ctx, name, req, result.SQL)
			return result
		case StatusUnavailable:
			logging.WithField("provider", name).WithError(result.Reason).Debug("Provider unavailable")
		default:
			logging.WithField("provider", name).WithError(result.Reason).Warn("Provider failed")

			lastFailure = result
			failed = true
		}

		if ctx.Err() != nil {
			break
		}
	}

	if failed {
		return lastFailure
	}

	if ctx.Err() != nil {
		return Failed(m.Name(), errors.Wrap(ctx.Err(), errors.ErrTypeProvider, "provider chain timed out"))
	}

	return Unavailable(m.Name(), errors.New(errors.ErrTypeProviderUnavailable, "no provider available"))
}

// tryProvider retries Failed results; Unavailable is returned straight away
func (m *Manager) tryProvider(ctx context.Context, gateway Gateway, req Request) Result {
	var result Result

	for attempt := 0; attempt <= m.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := m.sleep(ctx, m.config.RetryDelay); err != nil {
				return result
			}
		}

		result = gateway.GenerateSQL(ctx, req)
		if result.Status != StatusFailed {
			return result
		}

		if ctx.Err() != nil {
			break
		}
	}

	return result
}

func (m *Manager) chain() []string {
	names := make([]string, 0, len(m.config.FallbackProviders)+1)
	seen := make(map[string]bool)

	for _, name := range append([]string{m.config.DefaultProvider}, m.config.FallbackProviders...) {
		if name == "" || seen[name] {
			continue
		}

		seen[name] = true
		names = append(names, name)
	}

	return names
}

func (m *Manager) cacheKey(provider string, req Request) string {
	return cache.Key("sql", provider, m.models[provider], req.SchemaSummary, req.Question)
}

func (m *Manager) cached(ctx context.Context, provider string, req Request) (string, bool) {
	if m.cache == nil {
		return "", false
	}

	data, err := m.cache.Get(ctx, m.cacheKey(provider, req))
	if err != nil {
		if !stderrors.Is(err, cache.ErrMiss) {
			logging.WithError(err).Debug("Provider cache read failed")
		}

		return "", false
	}

	if len(data) == 0 {
		return "", false
	}

	return string(data), true
}

func (m *Manager) store(ctx context.Context, provider string, req Request, sql string) {
	if m.cache == nil {
		return
	}

	if err := m.cache.Set(ctx, m.cacheKey(provider, req), []byte(sql), m.config.CacheTTL); err != nil {
		logging.WithError(err).Debug("Provider cache write failed")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewManagerFromConfig registers one Client per provider in the configured chain.
// Fallback providers use their vendor API key variable and default model.
func NewManagerFromConfig(cfg config.LLMConfig) (*Manager, error) {
	manager := NewManager(ManagerConfig{
		DefaultProvider:   cfg.Provider,
		FallbackProviders: cfg.FallbackProviders,
		RetryAttempts:     cfg.RetryAttempts,
		RetryDelay:        cfg.RetryDelayDuration(),
		Timeout:           cfg.TimeoutDuration(),
	})

	for i, name := range manager.chain() {
		clientCfg := Config{Provider: name, Timeout: cfg.TimeoutDuration()}

		if i == 0 {
			clientCfg.Model = cfg.Model
			clientCfg.APIKey = cfg.APIKey
			clientCfg.BaseURL = cfg.BaseURL
		} else {
			clientCfg.APIKey = config.ProviderAPIKey(name)
		}

		client, err := NewClient(clientCfg)
		if err != nil {
			return nil, err
		}

		if err := manager.RegisterProvider(name, client.Model(), client); err != nil {
			return nil, err
		}
	}

	return manager, nil
}
