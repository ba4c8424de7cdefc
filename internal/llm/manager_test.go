package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/askdb/internal/cache"
	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
)

// scriptedGateway returns its results in order, repeating the last one
type scriptedGateway struct {
	name    string
	results []Result

	mu    sync.Mutex
	calls int
}

func (g *scriptedGateway) Name() string { return g.name }

func (g *scriptedGateway) GenerateSQL(_ context.Context, _ Request) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.calls
	if i >= len(g.results) {
		i = len(g.results) - 1
	}

	g.calls++

	return g.results[i]
}

func (g *scriptedGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.calls
}

func newTestManager(t *testing.T, cfg ManagerConfig, gateways ...*scriptedGateway) *Manager {
	t.Helper()

	m := NewManager(cfg)
	m.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	for _, g := range gateways {
		require.NoError(t, m.RegisterProvider(g.name, "test-model", g))
	}

	return m
}

func failure(name string) Result {
	return Failed(name, errors.New(errors.ErrTypeProvider, name+" broke"))
}

func unavailable(name string) Result {
	return Unavailable(name, errors.New(errors.ErrTypeProviderUnavailable, name+" has no key"))
}

func TestManager_FirstSuccessWins(t *testing.T) {
	primary := &scriptedGateway{name: "openai", results: []Result{Success("openai", "SELECT 1")}}
	fallback := &scriptedGateway{name: "ollama", results: []Result{Success("ollama", "SELECT 2")}}

	m := newTestManager(t, ManagerConfig{DefaultProvider: "openai", FallbackProviders: []string{"ollama"}}, primary, fallback)

	result := m.GenerateSQL(context.Background(), testRequest)
	require.True(t, result.OK())
	assert.Equal(t, "SELECT 1", result.SQL)
	assert.Equal(t, "openai", result.Provider)
	assert.Zero(t, fallback.Calls())
}

func TestManager_FallsBackAfterFailure(t *testing.T) {
	primary := &scriptedGateway{name: "openai", results: []Result{failure("openai")}}
	fallback := &scriptedGateway{name: "ollama", results: []Result{Success("ollama", "SELECT 2")}}

	m := newTestManager(t, ManagerConfig{
		DefaultProvider:   "openai",
		FallbackProviders: []string{"ollama"},
		RetryAttempts:     2,
	}, primary, fallback)

	result := m.GenerateSQL(context.Background(), testRequest)
	require.True(t, result.OK())
	assert.Equal(t, "ollama", result.Provider)
	assert.Equal(t, 3, primary.Calls(), "one attempt plus two retries")
}

func TestManager_RetrySucceeds(t *testing.T) {
	primary := &scriptedGateway{name: "openai", results: []Result{failure("openai"), Success("openai", "SELECT 3")}}

	m := newTestManager(t, ManagerConfig{DefaultProvider: "openai", RetryAttempts: 1}, primary)

	result := m.GenerateSQL(context.Background(), testRequest)
	require.True(t, result.OK())
	assert.Equal(t, 2, primary.Calls())
}

func TestManager_UnavailableIsNotRetried(t *testing.T) {
	primary := &scriptedGateway{name: "openai", results: []Result{unavailable("openai")}}

	m := newTestManager(t, ManagerConfig{DefaultProvider: "openai", RetryAttempts: 3}, primary)

	result := m.GenerateSQL(context.Background(), testRequest)
	assert.Equal(t, StatusUnavailable, result.Status)
	assert.Equal(t, 1, primary.Calls())
	assert.True(t, errors.IsType(result.Reason, errors.ErrTypeProviderUnavailable))
}

func TestManager_Aggregation(t *testing.T) {
	t.Run("all unavailable", func(t *testing.T) {
		m := newTestManager(t, ManagerConfig{DefaultProvider: "openai", FallbackProviders: []string{"anthropic"}},
			&scriptedGateway{name: "openai", results: []Result{unavailable("openai")}},
			&scriptedGateway{name: "anthropic", results: []Result{unavailable("anthropic")}},
		)

		assert.Equal(t, StatusUnavailable, m.GenerateSQL(context.Background(), testRequest).Status)
	})

	t.Run("failure then unavailable reports the failure", func(t *testing.T) {
		m := newTestManager(t, ManagerConfig{DefaultProvider: "openai", FallbackProviders: []string{"anthropic"}},
			&scriptedGateway{name: "openai", results: []Result{failure("openai")}},
			&scriptedGateway{name: "anthropic", results: []Result{unavailable("anthropic")}},
		)

		result := m.GenerateSQL(context.Background(), testRequest)
		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, "openai", result.Provider)
		assert.Contains(t, result.Reason.Error(), "openai broke")
	})

	t.Run("nothing registered", func(t *testing.T) {
		m := newTestManager(t, ManagerConfig{DefaultProvider: "openai"})
		assert.Equal(t, StatusUnavailable, m.GenerateSQL(context.Background(), testRequest).Status)
	})
}

func TestManager_TimeoutBoundsChain(t *testing.T) {
	slow := &blockingGateway{name: "ollama"}

	m := NewManager(ManagerConfig{DefaultProvider: "ollama", Timeout: 20 * time.Millisecond})
	require.NoError(t, m.RegisterProvider("ollama", "", slow))

	start := time.Now()
	result := m.GenerateSQL(context.Background(), testRequest)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Less(t, time.Since(start), time.Second)
}

type blockingGateway struct{ name string }

func (g *blockingGateway) Name() string { return g.name }

func (g *blockingGateway) GenerateSQL(ctx context.Context, _ Request) Result {
	<-ctx.Done()
	return Failed(g.name, ctx.Err())
}

func TestManager_CachesSuccess(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir(), 1, time.Hour)
	require.NoError(t, err)

	primary := &scriptedGateway{name: "openai", results: []Result{Success("openai", "SELECT 42")}}
	m := newTestManager(t, ManagerConfig{DefaultProvider: "openai"}, primary).WithCache(fc)

	for i := 0; i < 3; i++ {
		result := m.GenerateSQL(context.Background(), testRequest)
		require.True(t, result.OK())
		assert.Equal(t, "SELECT 42", result.SQL)
	}

	assert.Equal(t, 1, primary.Calls())

	other := Request{Question: "another question", SchemaSummary: testRequest.SchemaSummary}
	require.True(t, m.GenerateSQL(context.Background(), other).OK())
	assert.Equal(t, 2, primary.Calls())
}

func TestManager_DoesNotCacheFailures(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir(), 1, time.Hour)
	require.NoError(t, err)

	primary := &scriptedGateway{name: "openai", results: []Result{failure("openai")}}
	m := newTestManager(t, ManagerConfig{DefaultProvider: "openai"}, primary).WithCache(fc)

	m.GenerateSQL(context.Background(), testRequest)
	m.GenerateSQL(context.Background(), testRequest)

	assert.Equal(t, 2, primary.Calls())

	stats, err := fc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEntries)
}

func TestManager_RegisterProvider(t *testing.T) {
	m := NewManager(DefaultManagerConfig())

	assert.Error(t, m.RegisterProvider("", "", &scriptedGateway{name: "x"}))
	assert.Error(t, m.RegisterProvider("x", "", nil))

	require.NoError(t, m.RegisterProvider(ProviderOpenAI, ModelGPT4, &scriptedGateway{name: ProviderOpenAI}))
	assert.True(t, m.IsProviderRegistered(ProviderOpenAI))
	assert.False(t, m.IsProviderRegistered(ProviderOllama))
	assert.Equal(t, ProviderOpenAI, m.Name())
}

func TestNewManagerFromConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg := config.DefaultConfig().LLM
	cfg.APIKey = "sk-openai"
	cfg.FallbackProviders = []string{ProviderAnthropic, ProviderOllama, ProviderOpenAI}

	m, err := NewManagerFromConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{ProviderOpenAI, ProviderAnthropic, ProviderOllama}, m.GetAvailableProviders())
	assert.Equal(t, time.Minute, m.config.Timeout)

	anthropic, ok := m.providers[ProviderAnthropic].(*Client)
	require.True(t, ok)
	assert.Equal(t, "sk-ant", anthropic.config.APIKey)
	assert.Equal(t, ModelClaude3, anthropic.Model())

	primary, ok := m.providers[ProviderOpenAI].(*Client)
	require.True(t, ok)
	assert.Equal(t, ModelGPT4, primary.Model())
}
