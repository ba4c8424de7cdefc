// Package translate turns a natural-language question into SQL, asking a
// provider first and falling back to the rule-based intent matcher.
package translate

import (
	"context"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/intent"
	"github.com/kyleking/askdb/internal/llm"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/types"
)

// SourceRules marks SQL produced by the intent matcher
const SourceRules = "rules"

// Translation is the SQL chosen for a question and where it came from
type Translation struct {
	SQL    string `json:"sql"`
	Source string `json:"source"`

	// Intent is set when the rule-based path produced the SQL
	Intent intent.Intent `json:"-"`

	ProviderStatus llm.Status `json:"-"`
	ProviderReason string     `json:"provider_reason,omitempty"`
}

// FromProvider reports whether a provider supplied the SQL
func (t Translation) FromProvider() bool {
	return t.Source != SourceRules
}

// Translator picks SQL for a question. A nil gateway always uses the rules.
type Translator struct {
	gateway llm.Gateway
	matcher *intent.Matcher
}

// Option configures a Translator
type Option func(*Translator)

// WithMatcher replaces the default intent matcher
func WithMatcher(m *intent.Matcher) Option {
	return func(t *Translator) {
		t.matcher = m
	}
}

// New creates a translator over gateway, which may be nil
func New(gateway llm.Gateway, opts ...Option) *Translator {
	t := &Translator{gateway: gateway, matcher: intent.NewMatcher()}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Translate never fails: anything short of a non-empty provider answer
// yields the rule-based SQL, which is FallbackSQL for unrecognised questions.
func (t *Translator) Translate(ctx context.Context, question string, schema types.Schema) Translation {
	result := t.ask(ctx, question, schema)

	if result.Status == llm.StatusSuccess {
		if sql := llm.StripCodeFence(result.SQL); sql != "" {
			logging.WithFields(map[string]any{
				"provider": result.Provider,
				"sql":      sql,
			}).Debug("Provider supplied SQL")

			return Translation{SQL: sql, Source: result.Provider, ProviderStatus: llm.StatusSuccess}
		}

		result = llm.Failed(result.Provider, errors.New(errors.ErrTypeProvider, "provider returned empty SQL"))
	}

	in, sql := t.matcher.Translate(question)

	translation := Translation{
		SQL:            sql,
		Source:         SourceRules,
		Intent:         in,
		ProviderStatus: result.Status,
	}

	if result.Reason != nil {
		translation.ProviderReason = result.Reason.Error()
	}

	logging.WithFields(map[string]any{
		"status": result.Status.String(),
		"reason": translation.ProviderReason,
		"intent": in.Kind.String(),
	}).Info("Using rule-based translation")

	return translation
}

func (t *Translator) ask(ctx context.Context, question string, schema types.Schema) llm.Result {
	if t.gateway == nil {
		return llm.Unavailable("", errors.New(errors.ErrTypeProviderUnavailable, "no provider configured"))
	}

	return t.gateway.GenerateSQL(ctx, llm.Request{
		Question:      question,
		SchemaSummary: schema.Summary(),
	})
}
