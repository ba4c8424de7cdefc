// Package query wires translation, guarding, execution and history into the
// ask pipeline.
package query

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/kyleking/askdb/internal/executor"
	"github.com/kyleking/askdb/internal/guard"
	"github.com/kyleking/askdb/internal/logging"
	"github.com/kyleking/askdb/internal/schema"
	"github.com/kyleking/askdb/internal/storage"
	"github.com/kyleking/askdb/internal/translate"
	"github.com/kyleking/askdb/internal/types"
)

// SourceManual marks SQL typed by the user rather than translated
const SourceManual = "manual"

// Engine runs questions against the dataset
type Engine struct {
	db         *sql.DB
	translator *translate.Translator
	executor   *executor.Executor
	history    storage.Repository
	maxRows    int
}

// Option configures an Engine
type Option func(*Engine)

// WithHistory records every answer in repo
func WithHistory(repo storage.Repository) Option {
	return func(e *Engine) {
		e.history = repo
	}
}

// WithMaxRows sets the row cap applied by the guard
func WithMaxRows(n int) Option {
	return func(e *Engine) {
		e.maxRows = n
	}
}

// WithQueryTimeout bounds each dataset query
func WithQueryTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.executor = executor.New(e.db, executor.WithTimeout(d))
	}
}

// NewEngine creates an engine over the dataset db
func NewEngine(db *sql.DB, translator *translate.Translator, opts ...Option) *Engine {
	e := &Engine{
		db:         db,
		translator: translator,
		executor:   executor.New(db),
		maxRows:    guard.DefaultMaxRows,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Schema introspects the dataset
func (e *Engine) Schema(ctx context.Context) (types.Schema, error) {
	return schema.Introspect(ctx, e.db)
}

// Ask translates question, guards and executes the SQL. Failures are carried
// on the Answer rather than returned.
func (e *Engine) Ask(ctx context.Context, question string) *Answer {
	start := time.Now()
	answer := &Answer{ID: uuid.New(), Question: question}

	s, err := e.Schema(ctx)
	answer.Translation = e.translator.Translate(ctx, question, s)

	if err != nil {
		answer.SQL = answer.Translation.SQL
		answer.Err = err

		return e.finish(ctx, answer, start)
	}

	e.run(ctx, answer, answer.Translation.SQL)

	return e.finish(ctx, answer, start)
}

// Run guards and executes SQL typed by the user
func (e *Engine) Run(ctx context.Context, rawSQL string) *Answer {
	start := time.Now()
	answer := &Answer{
		ID:          uuid.New(),
		Question:    rawSQL,
		Translation: translate.Translation{SQL: rawSQL, Source: SourceManual},
	}

	e.run(ctx, answer, rawSQL)

	return e.finish(ctx, answer, start)
}

func (e *Engine) run(ctx context.Context, answer *Answer, text string) {
	answer.SQL = text

	q, err := guard.Check(text, e.maxRows)
	if err != nil {
		answer.Err = err
		return
	}

	answer.SQL = q.String()

	result, err := e.executor.Execute(ctx, q)
	if err != nil {
		answer.Err = err
		return
	}

	answer.Result = result
}

func (e *Engine) finish(ctx context.Context, answer *Answer, start time.Time) *Answer {
	answer.Duration = time.Since(start)

	logger := logging.WithFields(map[string]any{
		"id":       answer.ID.String(),
		"source":   answer.Translation.Source,
		"status":   string(answer.Status()),
		"rows":     answer.RowCount(),
		"duration": answer.Duration.String(),
	})

	if answer.Err != nil {
		logger.WithError(answer.Err).Warn("Question failed")
	} else {
		logger.Info("Question answered")
	}

	if e.history == nil {
		return answer
	}

	if _, err := e.history.Record(ctx, answer.historyEntry()); err != nil {
		logging.WithError(err).Warn("Failed to record history")
	}

	return answer
}
