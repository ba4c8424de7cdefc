package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kyleking/askdb/internal/config"
)

const (
	logDirPerm  = 0o755
	logFilePerm = 0o644
)

// Logger wraps a slog.Logger with a field-oriented API
type Logger struct {
	slog  *slog.Logger
	level slog.Level
	file  *os.File
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// InitializeLogger replaces the global logger with one built from cfg
func InitializeLogger(cfg config.LoggingConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}

	globalMu.Lock()
	previous := globalLogger
	globalLogger = logger
	globalMu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}

	return nil
}

// NewLogger creates a new logger with the given configuration
func NewLogger(cfg config.LoggingConfig) (*Logger, error) {
	var (
		output io.Writer
		file   *os.File
	)

	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	case "", "stderr":
		output = os.Stderr
	case "file":
		if cfg.File == "" {
			return nil, errors.New("log file path is required when output is 'file'")
		}

		path := config.ExpandPath(cfg.File)
		if err := os.MkdirAll(filepath.Dir(path), logDirPerm); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		file = f
		output = f
	default:
		return nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}

	logger := newWithWriter(output, cfg.Format, parseLogLevel(cfg.Level), cfg.AddSource)
	logger.file = file

	return logger, nil
}

// NewWithWriter builds a logger that writes to w, mainly for tests
func NewWithWriter(w io.Writer, format, level string) *Logger {
	return newWithWriter(w, format, parseLogLevel(level), false)
}

func newWithWriter(w io.Writer, format string, level slog.Level, addSource bool) *Logger {
	opts := &slog.HandlerOptions{Level: level, AddSource: addSource}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{slog: slog.New(handler), level: level}
}

// parseLogLevel parses a string log level into an slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Level reports the minimum level this logger emits
func (l *Logger) Level() slog.Level {
	return l.level
}

// Slog exposes the underlying slog.Logger
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{slog: l.slog.With(key, value), level: l.level, file: l.file}
}

// WithFields adds multiple fields to the logger context
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}

	return &Logger{slog: l.slog.With(args...), level: l.level, file: l.file}
}

// WithError adds an error to the logger context
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	return l.WithField("error", err.Error())
}

func (l *Logger) Debug(message string) { l.slog.Debug(message) }
func (l *Logger) Info(message string) { l.slog.Info(message) }
func (l *Logger) Warn(message string) { l.slog.Warn(message) }
func (l *Logger) Error(message string) { l.slog.Error(message) }

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...any) {
	if l.level <= slog.LevelDebug {
		l.slog.Debug(fmt.Sprintf(format, args...))
	}
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...any) {
	l.slog.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...any) {
	l.slog.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.slog.Error(fmt.Sprintf(format, args...))
}

// ErrorWithErr logs an error message with an associated error
func (l *Logger) ErrorWithErr(message string, err error) {
	if err == nil {
		l.slog.Error(message)
		return
	}

	l.slog.Error(message, "error", err.Error())
}

// Close closes the log file, if any
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}

	return nil
}

// GetLogger returns the global logger, falling back to a stderr logger at info level
func GetLogger() *Logger {
	globalMu.RLock()
	logger := globalLogger
	globalMu.RUnlock()

	if logger == nil {
		SetupFallbackLogger()

		globalMu.RLock()
		logger = globalLogger
		globalMu.RUnlock()
	}

	return logger
}

// SetupFallbackLogger sets up a basic logger for cases where configuration fails
func SetupFallbackLogger() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLogger == nil {
		globalLogger = newWithWriter(os.Stderr, "text", slog.LevelInfo, false)
	}
}

// SetLogger replaces the global logger without closing the previous one
func SetLogger(logger *Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

func Debug(message string) { GetLogger().Debug(message) }
func Debugf(format string, args ...any) { GetLogger().Debugf(format, args...) }
func Info(message string) { GetLogger().Info(message) }
func Infof(format string, args ...any) { GetLogger().Infof(format, args...) }
func Warn(message string) { GetLogger().Warn(message) }
func Warnf(format string, args ...any) { GetLogger().Warnf(format, args...) }
func Error(message string) { GetLogger().Error(message) }
func Errorf(format string, args ...any) { GetLogger().Errorf(format, args...) }
func ErrorWithErr(message string, err error) { GetLogger().ErrorWithErr(message, err) }

// WithField adds a field to the global logger context
func WithField(key string, value any) *Logger {
	return GetLogger().WithField(key, value)
}

// WithFields adds multiple fields to the global logger context
func WithFields(fields map[string]any) *Logger {
	return GetLogger().WithFields(fields)
}

// WithError adds an error to the global logger context
func WithError(err error) *Logger {
	return GetLogger().WithError(err)
}

// LoggerMiddleware wraps fn with start and completion logging
func LoggerMiddleware(operation string, fn func() error) error {
	logger := WithField("operation", operation)
	logger.Debug("Starting operation")

	start := time.Now()
	err := fn()
	duration := time.Since(start)

	if err != nil {
		logger.WithField("duration", duration).ErrorWithErr("Operation failed", err)
	} else {
		logger.WithField("duration", duration).Debug("Operation completed successfully")
	}

	return err
}
