// Package logging provides ECS-compatible structured logging for the basket
// service, and the OpenTelemetry log pipeline that redacts records before
// export.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/otel/trace"

	"github.com/eco2-team/backend/domains/basket/internal/constants"
	"github.com/eco2-team/backend/domains/basket/internal/redact"
)

const (
	// Log levels (re-exported for convenience)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Logger wraps slog.Logger with ECS-compatible defaults.
type Logger struct {
	*slog.Logger
	policy *redact.Policy
}

// Config holds logger configuration.
type Config struct {
	Level       slog.Level
	Output      io.Writer
	Environment string

	// Policy masks stdout attributes by key and the message by embedded
	// pairs. DefaultPolicy is used when nil.
	Policy *redact.Policy

	// Export, when set, receives every record as well (the otelslog bridge).
	// Records sent there are redacted by the log pipeline, not here.
	Export slog.Handler
}

// DefaultConfig returns default logger configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:       ParseLevel(getEnv(constants.EnvLogLevel, constants.LogLevelInfo)),
		Output:      os.Stdout,
		Environment: getEnv(constants.EnvEnvironment, constants.DefaultEnvironment),
	}
}

// ParseLevel maps LOG_LEVEL values to slog levels. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case constants.LogLevelDebug:
		return LevelDebug
	case constants.LogLevelWarn:
		return LevelWarn
	case constants.LogLevelError:
		return LevelError
	}
	return LevelInfo
}

// New creates a new ECS-compatible logger.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	policy := cfg.Policy
	if policy == nil {
		policy = redact.DefaultPolicy()
	}

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// ECS field mapping
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{Key: constants.ECSFieldTimestamp, Value: a.Value}
			case slog.LevelKey:
				return slog.Attr{Key: constants.ECSFieldLogLevel, Value: slog.StringValue(a.Value.String())}
			case slog.MessageKey:
				return redactAttr(policy, nil, slog.Attr{Key: constants.ECSFieldMessage, Value: a.Value}, true)
			}
			return redactAttr(policy, groups, a, false)
		},
	}

	var handler slog.Handler = slog.NewJSONHandler(output, opts)
	if cfg.Export != nil {
		handler = slogmulti.Fanout(handler, cfg.Export)
	}
	baseLogger := slog.New(handler)

	// Add ECS base fields
	ecsLogger := baseLogger.With(
		slog.Group("ecs",
			slog.String("version", constants.ECSVersion),
		),
		slog.Group("service",
			slog.String("name", constants.ServiceName),
			slog.String("version", constants.ServiceVersion),
			slog.String("environment", cfg.Environment),
		),
	)

	return &Logger{Logger: ecsLogger, policy: policy}
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.With(args...), policy: l.policy}
}

// Policy returns the redaction policy applied to local output.
func (l *Logger) Policy() *redact.Policy {
	return l.policy
}

// WithContext returns a logger carrying the trace and span id of the active
// span in ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.WithTrace(sc.TraceID().String(), sc.SpanID().String())
}

// WithRequest returns a logger with HTTP request metadata.
func (l *Logger) WithRequest(method, path, requestID string) *Logger {
	return l.with(
		slog.String(constants.ECSFieldHTTPMethod, method),
		slog.String(constants.ECSFieldHTTPRequestID, requestID),
		slog.String(constants.ECSFieldURLPath, path),
	)
}

// WithTrace returns a logger with explicit trace context.
func (l *Logger) WithTrace(traceID, spanID string) *Logger {
	if traceID == "" {
		return l
	}
	attrs := []any{
		slog.String(constants.ECSFieldTraceID, traceID),
	}
	if spanID != "" {
		attrs = append(attrs, slog.String(constants.ECSFieldSpanID, spanID))
	}
	return l.with(attrs...)
}

// WithUser returns a logger with user context (masked).
func (l *Logger) WithUser(userID string) *Logger {
	return l.with(slog.String(constants.ECSFieldUserID, l.MaskUserID(userID)))
}

// WithDuration returns a logger with duration information.
func (l *Logger) WithDuration(d time.Duration) *Logger {
	return l.with(slog.Float64(constants.ECSFieldEventDuration, float64(d.Microseconds())/1000))
}

// BasketOK logs a completed basket API call.
func (l *Logger) BasketOK(ctx context.Context, action, method, path, requestID, userID string, duration time.Duration) {
	l.WithContext(ctx).
		WithRequest(method, path, requestID).
		WithUser(userID).
		WithDuration(duration).
		InfoContext(ctx, "Basket request completed",
			slog.String(constants.ECSFieldEventAction, action),
			slog.String(constants.ECSFieldEventOutcome, constants.EventOutcomeSuccess),
		)
}

// BasketFail logs a rejected or failed basket API call.
func (l *Logger) BasketFail(ctx context.Context, action, method, path, requestID, reason string, duration time.Duration, err error) {
	logger := l.WithContext(ctx).
		WithRequest(method, path, requestID).
		WithDuration(duration)

	attrs := []any{
		slog.String(constants.ECSFieldEventAction, action),
		slog.String(constants.ECSFieldEventOutcome, constants.EventOutcomeFailure),
		slog.String(constants.ECSFieldEventReason, reason),
	}

	if err != nil {
		attrs = append(attrs, slog.String(constants.ECSFieldErrorMessage, err.Error()))
	}

	logger.WarnContext(ctx, "Basket request failed", attrs...)
}

// getEnv returns environment variable or default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Global logger instance
var defaultLogger *Logger

// Init initializes the global logger.
func Init(cfg *Config) {
	defaultLogger = New(cfg)
}

// Default returns the global logger.
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New(nil)
	}
	return defaultLogger
}

// NewTestLogger creates a logger for testing (discards output).
func NewTestLogger() *Logger {
	cfg := &Config{
		Level:       LevelDebug,
		Output:      io.Discard,
		Environment: "test",
	}
	return New(cfg)
}
