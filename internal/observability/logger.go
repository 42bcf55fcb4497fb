// Package observability wires zap logging and prometheus metrics into the
// service hooks.
package observability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"programhub/internal/core"
)

// NewLogger builds a zap logger. Development mode switches to the console
// encoder with caller and stack traces on warnings.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if strings.TrimSpace(level) != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// ServiceLogger adapts a zap logger to core.Logger.
func ServiceLogger(l *zap.Logger) core.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{s: l.Sugar()}
}

type zapLogger struct{ s *zap.SugaredLogger }

func (z zapLogger) Debug(msg string, keyvals ...any) { z.s.Debugw(msg, keyvals...) }
func (z zapLogger) Info(msg string, keyvals ...any)  { z.s.Infow(msg, keyvals...) }
func (z zapLogger) Warn(msg string, keyvals ...any)  { z.s.Warnw(msg, keyvals...) }
func (z zapLogger) Error(msg string, keyvals ...any) { z.s.Errorw(msg, keyvals...) }

// LogTracer implements core.Tracer by logging each finished span at debug level.
type LogTracer struct {
	Logger *zap.Logger
	Now    func() time.Time
}

// Start opens a span for operation. A nil Logger discards the span and a nil
// Now falls back to time.Now. The returned context is ctx unchanged.
func (t LogTracer) Start(ctx context.Context, operation string) (context.Context, core.TraceSpan) {
	now := t.Now
	if now == nil {
		now = time.Now
	}
	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return ctx, &logSpan{logger: logger, operation: operation, started: now(), now: now}
}

type logSpan struct {
	logger    *zap.Logger
	operation string
	started   time.Time
	now       func() time.Time
}

// End logs the span name and elapsed time at debug level, with err attached
// when the operation failed.
func (s *logSpan) End(err error) {
	fields := []zap.Field{
		zap.String("span", s.operation),
		zap.Duration("elapsed", s.now().Sub(s.started)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Debug("span finished", fields...)
}
