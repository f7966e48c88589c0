// Package logger provides a context-aware structured logger built on log/slog.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Level is the minimum severity a logger emits.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// TraceIDFn extracts a trace id from the context. An empty result is omitted.
type TraceIDFn func(ctx context.Context) string

// LoggerInterface is the logging contract shared by every module.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) LoggerInterface
}

// Logger writes structured records with service and trace correlation attributes.
type Logger struct {
	handler slog.Handler
	traceID TraceIDFn
}

// New creates a JSON logger. A nil traceIDFn falls back to the OpenTelemetry span in ctx.
func New(w io.Writer, level Level, service string, traceIDFn TraceIDFn) *Logger {
	return NewWithFormat(w, level, FormatJSON, service, traceIDFn)
}

// NewWithFormat creates a logger with an explicit output format.
func NewWithFormat(w io.Writer, level Level, format Format, service string, traceIDFn TraceIDFn) *Logger {
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format == FormatText {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	if service != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("service", service)})
	}
	if traceIDFn == nil {
		traceIDFn = spanTraceID
	}

	return &Logger{handler: h, traceID: traceIDFn}
}

// ParseLevel maps a config string to a Level. Unknown values map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelDebug, msg, args...)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelInfo, msg, args...)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelWarn, msg, args...)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelError, msg, args...)
}

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) LoggerInterface {
	return &Logger{
		handler: slog.New(l.handler).With(args...).Handler(),
		traceID: l.traceID,
	}
}

func (l *Logger) log(ctx context.Context, level Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}

	sl := slog.New(l.handler)
	if id := l.traceID(ctx); id != "" {
		args = append(args, "trace_id", id)
	}
	sl.Log(ctx, level, msg, args...)
}

func spanTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(io.Discard, LevelError+4, "", func(context.Context) string { return "" })
}
