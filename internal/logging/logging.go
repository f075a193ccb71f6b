// Package logging configures the process-wide zerolog logger and carries
// it, plus a per-invocation trace ID, through context.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Config selects the log level, output format, and optional log file.
type Config struct {
	Level  string // zerolog level name; invalid or empty falls back to info
	Format string // "console" or "json"; empty picks by TTY
	File   string // append logs to this file as well when set
}

// Result is the configured logger plus the handle that must be closed on
// shutdown when logging to a file.
type Result struct {
	Logger zerolog.Logger
	file   *os.File
}

// Close releases the log file handle, if any.
func (r *Result) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// New builds the logger described by cfg. Console format writes
// human-readable lines; json writes structured events. When Format is
// empty, console is used on a terminal and json otherwise, as decided by
// the isTTY probe.
func New(cfg Config, isTTY func() bool) (Result, error) {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	format := cfg.Format
	if format == "" {
		format = "json"
		if isTTY != nil && isTTY() {
			format = "console"
		}
	}

	var out io.Writer = os.Stderr
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	res := Result{}
	writers := []io.Writer{out}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return Result{}, err
		}
		res.file = f
		writers = append(writers, f)
	}

	res.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	return res, nil
}

// ComponentLogger tags a logger with the component emitting its events.
func ComponentLogger(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// FromContext returns the logger stored in ctx, or a disabled logger when
// none was attached.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

type traceIDKey struct{}

// NewTraceID mints a sortable unique ID for one CLI invocation or request.
func NewTraceID() string {
	return ulid.Make().String()
}

// ContextWithTraceID stores a trace ID in ctx.
func ContextWithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

// TraceIDFromContext returns the trace ID in ctx, or empty.
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}
