package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Options controls how Init builds the process logger.
type Options struct {
	// Development switches to the human readable console writer with caller info.
	Development bool
	// Level is a zerolog level name. Empty means debug in development and
	// info otherwise.
	Level string
	// Service is attached to every line as the "service" field when set.
	Service string
	// Out defaults to os.Stdout.
	Out io.Writer
}

// Init replaces the process logger. An unknown level is reported once and the
// default for the mode is used.
func Init(opts Options) {
	zerolog.TimeFieldFormat = time.RFC3339

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.Development {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if opts.Development {
		ctx = ctx.Caller()
	}
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}

	level, err := parseLevel(opts.Level, opts.Development)
	logger = ctx.Logger().Level(level)
	if err != nil {
		logger.Warn().Str("value", opts.Level).Str("level", level.String()).Msg("unknown log level, using default")
	}
}

func parseLevel(raw string, development bool) (zerolog.Level, error) {
	fallback := zerolog.InfoLevel
	if development {
		fallback = zerolog.DebugLevel
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil || level == zerolog.NoLevel {
		return fallback, err
	}
	return level, nil
}

func Logger() *zerolog.Logger {
	return &logger
}

// WithContext returns the process logger with traceId and spanId set when ctx
// carries a valid span.
func WithContext(ctx context.Context) zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}

	return logger.With().
		Str("traceId", sc.TraceID().String()).
		Str("spanId", sc.SpanID().String()).
		Logger()
}

func Info(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Info()
}

func Error(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Error()
}

func Debug(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Debug()
}

func Warn(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Warn()
}
