package observe

import (
	"context"
	"io"

	"github.com/felixgeelhaar/bolt/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("nudge")

// Observer carries the structured logger and the tracer handed to every
// component.
type Observer struct {
	log *bolt.Logger
}

// New creates an Observer with console output.
// If verbose is false, only warnings and errors are shown.
func New(out io.Writer, verbose bool) *Observer {
	l := bolt.New(bolt.NewConsoleHandler(out))
	if !verbose {
		l.SetLevel(bolt.WARN)
	}
	return &Observer{log: l}
}

// NewJSON creates an Observer with JSON output, one object per line.
func NewJSON(out io.Writer, verbose bool) *Observer {
	l := bolt.New(bolt.NewJSONHandler(out))
	if !verbose {
		l.SetLevel(bolt.WARN)
	}
	return &Observer{log: l}
}

// ForFormat picks the console or JSON handler by name ("json" or anything else).
func ForFormat(out io.Writer, format string, verbose bool) *Observer {
	if format == "json" {
		return NewJSON(out, verbose)
	}
	return New(out, verbose)
}

// Discard returns an Observer that drops everything below error level and
// writes nowhere. Used by tests and one-shot CLI commands.
func Discard() *Observer {
	return New(io.Discard, false)
}

// Log returns the underlying logger.
func (o *Observer) Log() *bolt.Logger {
	return o.log
}

// StartSpan starts a new OTel span.
func (o *Observer) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}
