// Package logging provides the structured event log shared by the
// allocator and the table layer.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger scoped to one engine component.
type Logger struct {
	zerolog.Logger
}

// New returns a logger writing JSON lines to w, tagged with
// component. Pass os.Stderr for w in production use; tests typically
// pass io.Discard.
func New(w io.Writer, component string) Logger {
	return Logger{zerolog.New(w).With().Timestamp().Str("component", component).Logger()}
}

// Default returns the package-level logger used when callers don't
// wire their own, writing to stderr.
func Default(component string) Logger {
	return New(os.Stderr, component)
}

// Discard returns a logger that drops all output, for tests and
// embeddings that don't want engine chatter.
func Discard(component string) Logger {
	return New(io.Discard, component)
}
