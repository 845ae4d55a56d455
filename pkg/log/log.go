// Package log provides loggers for embedding topicflux.
//
// The Logger interface is the one accepted by topicflux.WithLogger; this
// package adds zerolog backed and no-op implementations plus field helpers.
package log

import (
	"io"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/topicflux/internal/adapters/log"
	"github.com/bft-labs/topicflux/internal/ports"
)

// Logger provides structured logging capabilities.
type Logger = ports.Logger

// Field represents a key-value pair for structured logging.
type Field = ports.Field

// Field constructors.
var (
	String   = ports.String
	Int      = ports.Int
	Int64    = ports.Int64
	Float64  = ports.Float64
	Bool     = ports.Bool
	Duration = ports.Duration
	Err      = ports.Err
	Any      = ports.Any
)

// NewConsole logs human readable lines to stderr at level and above.
func NewConsole(level zerolog.Level) Logger {
	return logAdapter.NewZerologAdapter(level)
}

// NewJSON logs one JSON object per line to w.
func NewJSON(w io.Writer, level zerolog.Level) Logger {
	return logAdapter.NewZerologAdapterWithWriter(w, level)
}

// NewZerolog wraps an existing zerolog.Logger.
func NewZerolog(l zerolog.Logger) Logger {
	return logAdapter.NewZerologAdapterWithLogger(l)
}

// Noop discards everything.
func Noop() Logger {
	return logAdapter.NewNoopLogger()
}
