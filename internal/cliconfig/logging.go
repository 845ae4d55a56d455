package cliconfig

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger builds the process logger. Console output goes to stderr unless
// json is set; verbose lowers the level to debug.
func Logger(verbose, json bool) zerolog.Logger {
	return newLogger(os.Stderr, verbose, json)
}

func newLogger(w io.Writer, verbose, json bool) zerolog.Logger {
	if !json {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
