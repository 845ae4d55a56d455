package watermill

import (
	"sort"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/bft-labs/topicflux/internal/ports"
)

// loggerAdapter lets watermill components log through ports.Logger.
type loggerAdapter struct {
	base   ports.Logger
	fields watermill.LogFields
}

// NewLoggerAdapter converts a ports.Logger into a watermill.LoggerAdapter.
// Trace messages are logged at debug level.
func NewLoggerAdapter(logger ports.Logger) watermill.LoggerAdapter {
	return &loggerAdapter{base: logger}
}

func (l *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.base.Error(msg, append(l.convert(fields), ports.Err(err))...)
}

func (l *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	l.base.Info(msg, l.convert(fields)...)
}

func (l *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	l.base.Debug(msg, l.convert(fields)...)
}

func (l *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	l.base.Debug(msg, l.convert(fields)...)
}

func (l *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &loggerAdapter{base: l.base, fields: l.fields.Add(fields)}
}

// convert merges the bound fields with fields and orders them by key so log
// output is stable.
func (l *loggerAdapter) convert(fields watermill.LogFields) []ports.Field {
	merged := l.fields.Add(fields)
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]ports.Field, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, ports.Any(k, merged[k]))
	}
	return out
}
