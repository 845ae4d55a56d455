package log

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/topicflux/internal/ports"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithWriter(&buf, zerolog.DebugLevel)

	l.Warn("flush failed",
		ports.Err(errors.New("boom")),
		ports.Int("lines", 3),
		ports.String("topic", "a/b"),
		ports.Bool("gzip", true),
		ports.Duration("retry_in", 16*time.Millisecond),
	)

	var entry map[string]interface{}
	require.NoError(t, sonic.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "flush failed", entry["message"])
	assert.Equal(t, "boom", entry["error"])
	assert.EqualValues(t, 3, entry["lines"])
	assert.Equal(t, "a/b", entry["topic"])
	assert.Equal(t, true, entry["gzip"])
	assert.Contains(t, entry, "retry_in")
}

func TestZerologAdapter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithWriter(&buf, zerolog.InfoLevel)

	l.Debug("unrepresentable payload", ports.String("topic", "x"))
	assert.Zero(t, buf.Len())

	l.Info("started")
	assert.NotZero(t, buf.Len())
}

func TestNoopLogger(t *testing.T) {
	var l ports.Logger = NewNoopLogger()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x", ports.Err(errors.New("ignored")))
}
