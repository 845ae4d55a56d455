package nats

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logAdapter "github.com/bft-labs/topicflux/internal/adapters/log"
	"github.com/bft-labs/topicflux/internal/adapters/queue"
)

func TestSubjectFor(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"home/kitchen/temp", "home.kitchen.temp"},
		{"home/+/temp", "home.*.temp"},
		{"home/#", "home.>"},
		{"#", ">"},
		{"single", "single"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SubjectFor(tt.topic), "SubjectFor(%q)", tt.topic)
	}
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "home/kitchen/temp", TopicFor("home.kitchen.temp"))
	assert.Equal(t, "flat", TopicFor("flat"))
}

func TestSource_Subjects(t *testing.T) {
	s := NewSource(Config{}, logAdapter.NewNoopLogger())
	assert.Equal(t, []string{">"}, s.Subjects())

	s = NewSource(Config{Topics: []string{"a/b", "c/#"}}, logAdapter.NewNoopLogger())
	assert.Equal(t, []string{"a.b", "c.>"}, s.Subjects())
}

func TestSource_Defaults(t *testing.T) {
	s := NewSource(Config{}, logAdapter.NewNoopLogger())
	assert.Equal(t, nats.DefaultURL, s.config.URL)
	assert.Equal(t, DefaultName, s.config.Name)
	assert.Equal(t, DefaultReconnectWait, s.config.ReconnectWait)
	assert.NotEmpty(t, s.connectionOptions())
}

func TestSource_OnMessage(t *testing.T) {
	s := NewSource(Config{}, logAdapter.NewNoopLogger())
	s.now = func() time.Time { return time.Unix(0, 42) }
	s.queue = queue.New(4)

	s.onMessage(&nats.Msg{Subject: "home.kitchen.temp", Data: []byte("21.5")})
	s.onMessage(&nats.Msg{Subject: "home.empty", Data: nil})
	s.queue.Close()

	var got []string
	for rec := range s.queue.C() {
		got = append(got, rec.Topic)
		assert.Equal(t, int64(42), rec.Timestamp)
	}
	assert.Equal(t, []string{"home/kitchen/temp"}, got)
}

func TestSource_StartUnreachable(t *testing.T) {
	s := NewSource(Config{URL: "nats://127.0.0.1:1"}, logAdapter.NewNoopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.Start(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nats connect")
}
