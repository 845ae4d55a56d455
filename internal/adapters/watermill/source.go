// Package watermill adapts any watermill message.Subscriber into a record
// source, so every transport watermill supports can feed the bridge.
package watermill

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/bft-labs/topicflux/internal/adapters/queue"
	"github.com/bft-labs/topicflux/internal/domain"
	"github.com/bft-labs/topicflux/internal/ports"
)

// Metadata keys read from incoming messages.
const (
	// MetadataTopic overrides the subscribed topic, for transports that fan
	// in several bus topics through one subscription.
	MetadataTopic = "topic"

	// MetadataTimestamp holds the receive time in unix nanoseconds.
	MetadataTimestamp = "timestamp_ns"
)

// Config contains the subscription settings.
type Config struct {
	Topics    []string
	QueueSize int
}

// Source implements ports.RecordSource over a message.Subscriber.
type Source struct {
	config     Config
	subscriber message.Subscriber
	logger     ports.Logger
	now        func() time.Time
}

// NewSource creates a source reading the given topics from subscriber.
func NewSource(cfg Config, subscriber message.Subscriber, logger ports.Logger) *Source {
	return &Source{
		config:     cfg,
		subscriber: subscriber,
		logger:     logger,
		now:        time.Now,
	}
}

// Start subscribes to every topic. Messages are acked once enqueued; the
// subscriber is closed after ctx is done.
func (s *Source) Start(ctx context.Context) (<-chan domain.Record, error) {
	if len(s.config.Topics) == 0 {
		return nil, fmt.Errorf("%w: watermill source needs at least one topic", domain.ErrInvalidConfig)
	}

	q := queue.New(s.config.QueueSize)
	subCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	for _, topic := range s.config.Topics {
		msgs, err := s.subscriber.Subscribe(subCtx, topic)
		if err != nil {
			cancel()
			wg.Wait()
			q.Close()
			return nil, fmt.Errorf("watermill subscribe %s: %w", topic, err)
		}
		wg.Add(1)
		go func(topic string, msgs <-chan *message.Message) {
			defer wg.Done()
			s.consume(subCtx, topic, msgs, q)
		}(topic, msgs)
	}

	go func() {
		<-ctx.Done()
		cancel()
		if err := s.subscriber.Close(); err != nil {
			s.logger.Warn("watermill subscriber close failed", ports.Err(err))
		}
		wg.Wait()
		q.Close()
		s.logger.Debug("watermill source stopped")
	}()

	return q.C(), nil
}

func (s *Source) consume(ctx context.Context, topic string, msgs <-chan *message.Message, q *queue.Queue) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if len(msg.Payload) == 0 {
				msg.Ack()
				continue
			}
			if q.Push(s.record(topic, msg)) {
				msg.Ack()
			} else {
				msg.Nack()
			}
		}
	}
}

func (s *Source) record(topic string, msg *message.Message) domain.Record {
	if t := msg.Metadata.Get(MetadataTopic); t != "" {
		topic = t
	}
	ts := s.now().UnixNano()
	if raw := msg.Metadata.Get(MetadataTimestamp); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ts = v
		}
	}
	return domain.NewRecord(ts, topic, msg.Payload)
}
