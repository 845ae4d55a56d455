// Package nats provides a record source backed by NATS core subscriptions.
//
// NATS subjects use "." where topics use "/". Subjects are translated on
// the way in so that lines carry the same topic tags whichever bus
// delivered them. Topic filters may be written MQTT style ("home/+/temp",
// "home/#") and are translated to NATS wildcards.
package nats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/bft-labs/topicflux/internal/adapters/queue"
	"github.com/bft-labs/topicflux/internal/domain"
	"github.com/bft-labs/topicflux/internal/ports"
)

// Defaults for the NATS connection.
const (
	DefaultURL           = nats.DefaultURL
	DefaultSubject       = ">"
	DefaultReconnectWait = 2 * time.Second
	DefaultName          = "topicflux"
)

// Config contains the NATS connection settings.
type Config struct {
	URL           string
	Name          string
	Username      string
	Password      string
	Token         string
	Topics        []string
	ReconnectWait time.Duration
	QueueSize     int
}

// SubjectFor translates a topic filter to a NATS subject.
func SubjectFor(topic string) string {
	parts := strings.Split(topic, "/")
	for i, p := range parts {
		switch p {
		case "+":
			parts[i] = "*"
		case "#":
			parts[i] = ">"
		}
	}
	return strings.Join(parts, ".")
}

// TopicFor translates a received subject to a topic.
func TopicFor(subject string) string {
	return strings.ReplaceAll(subject, ".", "/")
}

// Source implements ports.RecordSource with nats.go.
type Source struct {
	config Config
	logger ports.Logger
	now    func() time.Time
	queue  *queue.Queue
}

// NewSource creates a NATS source. Missing topics subscribe to everything.
func NewSource(cfg Config, logger ports.Logger) *Source {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = DefaultReconnectWait
	}
	return &Source{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Subjects returns the subjects the source subscribes to.
func (s *Source) Subjects() []string {
	if len(s.config.Topics) == 0 {
		return []string{DefaultSubject}
	}
	out := make([]string, len(s.config.Topics))
	for i, t := range s.config.Topics {
		out[i] = SubjectFor(t)
	}
	return out
}

func (s *Source) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.Name(s.config.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(s.config.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				s.logger.Warn("nats disconnected", ports.Err(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.logger.Info("nats reconnected", ports.String("url", nc.ConnectedUrlRedacted()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			s.logger.Error("nats async error", ports.Err(err), ports.String("subject", subject))
		}),
	}
	switch {
	case s.config.Token != "":
		opts = append(opts, nats.Token(s.config.Token))
	case s.config.Username != "":
		opts = append(opts, nats.UserInfo(s.config.Username, s.config.Password))
	}
	return opts
}

// Start connects and subscribes. The subscription is restored by the
// client after reconnects.
func (s *Source) Start(ctx context.Context) (<-chan domain.Record, error) {
	nc, err := nats.Connect(s.config.URL, s.connectionOptions()...)
	if err != nil {
		return nil, fmt.Errorf("nats connect to %s: %w", s.config.URL, err)
	}
	return s.start(ctx, nc)
}

func (s *Source) start(ctx context.Context, nc *nats.Conn) (<-chan domain.Record, error) {
	s.queue = queue.New(s.config.QueueSize)

	subs := make([]*nats.Subscription, 0, len(s.Subjects()))
	for _, subject := range s.Subjects() {
		sub, err := nc.Subscribe(subject, s.onMessage)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("nats subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}
	s.logger.Info("nats subscribed",
		ports.String("url", nc.ConnectedUrlRedacted()),
		ports.Any("subjects", s.Subjects()),
	)

	go func() {
		<-ctx.Done()
		for _, sub := range subs {
			_ = sub.Unsubscribe()
		}
		nc.Close()
		s.queue.Close()
		s.logger.Debug("nats source stopped")
	}()

	return s.queue.C(), nil
}

func (s *Source) onMessage(m *nats.Msg) {
	if len(m.Data) == 0 {
		return
	}
	rec := domain.NewRecord(s.now().UnixNano(), TopicFor(m.Subject), m.Data)
	if !s.queue.Push(rec) {
		s.logger.Debug("nats message after shutdown dropped", ports.String("subject", m.Subject))
	}
}
