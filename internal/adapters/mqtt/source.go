// Package mqtt provides a record source backed by an MQTT broker.
package mqtt

import (
	"context"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/oklog/ulid/v2"

	"github.com/bft-labs/topicflux/internal/adapters/queue"
	"github.com/bft-labs/topicflux/internal/domain"
	"github.com/bft-labs/topicflux/internal/ports"
)

// Defaults for the MQTT connection.
const (
	DefaultBroker         = "localhost"
	DefaultPort           = 1883
	DefaultTopic          = "#"
	DefaultConnectTimeout = 10 * time.Second

	// qosExactlyOnce keeps the broker from redelivering what was already
	// handed over.
	qosExactlyOnce byte = 2

	// disconnectQuiesce is how long in-flight work may finish on shutdown,
	// in milliseconds.
	disconnectQuiesce = 250
)

// Config contains the broker connection settings.
type Config struct {
	Broker         string
	Port           int
	Username       string
	Password       string
	Topics         []string
	ClientID       string
	ConnectTimeout time.Duration
	QueueSize      int
}

// BrokerURL returns the tcp:// URL of the broker.
func (c Config) BrokerURL() string {
	broker := c.Broker
	if broker == "" {
		broker = DefaultBroker
	}
	if strings.Contains(broker, "://") {
		return broker
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("tcp://%s:%d", broker, port)
}

// NewClientID returns a unique client id. A random id lets several bridges
// share a broker without kicking each other off.
func NewClientID() string {
	return "topicflux-" + strings.ToLower(ulid.Make().String())
}

// Source implements ports.RecordSource on top of paho.
type Source struct {
	config Config
	logger ports.Logger
	now    func() time.Time

	newClient func(*paho.ClientOptions) paho.Client
	queue     *queue.Queue
}

// NewSource creates an MQTT source. Missing topics default to "#".
func NewSource(cfg Config, logger ports.Logger) *Source {
	if len(cfg.Topics) == 0 {
		cfg.Topics = []string{DefaultTopic}
	}
	if cfg.ClientID == "" {
		cfg.ClientID = NewClientID()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	return &Source{
		config:    cfg,
		logger:    logger,
		now:       time.Now,
		newClient: paho.NewClient,
	}
}

// Start connects to the broker and subscribes. Subscriptions are renewed
// after every reconnect because sessions are clean.
func (s *Source) Start(ctx context.Context) (<-chan domain.Record, error) {
	s.queue = queue.New(s.config.QueueSize)

	opts := paho.NewClientOptions().
		AddBroker(s.config.BrokerURL()).
		SetClientID(s.config.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(s.config.ConnectTimeout).
		SetOrderMatters(true).
		SetOnConnectHandler(s.subscribe).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			s.logger.Warn("mqtt connection lost", ports.Err(err))
		}).
		SetReconnectingHandler(func(_ paho.Client, _ *paho.ClientOptions) {
			s.logger.Info("mqtt reconnecting", ports.String("broker", s.config.BrokerURL()))
		})
	if s.config.Username != "" {
		opts.SetUsername(s.config.Username)
		opts.SetPassword(s.config.Password)
	}

	client := s.newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(s.config.ConnectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect to %s: timeout after %s", s.config.BrokerURL(), s.config.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", s.config.BrokerURL(), err)
	}

	go func() {
		<-ctx.Done()
		client.Disconnect(disconnectQuiesce)
		s.queue.Close()
		s.logger.Debug("mqtt source stopped")
	}()

	return s.queue.C(), nil
}

func (s *Source) subscribe(client paho.Client) {
	filters := make(map[string]byte, len(s.config.Topics))
	for _, t := range s.config.Topics {
		filters[t] = qosExactlyOnce
	}

	token := client.SubscribeMultiple(filters, s.onMessage)
	go func() {
		if !token.WaitTimeout(s.config.ConnectTimeout) {
			s.logger.Error("mqtt subscribe timed out", ports.Any("topics", s.config.Topics))
			return
		}
		if err := token.Error(); err != nil {
			s.logger.Error("mqtt subscribe failed", ports.Err(err), ports.Any("topics", s.config.Topics))
			return
		}
		s.logger.Info("mqtt subscribed",
			ports.String("broker", s.config.BrokerURL()),
			ports.Any("topics", s.config.Topics),
		)
	}()
}

// onMessage filters and enqueues one message. Duplicates and retained
// messages were already seen, or describe a state from before the bridge
// started; empty payloads carry nothing.
func (s *Source) onMessage(_ paho.Client, m paho.Message) {
	if !accept(m) {
		s.logger.Debug("mqtt message skipped",
			ports.String("topic", m.Topic()),
			ports.Bool("duplicate", m.Duplicate()),
			ports.Bool("retained", m.Retained()),
		)
		return
	}
	rec := domain.NewRecord(s.now().UnixNano(), m.Topic(), m.Payload())
	if !s.queue.Push(rec) {
		s.logger.Debug("mqtt message after shutdown dropped", ports.String("topic", m.Topic()))
	}
}

func accept(m paho.Message) bool {
	return !m.Duplicate() && !m.Retained() && len(m.Payload()) > 0
}
