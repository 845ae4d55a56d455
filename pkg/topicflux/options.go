package topicflux

import (
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	logAdapter "github.com/bft-labs/topicflux/internal/adapters/log"
	mqttSource "github.com/bft-labs/topicflux/internal/adapters/mqtt"
	natsSource "github.com/bft-labs/topicflux/internal/adapters/nats"
	wmSource "github.com/bft-labs/topicflux/internal/adapters/watermill"
	"github.com/bft-labs/topicflux/internal/domain"
	"github.com/bft-labs/topicflux/internal/ports"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// Record is one message received from the bus.
type Record = domain.Record

// RecordSource delivers records until its context is canceled.
type RecordSource = ports.RecordSource

// LineWriter delivers one batch of line-protocol lines.
type LineWriter = ports.LineWriter

// MQTTConfig holds MQTT broker settings for WithMQTT.
type MQTTConfig = mqttSource.Config

// NATSConfig holds NATS connection settings for WithNATS.
type NATSConfig = natsSource.Config

// Option configures optional behavior of a Bridge.
type Option func(*options)

type options struct {
	httpClient   ports.HTTPClient
	logger       ports.Logger
	eventHandler EventHandler
	plugins      []Plugin
	registerer   prometheus.Registerer
	writer       ports.LineWriter

	// newSource is resolved in New once the logger is known.
	newSource func(logger ports.Logger) ports.RecordSource
}

func defaultOptions(client *http.Client) options {
	return options{
		httpClient: client,
		logger:     logAdapter.NewNoopLogger(),
	}
}

// WithHTTPClient sets a custom HTTP client for the write endpoint.
// If not provided, a client with Config.HTTPTimeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for bridge events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the Bridge starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithMetrics registers Prometheus collectors for the bridge with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithWriter replaces the InfluxDB HTTP writer. The target fields of Config
// are still validated but not used.
func WithWriter(w LineWriter) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithSource consumes records from a custom source.
func WithSource(src RecordSource) Option {
	return func(o *options) {
		o.newSource = func(ports.Logger) ports.RecordSource { return src }
	}
}

// WithMQTT consumes records from an MQTT broker.
func WithMQTT(cfg MQTTConfig) Option {
	return func(o *options) {
		o.newSource = func(l ports.Logger) ports.RecordSource { return mqttSource.NewSource(cfg, l) }
	}
}

// WithNATS consumes records from a NATS server. Topics use "/" separators
// and MQTT style wildcards; they are translated to NATS subjects.
func WithNATS(cfg NATSConfig) Option {
	return func(o *options) {
		o.newSource = func(l ports.Logger) ports.RecordSource { return natsSource.NewSource(cfg, l) }
	}
}

// WithSubscriber consumes records from any Watermill subscriber.
func WithSubscriber(sub message.Subscriber, topics ...string) Option {
	return func(o *options) {
		o.newSource = func(l ports.Logger) ports.RecordSource {
			return wmSource.NewSource(wmSource.Config{Topics: topics}, sub, l)
		}
	}
}
