// Package metrics exports bridge events as Prometheus metrics.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/topicflux/internal/domain"
)

const namespace = "topicflux"

// Flush results used as label values.
const (
	resultSuccess   = "success"
	resultRejected  = "rejected"
	resultTransport = "transport"
	resultOther     = "error"
)

// Collector implements app.EventEmitter and records Prometheus metrics.
// Topics are not used as labels since their cardinality is unbounded.
type Collector struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	registered bool

	recordsTotal      prometheus.Counter
	recordsEmptyTotal prometheus.Counter
	linesTotal        prometheus.Counter
	flushesTotal      *prometheus.CounterVec
	linesFlushedTotal prometheus.Counter
	bytesFlushedTotal prometheus.Counter
	pendingLines      prometheus.Gauge
	failures          prometheus.Gauge
	flushDuration     prometheus.Histogram
}

// NewCollector creates a collector. A nil registerer means the default one.
func NewCollector(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Collector{
		registerer: registerer,
		recordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_total",
			Help: "Records received from the bus.",
		}),
		recordsEmptyTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_without_values_total",
			Help: "Records that yielded no numeric value.",
		}),
		linesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "lines_encoded_total",
			Help: "Line protocol lines produced.",
		}),
		flushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "flushes_total",
			Help: "Write attempts by result.",
		}, []string{"result"}),
		linesFlushedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "lines_flushed_total",
			Help: "Lines accepted by the sink.",
		}),
		bytesFlushedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_flushed_total",
			Help: "Uncompressed line bytes accepted by the sink.",
		}),
		pendingLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pending_lines",
			Help: "Lines waiting in the buffer.",
		}),
		failures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "consecutive_flush_failures",
			Help: "Failed write attempts since the last success.",
		}),
		flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "flush_duration_seconds",
			Help:    "Duration of successful writes.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (c *Collector) Register() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registered {
		return nil
	}
	for _, col := range c.collectors() {
		if err := c.registerer.Register(col); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	c.registered = true
	return nil
}

// Unregister removes the collectors from the registerer.
func (c *Collector) Unregister() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, col := range c.collectors() {
		c.registerer.Unregister(col)
	}
	c.registered = false
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.recordsTotal,
		c.recordsEmptyTotal,
		c.linesTotal,
		c.flushesTotal,
		c.linesFlushedTotal,
		c.bytesFlushedTotal,
		c.pendingLines,
		c.failures,
		c.flushDuration,
	}
}

// OnRecord counts a consumed record.
func (c *Collector) OnRecord(_ string, lines int) {
	c.recordsTotal.Inc()
	if lines == 0 {
		c.recordsEmptyTotal.Inc()
		return
	}
	c.linesTotal.Add(float64(lines))
}

// OnFlushSuccess counts an accepted batch.
func (c *Collector) OnFlushSuccess(lines, bytes int, duration time.Duration) {
	c.flushesTotal.WithLabelValues(resultSuccess).Inc()
	c.linesFlushedTotal.Add(float64(lines))
	c.bytesFlushedTotal.Add(float64(bytes))
	c.flushDuration.Observe(duration.Seconds())
	c.failures.Set(0)
}

// OnFlushError counts a failed attempt.
func (c *Collector) OnFlushError(err error, _ int, failures int) {
	c.flushesTotal.WithLabelValues(flushResult(err)).Inc()
	c.failures.Set(float64(failures))
}

// OnPending tracks the buffer size.
func (c *Collector) OnPending(lines int) {
	c.pendingLines.Set(float64(lines))
}

func flushResult(err error) string {
	var rejected *domain.RejectedError
	var transport *domain.TransportError
	switch {
	case errors.As(err, &rejected):
		return resultRejected
	case errors.As(err, &transport):
		return resultTransport
	default:
		return resultOther
	}
}
