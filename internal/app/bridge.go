package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/topicflux/internal/domain"
	"github.com/bft-labs/topicflux/internal/lineproto"
	"github.com/bft-labs/topicflux/internal/payload"
	"github.com/bft-labs/topicflux/internal/ports"
)

// Default bridge timings.
const (
	DefaultTickInterval = 50 * time.Millisecond
	DefaultDrainTimeout = 10 * time.Second
)

// BridgeConfig contains configuration for the bridge loop.
type BridgeConfig struct {
	// TickInterval is how often the buffer thresholds are checked.
	TickInterval time.Duration

	// DrainTimeout bounds the shutdown phase: waiting for the source to
	// hand over queued records and the final write.
	DrainTimeout time.Duration

	// Measurement names the series written. Empty means "measurement".
	Measurement string
}

// Bridge moves records from a source into the buffer.
//
// Ingestion and flushing run on separate goroutines so a slow sink never
// stalls the source; the Buffer is the only shared state.
type Bridge struct {
	config  BridgeConfig
	source  ports.RecordSource
	buffer  *Buffer
	encoder lineproto.Encoder
	logger  ports.Logger
	emitter EventEmitter
}

// NewBridge creates a bridge with the given dependencies.
func NewBridge(
	config BridgeConfig,
	source ports.RecordSource,
	buffer *Buffer,
	logger ports.Logger,
	emitter EventEmitter,
) *Bridge {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = DefaultDrainTimeout
	}
	return &Bridge{
		config:  config,
		source:  source,
		buffer:  buffer,
		encoder: lineproto.Encoder{Measurement: config.Measurement},
		logger:  logger,
		emitter: emitter,
	}
}

// Buffer returns the bridge's delivery buffer.
func (b *Bridge) Buffer() *Buffer {
	return b.buffer
}

// Run consumes records until ctx is canceled or the source closes.
//
// On cancellation the records the source already queued are still encoded,
// then the buffer is drained once. A failed drain is returned and wraps
// domain.ErrDrainFailed. If the source closes on its own, Run drains and
// returns domain.ErrSourceClosed (or the drain error).
func (b *Bridge) Run(ctx context.Context) error {
	records, err := b.source.Start(ctx)
	if err != nil {
		return fmt.Errorf("start source: %w", err)
	}

	kick := make(chan struct{}, 1)
	stop := make(chan struct{})
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		b.flushLoop(context.WithoutCancel(ctx), kick, stop)
	}()

	sourceClosed := false
loop:
	for {
		select {
		case <-ctx.Done():
			b.drainQueued(records)
			break loop
		case rec, ok := <-records:
			if !ok {
				sourceClosed = true
				break loop
			}
			b.handle(rec)
			select {
			case kick <- struct{}{}:
			default:
			}
		}
	}

	close(stop)
	<-flushDone

	if err := b.drain(ctx); err != nil {
		return err
	}
	if sourceClosed && ctx.Err() == nil {
		return domain.ErrSourceClosed
	}
	return nil
}

// flushLoop ticks the buffer on a timer and whenever a record was appended.
// Writes use a context that outlives Run's cancellation so an in-flight
// write is not cut short; the HTTP client timeout bounds it instead.
func (b *Bridge) flushLoop(ctx context.Context, kick <-chan struct{}, stop <-chan struct{}) {
	ticker := time.NewTicker(b.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-kick:
		case <-ticker.C:
		}
		_, _ = b.buffer.Tick(ctx, time.Now())
		if b.emitter != nil {
			b.emitter.OnPending(b.buffer.Pending())
		}
	}
}

// handle encodes one record and appends its lines.
func (b *Bridge) handle(rec domain.Record) {
	c, ok := payload.Classify(rec.Payload)
	if !ok {
		b.logger.Debug("unrepresentable payload",
			ports.String("topic", rec.Topic),
			ports.Int("bytes", len(rec.Payload)),
		)
		if b.emitter != nil {
			b.emitter.OnRecord(rec.Topic, 0)
		}
		return
	}

	lines, dropped := b.encoder.Encode(rec.Topic, rec.Timestamp, payload.Extract(c))
	switch {
	case dropped > 0:
		b.logger.Debug("dropped values with empty or multi-line tags",
			ports.String("topic", rec.Topic),
			ports.Int("values", dropped),
		)
	case len(lines) == 0:
		b.logger.Debug("no numeric value",
			ports.String("topic", rec.Topic),
			ports.String("kind", c.Kind.String()),
		)
	}
	b.buffer.Append(lines...)
	if b.emitter != nil {
		b.emitter.OnRecord(rec.Topic, len(lines))
	}
}

// drainQueued encodes records the source still delivers after cancellation,
// until it closes the channel or the drain timeout expires.
func (b *Bridge) drainQueued(records <-chan domain.Record) {
	timer := time.NewTimer(b.config.DrainTimeout)
	defer timer.Stop()

	n := 0
	for {
		select {
		case rec, ok := <-records:
			if !ok {
				if n > 0 {
					b.logger.Debug("drained queued records", ports.Int("records", n))
				}
				return
			}
			b.handle(rec)
			n++
		case <-timer.C:
			b.logger.Warn("source did not close in time, dropping its queue",
				ports.Duration("timeout", b.config.DrainTimeout),
			)
			return
		}
	}
}

// drain performs the final write. It ignores ctx cancellation and uses the
// drain timeout instead.
func (b *Bridge) drain(ctx context.Context) error {
	pending := b.buffer.Pending()
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.config.DrainTimeout)
	defer cancel()

	if err := b.buffer.Drain(dctx); err != nil {
		b.logger.Error("final drain failed", ports.Err(err), ports.Int("lines", pending))
		return err
	}
	if pending > 0 {
		b.logger.Info("drained buffer", ports.Int("lines", pending))
	}
	return nil
}
