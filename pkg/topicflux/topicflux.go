package topicflux

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	httpAdapter "github.com/bft-labs/topicflux/internal/adapters/http"
	"github.com/bft-labs/topicflux/internal/adapters/metrics"
	"github.com/bft-labs/topicflux/internal/app"
	"github.com/bft-labs/topicflux/internal/domain"
	"github.com/bft-labs/topicflux/internal/ports"
)

// Errors returned by Bridge. Check them with errors.Is.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrDrainFailed     = domain.ErrDrainFailed
	ErrSourceClosed    = domain.ErrSourceClosed
)

// Bridge forwards bus messages to a line-protocol endpoint.
// Use New() to create an instance, then Start() to begin consuming.
type Bridge struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	bridge    *app.Bridge
	buffer    *app.Buffer
	writer    ports.LineWriter
	collector *metrics.Collector
	logger    ports.Logger
	plugins   []Plugin

	// mu serializes Start and Stop.
	mu sync.Mutex
}

// New creates a Bridge with the given configuration.
// The instance is created in StateStopped; call Start() to begin.
// A record source must be given with WithSource, WithMQTT, WithNATS or
// WithSubscriber.
func New(cfg Config, opts ...Option) (*Bridge, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions(&http.Client{Timeout: cfg.HTTPTimeout})
	for _, opt := range opts {
		opt(&o)
	}
	if o.newSource == nil {
		return nil, fmt.Errorf("%w: no record source", domain.ErrInvalidConfig)
	}

	logger := o.logger
	emitter := &eventEmitterWrapper{handler: o.eventHandler}

	var collector *metrics.Collector
	if o.registerer != nil {
		collector = metrics.NewCollector(o.registerer)
		if err := collector.Register(); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		emitter.sinks = append(emitter.sinks, collector)
	}

	writer := o.writer
	if writer == nil {
		w, err := httpAdapter.NewInfluxWriter(httpAdapter.WriterConfig{
			Target:     cfg.target(),
			Token:      cfg.Token,
			AuthScheme: cfg.AuthScheme,
			Gzip:       cfg.Gzip,
			UserAgent:  "topicflux/" + Version,
		}, o.httpClient, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("writing to influx", ports.String("url", w.URL()))
		writer = w
	}

	buffer := app.NewBuffer(app.Limits{
		MaxAmount: cfg.BufferAmount,
		MaxAge:    cfg.BufferAge,
	}, writer, logger, emitter)

	bridge := app.NewBridge(app.BridgeConfig{
		TickInterval: cfg.TickInterval,
		DrainTimeout: cfg.DrainTimeout,
		Measurement:  cfg.Measurement,
	}, o.newSource(logger), buffer, logger, emitter)

	return &Bridge{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(app.ShutdownGrace(cfg.DrainTimeout, cfg.HTTPTimeout), logger, emitter),
		bridge:    bridge,
		buffer:    buffer,
		writer:    writer,
		collector: collector,
		logger:    logger,
		plugins:   o.plugins,
	}, nil
}

// Probe sends an empty write to check that the endpoint is reachable and
// accepts the credentials. It is a no-op for custom writers without a
// Probe method.
func (b *Bridge) Probe(ctx context.Context) error {
	p, ok := b.writer.(interface{ Probe(context.Context) error })
	if !ok {
		return nil
	}
	return p.Probe(ctx)
}

// Start begins consuming in the background.
// Returns immediately after starting the bridge goroutine.
// Returns an error if already running or if a plugin fails to initialize.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	runCtx, err := b.lifecycle.Begin(ctx)
	if err != nil {
		return err
	}

	pluginCfg := PluginConfig{Logger: b.logger, Limits: b}
	for _, p := range b.plugins {
		if err := initializePlugin(runCtx, p, pluginCfg); err != nil {
			b.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			b.lifecycle.Abort(fmt.Errorf("plugin %s: %w", p.Name(), err))
			return err
		}
		b.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	b.lifecycle.Launch(runCtx, b.bridge.Run)
	return nil
}

// Stop cancels the source, waits for the final drain and shuts plugins down.
// The wait covers both drain phases, so it grows with Config.DrainTimeout.
// Stop returns the drain error (wrapping ErrDrainFailed) when the pending
// lines could not be delivered, or ErrShutdownTimeout.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.lifecycle.Stop("Stop() called")
	if errors.Is(err, domain.ErrNotRunning) {
		return err
	}

	shutdownCtx := context.Background()
	for i := len(b.plugins) - 1; i >= 0; i-- {
		p := b.plugins[i]
		if shutdownErr := shutdownPlugin(shutdownCtx, p); shutdownErr != nil {
			b.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(shutdownErr))
		} else {
			b.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}

	b.lifecycle.Settle(err)
	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (b *Bridge) Status() State {
	return convertState(b.lifecycle.State())
}

// Done returns a channel closed when the bridge goroutine has returned.
// It is nil before the first Start.
func (b *Bridge) Done() <-chan struct{} {
	return b.lifecycle.Done()
}

// Err returns the error the bridge goroutine ended with, if any.
// A source that closed on its own yields ErrSourceClosed.
func (b *Bridge) Err() error {
	return b.lifecycle.Err()
}

// Pending returns the number of lines waiting for delivery.
func (b *Bridge) Pending() int {
	return b.buffer.Pending()
}

// Limits returns the current buffer thresholds.
func (b *Bridge) Limits() Limits {
	l := b.buffer.Limits()
	return Limits{MaxAmount: l.MaxAmount, MaxAge: l.MaxAge}
}

// SetLimits changes the buffer thresholds of a live bridge.
func (b *Bridge) SetLimits(l Limits) error {
	if err := l.validate(); err != nil {
		return err
	}
	b.buffer.SetLimits(app.Limits{MaxAmount: l.MaxAmount, MaxAge: l.MaxAge})
	b.logger.Info("buffer limits updated",
		ports.Int("amount", l.MaxAmount),
		ports.Duration("age", l.MaxAge))
	return nil
}

// Close unregisters the metrics collectors. The bridge must be stopped.
func (b *Bridge) Close() {
	if b.collector != nil {
		b.collector.Unregister()
	}
}
