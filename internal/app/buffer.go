package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/topicflux/internal/domain"
	"github.com/bft-labs/topicflux/internal/ports"
)

// Default buffer thresholds.
const (
	DefaultMaxAmount = 1000
	DefaultMaxAge    = 28200 * time.Millisecond
)

// Limits are the thresholds that trigger a flush.
type Limits struct {
	// MaxAmount flushes once this many lines are pending.
	MaxAmount int

	// MaxAge flushes once the last successful flush is older than this.
	MaxAge time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.MaxAmount <= 0 {
		l.MaxAmount = DefaultMaxAmount
	}
	if l.MaxAge <= 0 {
		l.MaxAge = DefaultMaxAge
	}
	return l
}

// Buffer accumulates encoded lines and flushes them through a LineWriter.
//
// Append never blocks on the network. Flushing works on a snapshot taken
// under the lock; lines appended while a write is in flight stay queued
// behind the flushed prefix, so output order equals append order.
//
// A Buffer that still holds lines must be drained with Drain before it is
// released.
type Buffer struct {
	writer  ports.LineWriter
	logger  ports.Logger
	emitter EventEmitter

	// flushMu serializes writes. Tick skips when a write is in flight,
	// Drain waits for it.
	flushMu sync.Mutex

	mu        sync.Mutex
	pending   *domain.Batch
	limits    Limits
	lastFlush time.Time
	failures  int
	notBefore time.Time
	lastDelay time.Duration
	backoff   *backoff
	drained   bool
}

// NewBuffer creates a buffer. The age threshold counts from now.
func NewBuffer(limits Limits, writer ports.LineWriter, logger ports.Logger, emitter EventEmitter) *Buffer {
	b := &Buffer{
		writer:    writer,
		logger:    logger,
		emitter:   emitter,
		pending:   domain.NewBatch(),
		limits:    limits.withDefaults(),
		lastFlush: time.Now(),
		backoff:   newBackoff(DefaultBackoffInitial, DefaultBackoffMax),
	}
	armLeakCheck(b)
	return b
}

// Append queues lines for the next flush.
func (b *Buffer) Append(lines ...string) {
	if len(lines) == 0 {
		return
	}
	b.mu.Lock()
	b.pending.Add(lines...)
	b.drained = false
	b.mu.Unlock()
}

// SetLimits replaces the flush thresholds. It takes effect on the next tick.
func (b *Buffer) SetLimits(l Limits) {
	b.mu.Lock()
	b.limits = l.withDefaults()
	b.mu.Unlock()
}

// Limits returns the active thresholds.
func (b *Buffer) Limits() Limits {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limits
}

// Pending returns the number of lines waiting to be flushed.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.Size()
}

// Failures returns the number of consecutive failed flushes.
func (b *Buffer) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// RetryDelay returns the backoff applied after the most recent failure,
// or zero when the last flush succeeded.
func (b *Buffer) RetryDelay() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastDelay
}

// Tick flushes when a threshold is reached and the backoff window has passed.
// It reports whether a write was attempted; the error is the write error.
// Ticks that arrive while another write is in flight are skipped.
func (b *Buffer) Tick(ctx context.Context, now time.Time) (bool, error) {
	if !b.flushMu.TryLock() {
		return false, nil
	}
	defer b.flushMu.Unlock()

	b.mu.Lock()
	if !b.dueLocked(now) {
		b.mu.Unlock()
		return false, nil
	}
	lines, bytes := b.pending.Snapshot(), b.pending.TotalBytes
	b.mu.Unlock()

	return true, b.flush(ctx, lines, bytes, now)
}

func (b *Buffer) dueLocked(now time.Time) bool {
	if b.pending.Empty() {
		return false
	}
	if now.Before(b.notBefore) {
		return false
	}
	return b.pending.Size() >= b.limits.MaxAmount || now.Sub(b.lastFlush) > b.limits.MaxAge
}

// Drain makes exactly one write attempt with everything pending, ignoring
// thresholds and backoff. A failure is wrapped in domain.ErrDrainFailed and
// the lines stay pending.
func (b *Buffer) Drain(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	b.drained = true
	if b.pending.Empty() {
		b.mu.Unlock()
		return nil
	}
	lines, bytes := b.pending.Snapshot(), b.pending.TotalBytes
	b.mu.Unlock()

	if err := b.flush(ctx, lines, bytes, time.Now()); err != nil {
		return fmt.Errorf("%w: %d lines: %w", domain.ErrDrainFailed, len(lines), err)
	}
	return nil
}

// flush writes a snapshot of bytes total length. It must be called with
// flushMu held.
func (b *Buffer) flush(ctx context.Context, lines []string, bytes int, now time.Time) error {
	start := time.Now()
	err := b.writer.Write(ctx, lines)
	duration := time.Since(start)

	b.mu.Lock()
	if err == nil {
		b.pending.DropFront(len(lines))
		b.lastFlush = now
		b.failures = 0
		b.notBefore = time.Time{}
		b.lastDelay = 0
		b.backoff.Reset()
	} else {
		b.failures++
		b.lastDelay = b.backoff.Next()
		b.notBefore = now.Add(b.lastDelay)
	}
	failures := b.failures
	delay := b.lastDelay
	b.mu.Unlock()

	if err != nil {
		fields := []ports.Field{
			ports.Err(err),
			ports.Int("lines", len(lines)),
			ports.Int("failures", failures),
			ports.Duration("retry_in", delay),
		}
		var rejected *domain.RejectedError
		if errors.As(err, &rejected) {
			fields = append(fields, ports.Int("status", rejected.Status), ports.String("body", rejected.Body))
		}
		b.logger.Warn("flush failed", fields...)
		if b.emitter != nil {
			b.emitter.OnFlushError(err, len(lines), failures)
		}
		return err
	}

	b.logger.Debug("flushed batch",
		ports.Int("lines", len(lines)),
		ports.Int("bytes", bytes),
		ports.Duration("duration", duration),
	)
	if b.emitter != nil {
		b.emitter.OnFlushSuccess(len(lines), bytes, duration)
	}
	return nil
}
