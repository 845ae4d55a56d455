package topicflux

import (
	"time"

	"github.com/bft-labs/topicflux/internal/app"
)

// EventHandler receives notifications about bridge activity.
// Methods are called synchronously from the bridge goroutines and should
// return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnRecord(event RecordEvent)
	OnFlushSuccess(event FlushSuccessEvent)
	OnFlushError(event FlushErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)   {}
func (BaseEventHandler) OnRecord(RecordEvent)             {}
func (BaseEventHandler) OnFlushSuccess(FlushSuccessEvent) {}
func (BaseEventHandler) OnFlushError(FlushErrorEvent)     {}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// RecordEvent is emitted for every record consumed from the source.
// Lines is zero when the payload carried no numeric value.
type RecordEvent struct {
	Topic string
	Lines int
}

// FlushSuccessEvent is emitted after a batch was accepted by the server.
type FlushSuccessEvent struct {
	Lines    int
	Bytes    int
	Duration time.Duration
}

// FlushErrorEvent is emitted after a failed write. The lines stay pending.
type FlushErrorEvent struct {
	Error    error
	Lines    int
	Failures int
}

// eventEmitterWrapper adapts EventHandler and the metrics collector to the
// internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
	sinks   []app.EventEmitter
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnRecord(topic string, lines int) {
	for _, s := range e.sinks {
		s.OnRecord(topic, lines)
	}
	if e.handler != nil {
		e.handler.OnRecord(RecordEvent{Topic: topic, Lines: lines})
	}
}

func (e *eventEmitterWrapper) OnFlushSuccess(lines, bytes int, duration time.Duration) {
	for _, s := range e.sinks {
		s.OnFlushSuccess(lines, bytes, duration)
	}
	if e.handler != nil {
		e.handler.OnFlushSuccess(FlushSuccessEvent{Lines: lines, Bytes: bytes, Duration: duration})
	}
}

func (e *eventEmitterWrapper) OnFlushError(err error, lines, failures int) {
	for _, s := range e.sinks {
		s.OnFlushError(err, lines, failures)
	}
	if e.handler != nil {
		e.handler.OnFlushError(FlushErrorEvent{Error: err, Lines: lines, Failures: failures})
	}
}

func (e *eventEmitterWrapper) OnPending(lines int) {
	for _, s := range e.sinks {
		s.OnPending(lines)
	}
}
