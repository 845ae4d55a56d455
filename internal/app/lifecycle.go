package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/topicflux/internal/domain"
	"github.com/bft-labs/topicflux/internal/ports"
)

// shutdownSlack is added to the shutdown grace for the work Run does
// outside the two drain phases.
const shutdownSlack = time.Second

// ShutdownGrace returns how long a stop waits for a cancelled bridge.
// Run spends up to drainTimeout collecting queued records, then up to
// drainTimeout on the final write, which may first wait for a tick write
// bounded by httpTimeout.
func ShutdownGrace(drainTimeout, httpTimeout time.Duration) time.Duration {
	return 2*drainTimeout + httpTimeout + shutdownSlack
}

// State is the lifecycle state of a bridge.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// next lists the states each state may move to.
var next = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

func canMove(from, to State) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StateEmitter is told about every state change.
type StateEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle owns the goroutine a bridge runs on and tracks its state:
//
//	Stopped -> Starting -> Running -> Stopping -> Stopped
//
// Starting, Running and Stopping may also end in Crashed, from which the
// bridge can be started again.
type Lifecycle struct {
	grace   time.Duration
	logger  ports.Logger
	emitter StateEmitter

	mu     sync.RWMutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewLifecycle creates a lifecycle in StateStopped. A stop waits up to
// grace for the bridge to return; see ShutdownGrace.
func NewLifecycle(grace time.Duration, logger ports.Logger, emitter StateEmitter) *Lifecycle {
	return &Lifecycle{
		grace:   grace,
		logger:  logger,
		emitter: emitter,
		state:   StateStopped,
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Grace returns the shutdown wait.
func (l *Lifecycle) Grace() time.Duration {
	return l.grace
}

// Done is closed when the run function has returned, or when a start was
// aborted. It is nil before the first Begin.
func (l *Lifecycle) Done() <-chan struct{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.done
}

// Err returns the error the run function ended with. Cancellation is not
// an error.
func (l *Lifecycle) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if errors.Is(l.err, context.Canceled) {
		return nil
	}
	return l.err
}

// TransitionTo moves to state. Moving out of Stopped or Crashed to anything
// but Starting yields domain.ErrNotRunning; other invalid moves yield
// domain.ErrAlreadyRunning.
func (l *Lifecycle) TransitionTo(state State, reason string) error {
	l.mu.Lock()
	from, err := l.moveLocked(state)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.announce(from, state, reason)
	return nil
}

func (l *Lifecycle) moveLocked(to State) (State, error) {
	from := l.state
	if !canMove(from, to) {
		if from == StateStopped || from == StateCrashed {
			return from, domain.ErrNotRunning
		}
		return from, domain.ErrAlreadyRunning
	}
	l.state = to
	return from, nil
}

// announce must be called without l.mu held.
func (l *Lifecycle) announce(from, to State, reason string) {
	if l.emitter != nil {
		l.emitter.OnStateChange(from, to, reason)
	}
	l.logger.Info("state transition",
		ports.String("from", from.String()),
		ports.String("to", to.String()),
		ports.String("reason", reason),
	)
}

// Begin enters Starting and returns the context the bridge runs under.
// The caller must follow up with Launch or Abort.
func (l *Lifecycle) Begin(ctx context.Context) (context.Context, error) {
	l.mu.Lock()
	from, err := l.moveLocked(StateStarting)
	if err != nil {
		l.mu.Unlock()
		return nil, domain.ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.err = nil
	l.mu.Unlock()

	l.announce(from, StateStarting, "start requested")
	return runCtx, nil
}

// Abort ends a start that failed before Launch.
func (l *Lifecycle) Abort(err error) {
	l.mu.Lock()
	l.cancel()
	l.err = err
	close(l.done)
	from, moveErr := l.moveLocked(StateCrashed)
	l.mu.Unlock()

	if moveErr == nil {
		l.announce(from, StateCrashed, err.Error())
	}
}

// Launch calls run on its own goroutine after entering Running. An error
// from run crashes the bridge unless a stop is already under way, in which
// case Stop reports it.
func (l *Lifecycle) Launch(ctx context.Context, run func(context.Context) error) {
	l.mu.RLock()
	done := l.done
	l.mu.RUnlock()

	go func() {
		defer close(done)

		if err := l.TransitionTo(StateRunning, "bridge running"); err != nil {
			l.logger.Debug("not running", ports.Err(err))
			return
		}

		err := run(ctx)

		l.mu.Lock()
		l.err = err
		crashed := false
		if err != nil && l.state == StateRunning {
			l.state = StateCrashed
			crashed = true
		}
		l.mu.Unlock()

		if crashed {
			l.logger.Error("bridge stopped", ports.Err(err))
			l.announce(StateRunning, StateCrashed, err.Error())
		}
	}()
}

// Stop enters Stopping, cancels the run context and waits up to the grace
// period for the run function to return. It returns the run error, or
// domain.ErrShutdownTimeout. The lifecycle stays in Stopping until Settle.
func (l *Lifecycle) Stop(reason string) error {
	l.mu.Lock()
	if l.state != StateRunning && l.state != StateStarting {
		l.mu.Unlock()
		return domain.ErrNotRunning
	}
	from, _ := l.moveLocked(StateStopping)
	cancel := l.cancel
	done := l.done
	l.mu.Unlock()

	l.announce(from, StateStopping, reason)
	cancel()

	timer := time.NewTimer(l.grace)
	defer timer.Stop()
	select {
	case <-done:
		return l.Err()
	case <-timer.C:
		l.logger.Warn("bridge did not finish draining in time",
			ports.Duration("grace", l.grace),
		)
		return domain.ErrShutdownTimeout
	}
}

// Settle ends a stop in Stopped, or in Crashed when err is set.
func (l *Lifecycle) Settle(err error) {
	if err != nil {
		_ = l.TransitionTo(StateCrashed, err.Error())
		return
	}
	_ = l.TransitionTo(StateStopped, "drained")
}
