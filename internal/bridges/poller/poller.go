package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/casahub/casahub-core/internal/infrastructure/logging"
)

// State is the lifecycle state of a poll loop.
type State string

// Poll loop states.
const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Func performs one poll cycle. The context is cancelled when the loop
// stops; long-running cycles should pass it to their network calls.
type Func func(ctx context.Context)

// Loop runs a poll function at a fixed interval with single-flight
// semantics: if a cycle is still running when the next tick fires, the
// tick is skipped rather than starting a concurrent cycle.
//
// Kick schedules one extra cycle after a short delay, used by bridges
// to refresh state shortly after a command instead of waiting out the
// full interval.
type Loop struct {
	interval time.Duration
	poll     Func
	logger   *logging.Logger

	state   State
	stateMu sync.Mutex

	// inFlight guards the single-flight property across scheduled
	// ticks and kicks.
	inFlight atomic.Bool

	kicks  chan time.Duration
	done   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a poll loop. The loop is inert until Start.
func New(interval time.Duration, poll Func, logger *logging.Logger) *Loop {
	if logger == nil {
		logger = logging.Default()
	}
	return &Loop{
		interval: interval,
		poll:     poll,
		logger:   logger,
		state:    StateStopped,
	}
}

// Start runs an immediate poll cycle and begins the interval timer.
// Calling Start on a loop that is not stopped is a no-op.
func (l *Loop) Start() {
	l.stateMu.Lock()
	if l.state != StateStopped {
		l.stateMu.Unlock()
		return
	}
	l.state = StateStarting

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.kicks = make(chan time.Duration, 1)
	l.done = make(chan struct{})
	l.stateMu.Unlock()

	l.runCycle(ctx)

	l.stateMu.Lock()
	if l.state == StateStarting {
		l.state = StateRunning
	}
	l.stateMu.Unlock()

	l.wg.Add(1)
	go l.run(ctx)
}

// run is the timer loop. It owns the ticker and a single kick timer;
// the newest kick wins if several arrive before firing.
func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	var kickTimer *time.Timer
	var kickCh <-chan time.Time
	defer func() {
		if kickTimer != nil {
			kickTimer.Stop()
		}
	}()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.runCycle(ctx)
		case delay := <-l.kicks:
			if kickTimer != nil {
				kickTimer.Stop()
			}
			kickTimer = time.NewTimer(delay)
			kickCh = kickTimer.C
		case <-kickCh:
			kickCh = nil
			l.runCycle(ctx)
		}
	}
}

// runCycle executes one poll cycle unless one is already in flight.
func (l *Loop) runCycle(ctx context.Context) {
	if !l.inFlight.CompareAndSwap(false, true) {
		l.logger.Debug("poll cycle still running, skipping tick")
		return
	}
	defer l.inFlight.Store(false)

	l.poll(ctx)
}

// Kick schedules one extra poll cycle after the given delay. Kicks on
// a stopped loop are dropped. Only the most recent pending kick fires.
func (l *Loop) Kick(delay time.Duration) {
	l.stateMu.Lock()
	running := l.state == StateRunning || l.state == StateStarting
	kicks := l.kicks
	l.stateMu.Unlock()

	if !running {
		return
	}
	select {
	case kicks <- delay:
	default:
		// A kick is already queued; replace it so the newest delay
		// wins. The second send can only miss if the run loop drained
		// the channel in between, in which case it queues cleanly.
		select {
		case <-kicks:
		default:
		}
		select {
		case kicks <- delay:
		default:
		}
	}
}

// Stop halts the timer and waits for the loop goroutine to exit. The
// stop is cooperative: a cycle already in flight is signalled through
// its context but not forcibly interrupted, and may complete after
// Stop returns. Stopping a stopped loop is a no-op.
func (l *Loop) Stop() {
	l.stateMu.Lock()
	if l.state != StateRunning && l.state != StateStarting {
		l.stateMu.Unlock()
		return
	}
	l.state = StateStopping
	done := l.done
	cancel := l.cancel
	l.stateMu.Unlock()

	close(done)
	cancel()
	l.wg.Wait()

	l.stateMu.Lock()
	l.state = StateStopped
	l.stateMu.Unlock()
}

// State returns the loop's lifecycle state.
func (l *Loop) State() State {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.state
}
