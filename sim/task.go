package sim

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// RunState is the lifecycle state of a backend run.
type RunState int

const (
	StateCreated RunState = iota
	StateValidated
	StateRunning
	StateCompleted
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateValidated:
		return "validated"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// CancelledReason is the failure reason recorded when a run is cancelled,
// distinguishable from engine failures.
const CancelledReason = "cancelled"

// RunTask wraps a blocking Simulator.Run into a cancellable task that
// callers await or poll instead of blocking on. Progress callbacks are
// filtered to be monotonically non-decreasing, and none fire after Cancel.
//
// Run-time failures are captured into the task state rather than panicking:
// callers query State, FailureReason and Err after Wait, typically after
// inspecting the working directory.
type RunTask struct {
	mu       sync.Mutex
	state    RunState
	reason   string
	err      error
	fraction float64
	silenced bool // true once Cancel is called; suppresses further progress
	cancel   context.CancelFunc
	done     chan struct{}

	// deliverMu is held across the silenced check and the user callback, so
	// Cancel can wait out a delivery already in flight.
	deliverMu sync.Mutex
}

// Launch starts s.Run in its own goroutine and returns a handle to it.
//
// Precondition: s.Validate(req) has returned an empty problem list. Launch
// does not re-validate (that would mask caller bugs); it records the task as
// validated and moves it to running when the goroutine starts.
func Launch(ctx context.Context, s Simulator, req *SimulationRequest, workdir string, progress ProgressFunc) *RunTask {
	ctx, cancel := context.WithCancel(ctx)
	t := &RunTask{
		state:  StateValidated,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	wrapped := func(f float64) {
		t.deliverMu.Lock()
		defer t.deliverMu.Unlock()
		t.mu.Lock()
		if t.silenced || t.state != StateRunning {
			t.mu.Unlock()
			return
		}
		if f < t.fraction {
			f = t.fraction
		}
		t.fraction = f
		t.mu.Unlock()
		if progress != nil {
			progress(f)
		}
	}

	go func() {
		defer cancel()
		t.mu.Lock()
		t.state = StateRunning
		t.mu.Unlock()

		logrus.Infof("run: backend %s starting in %s", s.Info().Name, workdir)
		err := s.Run(ctx, req, workdir, wrapped)

		t.mu.Lock()
		switch {
		case err == nil:
			t.state = StateCompleted
		case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
			t.state = StateFailed
			t.reason = CancelledReason
			t.err = err
		default:
			t.state = StateFailed
			t.reason = err.Error()
			t.err = err
		}
		state, reason := t.state, t.reason
		t.mu.Unlock()

		if state == StateCompleted {
			logrus.Infof("run: backend %s completed", s.Info().Name)
		} else {
			logrus.Warnf("run: backend %s failed: %s", s.Info().Name, reason)
		}
		close(t.done)
	}()

	return t
}

// Cancel terminates the external process. The task transitions to failed
// with reason "cancelled" once the run goroutine observes the termination;
// no progress callback fires after Cancel returns. Cancel must not be
// called from inside the progress callback.
func (t *RunTask) Cancel() {
	t.mu.Lock()
	t.silenced = true
	t.mu.Unlock()
	// A delivery that passed the silenced check before it was set may still
	// be invoking the callback; wait for it to drain.
	t.deliverMu.Lock()
	t.deliverMu.Unlock() //nolint:staticcheck // empty critical section is the drain
	t.cancel()
}

// Done returns a channel closed when the run finishes in either terminal
// state.
func (t *RunTask) Done() <-chan struct{} { return t.done }

// Wait blocks until the run finishes and returns its error, nil on success.
func (t *RunTask) Wait() error {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// State returns the current lifecycle state.
func (t *RunTask) State() RunState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Progress returns the last reported completion fraction.
func (t *RunTask) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fraction
}

// FailureReason returns why the task failed ("cancelled" for cancellation),
// or empty if it has not failed.
func (t *RunTask) FailureReason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// Err returns the terminal error, nil while running or on success.
func (t *RunTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
