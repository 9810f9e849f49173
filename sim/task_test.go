package sim

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// progressRecorder collects callback invocations under a lock.
type progressRecorder struct {
	mu    sync.Mutex
	calls []float64
}

func (r *progressRecorder) record(f float64) {
	r.mu.Lock()
	r.calls = append(r.calls, f)
	r.mu.Unlock()
}

func (r *progressRecorder) snapshot() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64{}, r.calls...)
}

func TestLaunch_SuccessfulRun_TransitionsToCompleted(t *testing.T) {
	backend := &fakeSim{name: "ok", runFn: func(ctx context.Context, req *SimulationRequest, workdir string, progress ProgressFunc) error {
		progress(0.5)
		progress(1)
		return nil
	}}

	task := Launch(context.Background(), backend, validRequest(), t.TempDir(), nil)
	require.NoError(t, task.Wait())
	assert.Equal(t, StateCompleted, task.State())
	assert.Empty(t, task.FailureReason())
	assert.Equal(t, 1.0, task.Progress())
}

func TestLaunch_RunError_TransitionsToFailedWithReason(t *testing.T) {
	bang := errors.New("solver exploded")
	backend := &fakeSim{name: "bad", runFn: func(ctx context.Context, req *SimulationRequest, workdir string, progress ProgressFunc) error {
		return bang
	}}

	task := Launch(context.Background(), backend, validRequest(), t.TempDir(), nil)
	err := task.Wait()
	assert.ErrorIs(t, err, bang)
	assert.Equal(t, StateFailed, task.State())
	assert.Equal(t, "solver exploded", task.FailureReason())
}

func TestLaunch_Cancel_FailsWithCancelledReasonAndSilencesProgress(t *testing.T) {
	started := make(chan struct{})
	backend := &fakeSim{name: "slow", runFn: func(ctx context.Context, req *SimulationRequest, workdir string, progress ProgressFunc) error {
		close(started)
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		frac := 0.0
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				frac += 0.01
				progress(frac)
			}
		}
	}}

	rec := &progressRecorder{}
	task := Launch(context.Background(), backend, validRequest(), t.TempDir(), rec.record)
	<-started
	time.Sleep(10 * time.Millisecond)

	task.Cancel()
	err := task.Wait()
	require.Error(t, err)
	assert.Equal(t, StateFailed, task.State())
	assert.Equal(t, CancelledReason, task.FailureReason())

	// No progress callback may fire after cancellation.
	settled := rec.snapshot()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, settled, rec.snapshot())
}

func TestLaunch_Cancel_WaitsOutInFlightProgressDelivery(t *testing.T) {
	// The run goroutine hammers progress while Cancel races it; once Cancel
	// has returned, a delivery that slipped past the silenced check must
	// already have drained.
	started := make(chan struct{})
	backend := &fakeSim{name: "busy", runFn: func(ctx context.Context, req *SimulationRequest, workdir string, progress ProgressFunc) error {
		close(started)
		frac := 0.0
		for ctx.Err() == nil {
			frac += 1e-6
			progress(frac)
		}
		return ctx.Err()
	}}

	var cancelled atomic.Bool
	var late atomic.Bool
	task := Launch(context.Background(), backend, validRequest(), t.TempDir(), func(float64) {
		if cancelled.Load() {
			late.Store(true)
		}
	})
	<-started
	time.Sleep(5 * time.Millisecond)

	task.Cancel()
	cancelled.Store(true)
	require.Error(t, task.Wait())
	assert.False(t, late.Load(), "progress callback fired after Cancel returned")
}

func TestLaunch_ProgressOutOfOrder_ClampedNonDecreasing(t *testing.T) {
	backend := &fakeSim{name: "jitter", runFn: func(ctx context.Context, req *SimulationRequest, workdir string, progress ProgressFunc) error {
		progress(0.6)
		progress(0.4) // late, must not go backwards for the caller
		progress(0.8)
		return nil
	}}

	rec := &progressRecorder{}
	task := Launch(context.Background(), backend, validRequest(), t.TempDir(), rec.record)
	require.NoError(t, task.Wait())

	calls := rec.snapshot()
	require.Len(t, calls, 3)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i], calls[i-1])
	}
}

func TestLaunch_Done_ClosesOnCompletion(t *testing.T) {
	backend := &fakeSim{name: "ok"}
	task := Launch(context.Background(), backend, validRequest(), t.TempDir(), nil)
	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("Done channel never closed")
	}
	assert.Equal(t, StateCompleted, task.State())
}
