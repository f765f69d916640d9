package intercom

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// startLoop runs the controller in the background and stops it when the
// test ends.
func startLoop(t *testing.T, r *rig) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.c.Run(ctx) }()

	var stopped bool
	stop = func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after cancellation")
		}
	}
	t.Cleanup(stop)
	return stop
}

func TestRun_SubmitAndSnapshot(t *testing.T) {
	r := newRig(at(12, 0, 0))
	r.c.pollInterval = time.Millisecond
	startLoop(t, r)
	ctx := context.Background()

	status, err := r.c.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, Audible, status.SoundMode)
	require.True(t, status.ReevaluationArmed)

	require.NoError(t, r.c.Submit(ctx, CommandEnableAutoOpen))
	status, err = r.c.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, AutoOpenEnabled, status.AutoOpen)

	err = r.c.Submit(ctx, CommandOpenDoor)
	require.ErrorIs(t, err, ErrPickUp)
	require.Equal(t, 1, r.signal.signals())
}

func TestRun_ConnectsAndObservesCallLine(t *testing.T) {
	r := newRig(at(12, 0, 0))
	r.c.pollInterval = time.Millisecond
	startLoop(t, r)
	ctx := context.Background()

	require.Eventually(t, func() bool {
		status, err := r.c.Snapshot(ctx)
		return err == nil && status.Connection == Connected
	}, 2*time.Second, 5*time.Millisecond)

	r.line.set(true)
	require.Eventually(t, func() bool {
		status, err := r.c.Snapshot(ctx)
		return err == nil && status.State == IncomingCall
	}, 2*time.Second, 5*time.Millisecond)

	require.Contains(t, r.transport.on(testTopics.IncomingCall), "ON")
}

func TestRun_StopClosesTransport(t *testing.T) {
	r := newRig(at(12, 0, 0))
	r.c.pollInterval = time.Millisecond
	stop := startLoop(t, r)

	stop()

	r.transport.mu.Lock()
	closed := r.transport.closed
	r.transport.mu.Unlock()
	require.True(t, closed)
	require.False(t, r.c.reevaluateTimer.isArmed())

	_, err := r.c.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrStopped)
	require.ErrorIs(t, r.c.Submit(context.Background(), CommandMuteSound), ErrStopped)
}

func TestRun_RingDetectedWhileBrokerConnectHangs(t *testing.T) {
	r := newRig(at(12, 0, 0))
	r.c.pollInterval = time.Millisecond
	r.transport.connectGate = make(chan struct{})
	startLoop(t, r)
	ctx := context.Background()

	require.Eventually(t, func() bool { return r.transport.connectCount() == 1 }, 2*time.Second, time.Millisecond)
	r.line.set(true)

	require.Eventually(t, func() bool {
		status, err := r.c.Snapshot(ctx)
		return err == nil && status.State == IncomingCall && status.Connection == Connecting
	}, 500*time.Millisecond, 5*time.Millisecond)

	start := time.Now()
	_, err := r.c.Snapshot(ctx)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 100*time.Millisecond, "loop stays responsive during connect")

	close(r.transport.connectGate)
	require.Eventually(t, func() bool {
		status, err := r.c.Snapshot(ctx)
		return err == nil && status.Connection == Connected
	}, 2*time.Second, 5*time.Millisecond)
	require.Contains(t, r.transport.on(testTopics.IncomingCall), "ON")
}

func TestRun_StopDuringConnect(t *testing.T) {
	r := newRig(at(12, 0, 0))
	r.c.pollInterval = time.Millisecond
	r.transport.connectGate = make(chan struct{})
	stop := startLoop(t, r)

	require.Eventually(t, func() bool { return r.transport.connectCount() == 1 }, 2*time.Second, time.Millisecond)
	stop()

	r.transport.mu.Lock()
	closed := r.transport.closed
	r.transport.mu.Unlock()
	require.True(t, closed)
}

func TestSnapshot_ContextCancelled(t *testing.T) {
	r := newRig(at(12, 0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Run was never started, so the intent is never executed.
	for i := 0; i < intentQueueSize; i++ {
		r.c.intents <- intent{fn: func() {}}
	}
	_, err := r.c.Snapshot(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
