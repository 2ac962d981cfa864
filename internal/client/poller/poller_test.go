package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStart_RunsImmediatelyThenOnInterval(t *testing.T) {
	var n atomic.Int32
	h := Start(context.Background(), 10*time.Millisecond, func(context.Context) { n.Add(1) })
	defer h.Stop()

	require.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestStart_FirstRunIsNotDelayedByInterval(t *testing.T) {
	ran := make(chan struct{}, 1)
	h := Start(context.Background(), time.Hour, func(context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	defer h.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("fn was not run immediately")
	}
}

func TestStop_NoRunsAfterStopReturns(t *testing.T) {
	var n atomic.Int32
	h := Start(context.Background(), 5*time.Millisecond, func(context.Context) { n.Add(1) })
	require.Eventually(t, func() bool { return n.Load() >= 1 }, time.Second, time.Millisecond)

	h.Stop()
	after := n.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, n.Load())

	h.Stop()
}

func TestStop_WaitsForInFlightRunAndCancelsIt(t *testing.T) {
	started := make(chan struct{})
	var sawCancel atomic.Bool
	h := Start(context.Background(), time.Hour, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
	})
	<-started

	h.Stop()
	require.True(t, sawCancel.Load())
}

func TestParentCancellationStopsPoller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := Start(ctx, time.Hour, func(context.Context) {})
	cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not exit on parent cancel")
	}
}

func TestStop_NilHandle(t *testing.T) {
	var h *Handle
	require.NotPanics(t, h.Stop)
}
