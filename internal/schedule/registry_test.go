package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vigilbot/vigil/internal/watch"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(zap.NewNop(), nil)
	t.Cleanup(r.Close)
	return r
}

func TestRegistry_SchedulesAndTicks(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	var runs atomic.Int32
	r.Schedule(watch.KindFeed, "f1", 20*time.Millisecond, 0, func(context.Context, string) error {
		runs.Add(1)
		return nil
	})

	require.True(t, r.Scheduled(watch.KindFeed, "f1"))
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestRegistry_InitialDelayDefersFirstCheck(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	var runs atomic.Int32
	r.Schedule(watch.KindFeed, "f1", time.Hour, 80*time.Millisecond, func(context.Context, string) error {
		runs.Add(1)
		return nil
	})

	time.Sleep(30 * time.Millisecond)
	require.Zero(t, runs.Load())
	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestRegistry_SameIntervalKeepsRunningTimer(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	var oldRuns, newRuns atomic.Int32
	r.Schedule(watch.KindFeed, "f1", 20*time.Millisecond, 0, func(context.Context, string) error {
		oldRuns.Add(1)
		return nil
	})
	r.Schedule(watch.KindFeed, "f1", 20*time.Millisecond, 0, func(context.Context, string) error {
		newRuns.Add(1)
		return nil
	})

	require.Eventually(t, func() bool { return oldRuns.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.Zero(t, newRuns.Load())
}

func TestRegistry_ChangedIntervalReplacesTimer(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	var oldRuns, newRuns atomic.Int32
	r.Schedule(watch.KindFeed, "f1", time.Hour, time.Hour, func(context.Context, string) error {
		oldRuns.Add(1)
		return nil
	})
	r.Schedule(watch.KindFeed, "f1", 20*time.Millisecond, 0, func(context.Context, string) error {
		newRuns.Add(1)
		return nil
	})

	require.Eventually(t, func() bool { return newRuns.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.Zero(t, oldRuns.Load())
}

func TestRegistry_OverlappingTickSkipped(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	release := make(chan struct{})
	var starts atomic.Int32
	r.Schedule(watch.KindLottery, "l1", 20*time.Millisecond, 0, func(ctx context.Context, _ string) error {
		starts.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	require.Eventually(t, func() bool { return starts.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	// Several ticker fires later the blocked check must still be the only
	// start.
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, int32(1), starts.Load())

	close(release)
	require.Eventually(t, func() bool { return starts.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestRegistry_CancelStopsTicks(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	var runs atomic.Int32
	r.Schedule(watch.KindRepo, "r1", 20*time.Millisecond, 0, func(context.Context, string) error {
		runs.Add(1)
		return nil
	})

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	r.Cancel(watch.KindRepo, "r1")
	require.False(t, r.Scheduled(watch.KindRepo, "r1"))

	settled := runs.Load()
	time.Sleep(100 * time.Millisecond)
	require.LessOrEqual(t, runs.Load(), settled+1)
}

func TestRegistry_ActiveListsOnlyMatchingKind(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	noop := func(context.Context, string) error { return nil }
	r.Schedule(watch.KindFeed, "f1", time.Hour, time.Hour, noop)
	r.Schedule(watch.KindFeed, "f2", time.Hour, time.Hour, noop)
	r.Schedule(watch.KindRepo, "r1", time.Hour, time.Hour, noop)

	require.ElementsMatch(t, []string{"f1", "f2"}, r.Active(watch.KindFeed))
	require.ElementsMatch(t, []string{"r1"}, r.Active(watch.KindRepo))
}

func TestRegistry_CloseWaitsForInFlightCheck(t *testing.T) {
	t.Parallel()

	r := NewRegistry(zap.NewNop(), nil)
	started := make(chan struct{})
	var finished atomic.Bool
	r.Schedule(watch.KindFeed, "f1", time.Hour, 0, func(ctx context.Context, _ string) error {
		close(started)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	})

	<-started
	r.Close()
	require.True(t, finished.Load())
}
