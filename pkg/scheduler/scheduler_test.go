package scheduler_test

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/internal/logging"
	"github.com/yaklabco/pawnls/pkg/scheduler"
)

func quietOptions(workers int) scheduler.Options {
	return scheduler.Options{Workers: workers, Logger: logging.NewWriter(&bytes.Buffer{}, "error", true)}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunsQueuedJobsInOrder(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var order []uri.URI
	gate := make(chan struct{})

	s := scheduler.New(context.Background(), func(_ context.Context, job scheduler.Job) {
		<-gate
		mu.Lock()
		order = append(order, job.URI)
		mu.Unlock()
	}, quietOptions(1))
	defer s.Stop()

	a, b, c := uri.File("/a.sp"), uri.File("/b.sp"), uri.File("/c.sp")
	require.NoError(t, s.EnqueueAll([]uri.URI{a, b, c}, scheduler.KindRebuild))
	close(gate)

	require.NoError(t, s.WaitIdle(waitCtx(t)))
	assert.Equal(t, []uri.URI{a, b, c}, order)
}

func TestDuplicateJobsCollapse(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32
	var kinds sync.Map

	blocker := uri.File("/blocker.sp")
	target := uri.File("/target.sp")

	s := scheduler.New(context.Background(), func(_ context.Context, job scheduler.Job) {
		if job.URI == blocker {
			close(started)
			<-release
			return
		}
		runs.Add(1)
		kinds.Store(job.URI, job.Kind)
	}, quietOptions(1))
	defer s.Stop()

	require.NoError(t, s.Enqueue(blocker, scheduler.KindRebuild))
	<-started

	// The single worker is busy, so these all land on the same queued job.
	require.NoError(t, s.Enqueue(target, scheduler.KindResolve))
	require.NoError(t, s.Enqueue(target, scheduler.KindRebuild))
	require.NoError(t, s.Enqueue(target, scheduler.KindResolve))
	close(release)

	require.NoError(t, s.Wait(waitCtx(t), target))
	assert.Equal(t, int32(1), runs.Load())
	kind, _ := kinds.Load(target)
	assert.Equal(t, scheduler.KindRebuild, kind, "a rebuild subsumes a resolve")
}

func TestEditDuringRunSchedulesRerun(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var runs atomic.Int32
	var concurrent, peak atomic.Int32

	target := uri.File("/target.sp")
	s := scheduler.New(context.Background(), func(_ context.Context, _ scheduler.Job) {
		n := concurrent.Add(1)
		if n > peak.Load() {
			peak.Store(n)
		}
		started <- struct{}{}
		if runs.Add(1) == 1 {
			<-release
		}
		concurrent.Add(-1)
	}, quietOptions(4))
	defer s.Stop()

	require.NoError(t, s.Enqueue(target, scheduler.KindRebuild))
	<-started
	require.NoError(t, s.Enqueue(target, scheduler.KindRebuild))
	assert.True(t, s.Busy(target))
	close(release)

	require.NoError(t, s.Wait(waitCtx(t), target))
	assert.Equal(t, int32(2), runs.Load())
	assert.Equal(t, int32(1), peak.Load(), "jobs for one file never overlap")
	assert.False(t, s.Busy(target))
}

func TestWaitRespectsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	s := scheduler.New(context.Background(), func(_ context.Context, _ scheduler.Job) {
		<-release
	}, quietOptions(1))
	defer s.Stop()
	defer close(release)

	target := uri.File("/slow.sp")
	require.NoError(t, s.Enqueue(target, scheduler.KindRebuild))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Wait(ctx, target)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitOnIdleFileReturns(t *testing.T) {
	t.Parallel()

	s := scheduler.New(context.Background(), func(context.Context, scheduler.Job) {}, quietOptions(2))
	defer s.Stop()

	require.NoError(t, s.Wait(waitCtx(t), uri.File("/never.sp")))
	require.NoError(t, s.WaitIdle(waitCtx(t)))
}

func TestPanickingJobDoesNotKillWorker(t *testing.T) {
	t.Parallel()

	var ok atomic.Bool
	bad, good := uri.File("/bad.sp"), uri.File("/good.sp")
	s := scheduler.New(context.Background(), func(_ context.Context, job scheduler.Job) {
		if job.URI == bad {
			panic("boom")
		}
		ok.Store(true)
	}, quietOptions(1))
	defer s.Stop()

	require.NoError(t, s.EnqueueAll([]uri.URI{bad, good}, scheduler.KindRebuild))
	require.NoError(t, s.WaitIdle(waitCtx(t)))
	assert.True(t, ok.Load())
}

func TestStopRejectsWork(t *testing.T) {
	t.Parallel()

	s := scheduler.New(context.Background(), func(context.Context, scheduler.Job) {}, quietOptions(1))
	s.Stop()
	require.ErrorIs(t, s.Enqueue(uri.File("/a.sp"), scheduler.KindRebuild), scheduler.ErrStopped)
}
