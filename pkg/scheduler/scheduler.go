// Package scheduler runs per-file jobs on a fixed worker pool. The queue
// holds at most one job per file, so repeated edits collapse into one run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/internal/logging"
)

// ErrStopped indicates the scheduler no longer accepts work.
var ErrStopped = errors.New("scheduler stopped")

// Kind orders job kinds; a larger kind subsumes a smaller one.
type Kind int

const (
	// KindResolve re-resolves a file against changed dependencies.
	KindResolve Kind = iota

	// KindRebuild runs the whole pipeline for a file.
	KindRebuild
)

func (k Kind) String() string {
	if k == KindRebuild {
		return "rebuild"
	}
	return "resolve"
}

// Job is one unit of work.
type Job struct {
	URI  uri.URI
	Kind Kind
}

// Handler runs a job. Jobs are never preempted; a handler whose output is
// outdated when it finishes is expected to discard it.
type Handler func(ctx context.Context, job Job)

// Options configures a Scheduler.
type Options struct {
	// Workers is the pool size. 0 or negative means runtime.NumCPU().
	Workers int

	// Logger receives job lifecycle logs. Nil uses logging.Default().
	Logger *log.Logger
}

// Scheduler is a deduplicating FIFO work queue drained by a worker pool.
type Scheduler struct {
	handler Handler
	logger  *log.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []uri.URI
	pending map[uri.URI]Kind
	running map[uri.URI]bool
	waiters map[uri.URI][]chan struct{}
	idle    []chan struct{}
	stopped bool

	wg sync.WaitGroup
}

// New starts a scheduler whose workers run handler. ctx is passed to every
// job; Stop ends the workers.
func New(ctx context.Context, handler Handler, opts Options) *Scheduler {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	s := &Scheduler{
		handler: handler,
		logger:  logger,
		pending: make(map[uri.URI]Kind),
		running: make(map[uri.URI]bool),
		waiters: make(map[uri.URI][]chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	for range workers {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.worker(ctx)
		}()
	}
	return s
}

// Enqueue schedules a job for u. A job already queued for u keeps its
// place in line and is upgraded to kind when kind is larger. A job for a
// file whose previous job is still running waits until that one finishes.
func (s *Scheduler) Enqueue(u uri.URI, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if prev, ok := s.pending[u]; ok {
		s.pending[u] = max(prev, kind)
		return nil
	}
	s.pending[u] = kind
	s.queue = append(s.queue, u)
	s.cond.Signal()
	return nil
}

// EnqueueAll schedules the same kind of job for every URI, in order.
func (s *Scheduler) EnqueueAll(uris []uri.URI, kind Kind) error {
	for _, u := range uris {
		if err := s.Enqueue(u, kind); err != nil {
			return err
		}
	}
	return nil
}

// Busy reports whether u has a queued or running job.
func (s *Scheduler) Busy(u uri.URI) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busyLocked(u)
}

func (s *Scheduler) busyLocked(u uri.URI) bool {
	_, queued := s.pending[u]
	return queued || s.running[u]
}

// Wait blocks until u has no queued or running job.
func (s *Scheduler) Wait(ctx context.Context, u uri.URI) error {
	s.mu.Lock()
	if !s.busyLocked(u) || s.stopped {
		s.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	s.waiters[u] = append(s.waiters[u], ch)
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for %s: %w", u, ctx.Err())
	}
}

// WaitIdle blocks until the queue is empty and no job is running.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	if s.idleLocked() || s.stopped {
		s.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	s.idle = append(s.idle, ch)
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for idle: %w", ctx.Err())
	}
}

func (s *Scheduler) idleLocked() bool {
	return len(s.pending) == 0 && len(s.running) == 0
}

// Stop drops queued jobs, waits for running ones and releases all waiters.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.queue = nil
	clear(s.pending)
	s.cond.Broadcast()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	for u, list := range s.waiters {
		for _, ch := range list {
			close(ch)
		}
		delete(s.waiters, u)
	}
	s.releaseIdleLocked()
	s.mu.Unlock()
}

// next removes and returns the first queued job whose file has no job
// running. It blocks until one exists or the scheduler stops.
func (s *Scheduler) next() (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if s.stopped {
			return Job{}, false
		}
		if i := slices.IndexFunc(s.queue, func(u uri.URI) bool { return !s.running[u] }); i >= 0 {
			u := s.queue[i]
			s.queue = slices.Delete(s.queue, i, i+1)
			kind := s.pending[u]
			delete(s.pending, u)
			s.running[u] = true
			return Job{URI: u, Kind: kind}, true
		}
		s.cond.Wait()
	}
}

func (s *Scheduler) done(u uri.URI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, u)

	if _, again := s.pending[u]; again {
		// A job queued while this one ran can be picked up now.
		s.cond.Signal()
	} else {
		for _, ch := range s.waiters[u] {
			close(ch)
		}
		delete(s.waiters, u)
	}
	if s.idleLocked() {
		s.releaseIdleLocked()
	}
}

func (s *Scheduler) releaseIdleLocked() {
	for _, ch := range s.idle {
		close(ch)
	}
	s.idle = nil
}

func (s *Scheduler) worker(ctx context.Context) {
	for {
		job, ok := s.next()
		if !ok {
			return
		}
		s.run(ctx, job)
		s.done(job.URI)
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", logging.FieldURI, job.URI, logging.FieldJob, job.Kind, "panic", r)
		}
	}()
	s.logger.Debug("job started", logging.FieldURI, job.URI, logging.FieldJob, job.Kind)
	s.handler(ctx, job)
}
