// Package engine keeps the analysis model of a workspace current as files
// are opened, edited and changed on disk, and answers editor queries from
// it.
package engine

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/internal/logging"
	"github.com/yaklabco/pawnls/pkg/config"
	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/edit"
	"github.com/yaklabco/pawnls/pkg/fsutil"
	"github.com/yaklabco/pawnls/pkg/preproc"
	"github.com/yaklabco/pawnls/pkg/scheduler"
	"github.com/yaklabco/pawnls/pkg/store"
	"github.com/yaklabco/pawnls/pkg/symbols"
	"github.com/yaklabco/pawnls/pkg/workspace"
)

// Sentinel errors for error categorization via errors.Is.
var (
	// ErrNotLoaded indicates a query for a file the engine does not know.
	ErrNotLoaded = errors.New("file not loaded")

	// ErrClosed indicates a call after Close.
	ErrClosed = errors.New("engine closed")
)

// Publisher receives the diagnostics of a file each time they are
// recomputed. It is called from worker goroutines.
type Publisher interface {
	PublishDiagnostics(ctx context.Context, u uri.URI, version int32, diags []diag.Diagnostic)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, u uri.URI, version int32, diags []diag.Diagnostic)

// PublishDiagnostics implements Publisher.
func (f PublisherFunc) PublishDiagnostics(ctx context.Context, u uri.URI, version int32, diags []diag.Diagnostic) {
	f(ctx, u, version, diags)
}

// Options configures an Engine.
type Options struct {
	// Config supplies include roots, defines and worker count. Nil uses
	// config.NewConfig().
	Config *config.Config

	// Files reads files not owned by an editor. Nil reads the OS file
	// system.
	Files fsutil.Source

	// Publisher receives diagnostics. May be nil.
	Publisher Publisher

	// Logger defaults to logging.Default().
	Logger *log.Logger

	// Unit is the column unit of positions passed in. Editors speaking the
	// language server protocol use UTF-16.
	Unit edit.Unit
}

type published struct {
	version int32
	diags   []diag.Diagnostic
}

// Engine owns the document store, the workspace index and the scheduler
// that keeps them current. It is safe for concurrent use.
type Engine struct {
	files  fsutil.Source
	pub    Publisher
	logger *log.Logger
	unit   edit.Unit

	store *store.Store
	index *workspace.Index
	sched *scheduler.Scheduler

	mu  sync.RWMutex
	cfg *config.Config

	// loadMu serializes first loads so a file discovered by two workers is
	// read once.
	loadMu sync.Mutex

	pubMu     sync.Mutex
	published map[uri.URI]published
	cycles    map[uri.URI]bool
}

// New creates an engine and starts its workers. ctx bounds the lifetime
// of background work; Close stops it earlier.
func New(ctx context.Context, opts Options) *Engine {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	files := opts.Files
	if files == nil {
		files = fsutil.OSSource{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	e := &Engine{
		files:     files,
		pub:       opts.Publisher,
		logger:    logger,
		unit:      opts.Unit,
		store:     store.New(),
		index:     workspace.New(),
		cfg:       cfg.Clone(),
		published: make(map[uri.URI]published),
		cycles:    make(map[uri.URI]bool),
	}
	e.index.SetBuiltins(builtins(cfg.Defines))
	e.sched = scheduler.New(ctx, e.handle, scheduler.Options{Workers: cfg.Workers(), Logger: logger})
	return e
}

// Close stops the workers. Queued jobs are dropped.
func (e *Engine) Close() {
	e.sched.Stop()
}

// Index exposes the workspace index, for exports.
func (e *Engine) Index() *workspace.Index {
	return e.index
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.Clone()
}

// Reconfigure replaces include roots, defines and checks, then rebuilds
// every file.
func (e *Engine) Reconfigure(cfg *config.Config) error {
	e.mu.Lock()
	e.cfg = cfg.Clone()
	e.mu.Unlock()

	e.index.SetBuiltins(builtins(cfg.Defines))
	uris := e.store.InvalidateAll()
	e.logger.Info("configuration changed",
		logging.FieldIncludeRoots, cfg.IncludeRoots,
		logging.FieldFiles, len(uris))
	return e.enqueue(uris, scheduler.KindRebuild)
}

// WaitIdle blocks until no work is queued or running.
func (e *Engine) WaitIdle(ctx context.Context) error {
	return e.sched.WaitIdle(ctx)
}

// Wait blocks until the pending work for u is done.
func (e *Engine) Wait(ctx context.Context, u uri.URI) error {
	return e.sched.Wait(ctx, u)
}

func (e *Engine) enqueue(uris []uri.URI, kind scheduler.Kind) error {
	if err := e.sched.EnqueueAll(uris, kind); err != nil {
		if errors.Is(err, scheduler.ErrStopped) {
			return ErrClosed
		}
		return err
	}
	return nil
}

func (e *Engine) preprocessor() preproc.Options {
	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()
	return preproc.Options{
		Defines:           cfg.Defines,
		Resolver:          preproc.PathResolver{Roots: cfg.IncludeRoots, Exists: e.files.Exists},
		Macros:            preproc.MacroSourceFunc(e.macrosOf),
		MaxExpansionDepth: cfg.MaxExpansionDepth,
		ReportDisabled:    cfg.Diagnostics.DisabledCode,
	}
}

// macrosOf supplies the macros an included file exports. The published
// snapshot is used when there is one; otherwise the file is preprocessed
// on the spot, with the include stack guarding against cycles, and queued
// for a full build.
func (e *Engine) macrosOf(target uri.URI, stack []uri.URI) preproc.Table {
	if slices.Contains(stack, target) {
		return nil
	}
	if snap := e.store.Snapshot(target); snap != nil && snap.Preprocessed != nil {
		return snap.Preprocessed.Macros
	}

	text, ok := e.track(context.Background(), target)
	if !ok {
		return nil
	}
	opts := e.preprocessor()
	opts.URI = target
	opts.Stack = stack
	opts.ReportDisabled = false
	return preproc.Run(opts, text, nil).Macros
}

// track makes sure an included file is part of the workspace, loading it
// from disk the first time it is seen. It returns the file's text.
func (e *Engine) track(ctx context.Context, u uri.URI) (string, bool) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	if text, _, err := e.store.Text(u); err == nil {
		return text, true
	}
	text, err := e.files.ReadFile(ctx, pathOf(u))
	if err != nil {
		e.logger.Debug("cannot load included file", logging.FieldURI, u, logging.FieldError, err)
		return "", false
	}
	if _, err := e.store.Update(u, text, 0); err != nil {
		return "", false
	}
	e.schedule([]uri.URI{u}, scheduler.KindRebuild)
	return text, true
}

// builtins turns configured defines into symbols visible from every file.
func builtins(defines map[string]string) []*symbols.Symbol {
	out := make([]*symbols.Symbol, 0, len(defines))
	for _, name := range sortedKeys(defines) {
		m := preproc.ParseDefine(name, defines[name])
		out = append(out, &symbols.Symbol{
			Name:   m.Name,
			Kind:   symbols.KindDefine,
			Detail: m.Signature(),
			Doc:    "Defined by configuration.",
		})
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
