// Package lsp serves the engine to editors over the language server
// protocol.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/sourcegraph/jsonrpc2"
	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/internal/configloader"
	"github.com/yaklabco/pawnls/internal/logging"
	"github.com/yaklabco/pawnls/pkg/config"
	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/edit"
	"github.com/yaklabco/pawnls/pkg/engine"
	"github.com/yaklabco/pawnls/pkg/fsutil"
	"github.com/yaklabco/pawnls/pkg/runner"
	"github.com/yaklabco/pawnls/pkg/source"
	"github.com/yaklabco/pawnls/pkg/watch"
)

// ErrExitWithoutShutdown is returned by Serve when the client sent exit
// without a prior shutdown request.
var ErrExitWithoutShutdown = errors.New("exit without shutdown")

// Options configures a Server.
type Options struct {
	// Name and Version are reported to the client.
	Name    string
	Version string

	// Load is the template for loading the workspace configuration. Its
	// WorkingDir is replaced by the workspace root and its CLIConfig is
	// merged below the editor's settings.
	Load configloader.LoadOptions

	// Files reads files not open in the editor. Nil reads the OS file
	// system.
	Files fsutil.Source

	// Watch follows changes on disk under the workspace and include roots.
	Watch bool

	// LoadWorkspace reads every source file of the workspace after
	// initialization so workspace-wide queries see closed files.
	LoadWorkspace bool

	Logger *log.Logger
}

// Server answers language server requests with an engine. The engine is
// created by the initialize request.
type Server struct {
	opts   Options
	logger *log.Logger

	exitOnce sync.Once
	exited   chan struct{}

	mu       sync.Mutex
	ctx      context.Context
	conn     *jsonrpc2.Conn
	eng      *engine.Engine
	watcher  *watch.Watcher
	root     string
	settings Settings
	pending  []string

	// pullConfig is set when the client answers workspace/configuration.
	pullConfig  bool
	initialized bool
	shutdown    bool
}

// New creates a server.
func New(opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "pawnls"
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{
		opts:   opts,
		logger: logger,
		exited: make(chan struct{}),
	}
}

// Serve runs the protocol over stream until the client exits, the stream
// closes or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, stream io.ReadWriteCloser) error {
	ctx, cancel := context.WithCancel(logging.WithLogger(ctx, s.logger))
	defer cancel()

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(stream, jsonrpc2.VSCodeObjectCodec{}), s)
	defer conn.Close()

	select {
	case <-s.exited:
	case <-conn.DisconnectNotify():
		s.logger.Debug("client disconnected")
	case <-ctx.Done():
	}

	s.mu.Lock()
	clean := s.shutdown
	s.mu.Unlock()
	s.stop()

	select {
	case <-s.exited:
		if !clean {
			return ErrExitWithoutShutdown
		}
	default:
	}
	return nil
}

// stop releases the engine and the watcher.
func (s *Server) stop() {
	s.mu.Lock()
	eng, w := s.eng, s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w != nil {
		if err := w.Close(); err != nil {
			s.logger.Debug("closing watcher", logging.FieldError, err)
		}
	}
	if eng != nil {
		eng.Close()
	}
}

func (s *Server) engine() (*engine.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.eng == nil:
		return nil, &jsonrpc2.Error{Code: codeServerNotInitialized, Message: "server not initialized"}
	case s.shutdown:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shutting down"}
	}
	return s.eng, nil
}

// PublishDiagnostics implements engine.Publisher.
func (s *Server) PublishDiagnostics(ctx context.Context, u uri.URI, version int32, diags []diag.Diagnostic) {
	s.mu.Lock()
	conn, eng := s.conn, s.eng
	s.mu.Unlock()
	if conn == nil || eng == nil {
		return
	}

	params := lsp.PublishDiagnosticsParams{
		URI:         u,
		Version:     uint32(max(version, 0)),
		Diagnostics: newConverter(eng).diagnostics(diags),
	}
	if err := conn.Notify(ctx, lsp.MethodTextDocumentPublishDiagnostics, params); err != nil {
		s.logger.Debug("publishing diagnostics", logging.FieldURI, u, logging.FieldError, err)
	}
}

// workspaceRoot picks the directory of the workspace from the initialize
// parameters. It is empty when the editor opened single files.
func workspaceRoot(p *initializeParams) string {
	switch {
	case p.RootURI != "":
		return source.Path(p.RootURI)
	case len(p.WorkspaceFolders) > 0:
		return source.Path(uri.URI(p.WorkspaceFolders[0].URI))
	default:
		return p.RootPath
	}
}

// loadConfig resolves the configuration of root with the editor settings
// layered on top. A configuration that fails to load is reported to the
// user and replaced by the defaults.
func (s *Server) loadConfig(ctx context.Context, root string, settings Settings) *config.Config {
	opts := s.opts.Load
	if root != "" {
		opts.WorkingDir = root
	}
	opts.CLIConfig = configloader.Merge(opts.CLIConfig, settings.overlay(root))

	result, err := configloader.Load(ctx, opts)
	if err != nil {
		s.warn(fmt.Sprintf("Invalid pawnls configuration; using the default settings instead.\nDetails: %v", err))
		return configloader.Merge(config.NewConfig(), opts.CLIConfig)
	}
	for _, w := range result.Warnings {
		s.logger.Warn(w)
	}
	s.logger.Info("configuration loaded",
		logging.FieldWorkingDir, root,
		logging.FieldConfig, result.LoadedFrom,
		logging.FieldIncludeRoots, result.Config.IncludeRoots)
	return result.Config
}

// warn queues a message for the user. Messages are shown once the client
// is initialized.
func (s *Server) warn(message string) {
	s.logger.Warn(message)
	s.mu.Lock()
	s.pending = append(s.pending, message)
	s.mu.Unlock()
	s.flushMessages()
}

func (s *Server) flushMessages() {
	s.mu.Lock()
	conn, ctx := s.conn, s.ctx
	if conn == nil || !s.initialized {
		s.mu.Unlock()
		return
	}
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, message := range pending {
		_ = conn.Notify(ctx, lsp.MethodWindowShowMessage, lsp.ShowMessageParams{
			Type:    lsp.MessageTypeWarning,
			Message: message,
		})
	}
}

// applySettings reloads the configuration with new editor settings and
// rebuilds the workspace when it changed.
func (s *Server) applySettings(ctx context.Context, raw []byte) {
	settings, err := parseSettings(raw)
	if err != nil {
		s.warn(fmt.Sprintf("The %s configuration is invalid; using the default settings instead.\nDetails: %v", settingsSection, err))
		settings = Settings{}
	}

	s.mu.Lock()
	eng, root, prev := s.eng, s.root, s.settings
	s.settings = settings
	s.mu.Unlock()
	if eng == nil || settings.equal(prev) {
		return
	}

	cfg := s.loadConfig(ctx, root, settings)
	if err := eng.Reconfigure(cfg); err != nil {
		s.logger.Error("reconfiguring", logging.FieldError, err)
	}
}

func (s Settings) equal(other Settings) bool {
	return slices.Equal(s.IncludesDirectories, other.IncludesDirectories) &&
		maps.Equal(s.Defines, other.Defines) &&
		s.MainPath == other.MainPath
}

// pullSettings asks the client for the server's configuration section.
func (s *Server) pullSettings(ctx context.Context, conn *jsonrpc2.Conn) {
	var result []json.RawMessage
	params := lsp.ConfigurationParams{Items: []lsp.ConfigurationItem{{Section: settingsSection}}}
	if err := conn.Call(ctx, lsp.MethodWorkspaceConfiguration, params, &result); err != nil {
		s.logger.Debug("retrieving configuration failed", logging.FieldError, err)
		return
	}
	if len(result) == 0 {
		return
	}
	s.applySettings(ctx, result[0])
}

// startWorkspace loads the workspace files and starts the watcher.
func (s *Server) startWorkspace(ctx context.Context) {
	s.mu.Lock()
	eng, root := s.eng, s.root
	s.mu.Unlock()
	if eng == nil || root == "" {
		return
	}
	cfg := eng.Config()

	if s.opts.LoadWorkspace {
		opts := runner.OptionsFromConfig(cfg, []string{root})
		opts.WorkingDir = root
		files, err := runner.Discover(ctx, opts)
		if err != nil {
			s.logger.Error("discovering workspace files", logging.FieldWorkingDir, root, logging.FieldError, err)
		} else if err := eng.LoadFiles(ctx, files); err != nil {
			s.logger.Warn("loading workspace", logging.FieldError, err)
		}
	}

	if !s.opts.Watch {
		return
	}
	// Include roots inside the workspace are already covered by its watch.
	roots := append([]string{root}, lo.Reject(lo.Uniq(cfg.IncludeRoots), func(dir string, _ int) bool {
		return dir == root || strings.HasPrefix(dir, root+string(filepath.Separator))
	})...)
	w, err := watch.New(eng, watch.Options{
		Roots:      roots,
		Extensions: extensionsOf(cfg),
		Logger:     s.logger,
	})
	if err != nil {
		s.logger.Error("starting watcher", logging.FieldError, err)
		return
	}
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		_ = w.Close()
		return
	}
	s.watcher = w
	s.mu.Unlock()

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("watcher stopped", logging.FieldError, err)
		}
	}()
}

func extensionsOf(cfg *config.Config) []string {
	if len(cfg.Extensions) == 0 {
		return config.DefaultExtensions
	}
	return cfg.Extensions
}

// newEngine creates the engine for a workspace.
func (s *Server) newEngine(ctx context.Context, cfg *config.Config) *engine.Engine {
	return engine.New(ctx, engine.Options{
		Config:    cfg,
		Files:     s.opts.Files,
		Publisher: s,
		Logger:    s.logger,
		Unit:      edit.UnitUTF16,
	})
}

func pathOf(u uri.URI) string {
	return filepath.Clean(source.Path(u))
}
