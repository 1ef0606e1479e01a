package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/sourcegraph/jsonrpc2"
	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/internal/logging"
	"github.com/yaklabco/pawnls/pkg/edit"
	"github.com/yaklabco/pawnls/pkg/engine"
	"github.com/yaklabco/pawnls/pkg/store"
)

// Error codes the protocol adds to JSON-RPC.
const (
	codeServerNotInitialized int64 = -32002
	codeRequestCancelled     int64 = -32800
)

// initializeParams holds the parts of the initialize request the server
// reads. Initialization options stay raw until they are parsed as
// Settings.
type initializeParams struct {
	RootURI               uri.URI               `json:"rootUri"`
	RootPath              string                `json:"rootPath"`
	WorkspaceFolders      []lsp.WorkspaceFolder `json:"workspaceFolders"`
	InitializationOptions json.RawMessage       `json:"initializationOptions"`
	Capabilities          struct {
		Workspace struct {
			Configuration bool `json:"configuration"`
		} `json:"workspace"`
	} `json:"capabilities"`
}

// didChangeParams mirrors DidChangeTextDocumentParams with an optional
// range, which tells full replacements from ranged ones.
type didChangeParams struct {
	TextDocument   lsp.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []struct {
		Range *lsp.Range `json:"range,omitempty"`
		Text  string     `json:"text"`
	} `json:"contentChanges"`
}

type didChangeConfigurationParams struct {
	Settings json.RawMessage `json:"settings"`
}

func decodePayload[T any](r *jsonrpc2.Request) (*T, error) {
	payload := new(T)
	if r.Params == nil {
		return payload, nil
	}
	if err := json.Unmarshal(*r.Params, payload); err != nil {
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInvalidParams,
			Message: "Unable to decode params of method " + r.Method + ": " + err.Error(),
		}
	}
	return payload, nil
}

// Handle implements jsonrpc2.Handler. Notifications are handled in the
// order they arrive so edits apply in sequence; requests other than the
// lifecycle ones run concurrently.
func (s *Server) Handle(ctx context.Context, c *jsonrpc2.Conn, r *jsonrpc2.Request) {
	if r.Notif {
		s.guard(r, func() {
			if err := s.notify(ctx, c, r); err != nil {
				s.logger.Warn("notification failed",
					logging.FieldMethod, r.Method,
					logging.FieldError, err)
			}
		})
		return
	}

	switch r.Method {
	case lsp.MethodInitialize, lsp.MethodShutdown:
		s.respond(ctx, c, r)
	default:
		go s.respond(ctx, c, r)
	}
}

// guard turns a panic in fn into an error log line.
func (s *Server) guard(r *jsonrpc2.Request, fn func()) (panicked bool) {
	defer func() {
		if p := recover(); p != nil {
			panicked = true
			s.logger.Error("handler panicked",
				logging.FieldMethod, r.Method,
				logging.FieldError, p,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
	return false
}

func (s *Server) respond(ctx context.Context, c *jsonrpc2.Conn, r *jsonrpc2.Request) {
	ctx = logging.WithRequest(ctx, r.Method, r.ID.String())
	var (
		result any
		err    error
	)
	if s.guard(r, func() { result, err = s.call(ctx, c, r) }) {
		err = fmt.Errorf("internal error handling %s", r.Method)
	}

	if err != nil {
		rpcErr := toRPCError(err)
		logging.FromContext(ctx).Debug("request failed", logging.FieldError, err)
		if rerr := c.ReplyWithError(ctx, r.ID, rpcErr); rerr != nil {
			s.logger.Debug("replying", logging.FieldError, rerr)
		}
		return
	}
	if rerr := c.Reply(ctx, r.ID, result); rerr != nil {
		s.logger.Debug("replying", logging.FieldError, rerr)
	}
}

func toRPCError(err error) *jsonrpc2.Error {
	var rpcErr *jsonrpc2.Error
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &jsonrpc2.Error{Code: codeRequestCancelled, Message: err.Error()}
	default:
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
	}
}

func (s *Server) call(ctx context.Context, c *jsonrpc2.Conn, r *jsonrpc2.Request) (any, error) {
	switch r.Method {
	case lsp.MethodInitialize:
		return s.initialize(ctx, c, r)
	case lsp.MethodShutdown:
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		s.stop()
		return json.RawMessage("null"), nil
	}

	eng, err := s.engine()
	if err != nil {
		return nil, err
	}

	switch r.Method {
	case lsp.MethodTextDocumentHover:
		p, err := decodePayload[lsp.HoverParams](r)
		if err != nil {
			return nil, err
		}
		h, err := eng.Hover(ctx, p.TextDocument.URI, editPosition(p.Position))
		if err != nil || h == nil {
			return orEmpty[*lsp.Hover](err)
		}
		rng := newConverter(eng).rangeOf(h.Span)
		return &lsp.Hover{
			Contents: lsp.MarkupContent{Kind: lsp.Markdown, Value: h.Contents},
			Range:    &rng,
		}, nil

	case lsp.MethodTextDocumentDefinition:
		p, err := decodePayload[lsp.DefinitionParams](r)
		if err != nil {
			return nil, err
		}
		spans, err := eng.Definition(ctx, p.TextDocument.URI, editPosition(p.Position))
		if err != nil {
			return orEmpty[[]lsp.Location](err)
		}
		return newConverter(eng).locations(spans), nil

	case lsp.MethodTextDocumentReferences:
		p, err := decodePayload[lsp.ReferenceParams](r)
		if err != nil {
			return nil, err
		}
		spans, err := eng.References(ctx, p.TextDocument.URI, editPosition(p.Position), p.Context.IncludeDeclaration)
		if err != nil {
			return orEmpty[[]lsp.Location](err)
		}
		return newConverter(eng).locations(spans), nil

	case lsp.MethodTextDocumentCompletion:
		p, err := decodePayload[lsp.CompletionParams](r)
		if err != nil {
			return nil, err
		}
		items, err := eng.Completion(ctx, p.TextDocument.URI, editPosition(p.Position))
		if err != nil {
			return orEmpty[*lsp.CompletionList](err)
		}
		return &lsp.CompletionList{Items: completionItems(items)}, nil

	case lsp.MethodTextDocumentDocumentSymbol:
		p, err := decodePayload[lsp.DocumentSymbolParams](r)
		if err != nil {
			return nil, err
		}
		syms, err := eng.DocumentSymbols(ctx, p.TextDocument.URI)
		if err != nil {
			return orEmpty[[]lsp.DocumentSymbol](err)
		}
		return newConverter(eng).documentSymbols(syms), nil

	case lsp.MethodWorkspaceSymbol:
		p, err := decodePayload[lsp.WorkspaceSymbolParams](r)
		if err != nil {
			return nil, err
		}
		syms, err := eng.WorkspaceSymbols(ctx, p.Query)
		if err != nil {
			return nil, err
		}
		return newConverter(eng).symbolInformation(syms), nil
	}

	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not supported: " + r.Method}
}

// orEmpty answers queries about files the engine does not know with an
// empty result instead of an error.
func orEmpty[T any](err error) (any, error) {
	if err == nil || errors.Is(err, engine.ErrNotLoaded) {
		var zero T
		return zero, nil
	}
	return nil, err
}

func (s *Server) initialize(ctx context.Context, c *jsonrpc2.Conn, r *jsonrpc2.Request) (any, error) {
	s.mu.Lock()
	already := s.eng != nil
	s.mu.Unlock()
	if already {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server already initialized"}
	}

	p, err := decodePayload[initializeParams](r)
	if err != nil {
		return nil, err
	}
	root := workspaceRoot(p)

	settings, err := parseSettings(p.InitializationOptions)
	if err != nil {
		s.warn(fmt.Sprintf("The %s configuration is invalid; using the default settings instead.\nDetails: %v", settingsSection, err))
		settings = Settings{}
	}
	cfg := s.loadConfig(ctx, root, settings)

	s.mu.Lock()
	s.conn = c
	s.root = root
	s.settings = settings
	s.pullConfig = p.Capabilities.Workspace.Configuration
	s.eng = s.newEngine(s.ctx, cfg)
	s.mu.Unlock()

	return lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: lsp.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    lsp.TextDocumentSyncKindIncremental,
				Save:      &lsp.SaveOptions{},
			},
			HoverProvider:      true,
			DefinitionProvider: true,
			ReferencesProvider: true,
			CompletionProvider: &lsp.CompletionOptions{
				TriggerCharacters: []string{".", ":", "<", "\"", "/"},
			},
			DocumentSymbolProvider:  true,
			WorkspaceSymbolProvider: true,
		},
		ServerInfo: &lsp.ServerInfo{
			Name:    s.opts.Name,
			Version: s.opts.Version,
		},
	}, nil
}

func (s *Server) notify(ctx context.Context, c *jsonrpc2.Conn, r *jsonrpc2.Request) error {
	switch r.Method {
	case lsp.MethodInitialized:
		s.mu.Lock()
		s.initialized = true
		pull := s.pullConfig
		s.mu.Unlock()
		s.flushMessages()
		go func() {
			if pull {
				s.pullSettings(ctx, c)
			}
			s.startWorkspace(ctx)
		}()
		return nil

	case lsp.MethodExit:
		s.exitOnce.Do(func() { close(s.exited) })
		return nil
	}

	eng, err := s.engine()
	if err != nil {
		// Notifications before initialize or after shutdown are dropped.
		return nil
	}

	switch r.Method {
	case lsp.MethodTextDocumentDidOpen:
		p, err := decodePayload[lsp.DidOpenTextDocumentParams](r)
		if err != nil {
			return err
		}
		return eng.OpenFile(ctx, p.TextDocument.URI, p.TextDocument.Text, int32(p.TextDocument.Version))

	case lsp.MethodTextDocumentDidChange:
		p, err := decodePayload[didChangeParams](r)
		if err != nil {
			return err
		}
		changes := make([]edit.Change, 0, len(p.ContentChanges))
		for _, ch := range p.ContentChanges {
			change := edit.Change{Text: ch.Text}
			if ch.Range != nil {
				change.Range = &edit.Range{
					Start: editPosition(ch.Range.Start),
					End:   editPosition(ch.Range.End),
				}
			}
			changes = append(changes, change)
		}
		err = eng.ApplyEdit(ctx, p.TextDocument.URI, int32(p.TextDocument.Version), changes)
		if errors.Is(err, store.ErrStaleVersion) {
			s.logger.Debug("ignoring stale edit", logging.FieldURI, p.TextDocument.URI, logging.FieldVersion, p.TextDocument.Version)
			return nil
		}
		return err

	case lsp.MethodTextDocumentDidClose:
		p, err := decodePayload[lsp.DidCloseTextDocumentParams](r)
		if err != nil {
			return err
		}
		return eng.CloseFile(ctx, p.TextDocument.URI)

	case lsp.MethodTextDocumentDidSave:
		p, err := decodePayload[lsp.DidSaveTextDocumentParams](r)
		if err != nil {
			return err
		}
		// A file saved for the first time may be an include other files
		// were missing.
		return eng.FileCreated(ctx, pathOf(p.TextDocument.URI))

	case lsp.MethodWorkspaceDidChangeConfiguration:
		p, err := decodePayload[didChangeConfigurationParams](r)
		if err != nil {
			return err
		}
		s.mu.Lock()
		pull := s.pullConfig
		s.mu.Unlock()
		if pull {
			go s.pullSettings(ctx, c)
			return nil
		}
		s.applySettings(ctx, p.Settings)
		return nil
	}
	return nil
}
