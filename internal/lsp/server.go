package lsp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"

	"github.com/jarredhawkins/gherkin-lsp/internal/config"
	"github.com/jarredhawkins/gherkin-lsp/internal/types"
	"github.com/jarredhawkins/gherkin-lsp/internal/watcher"
	"github.com/jarredhawkins/gherkin-lsp/internal/workspace"
)

// codeServerNotInitialized is the LSP error for requests before initialize
const codeServerNotInitialized jsonrpc2.Code = -32002

// Options configures a Server
type Options struct {
	// Workspace root used when the client sends none
	Root string
	// Watch the root for step and feature file changes
	Watch bool
	// Reported in serverInfo
	Version string
}

// Server implements the LSP server
type Server struct {
	opts      Options
	documents *DocumentStore
	logger    *zap.Logger

	// mu guards everything below. Requests arrive one at a time; watcher
	// batches arrive on their own goroutines.
	mu            sync.Mutex
	workspace     *workspace.Workspace
	watcher       *watcher.Watcher
	lastUnmatched []string

	conn jsonrpc2.Conn
	ctx  context.Context

	exited   chan struct{}
	exitOnce sync.Once
}

// NewServer creates a new LSP server
func NewServer(opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		opts:      opts,
		documents: NewDocumentStore(),
		logger:    logger,
		ctx:       context.Background(),
		exited:    make(chan struct{}),
	}
}

// Serve starts the LSP server on the given reader/writer
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stream := jsonrpc2.NewStream(&readWriteCloser{in, out})
	conn := jsonrpc2.NewConn(stream)

	s.mu.Lock()
	s.conn = conn
	s.ctx = ctx
	s.mu.Unlock()

	conn.Go(ctx, s.handler)
	defer s.stopWatcher()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.exited:
		return conn.Close()
	case <-conn.Done():
		return conn.Err()
	}
}

func (s *Server) handler(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.logger.Debug("LSP request", zap.String("method", req.Method()))

	switch req.Method() {
	case "initialize":
		return s.handleInitialize(ctx, reply, req)
	case "initialized":
		s.handleInitialized(ctx)
		return reply(ctx, nil, nil)
	case "shutdown":
		s.stopWatcher()
		return reply(ctx, nil, nil)
	case "exit":
		s.exitOnce.Do(func() { close(s.exited) })
		return nil
	case "$/cancelRequest", "$/setTrace":
		return reply(ctx, nil, nil)
	}

	if s.currentWorkspace() == nil {
		return reply(ctx, nil, &jsonrpc2.Error{
			Code:    codeServerNotInitialized,
			Message: "server not initialized",
		})
	}

	switch req.Method() {
	case "textDocument/didOpen":
		return s.handleDidOpen(ctx, reply, req)
	case "textDocument/didChange":
		return s.handleDidChange(ctx, reply, req)
	case "textDocument/didSave":
		return s.handleDidSave(ctx, reply, req)
	case "textDocument/didClose":
		return s.handleDidClose(ctx, reply, req)
	case "textDocument/completion":
		return s.handleCompletion(ctx, reply, req)
	case "completionItem/resolve":
		return s.handleResolve(ctx, reply, req)
	case "textDocument/definition":
		return s.handleDefinition(ctx, reply, req)
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(ctx, reply, req)
	default:
		// Method not found
		return reply(ctx, nil, &jsonrpc2.Error{
			Code:    jsonrpc2.MethodNotFound,
			Message: "method not supported: " + req.Method(),
		})
	}
}

func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params InitializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, invalidParams(err))
	}

	root := s.opts.Root
	switch {
	case params.RootURI != "":
		root = uriToPath(params.RootURI)
	case len(params.WorkspaceFolders) > 0:
		root = uriToPath(params.WorkspaceFolders[0].URI)
	}

	overrides := settingsMap(params.InitializationOptions)
	cfg := s.loadConfig(ctx, root, overrides)

	ws, err := workspace.New(root, cfg, nil, s.logger)
	if err != nil {
		return reply(ctx, nil, &jsonrpc2.Error{Code: jsonrpc2.InternalError, Message: err.Error()})
	}

	s.mu.Lock()
	s.workspace = ws
	s.mu.Unlock()

	s.logger.Info("workspace initialized", zap.String("root", root), zap.String("config", cfg.File))

	result := InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindFull,
				Save:      &SaveOptions{},
			},
			CompletionProvider: &CompletionOptions{
				ResolveProvider:   true,
				TriggerCharacters: []string{" "},
			},
			DefinitionProvider: true,
		},
		ServerInfo: &ServerInfo{
			Name:    types.DiagnosticSource,
			Version: s.opts.Version,
		},
	}
	return reply(ctx, result, nil)
}

func (s *Server) handleInitialized(ctx context.Context) {
	if s.currentWorkspace() == nil {
		return
	}
	s.rebuild(ctx)

	if s.opts.Watch {
		s.startWatcher()
	}
}

func (s *Server) handleDidOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, invalidParams(err))
	}

	s.documents.Open(params.TextDocument.URI, params.TextDocument.Version, params.TextDocument.Text)
	s.publishDiagnostics(ctx, params.TextDocument.URI)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidChange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, invalidParams(err))
	}

	if len(params.ContentChanges) > 0 {
		// Full sync mode - just take the last content
		uri := params.TextDocument.URI
		s.documents.Update(uri, params.TextDocument.Version, params.ContentChanges[len(params.ContentChanges)-1].Text)
		s.publishDiagnostics(ctx, uri)
	}
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidSave(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidSaveTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, invalidParams(err))
	}

	uri := params.TextDocument.URI
	if params.Text != nil {
		if doc, ok := s.documents.Get(uri); ok {
			s.documents.Update(uri, doc.Version, *params.Text)
		}
	}
	s.publishDiagnostics(ctx, uri)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, invalidParams(err))
	}

	uri := params.TextDocument.URI
	s.documents.Close(uri)
	if s.isFeatureDocument(uri) {
		s.notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{URI: uri, Diagnostics: []Diagnostic{}})
	}
	return reply(ctx, nil, nil)
}

func (s *Server) handleCompletion(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params CompletionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, invalidParams(err))
	}

	lines := s.documentLines(params.TextDocument.URI)
	line := int(params.Position.Line)
	if line >= len(lines) {
		return reply(ctx, nil, nil)
	}

	position := types.Position{Line: line, Character: int(params.Position.Character)}

	s.mu.Lock()
	candidates := s.workspace.Engine().Completion(lines[line], position, lines)
	s.mu.Unlock()

	if len(candidates) == 0 {
		return reply(ctx, nil, nil)
	}

	items := make([]CompletionItem, len(candidates))
	for i, c := range candidates {
		items[i] = toCompletionItem(c)
	}
	return reply(ctx, items, nil)
}

func (s *Server) handleResolve(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var item CompletionItem
	if err := json.Unmarshal(req.Params(), &item); err != nil {
		return reply(ctx, nil, invalidParams(err))
	}

	if item.Data != nil && item.Data.StepID != "" {
		s.mu.Lock()
		s.workspace.Engine().ResolveCompletion(types.CompletionCandidate{
			Label:      item.Label,
			SortText:   item.SortText,
			InsertText: item.InsertText,
			Snippet:    item.InsertTextFormat == InsertTextFormatSnippet,
			StepID:     item.Data.StepID,
		})
		s.mu.Unlock()
	}
	return reply(ctx, item, nil)
}

func (s *Server) handleDefinition(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params TextDocumentPositionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, invalidParams(err))
	}

	lines := s.documentLines(params.TextDocument.URI)
	line := int(params.Position.Line)
	if line >= len(lines) {
		return reply(ctx, nil, nil)
	}

	s.mu.Lock()
	loc, ok := s.workspace.Engine().Definition(lines[line], int(params.Position.Character))
	s.mu.Unlock()

	if !ok {
		return reply(ctx, nil, nil)
	}
	return reply(ctx, toLocation(*loc), nil)
}

func (s *Server) handleDidChangeConfiguration(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidChangeConfigurationParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, invalidParams(err))
	}

	overrides := settingsMap(params.Settings)
	if section, ok := overrides[types.DiagnosticSource].(map[string]any); ok {
		overrides = section
	}

	s.mu.Lock()
	root := s.workspace.Root()
	s.mu.Unlock()

	cfg := s.loadConfig(ctx, root, overrides)

	s.mu.Lock()
	err := s.workspace.Reconfigure(cfg)
	s.mu.Unlock()

	if err != nil {
		s.showMessage(ctx, MessageTypeError, err.Error())
		return reply(ctx, nil, nil)
	}

	s.rebuild(ctx)
	return reply(ctx, nil, nil)
}

// HandleBatch applies a batch of file changes and refreshes diagnostics
func (s *Server) HandleBatch(ctx context.Context, batch watcher.Batch) {
	s.mu.Lock()
	if s.workspace == nil {
		s.mu.Unlock()
		return
	}
	report := s.workspace.Apply(batch)
	s.mu.Unlock()

	if report == nil {
		return
	}
	if report.Steps != nil {
		s.reportBuild(ctx, report)
	}
	s.republish(ctx)
}

// rebuild re-indexes the workspace, reports problems with the step
// patterns and refreshes every open feature document.
func (s *Server) rebuild(ctx context.Context) {
	s.mu.Lock()
	report := s.workspace.Build()
	s.mu.Unlock()

	s.reportBuild(ctx, report)
	s.republish(ctx)
}

func (s *Server) reportBuild(ctx context.Context, report *workspace.Report) {
	steps := report.Steps
	s.logger.Info("step index rebuilt",
		zap.Int("files", steps.Files),
		zap.Int("steps", steps.Steps),
		zap.Int("duplicates", steps.Duplicates),
		zap.Strings("unmatched", steps.Unmatched))

	for pattern, err := range steps.Invalid {
		s.showMessage(ctx, MessageTypeError, err.Error())
		s.logger.Warn("invalid step pattern", zap.String("pattern", pattern), zap.Error(err))
	}

	s.mu.Lock()
	changed := !slices.Equal(s.lastUnmatched, steps.Unmatched)
	s.lastUnmatched = steps.Unmatched
	configFile := s.workspace.Config().File
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, pattern := range steps.Unmatched {
		s.showMessage(ctx, MessageTypeWarning, config.UnmatchedPatternMessage(pattern))
	}

	if configFile == "" {
		return
	}
	uri := pathToURI(configFile)
	content := strings.Join(s.documentLines(uri), "\n")
	diagnostics := config.UnmatchedPatternDiagnostics(content, steps.Unmatched)
	s.notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: toDiagnostics(diagnostics),
	})
}

// republish sends fresh diagnostics for every open feature document
func (s *Server) republish(ctx context.Context) {
	for _, uri := range s.documents.URIs() {
		s.publishDiagnostics(ctx, uri)
	}
}

func (s *Server) publishDiagnostics(ctx context.Context, uri string) {
	if !s.isFeatureDocument(uri) {
		return
	}
	doc, ok := s.documents.Get(uri)
	if !ok {
		return
	}

	s.mu.Lock()
	diagnostics := s.workspace.Engine().ValidateDocument(doc.Lines())
	s.mu.Unlock()

	s.notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: toDiagnostics(diagnostics),
	})
}

// isFeatureDocument reports documents that get step diagnostics: anything
// named *.feature plus whatever the feature patterns select.
func (s *Server) isFeatureDocument(uri string) bool {
	path := uriToPath(uri)
	if strings.HasSuffix(path, ".feature") {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspace != nil && s.workspace.IsFeatureFile(path)
}

func (s *Server) loadConfig(ctx context.Context, root string, overrides map[string]any) *config.Config {
	cfg, err := config.NewLoader(root, overrides).Load()
	if err != nil {
		s.logger.Warn("falling back to default configuration", zap.String("root", root), zap.Error(err))
		s.showMessage(ctx, MessageTypeError, err.Error())
		return config.Default()
	}
	return cfg
}

func (s *Server) startWatcher() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return
	}

	ctx := s.ctx
	filter := func(path string) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.workspace.Relevant(path)
	}
	w, err := watcher.New(s.workspace.Root(), filter, func(batch watcher.Batch) {
		s.HandleBatch(ctx, batch)
	}, s.logger)
	if err != nil {
		s.logger.Warn("failed to create watcher", zap.Error(err))
		return
	}
	if err := w.Start(); err != nil {
		s.logger.Warn("failed to start watcher", zap.Error(err))
		w.Close()
		return
	}
	s.watcher = w
}

func (s *Server) stopWatcher() {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w != nil {
		if err := w.Close(); err != nil {
			s.logger.Debug("failed to close watcher", zap.Error(err))
		}
	}
}

func (s *Server) currentWorkspace() *workspace.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspace
}

func (s *Server) showMessage(ctx context.Context, kind MessageType, message string) {
	s.notify(ctx, "window/showMessage", ShowMessageParams{Type: kind, Message: message})
}

func (s *Server) notify(ctx context.Context, method string, params any) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Notify(ctx, method, params); err != nil {
		s.logger.Warn("failed to send notification", zap.String("method", method), zap.Error(err))
	}
}

// documentLines returns an open document's lines, falling back to disk
func (s *Server) documentLines(uri string) []string {
	if doc, ok := s.documents.Get(uri); ok {
		return doc.Lines()
	}

	path := uriToPath(uri)
	content, err := os.ReadFile(path)
	if err != nil {
		s.logger.Debug("failed to read file", zap.String("path", path), zap.Error(err))
		return nil
	}
	return workspace.SplitLines(string(content))
}

// settingsMap decodes client settings, nil when there are none
func settingsMap(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var settings map[string]any
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil
	}
	return settings
}

func invalidParams(err error) error {
	return &jsonrpc2.Error{
		Code:    jsonrpc2.InvalidParams,
		Message: err.Error(),
	}
}

// readWriteCloser wraps reader and writer into a ReadWriteCloser
type readWriteCloser struct {
	io.Reader
	io.Writer
}

func (rwc *readWriteCloser) Close() error {
	return nil
}
