// Package server runs a single LSP session: one synchronous message loop
// owning the document store, the contact sources, and the cached
// diagnostics.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/maills/internal/config"
	"github.com/fyrsmithlabs/maills/internal/contacts"
	"github.com/fyrsmithlabs/maills/internal/diagnostics"
	"github.com/fyrsmithlabs/maills/internal/document"
	"github.com/fyrsmithlabs/maills/internal/lsp"
)

// Commands the server executes via workspace/executeCommand.
const (
	CommandCreateContact  = "create_contact"
	CommandReloadContacts = "reload_contacts"
)

// completionLimit caps completion results; hitting it sets isIncomplete.
const completionLimit = 100

// ErrExitWithoutShutdown is returned when the client sends exit before a
// shutdown request.
var ErrExitWithoutShutdown = errors.New("received exit notification before shutdown request")

// Session serializes all protocol traffic for one client. All state hangs
// off this struct; there are no ambient globals.
type Session struct {
	conn    *lsp.Conn
	cfg     *config.Config
	logger  *zap.Logger
	version string

	docs    *document.Store
	sources *contacts.Aggregator
	scanner *diagnostics.Scanner

	// diags is the last computed diagnostics set per document URI, reused to
	// scope quick fixes to a cursor position.
	diags map[string][]diagnostics.Diagnostic

	shutdown bool
	nextID   int64
}

// New creates a session over conn. cfg holds the file/environment layers;
// the client's initializationOptions are overlaid during initialize.
func New(conn *lsp.Conn, cfg *config.Config, logger *zap.Logger, version string) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		conn:    conn,
		cfg:     cfg,
		logger:  logger,
		version: version,
		diags:   make(map[string][]diagnostics.Diagnostic),
	}
}

// Run drives the session to completion: initialize handshake, then the
// message loop until exit or channel close.
func (s *Session) Run() error {
	if err := s.initialize(); err != nil {
		return err
	}
	for {
		msg, err := s.conn.Read()
		if errors.Is(err, io.EOF) {
			s.logger.Info("client closed the channel")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		switch {
		case msg.IsRequest():
			if err := s.handleRequest(msg); err != nil {
				return err
			}
		case msg.IsNotification():
			done, err := s.handleNotification(msg)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		default:
			// Response to a server-initiated request (showDocument); there
			// is nothing to correlate.
			s.logger.Debug("client response drained", zap.String("id", string(msg.ID)))
		}
	}
}

// initialize performs the handshake: waits for the initialize request,
// layers initializationOptions onto the configuration, builds the sources,
// negotiates the position encoding, and advertises capabilities trimmed by
// the feature toggles.
func (s *Session) initialize() error {
	msg, params, err := s.awaitInitialize()
	if err != nil {
		return err
	}

	if err := s.cfg.ApplyInitializationOptions(params.InitializationOptions); err != nil {
		return s.failInitialize(msg.ID, err)
	}
	if err := s.cfg.Normalize(); err != nil {
		return s.failInitialize(msg.ID, err)
	}
	if err := s.cfg.Validate(); err != nil {
		return s.failInitialize(msg.ID, err)
	}

	encoding := document.EncodingUTF16
	if params.Capabilities.General != nil {
		for _, pe := range params.Capabilities.General.PositionEncodings {
			if pe == string(document.EncodingUTF8) {
				encoding = document.EncodingUTF8
				break
			}
		}
	}

	if err := s.buildSources(encoding); err != nil {
		return s.failInitialize(msg.ID, err)
	}

	result := lsp.InitializeResult{
		Capabilities: s.capabilities(encoding),
		ServerInfo:   &lsp.ServerInfo{Name: "maills", Version: s.version},
	}
	if err := s.conn.Reply(msg.ID, result); err != nil {
		return err
	}
	s.logger.Info("session initialized",
		zap.String("encoding", string(encoding)),
		zap.String("list", s.cfg.Contacts.ListPath),
		zap.String("vcard_dir", s.cfg.Contacts.VCardDir))
	return nil
}

// awaitInitialize reads until the initialize request arrives, rejecting
// premature requests per protocol.
func (s *Session) awaitInitialize() (*lsp.Message, *lsp.InitializeParams, error) {
	for {
		msg, err := s.conn.Read()
		if err != nil {
			return nil, nil, fmt.Errorf("await initialize: %w", err)
		}
		switch {
		case msg.IsRequest() && msg.Method == lsp.MethodInitialize:
			var params lsp.InitializeParams
			if err := json.Unmarshal(msg.Params, &params); err != nil {
				return nil, nil, fmt.Errorf("decode initialize params: %w", err)
			}
			return msg, &params, nil
		case msg.IsRequest():
			if err := s.conn.ReplyError(msg.ID, lsp.CodeInvalidRequest, "server not initialized"); err != nil {
				return nil, nil, err
			}
		case msg.IsNotification() && msg.Method == lsp.MethodExit:
			return nil, nil, ErrExitWithoutShutdown
		}
	}
}

// failInitialize reports a fatal configuration problem to the client and
// aborts the session. Startup is all-or-nothing.
func (s *Session) failInitialize(id json.RawMessage, err error) error {
	_ = s.conn.Notify(lsp.MethodShowMessage, lsp.ShowMessageParams{
		Type:    lsp.MessageTypeError,
		Message: fmt.Sprintf("maills cannot start: %v", err),
	})
	_ = s.conn.ReplyError(id, lsp.CodeInvalidParams, err.Error())
	return fmt.Errorf("initialize: %w", err)
}

// buildSources constructs the aggregator in configuration order: contact
// list first, vCard book second.
func (s *Session) buildSources(encoding document.Encoding) error {
	var srcs []contacts.Source
	if path := s.cfg.Contacts.ListPath; path != "" {
		list, err := contacts.NewList(path, s.cfg.Contacts.ListKnownForDiagnostics, s.logger)
		if err != nil {
			return err
		}
		srcs = append(srcs, list)
	}
	if dir := s.cfg.Contacts.VCardDir; dir != "" {
		book, err := contacts.NewBook(dir, s.logger)
		if err != nil {
			return err
		}
		srcs = append(srcs, book)
	}
	agg, err := contacts.NewAggregator(srcs...)
	if err != nil {
		return err
	}
	s.sources = agg
	s.docs = document.NewStore(encoding, s.logger)
	s.scanner = diagnostics.NewScanner(agg, encoding)
	return nil
}

// capabilities advertises only the features left enabled by configuration.
func (s *Session) capabilities(encoding document.Encoding) lsp.ServerCapabilities {
	caps := lsp.ServerCapabilities{
		PositionEncoding: string(encoding),
		TextDocumentSync: &lsp.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    lsp.TextDocumentSyncIncremental,
		},
	}
	if s.cfg.Features.Hover {
		caps.HoverProvider = true
	}
	if s.cfg.Features.Completion {
		caps.CompletionProvider = &lsp.CompletionOptions{ResolveProvider: true}
	}
	if s.cfg.Features.GotoDefinition {
		caps.DefinitionProvider = true
	}
	if s.cfg.Features.CodeActions {
		caps.CodeActionProvider = true
		caps.ExecuteCommandProvider = &lsp.ExecuteCommandOptions{
			Commands: []string{CommandCreateContact, CommandReloadContacts},
		}
	}
	return caps
}

func (s *Session) handleRequest(msg *lsp.Message) error {
	if s.shutdown {
		return s.conn.ReplyError(msg.ID, lsp.CodeInvalidRequest, "received request after shutdown")
	}
	switch msg.Method {
	case lsp.MethodHover:
		return s.handleHover(msg)
	case lsp.MethodCompletion:
		return s.handleCompletion(msg)
	case lsp.MethodCompletionResolve:
		return s.handleCompletionResolve(msg)
	case lsp.MethodDefinition:
		return s.handleDefinition(msg)
	case lsp.MethodCodeAction:
		return s.handleCodeAction(msg)
	case lsp.MethodExecuteCommand:
		return s.handleExecuteCommand(msg)
	case lsp.MethodShutdown:
		s.shutdown = true
		return s.conn.Reply(msg.ID, nil)
	case lsp.MethodInitialize:
		return s.conn.ReplyError(msg.ID, lsp.CodeInvalidRequest, "server already initialized")
	default:
		s.logger.Debug("unmatched request", zap.String("method", msg.Method))
		return s.conn.ReplyError(msg.ID, lsp.CodeMethodNotFound, fmt.Sprintf("unsupported method %q", msg.Method))
	}
}

// handleNotification dispatches a notification. done is true for exit.
func (s *Session) handleNotification(msg *lsp.Message) (done bool, err error) {
	switch msg.Method {
	case lsp.MethodInitialized:
		return false, nil
	case lsp.MethodDidOpenTextDocument:
		return false, s.handleDidOpen(msg)
	case lsp.MethodDidChangeTextDocument:
		return false, s.handleDidChange(msg)
	case lsp.MethodDidCloseTextDocument:
		return false, s.handleDidClose(msg)
	case lsp.MethodExit:
		if !s.shutdown {
			return true, ErrExitWithoutShutdown
		}
		return true, nil
	default:
		s.logger.Debug("unmatched notification", zap.String("method", msg.Method))
		return false, nil
	}
}
