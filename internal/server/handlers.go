package server

import (
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/maills/internal/contacts"
	"github.com/fyrsmithlabs/maills/internal/diagnostics"
	"github.com/fyrsmithlabs/maills/internal/document"
	"github.com/fyrsmithlabs/maills/internal/lsp"
	"github.com/fyrsmithlabs/maills/internal/mailbox"
)

// mailboxAt resolves the mailbox anchored at an LSP position, using the
// document store to fetch the line and convert the character to a byte
// offset. The bool is false when no mailbox spans the position.
func (s *Session) mailboxAt(uri string, pos lsp.Position) (mailbox.Mailbox, bool, error) {
	line, offset, err := s.docs.Line(uri, docPosition(pos))
	if err != nil {
		return mailbox.Mailbox{}, false, err
	}
	m, ok := mailbox.ExtractAt(line, offset)
	return m, ok, nil
}

// wordAt resolves the bare email word at an LSP position.
func (s *Session) wordAt(uri string, pos lsp.Position) (string, bool, error) {
	line, offset, err := s.docs.Line(uri, docPosition(pos))
	if err != nil {
		return "", false, err
	}
	word, ok := mailbox.WordAt(line, offset)
	return word, ok, nil
}

func (s *Session) handleHover(msg *lsp.Message) error {
	var params lsp.TextDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.conn.ReplyError(msg.ID, lsp.CodeInvalidParams, err.Error())
	}
	m, ok, err := s.mailboxAt(params.TextDocument.URI, params.Position)
	if err != nil {
		return s.replyUnavailable(msg.ID, err)
	}
	if !ok {
		return s.conn.Reply(msg.ID, nil)
	}
	rendered := s.sources.Render(m)
	if rendered == "" {
		return s.conn.Reply(msg.ID, nil)
	}
	return s.conn.Reply(msg.ID, lsp.Hover{
		Contents: lsp.MarkupContent{Kind: lsp.MarkupKindMarkdown, Value: rendered},
	})
}

func (s *Session) handleCompletion(msg *lsp.Message) error {
	var params lsp.TextDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.conn.ReplyError(msg.ID, lsp.CodeInvalidParams, err.Error())
	}
	// Anchor one character before the cursor: the trigger character has
	// already been typed.
	if params.Position.Character > 0 {
		params.Position.Character--
	}
	word, ok, err := s.wordAt(params.TextDocument.URI, params.Position)
	if err != nil {
		return s.replyUnavailable(msg.ID, err)
	}
	if !ok {
		return s.conn.Reply(msg.ID, nil)
	}
	matches := s.sources.FindMatching(strings.ToLower(word))
	if len(matches) > completionLimit {
		matches = matches[:completionLimit]
	}
	items := make([]lsp.CompletionItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, lsp.CompletionItem{
			Label: m.String(),
			Kind:  lsp.CompletionItemKindText,
		})
	}
	return s.conn.Reply(msg.ID, lsp.CompletionList{
		IsIncomplete: len(items) == completionLimit,
		Items:        items,
	})
}

func (s *Session) handleCompletionResolve(msg *lsp.Message) error {
	var item lsp.CompletionItem
	if err := json.Unmarshal(msg.Params, &item); err != nil {
		return s.conn.ReplyError(msg.ID, lsp.CodeInvalidParams, err.Error())
	}
	rendered := s.sources.Render(mailbox.Parse(item.Label))
	if rendered == "" {
		return s.conn.Reply(msg.ID, nil)
	}
	item.Documentation = &lsp.MarkupContent{
		Kind:  lsp.MarkupKindMarkdown,
		Value: rendered,
	}
	return s.conn.Reply(msg.ID, item)
}

func (s *Session) handleDefinition(msg *lsp.Message) error {
	var params lsp.TextDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.conn.ReplyError(msg.ID, lsp.CodeInvalidParams, err.Error())
	}
	m, ok, err := s.mailboxAt(params.TextDocument.URI, params.Position)
	if err != nil {
		return s.replyUnavailable(msg.ID, err)
	}
	if !ok {
		return s.conn.Reply(msg.ID, nil)
	}
	locations := s.sources.Locations(m)
	switch len(locations) {
	case 0:
		return s.conn.Reply(msg.ID, nil)
	case 1:
		return s.conn.Reply(msg.ID, lspLocation(locations[0]))
	default:
		out := make([]lsp.Location, 0, len(locations))
		for _, loc := range locations {
			out = append(out, lspLocation(loc))
		}
		return s.conn.Reply(msg.ID, out)
	}
}

func (s *Session) handleCodeAction(msg *lsp.Message) error {
	var params lsp.CodeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.conn.ReplyError(msg.ID, lsp.CodeInvalidParams, err.Error())
	}
	m, ok, err := s.mailboxAt(params.TextDocument.URI, params.Range.Start)
	if err != nil {
		return s.replyUnavailable(msg.ID, err)
	}
	if !ok {
		return s.conn.Reply(msg.ID, []lsp.CodeAction{})
	}
	args, err := json.Marshal(m)
	if err != nil {
		return s.conn.ReplyError(msg.ID, lsp.CodeInternalError, err.Error())
	}
	var fixed []lsp.Diagnostic
	for _, d := range s.diags[params.TextDocument.URI] {
		if diagnostics.Covers(d, docPosition(params.Range.Start)) {
			fixed = append(fixed, lspDiagnostic(d))
		}
	}
	action := lsp.CodeAction{
		Title:       "Add to contacts",
		Kind:        lsp.CodeActionKindQuickFix,
		Diagnostics: fixed,
		Command: &lsp.Command{
			Title:     "Add to contacts",
			Command:   CommandCreateContact,
			Arguments: []json.RawMessage{args},
		},
	}
	return s.conn.Reply(msg.ID, []lsp.CodeAction{action})
}

func (s *Session) handleExecuteCommand(msg *lsp.Message) error {
	var params lsp.ExecuteCommandParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.conn.ReplyError(msg.ID, lsp.CodeInvalidParams, err.Error())
	}
	switch params.Command {
	case CommandCreateContact:
		return s.executeCreateContact(msg, params)
	case CommandReloadContacts:
		return s.executeReloadContacts(msg)
	default:
		return s.conn.ReplyError(msg.ID, lsp.CodeInvalidRequest, "unknown command")
	}
}

func (s *Session) executeCreateContact(msg *lsp.Message, params lsp.ExecuteCommandParams) error {
	if len(params.Arguments) == 0 {
		return s.conn.ReplyError(msg.ID, lsp.CodeInvalidRequest, "invalid arguments")
	}
	var m mailbox.Mailbox
	if err := json.Unmarshal(params.Arguments[0], &m); err != nil || m.Email == "" {
		return s.conn.ReplyError(msg.ID, lsp.CodeInvalidRequest, "invalid arguments")
	}
	path, err := s.sources.CreateContact(m)
	if err != nil {
		s.logger.Error("create contact failed", zap.String("email", m.Email), zap.Error(err))
		return s.conn.ReplyError(msg.ID, lsp.CodeInternalError, err.Error())
	}
	if path == "" {
		_ = s.conn.Notify(lsp.MethodShowMessage, lsp.ShowMessageParams{
			Type:    lsp.MessageTypeWarning,
			Message: "No configured contact source supports creating contacts",
		})
		return s.conn.Reply(msg.ID, nil)
	}
	s.nextID++
	if err := s.conn.Request(s.nextID, lsp.MethodShowDocument, lsp.ShowDocumentParams{
		URI: document.FileURI(path),
	}); err != nil {
		return err
	}
	if err := s.conn.Reply(msg.ID, nil); err != nil {
		return err
	}
	// The new address is known now; refresh diagnostics for open documents.
	return s.republishAll()
}

func (s *Session) executeReloadContacts(msg *lsp.Message) error {
	if err := s.sources.Reload(); err != nil {
		s.logger.Error("contact reload failed", zap.Error(err))
		return s.conn.ReplyError(msg.ID, lsp.CodeInternalError, err.Error())
	}
	s.logger.Info("contact sources reloaded")
	if err := s.conn.Reply(msg.ID, nil); err != nil {
		return err
	}
	return s.republishAll()
}

func (s *Session) handleDidOpen(msg *lsp.Message) error {
	var params lsp.DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("malformed didOpen", zap.Error(err))
		return nil
	}
	s.docs.Open(params.TextDocument.URI, params.TextDocument.Text)
	version := params.TextDocument.Version
	return s.publishDiagnostics(params.TextDocument.URI, &version)
}

func (s *Session) handleDidChange(msg *lsp.Message) error {
	var params lsp.DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("malformed didChange", zap.Error(err))
		return nil
	}
	changes := make([]document.Change, 0, len(params.ContentChanges))
	for _, c := range params.ContentChanges {
		change := document.Change{Text: c.Text}
		if c.Range != nil {
			change.Range = &document.Range{
				Start: docPosition(c.Range.Start),
				End:   docPosition(c.Range.End),
			}
		}
		changes = append(changes, change)
	}
	if err := s.docs.ApplyChanges(params.TextDocument.URI, changes); err != nil {
		s.logger.Warn("change for unopened document",
			zap.String("uri", params.TextDocument.URI), zap.Error(err))
		return nil
	}
	version := params.TextDocument.Version
	return s.publishDiagnostics(params.TextDocument.URI, &version)
}

func (s *Session) handleDidClose(msg *lsp.Message) error {
	var params lsp.DidCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("malformed didClose", zap.Error(err))
		return nil
	}
	s.docs.Close(params.TextDocument.URI)
	delete(s.diags, params.TextDocument.URI)
	return nil
}

// publishDiagnostics rescans the document and pushes the result. The scan
// result replaces the cached set for this URI.
func (s *Session) publishDiagnostics(uri string, version *int32) error {
	text, err := s.docs.Text(uri)
	if err != nil {
		s.logger.Warn("diagnostics skipped", zap.String("uri", uri), zap.Error(err))
		return nil
	}
	s.diags[uri] = s.scanner.Scan(text)
	out := make([]lsp.Diagnostic, 0, len(s.diags[uri]))
	for _, d := range s.diags[uri] {
		out = append(out, lspDiagnostic(d))
	}
	return s.conn.Notify(lsp.MethodPublishDiagnostics, lsp.PublishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: out,
	})
}

// republishAll refreshes diagnostics for every open document after source
// state changed.
func (s *Session) republishAll() error {
	for _, uri := range s.docs.URIs() {
		if err := s.publishDiagnostics(uri, nil); err != nil {
			return err
		}
	}
	return nil
}

// replyUnavailable maps document resolution failures to an empty result,
// leaving session state intact. Only genuinely unexpected failures surface as
// protocol errors.
func (s *Session) replyUnavailable(id json.RawMessage, err error) error {
	if errors.Is(err, document.ErrSourceUnavailable) || errors.Is(err, document.ErrPositionOutOfRange) {
		s.logger.Warn("document position unresolved", zap.Error(err))
		return s.conn.Reply(id, nil)
	}
	return s.conn.ReplyError(id, lsp.CodeInternalError, err.Error())
}

func docPosition(p lsp.Position) document.Position {
	return document.Position{Line: p.Line, Character: p.Character}
}

func lspPosition(p document.Position) lsp.Position {
	return lsp.Position{Line: p.Line, Character: p.Character}
}

func lspDiagnostic(d diagnostics.Diagnostic) lsp.Diagnostic {
	return lsp.Diagnostic{
		Range: lsp.Range{
			Start: lspPosition(d.Range.Start),
			End:   lspPosition(d.Range.End),
		},
		Severity: lsp.DiagnosticSeverityHint,
		Message:  d.Message,
	}
}

// lspLocation converts a contact location to a protocol location. Sources
// without line provenance point at the start of the file.
func lspLocation(loc contacts.Location) lsp.Location {
	var line uint32
	if loc.Line != nil {
		line = *loc.Line
	}
	pos := lsp.Position{Line: line}
	return lsp.Location{URI: document.FileURI(loc.Path), Range: lsp.Range{Start: pos, End: pos}}
}
