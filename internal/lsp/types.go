// Package lsp defines the Language Server Protocol types and JSON-RPC 2.0
// framing the server speaks over its stdio channel. Only the slice of the
// protocol the server implements is modeled.
package lsp

import "encoding/json"

// Request and notification methods handled or sent by the server.
const (
	MethodInitialize            = "initialize"
	MethodInitialized           = "initialized"
	MethodShutdown              = "shutdown"
	MethodExit                  = "exit"
	MethodDidOpenTextDocument   = "textDocument/didOpen"
	MethodDidChangeTextDocument = "textDocument/didChange"
	MethodDidCloseTextDocument  = "textDocument/didClose"
	MethodHover                 = "textDocument/hover"
	MethodCompletion            = "textDocument/completion"
	MethodCompletionResolve     = "completionItem/resolve"
	MethodDefinition            = "textDocument/definition"
	MethodCodeAction            = "textDocument/codeAction"
	MethodExecuteCommand        = "workspace/executeCommand"
	MethodPublishDiagnostics    = "textDocument/publishDiagnostics"
	MethodShowDocument          = "window/showDocument"
	MethodLogMessage            = "window/logMessage"
	MethodShowMessage           = "window/showMessage"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Position is a zero-based line/character pair in the negotiated encoding.
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Range is a half-open [start, end) span.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location is a document range inside a file.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// TextDocumentIdentifier names a document by URI.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// VersionedTextDocumentIdentifier adds the client's version counter.
type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int32  `json:"version"`
}

// TextDocumentItem is the full content of a newly opened document.
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId,omitempty"`
	Version    int32  `json:"version"`
	Text       string `json:"text"`
}

// TextDocumentPositionParams is the common request payload for hover,
// completion, and definition.
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// DidOpenTextDocumentParams carries a didOpen notification.
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// TextDocumentContentChangeEvent is one incremental (ranged) or full
// (range-less) content change.
type TextDocumentContentChangeEvent struct {
	Range *Range `json:"range,omitempty"`
	Text  string `json:"text"`
}

// DidChangeTextDocumentParams carries a didChange notification.
type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

// DidCloseTextDocumentParams carries a didClose notification.
type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// GeneralClientCapabilities is the subset of general capabilities the server
// inspects (position encoding negotiation).
type GeneralClientCapabilities struct {
	PositionEncodings []string `json:"positionEncodings,omitempty"`
}

// ClientCapabilities is the subset of client capabilities the server reads.
type ClientCapabilities struct {
	General *GeneralClientCapabilities `json:"general,omitempty"`
}

// InitializeParams carries the initialize request.
type InitializeParams struct {
	Capabilities          ClientCapabilities `json:"capabilities"`
	InitializationOptions json.RawMessage    `json:"initializationOptions,omitempty"`
}

// TextDocumentSyncOptions advertises the server's document sync mode.
type TextDocumentSyncOptions struct {
	OpenClose bool `json:"openClose"`
	Change    int  `json:"change"`
}

// TextDocumentSyncIncremental requests ranged change deltas.
const TextDocumentSyncIncremental = 2

// CompletionOptions advertises completion support.
type CompletionOptions struct {
	ResolveProvider bool `json:"resolveProvider"`
}

// ExecuteCommandOptions advertises the commands the server executes.
type ExecuteCommandOptions struct {
	Commands []string `json:"commands"`
}

// ServerCapabilities is the capability set returned from initialize.
type ServerCapabilities struct {
	PositionEncoding       string                   `json:"positionEncoding,omitempty"`
	TextDocumentSync       *TextDocumentSyncOptions `json:"textDocumentSync,omitempty"`
	HoverProvider          bool                     `json:"hoverProvider,omitempty"`
	CompletionProvider     *CompletionOptions       `json:"completionProvider,omitempty"`
	DefinitionProvider     bool                     `json:"definitionProvider,omitempty"`
	CodeActionProvider     bool                     `json:"codeActionProvider,omitempty"`
	ExecuteCommandProvider *ExecuteCommandOptions   `json:"executeCommandProvider,omitempty"`
}

// ServerInfo identifies the server implementation.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// InitializeResult is the response to initialize.
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   *ServerInfo        `json:"serverInfo,omitempty"`
}

// MarkupContent is a markdown (or plaintext) payload.
type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// MarkupKindMarkdown marks markdown markup content.
const MarkupKindMarkdown = "markdown"

// Hover is the response to textDocument/hover.
type Hover struct {
	Contents MarkupContent `json:"contents"`
}

// CompletionItemKindText is the kind for plain-text completion items.
const CompletionItemKindText = 1

// CompletionItem is one completion label with optional resolved detail.
type CompletionItem struct {
	Label         string         `json:"label"`
	Kind          int            `json:"kind,omitempty"`
	Documentation *MarkupContent `json:"documentation,omitempty"`
}

// CompletionList is the response to textDocument/completion.
type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

// DiagnosticSeverityHint marks hint-severity diagnostics.
const DiagnosticSeverityHint = 4

// Diagnostic flags a document range.
type Diagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity,omitempty"`
	Message  string `json:"message"`
}

// PublishDiagnosticsParams carries a publishDiagnostics notification.
type PublishDiagnosticsParams struct {
	URI         string       `json:"uri"`
	Version     *int32       `json:"version,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// CodeActionKindQuickFix marks quick-fix code actions.
const CodeActionKindQuickFix = "quickfix"

// CodeActionContext carries the diagnostics overlapping the request range.
type CodeActionContext struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// CodeActionParams carries a codeAction request.
type CodeActionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
	Context      CodeActionContext      `json:"context"`
}

// Command is a client-invokable server command.
type Command struct {
	Title     string            `json:"title"`
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}

// CodeAction is one entry of a codeAction response.
type CodeAction struct {
	Title       string       `json:"title"`
	Kind        string       `json:"kind,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Command     *Command     `json:"command,omitempty"`
}

// ExecuteCommandParams carries a workspace/executeCommand request.
type ExecuteCommandParams struct {
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}

// ShowDocumentParams asks the client to open a document.
type ShowDocumentParams struct {
	URI string `json:"uri"`
}

// Message types for window/logMessage and window/showMessage.
const (
	MessageTypeError   = 1
	MessageTypeWarning = 2
	MessageTypeInfo    = 3
	MessageTypeLog     = 4
)

// LogMessageParams carries a window/logMessage notification.
type LogMessageParams struct {
	Type    int    `json:"type"`
	Message string `json:"message"`
}

// ShowMessageParams carries a window/showMessage notification.
type ShowMessageParams struct {
	Type    int    `json:"type"`
	Message string `json:"message"`
}
