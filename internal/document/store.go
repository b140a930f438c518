// Package document owns the in-memory text of every open document and the
// position arithmetic shared with diagnostics publishing.
package document

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"
)

// ErrSourceUnavailable is returned when a document is neither open in the
// store nor readable from disk.
var ErrSourceUnavailable = errors.New("document source unavailable")

// ErrPositionOutOfRange is returned when a position names a line the document
// does not have.
var ErrPositionOutOfRange = errors.New("position out of range")

// Encoding is the position encoding negotiated with the client. Characters
// in LSP positions are counted in these units.
type Encoding string

const (
	// EncodingUTF16 counts characters in UTF-16 code units (LSP default).
	EncodingUTF16 Encoding = "utf-16"
	// EncodingUTF8 counts characters in bytes.
	EncodingUTF8 Encoding = "utf-8"
)

// Position is a zero-based line/character pair. Character is counted in the
// store's negotiated encoding units.
type Position struct {
	Line      uint32
	Character uint32
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position
	End   Position
}

// Change is a single content change: a ranged splice when Range is non-nil,
// otherwise a full-text replacement.
type Change struct {
	Range *Range
	Text  string
}

// Store keeps the authoritative text of open documents, keyed by URI.
// It is owned by a single session and is not safe for concurrent use.
type Store struct {
	open     map[string]string
	encoding Encoding
	logger   *zap.Logger
}

// NewStore creates an empty store using the given position encoding.
func NewStore(encoding Encoding, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		open:     make(map[string]string),
		encoding: encoding,
		logger:   logger,
	}
}

// Encoding returns the negotiated position encoding.
func (s *Store) Encoding() Encoding { return s.encoding }

// Open registers uri with its full initial text.
func (s *Store) Open(uri, text string) {
	s.open[uri] = text
	s.logger.Debug("document opened", zap.String("uri", uri), zap.Int("bytes", len(text)))
}

// Close discards the in-memory copy. The backing file remains the durable
// source of truth.
func (s *Store) Close(uri string) {
	delete(s.open, uri)
	s.logger.Debug("document closed", zap.String("uri", uri))
}

// URIs returns the URIs of all open documents in unspecified order.
func (s *Store) URIs() []string {
	uris := make([]string, 0, len(s.open))
	for uri := range s.open {
		uris = append(uris, uri)
	}
	return uris
}

// IsOpen reports whether uri has an in-memory copy.
func (s *Store) IsOpen(uri string) bool {
	_, ok := s.open[uri]
	return ok
}

// ApplyChanges applies changes strictly in order, each against the result of
// the previous. The document must be open.
func (s *Store) ApplyChanges(uri string, changes []Change) error {
	text, ok := s.open[uri]
	if !ok {
		return fmt.Errorf("apply changes to %s: %w", uri, ErrSourceUnavailable)
	}
	for _, c := range changes {
		if c.Range == nil {
			text = c.Text
			continue
		}
		start := OffsetOf(text, c.Range.Start, s.encoding)
		end := OffsetOf(text, c.Range.End, s.encoding)
		if end < start {
			start, end = end, start
		}
		text = text[:start] + c.Text + text[end:]
	}
	s.open[uri] = text
	return nil
}

// Text returns the current text for uri. When the document is not open the
// store falls back to reading the file from disk; this is the only direct
// disk read the core performs.
func (s *Store) Text(uri string) (string, error) {
	if text, ok := s.open[uri]; ok {
		return text, nil
	}
	path, err := FilePath(uri)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", uri, ErrSourceUnavailable)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, ErrSourceUnavailable)
	}
	return string(content), nil
}

// Line returns the zero-based line of the document, without its trailing
// newline, along with the byte offset of the character position within it.
func (s *Store) Line(uri string, pos Position) (line string, offset int, err error) {
	text, err := s.Text(uri)
	if err != nil {
		return "", 0, err
	}
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", 0, fmt.Errorf("line %d out of range for %s: %w", pos.Line, uri, ErrPositionOutOfRange)
	}
	line = strings.TrimSuffix(lines[pos.Line], "\r")
	return line, columnOffset(line, pos.Character, s.encoding), nil
}

// FilePath converts a file:// URI to a filesystem path.
func FilePath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	return u.Path, nil
}

// FileURI converts a filesystem path to a file:// URI.
func FileURI(path string) string {
	u := url.URL{Scheme: "file", Path: path}
	return u.String()
}

// OffsetOf converts a position to a byte offset into text by scanning from
// the beginning, counting newlines for line advancement and encoding units
// for character advancement within a line. Positions past the end of a line
// or of the text clamp to the nearest valid offset.
func OffsetOf(text string, pos Position, enc Encoding) int {
	offset := 0
	for line := uint32(0); line < pos.Line; line++ {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return len(text)
		}
		offset += nl + 1
	}
	rest := text[offset:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return offset + columnOffset(rest, pos.Character, enc)
}

// PositionOf is the inverse of OffsetOf: it converts a byte offset into text
// to a line/character position in the given encoding.
func PositionOf(text string, offset int, enc Encoding) Position {
	if offset > len(text) {
		offset = len(text)
	}
	before := text[:offset]
	line := uint32(strings.Count(before, "\n"))
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return Position{Line: line, Character: columnUnits(before[lineStart:], enc)}
}

// columnOffset converts a character count in encoding units to a byte offset
// within a single line, clamping at the line's end.
func columnOffset(line string, character uint32, enc Encoding) int {
	if enc == EncodingUTF8 {
		if int(character) > len(line) {
			return len(line)
		}
		return int(character)
	}
	units := uint32(0)
	for i, r := range line {
		if units >= character {
			return i
		}
		units += utf16Len(r)
	}
	return len(line)
}

// columnUnits counts the encoding units in a full line prefix.
func columnUnits(prefix string, enc Encoding) uint32 {
	if enc == EncodingUTF8 {
		return uint32(len(prefix))
	}
	units := uint32(0)
	for _, r := range prefix {
		units += utf16Len(r)
	}
	return units
}

func utf16Len(r rune) uint32 {
	if r >= 0x10000 {
		return 2
	}
	return 1
}
