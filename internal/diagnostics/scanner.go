// Package diagnostics scans document text for email addresses that no
// configured contact source knows about.
package diagnostics

import (
	"github.com/fyrsmithlabs/maills/internal/contacts"
	"github.com/fyrsmithlabs/maills/internal/document"
	"github.com/fyrsmithlabs/maills/internal/mailbox"
)

// Message is the fixed diagnostic message for unknown addresses.
const Message = "Address is not in contacts"

// Diagnostic flags one email-shaped substring absent from every contact
// source. Severity is always hint; the field exists so the wire layer does
// not need to special-case it.
type Diagnostic struct {
	Range   document.Range
	Message string
}

// Scanner scans full document texts against a contact source.
type Scanner struct {
	source   contacts.Source
	encoding document.Encoding
}

// NewScanner creates a scanner reporting ranges in the given position
// encoding.
func NewScanner(source contacts.Source, encoding document.Encoding) *Scanner {
	return &Scanner{source: source, encoding: encoding}
}

// Scan finds every non-overlapping email match in text and returns one
// diagnostic for each match the source does not contain.
func (s *Scanner) Scan(text string) []Diagnostic {
	var out []Diagnostic
	for _, span := range mailbox.EmailRx.FindAllStringIndex(text, -1) {
		email := text[span[0]:span[1]]
		if s.source.Contains(email) {
			continue
		}
		out = append(out, Diagnostic{
			Range: document.Range{
				Start: document.PositionOf(text, span[0], s.encoding),
				End:   document.PositionOf(text, span[1], s.encoding),
			},
			Message: Message,
		})
	}
	return out
}

// Covers reports whether d spans pos: start <= pos < end, end exclusive.
func Covers(d Diagnostic, pos document.Position) bool {
	afterStart := d.Range.Start.Line < pos.Line ||
		(d.Range.Start.Line == pos.Line && d.Range.Start.Character <= pos.Character)
	beforeEnd := d.Range.End.Line > pos.Line ||
		(d.Range.End.Line == pos.Line && d.Range.End.Character > pos.Character)
	return afterStart && beforeEnd
}
