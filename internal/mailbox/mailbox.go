// Package mailbox provides the Mailbox value type and the text-scanning
// rules that extract mailboxes and email words from document lines.
package mailbox

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Mailbox is a name+email pair identifying a contact reference found in text.
// Name may be empty; Email never is for a valid mailbox.
type Mailbox struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// emailClass is the canonical local-part character class shared by mailbox
// extraction and diagnostics scanning. Historical revisions disagreed on
// whether `~` and `/` belong here; we settle on the narrower class.
const emailClass = `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`

// nameClass is the display-name character class: Unicode letters and digits
// plus space, apostrophe, hyphen, and underscore. Names are not restricted to
// ASCII the way email addresses are.
const nameClass = `[\p{L}\p{N}_ '-]+`

var (
	// mailboxRx matches an optional display name (quoted or bare) followed by
	// an email address, optionally wrapped in angle brackets.
	mailboxRx = regexp.MustCompile(`(?i)(?P<name>"` + nameClass + `"|` + nameClass + `)?\s*<?\b(?P<email>` + emailClass + `)\b>?`)

	// EmailRx matches a bare email address with no name group. Used by the
	// diagnostics scanner over whole documents.
	EmailRx = regexp.MustCompile(`(?i)\b` + emailClass + `\b`)

	nameIdx  = mailboxRx.SubexpIndex("name")
	emailIdx = mailboxRx.SubexpIndex("email")
)

// String renders the mailbox in canonical form: a bare email when there is
// no name, otherwise `"Name" <email>`. Parse is the exact inverse.
func (m Mailbox) String() string {
	if m.Name == "" {
		return m.Email
	}
	return fmt.Sprintf("%q <%s>", m.Name, m.Email)
}

// Parse is the inverse of String. It accepts both the quoted canonical form
// and a bare email.
func Parse(s string) Mailbox {
	name, email, found := strings.Cut(s, " <")
	if !found {
		return Mailbox{Email: strings.TrimSpace(s)}
	}
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, `"`)
	name = strings.TrimSuffix(name, `"`)
	return Mailbox{
		Name:  strings.TrimSpace(name),
		Email: strings.TrimSuffix(strings.TrimSpace(email), ">"),
	}
}

// ExtractAt scans line for mailbox matches and returns the first match, in
// left-to-right order, whose span contains offset. The span is
// boundary-inclusive on both ends: start <= offset <= end. The second return
// is false when no match contains the offset.
//
// Ambiguity between overlapping candidates is resolved leftmost-first, which
// mirrors the scanner's non-overlapping match order rather than preferring
// the most specific match.
func ExtractAt(line string, offset int) (Mailbox, bool) {
	for _, idx := range mailboxRx.FindAllStringSubmatchIndex(line, -1) {
		start, end := -1, -1
		var m Mailbox
		if s, e := idx[2*nameIdx], idx[2*nameIdx+1]; s >= 0 {
			start, end = s, e
			name := strings.TrimSpace(line[s:e])
			name = strings.TrimPrefix(name, `"`)
			name = strings.TrimSuffix(name, `"`)
			m.Name = name
		}
		if s, e := idx[2*emailIdx], idx[2*emailIdx+1]; s >= 0 {
			if start < 0 {
				start = s
			}
			end = e
			m.Email = line[s:e]
		}
		if start >= 0 && start <= offset && offset <= end {
			return m, true
		}
	}
	return Mailbox{}, false
}

// wordRune reports whether r can appear in an email word. Letters and digits
// are Unicode-aware so non-ASCII name prefixes complete.
func wordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._%+-@", r)
}

// WordAt returns the contiguous run of email-word characters containing the
// byte offset, or false when the rune at offset is not a word character. An
// offset inside a multi-byte rune counts as that rune. Completion callers
// anchor one character before the cursor because the triggering character has
// already been typed.
func WordAt(line string, offset int) (string, bool) {
	if offset < 0 || offset >= len(line) {
		return "", false
	}
	for offset > 0 && !utf8.RuneStart(line[offset]) {
		offset--
	}
	r, size := utf8.DecodeRuneInString(line[offset:])
	if !wordRune(r) {
		return "", false
	}
	start := offset
	for start > 0 {
		prev, prevSize := utf8.DecodeLastRuneInString(line[:start])
		if !wordRune(prev) {
			break
		}
		start -= prevSize
	}
	end := offset + size
	for end < len(line) {
		next, nextSize := utf8.DecodeRuneInString(line[end:])
		if !wordRune(next) {
			break
		}
		end += nextSize
	}
	return line[start:end], true
}
