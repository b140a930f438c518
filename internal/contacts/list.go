package contacts

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/maills/internal/mailbox"
)

// listRecord is one parsed line of a contact list file.
type listRecord struct {
	mbox mailbox.Mailbox
	line uint32
}

// List is a flat line-oriented contact source. Each non-blank line holds
// optional name tokens followed by a trailing email token.
type List struct {
	path string
	// knownForDiagnostics controls whether this list participates in
	// Contains checks. Some deployments use a list purely for completion
	// without making every address in it "known" for diagnostics.
	knownForDiagnostics bool
	records             []listRecord
	emails              map[string]struct{}
	logger              *zap.Logger
}

var _ Source = (*List)(nil)

// NewList loads a contact list from path. knownForDiagnostics controls
// participation in Contains checks.
func NewList(path string, knownForDiagnostics bool, logger *zap.Logger) (*List, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &List{
		path:                path,
		knownForDiagnostics: knownForDiagnostics,
		logger:              logger,
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload rebuilds the snapshot from the backing file.
func (l *List) Reload() error {
	content, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("load contact list: %w", err)
	}
	records := make([]listRecord, 0, 64)
	emails := make(map[string]struct{})
	for i, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		m := parseListLine(line)
		emails[strings.ToLower(m.Email)] = struct{}{}
		records = append(records, listRecord{mbox: m, line: uint32(i)})
	}
	l.records = records
	l.emails = emails
	l.logger.Debug("contact list loaded",
		zap.String("path", l.path), zap.Int("records", len(records)))
	return nil
}

// parseListLine splits a line on spaces: the trailing token is the email and
// any remaining tokens rejoin as the name.
func parseListLine(line string) mailbox.Mailbox {
	tokens := strings.Split(line, " ")
	email := tokens[len(tokens)-1]
	return mailbox.Mailbox{
		Name:  strings.Join(tokens[:len(tokens)-1], " "),
		Email: email,
	}
}

// Render returns the identity rendering when the mailbox's email is present
// in the list, and nothing otherwise.
func (l *List) Render(m mailbox.Mailbox) string {
	if _, ok := l.emails[strings.ToLower(m.Email)]; !ok {
		return ""
	}
	var b strings.Builder
	if m.Name != "" {
		fmt.Fprintf(&b, "# %s\n\n", m.Name)
	}
	b.WriteString("Email:\n")
	fmt.Fprintf(&b, "- %s", m.Email)
	return b.String()
}

// FindMatching returns records whose name or email contains word, in file
// order.
func (l *List) FindMatching(word string) []mailbox.Mailbox {
	var out []mailbox.Mailbox
	for _, r := range l.records {
		if strings.Contains(strings.ToLower(r.mbox.Name), word) ||
			strings.Contains(strings.ToLower(r.mbox.Email), word) {
			out = append(out, r.mbox)
		}
	}
	return out
}

// Contains reports whether email is in the list. Always false when the list
// is excluded from diagnostics known-address checks.
func (l *List) Contains(email string) bool {
	if !l.knownForDiagnostics {
		return false
	}
	_, ok := l.emails[strings.ToLower(email)]
	return ok
}

// Locations returns the file line of every record matching the mailbox's
// email and, when the mailbox carries a name, that name too.
func (l *List) Locations(m mailbox.Mailbox) []Location {
	var out []Location
	for _, r := range l.records {
		if !strings.EqualFold(r.mbox.Email, m.Email) {
			continue
		}
		if m.Name != "" && !strings.EqualFold(r.mbox.Name, m.Name) {
			continue
		}
		line := r.line
		out = append(out, Location{Path: l.path, Line: &line})
	}
	return out
}

// CreateContact is not supported for flat lists.
func (l *List) CreateContact(mailbox.Mailbox) (string, error) {
	return "", nil
}
