// Package contacts aggregates heterogeneous contact repositories behind a
// single queryable Source abstraction.
package contacts

import (
	"errors"
	"strings"

	"github.com/fyrsmithlabs/maills/internal/mailbox"
)

// ErrNoSources indicates that no contact source was configured.
var ErrNoSources = errors.New("no contact sources configured")

// Location is an on-disk provenance record for a contact. Line is non-nil
// only for line-oriented sources and is zero-based.
type Location struct {
	Path string
	Line *uint32
}

// Source is the capability set every contact repository provides. Queries
// never mutate source state; CreateContact is the single mutation and must
// persist the record and insert it into the in-memory snapshot atomically.
type Source interface {
	// Render returns a markdown rendering of what the source knows about the
	// mailbox, or the empty string when it knows nothing beyond the identity.
	Render(m mailbox.Mailbox) string

	// FindMatching returns every mailbox whose name or email contains word
	// as a case-insensitive substring. The caller pre-lowercases word.
	// Results come back in source-defined (file/insertion) order.
	FindMatching(word string) []mailbox.Mailbox

	// Contains reports whether email exactly matches a known address,
	// case-insensitively.
	Contains(email string) bool

	// Locations returns every on-disk location backing the mailbox.
	Locations(m mailbox.Mailbox) []Location

	// CreateContact persists a new record for the mailbox and returns its
	// path. Sources without creation support return ("", nil); this is a
	// capability test, not a failure.
	CreateContact(m mailbox.Mailbox) (string, error)

	// Reload rebuilds the in-memory snapshot from disk.
	Reload() error
}

// Aggregator composes an ordered list of sources into one Source. Order
// reflects configuration order and drives merge and first-success semantics.
type Aggregator struct {
	sources []Source
}

var _ Source = (*Aggregator)(nil)

// NewAggregator creates an aggregator over sources in the given order.
func NewAggregator(sources ...Source) (*Aggregator, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	return &Aggregator{sources: sources}, nil
}

// Render concatenates every non-empty per-source rendering, separated by a
// blank line, preserving source order.
func (a *Aggregator) Render(m mailbox.Mailbox) string {
	var parts []string
	for _, s := range a.sources {
		if r := s.Render(m); r != "" {
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, "\n\n")
}

// FindMatching concatenates per-source results in source order and
// deduplicates by mailbox equality, preserving first-seen order.
func (a *Aggregator) FindMatching(word string) []mailbox.Mailbox {
	var out []mailbox.Mailbox
	seen := make(map[mailbox.Mailbox]struct{})
	for _, s := range a.sources {
		for _, m := range s.FindMatching(word) {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// Contains reports true as soon as any source contains email.
func (a *Aggregator) Contains(email string) bool {
	for _, s := range a.sources {
		if s.Contains(email) {
			return true
		}
	}
	return false
}

// Locations concatenates all sources' locations without deduplication;
// multiple sources may legitimately back the same logical contact.
func (a *Aggregator) Locations(m mailbox.Mailbox) []Location {
	var out []Location
	for _, s := range a.sources {
		out = append(out, s.Locations(m)...)
	}
	return out
}

// CreateContact tries sources in order and returns the first created path.
// Later sources are not attempted after a success. Returns ("", nil) when no
// source supports creation.
func (a *Aggregator) CreateContact(m mailbox.Mailbox) (string, error) {
	for _, s := range a.sources {
		path, err := s.CreateContact(m)
		if err != nil {
			return "", err
		}
		if path != "" {
			return path, nil
		}
	}
	return "", nil
}

// Reload reloads every source, joining any failures.
func (a *Aggregator) Reload() error {
	var errs []error
	for _, s := range a.sources {
		if err := s.Reload(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
