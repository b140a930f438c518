package contacts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/maills/internal/mailbox"
)

const vcardExt = ".vcf"

// Book is a contact source backed by a non-recursive directory of vCard
// files. Each file may hold any number of cards.
type Book struct {
	root   string
	paths  []string
	cards  map[string][]vcard.Card
	logger *zap.Logger
}

var _ Source = (*Book)(nil)

// NewBook loads every vCard file under root.
func NewBook(root string, logger *zap.Logger) (*Book, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Book{root: root, logger: logger}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload rebuilds the snapshot from disk. A file that fails to parse is
// logged and skipped; the rest of the directory still loads.
func (b *Book) Reload() error {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return fmt.Errorf("load contact book: %w", err)
	}
	paths := make([]string, 0, len(entries))
	cards := make(map[string][]vcard.Card)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != vcardExt {
			continue
		}
		path := filepath.Join(b.root, entry.Name())
		parsed, err := readCards(path)
		if err != nil {
			b.logger.Warn("skipping unparsable vcard file",
				zap.String("path", path), zap.Error(err))
			continue
		}
		paths = append(paths, path)
		cards[path] = parsed
	}
	b.paths = paths
	b.cards = cards
	b.logger.Debug("contact book loaded",
		zap.String("root", b.root), zap.Int("files", len(paths)))
	return nil
}

func readCards(path string) ([]vcard.Card, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cards []vcard.Card
	dec := vcard.NewDecoder(f)
	for {
		card, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return cards, nil
		}
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
}

// Render joins the rendering of every card matching the mailbox with a blank
// line.
func (b *Book) Render(m mailbox.Mailbox) string {
	var parts []string
	for _, card := range b.matching(m) {
		parts = append(parts, renderCard(card))
	}
	return strings.Join(parts, "\n\n")
}

// renderCard produces the markdown hover rendering for one card: a heading
// for the formatted name, an italic nickname, then email and telephone
// sections with their TYPE parameters when present.
func renderCard(card vcard.Card) string {
	var lines []string
	if name := card.PreferredValue(vcard.FieldFormattedName); name != "" {
		lines = append(lines, fmt.Sprintf("# %s", name), "")
	}
	if nick := card.PreferredValue(vcard.FieldNickname); nick != "" {
		lines = append(lines, fmt.Sprintf("_%s_", nick), "")
	}
	if fields := card[vcard.FieldEmail]; len(fields) > 0 {
		lines = append(lines, "Email:")
		for _, f := range fields {
			lines = append(lines, renderField(f))
		}
		lines = append(lines, "")
	}
	if fields := card[vcard.FieldTelephone]; len(fields) > 0 {
		lines = append(lines, "Telephone:")
		for _, f := range fields {
			lines = append(lines, renderField(f))
		}
		lines = append(lines, "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func renderField(f *vcard.Field) string {
	if typ := f.Params.Get(vcard.ParamType); typ != "" {
		return fmt.Sprintf("- %s: %s", typ, f.Value)
	}
	return fmt.Sprintf("- %s", f.Value)
}

// FindMatching returns one mailbox per email of every card whose formatted
// name, nickname, or any email contains word. File order is preserved and
// duplicate mailboxes across files collapse to the first occurrence.
func (b *Book) FindMatching(word string) []mailbox.Mailbox {
	var out []mailbox.Mailbox
	seen := make(map[mailbox.Mailbox]struct{})
	for _, path := range b.paths {
		for _, card := range b.cards[path] {
			if !matchCard(card, word) {
				continue
			}
			for _, m := range cardMailboxes(card) {
				if _, dup := seen[m]; dup {
					continue
				}
				seen[m] = struct{}{}
				out = append(out, m)
			}
		}
	}
	return out
}

func matchCard(card vcard.Card, word string) bool {
	for _, email := range card.Values(vcard.FieldEmail) {
		if strings.Contains(strings.ToLower(email), word) {
			return true
		}
	}
	for _, name := range card.Values(vcard.FieldFormattedName) {
		if strings.Contains(strings.ToLower(name), word) {
			return true
		}
	}
	for _, nick := range card.Values(vcard.FieldNickname) {
		if strings.Contains(strings.ToLower(nick), word) {
			return true
		}
	}
	return false
}

// cardMailboxes expands a card into one mailbox per email address, carrying
// the card's first formatted name when it has one.
func cardMailboxes(card vcard.Card) []mailbox.Mailbox {
	name := card.PreferredValue(vcard.FieldFormattedName)
	emails := card.Values(vcard.FieldEmail)
	out := make([]mailbox.Mailbox, 0, len(emails))
	for _, email := range emails {
		out = append(out, mailbox.Mailbox{Name: name, Email: email})
	}
	return out
}

// Contains reports whether any card lists email.
func (b *Book) Contains(email string) bool {
	for _, cards := range b.cards {
		for _, card := range cards {
			for _, e := range card.Values(vcard.FieldEmail) {
				if strings.EqualFold(e, email) {
					return true
				}
			}
		}
	}
	return false
}

// Locations returns the path of every file holding a card that matches the
// mailbox. vCard files carry no line provenance.
func (b *Book) Locations(m mailbox.Mailbox) []Location {
	var out []Location
	for _, path := range b.paths {
		for _, card := range b.cards[path] {
			if cardMatchesMailbox(card, m) {
				out = append(out, Location{Path: path})
				break
			}
		}
	}
	return out
}

// matching returns every card matching the mailbox's email and, when the
// mailbox carries a name, its formatted name too.
func (b *Book) matching(m mailbox.Mailbox) []vcard.Card {
	var out []vcard.Card
	for _, path := range b.paths {
		for _, card := range b.cards[path] {
			if cardMatchesMailbox(card, m) {
				out = append(out, card)
			}
		}
	}
	return out
}

func cardMatchesMailbox(card vcard.Card, m mailbox.Mailbox) bool {
	matched := false
	for _, e := range card.Values(vcard.FieldEmail) {
		if strings.EqualFold(e, m.Email) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	if m.Name == "" {
		return true
	}
	for _, name := range card.Values(vcard.FieldFormattedName) {
		if strings.EqualFold(name, m.Name) {
			return true
		}
	}
	return false
}

// CreateContact writes a minimal vCard for the mailbox under a fresh
// uuid-named file and inserts the card into the snapshot before returning,
// so the new contact is visible to queries with no two-phase gap.
func (b *Book) CreateContact(m mailbox.Mailbox) (string, error) {
	id := uuid.NewString()
	path := filepath.Join(b.root, id+vcardExt)

	card := make(vcard.Card)
	card.SetValue(vcard.FieldFormattedName, m.Name)
	card.SetValue(vcard.FieldUID, "urn:uuid:"+id)
	card.AddValue(vcard.FieldEmail, m.Email)
	vcard.ToV4(card)

	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(card); err != nil {
		return "", fmt.Errorf("encode vcard: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return "", fmt.Errorf("write vcard: %w", err)
	}

	b.paths = append(b.paths, path)
	b.cards[path] = []vcard.Card{card}
	b.logger.Info("contact created",
		zap.String("path", path), zap.String("email", m.Email))
	return path, nil
}
