package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/maills/internal/contacts"
	"github.com/fyrsmithlabs/maills/internal/document"
	"github.com/fyrsmithlabs/maills/internal/mailbox"
)

// knownSource contains a fixed set of lowercased emails.
type knownSource struct {
	emails map[string]bool
}

func (k *knownSource) Render(mailbox.Mailbox) string                 { return "" }
func (k *knownSource) FindMatching(string) []mailbox.Mailbox         { return nil }
func (k *knownSource) Contains(email string) bool                    { return k.emails[email] }
func (k *knownSource) Locations(mailbox.Mailbox) []contacts.Location { return nil }
func (k *knownSource) CreateContact(mailbox.Mailbox) (string, error) { return "", nil }
func (k *knownSource) Reload() error                                 { return nil }

func TestScanUnknownAddress(t *testing.T) {
	s := NewScanner(&knownSource{}, document.EncodingUTF16)

	diags := s.Scan("reach me at nobody@example.com please")
	require.Len(t, diags, 1)
	assert.Equal(t, Message, diags[0].Message)
	assert.Equal(t, document.Position{Line: 0, Character: 12}, diags[0].Range.Start)
	assert.Equal(t, document.Position{Line: 0, Character: 30}, diags[0].Range.End)
}

func TestScanKnownAddress(t *testing.T) {
	s := NewScanner(&knownSource{emails: map[string]bool{"nobody@example.com": true}}, document.EncodingUTF16)
	assert.Empty(t, s.Scan("reach me at nobody@example.com please"))
}

func TestScanMultiLine(t *testing.T) {
	s := NewScanner(&knownSource{emails: map[string]bool{"known@example.com": true}}, document.EncodingUTF16)

	diags := s.Scan("known@example.com\nnew@example.com here\nand another@example.org")
	require.Len(t, diags, 2)
	assert.Equal(t, document.Position{Line: 1, Character: 0}, diags[0].Range.Start)
	assert.Equal(t, document.Position{Line: 1, Character: 15}, diags[0].Range.End)
	assert.Equal(t, document.Position{Line: 2, Character: 4}, diags[1].Range.Start)
	assert.Equal(t, document.Position{Line: 2, Character: 23}, diags[1].Range.End)
}

func TestScanEmptyText(t *testing.T) {
	s := NewScanner(&knownSource{}, document.EncodingUTF16)
	assert.Empty(t, s.Scan(""))
	assert.Empty(t, s.Scan("no addresses in here"))
}

func TestCovers(t *testing.T) {
	d := Diagnostic{Range: document.Range{
		Start: document.Position{Line: 1, Character: 5},
		End:   document.Position{Line: 1, Character: 10},
	}}
	tests := []struct {
		name string
		pos  document.Position
		want bool
	}{
		{"before", document.Position{Line: 1, Character: 4}, false},
		{"at start", document.Position{Line: 1, Character: 5}, true},
		{"inside", document.Position{Line: 1, Character: 7}, true},
		{"at end is exclusive", document.Position{Line: 1, Character: 10}, false},
		{"other line", document.Position{Line: 2, Character: 7}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Covers(d, tt.pos))
		})
	}
}
