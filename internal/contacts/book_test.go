package contacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/maills/internal/mailbox"
)

const janeCard = "BEGIN:VCARD\r\nVERSION:4.0\r\nFN:Jane Doe\r\nNICKNAME:JD\r\nEMAIL;TYPE=work:jane@example.com\r\nTEL;TYPE=home:+1 555 0100\r\nEND:VCARD\r\n"

const bobCard = "BEGIN:VCARD\r\nVERSION:4.0\r\nFN:Bob Smith\r\nEMAIL:bob@other.org\r\nEMAIL:bob@example.com\r\nEND:VCARD\r\n"

func writeBook(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestBookLoad(t *testing.T) {
	dir := writeBook(t, map[string]string{
		"jane.vcf":   janeCard,
		"bob.vcf":    bobCard,
		"ignore.txt": "not a vcard",
	})
	book, err := NewBook(dir, nil)
	require.NoError(t, err)

	assert.True(t, book.Contains("jane@example.com"))
	assert.True(t, book.Contains("BOB@OTHER.ORG"))
	assert.False(t, book.Contains("ignored@example.com"))
}

func TestBookSkipsUnparsableFiles(t *testing.T) {
	dir := writeBook(t, map[string]string{
		"jane.vcf":   janeCard,
		"broken.vcf": "this is not a vcard at all\n",
	})
	book, err := NewBook(dir, nil)
	require.NoError(t, err)

	// The broken file is skipped; the rest of the directory still loads.
	assert.True(t, book.Contains("jane@example.com"))
}

func TestBookMissingDir(t *testing.T) {
	_, err := NewBook(filepath.Join(t.TempDir(), "absent"), nil)
	assert.Error(t, err)
}

func TestBookFindMatching(t *testing.T) {
	dir := writeBook(t, map[string]string{"jane.vcf": janeCard, "bob.vcf": bobCard})
	book, err := NewBook(dir, nil)
	require.NoError(t, err)

	matches := book.FindMatching("jane")
	require.Len(t, matches, 1)
	assert.Equal(t, mailbox.Mailbox{Name: "Jane Doe", Email: "jane@example.com"}, matches[0])

	// Nickname matches too.
	assert.Len(t, book.FindMatching("jd"), 1)

	// A card with two addresses expands to two mailboxes.
	assert.Len(t, book.FindMatching("bob"), 2)

	assert.Empty(t, book.FindMatching("nobody"))
}

func TestBookRender(t *testing.T) {
	dir := writeBook(t, map[string]string{"jane.vcf": janeCard})
	book, err := NewBook(dir, nil)
	require.NoError(t, err)

	rendered := book.Render(mailbox.Mailbox{Name: "Jane Doe", Email: "jane@example.com"})
	assert.Contains(t, rendered, "# Jane Doe")
	assert.Contains(t, rendered, "_JD_")
	assert.Contains(t, rendered, "Email:")
	assert.Contains(t, rendered, "jane@example.com")
	assert.Contains(t, rendered, "Telephone:")
	assert.Contains(t, rendered, "+1 555 0100")

	assert.Empty(t, book.Render(mailbox.Mailbox{Email: "stranger@example.com"}))
	// A name mismatch renders nothing even when the email is known.
	assert.Empty(t, book.Render(mailbox.Mailbox{Name: "Wrong Name", Email: "jane@example.com"}))
}

func TestBookLocations(t *testing.T) {
	dir := writeBook(t, map[string]string{"jane.vcf": janeCard, "bob.vcf": bobCard})
	book, err := NewBook(dir, nil)
	require.NoError(t, err)

	locs := book.Locations(mailbox.Mailbox{Email: "jane@example.com"})
	require.Len(t, locs, 1)
	assert.Equal(t, filepath.Join(dir, "jane.vcf"), locs[0].Path)
	assert.Nil(t, locs[0].Line)
}

func TestBookCreateContact(t *testing.T) {
	dir := writeBook(t, nil)
	book, err := NewBook(dir, nil)
	require.NoError(t, err)

	path, err := book.CreateContact(mailbox.Mailbox{Name: "New Person", Email: "new@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, vcardExt))

	// Persisted on disk…
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "new@example.com")
	assert.Contains(t, string(content), "New Person")
	assert.Contains(t, string(content), "urn:uuid:")

	// …and visible in the snapshot without a reload.
	assert.True(t, book.Contains("new@example.com"))
	assert.Len(t, book.Locations(mailbox.Mailbox{Email: "new@example.com"}), 1)

	// A fresh load of the directory parses the created file back.
	reloaded, err := NewBook(dir, nil)
	require.NoError(t, err)
	matches := reloaded.FindMatching("new@example.com")
	require.Len(t, matches, 1)
	assert.Equal(t, mailbox.Mailbox{Name: "New Person", Email: "new@example.com"}, matches[0])
}

func TestBookReload(t *testing.T) {
	dir := writeBook(t, map[string]string{"jane.vcf": janeCard})
	book, err := NewBook(dir, nil)
	require.NoError(t, err)
	assert.False(t, book.Contains("bob@other.org"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bob.vcf"), []byte(bobCard), 0o600))
	require.NoError(t, book.Reload())
	assert.True(t, book.Contains("bob@other.org"))
}
