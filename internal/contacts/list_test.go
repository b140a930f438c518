package contacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/maills/internal/mailbox"
)

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestListParsing(t *testing.T) {
	path := writeList(t, "Jane Doe jane@example.com\n\njohn@example.com\n")
	list, err := NewList(path, true, nil)
	require.NoError(t, err)

	matches := list.FindMatching("example")
	require.Len(t, matches, 2)
	assert.Equal(t, mailbox.Mailbox{Name: "Jane Doe", Email: "jane@example.com"}, matches[0])
	assert.Equal(t, mailbox.Mailbox{Email: "john@example.com"}, matches[1])
}

func TestListMissingFile(t *testing.T) {
	_, err := NewList(filepath.Join(t.TempDir(), "absent"), true, nil)
	assert.Error(t, err)
}

func TestListFindMatching(t *testing.T) {
	path := writeList(t, "Jane Doe jane@example.com\nBob bob@other.org\n")
	list, err := NewList(path, true, nil)
	require.NoError(t, err)

	// Word matches name or email, case-insensitively; callers lowercase.
	assert.Len(t, list.FindMatching("jane"), 1)
	assert.Len(t, list.FindMatching("doe"), 1)
	assert.Len(t, list.FindMatching("other.org"), 1)
	assert.Empty(t, list.FindMatching("nobody"))
}

func TestListContains(t *testing.T) {
	path := writeList(t, "Jane Doe jane@example.com\n")

	known, err := NewList(path, true, nil)
	require.NoError(t, err)
	assert.True(t, known.Contains("jane@example.com"))
	assert.True(t, known.Contains("JANE@EXAMPLE.COM"))
	assert.False(t, known.Contains("other@example.com"))

	// A list excluded from diagnostics never reports containment.
	unknown, err := NewList(path, false, nil)
	require.NoError(t, err)
	assert.False(t, unknown.Contains("jane@example.com"))
	// It still serves completion.
	assert.Len(t, unknown.FindMatching("jane"), 1)
}

func TestListLocations(t *testing.T) {
	path := writeList(t, "Jane Doe jane@example.com\nBob bob@other.org\nJane Doe jane@example.com\n")
	list, err := NewList(path, true, nil)
	require.NoError(t, err)

	locs := list.Locations(mailbox.Mailbox{Name: "Jane Doe", Email: "jane@example.com"})
	require.Len(t, locs, 2)
	assert.Equal(t, path, locs[0].Path)
	require.NotNil(t, locs[0].Line)
	assert.Equal(t, uint32(0), *locs[0].Line)
	require.NotNil(t, locs[1].Line)
	assert.Equal(t, uint32(2), *locs[1].Line)

	// A name mismatch filters the record out.
	assert.Empty(t, list.Locations(mailbox.Mailbox{Name: "Someone Else", Email: "jane@example.com"}))
	// A bare mailbox matches on email alone.
	assert.Len(t, list.Locations(mailbox.Mailbox{Email: "bob@other.org"}), 1)
}

func TestListRender(t *testing.T) {
	path := writeList(t, "Jane Doe jane@example.com\n")
	list, err := NewList(path, true, nil)
	require.NoError(t, err)

	assert.Equal(t, "# Jane Doe\n\nEmail:\n- jane@example.com",
		list.Render(mailbox.Mailbox{Name: "Jane Doe", Email: "jane@example.com"}))
	assert.Equal(t, "Email:\n- jane@example.com",
		list.Render(mailbox.Mailbox{Email: "jane@example.com"}))
	assert.Empty(t, list.Render(mailbox.Mailbox{Email: "stranger@example.com"}))
}

func TestListCreateContactUnsupported(t *testing.T) {
	path := writeList(t, "jane@example.com\n")
	list, err := NewList(path, true, nil)
	require.NoError(t, err)

	created, err := list.CreateContact(mailbox.Mailbox{Email: "new@example.com"})
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestListReload(t *testing.T) {
	path := writeList(t, "jane@example.com\n")
	list, err := NewList(path, true, nil)
	require.NoError(t, err)
	assert.False(t, list.Contains("late@example.com"))

	require.NoError(t, os.WriteFile(path, []byte("jane@example.com\nlate@example.com\n"), 0o600))
	require.NoError(t, list.Reload())
	assert.True(t, list.Contains("late@example.com"))
}
