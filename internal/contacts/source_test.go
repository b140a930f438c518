package contacts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/maills/internal/mailbox"
)

// fakeSource is a scriptable Source for aggregator tests.
type fakeSource struct {
	rendered    string
	matches     []mailbox.Mailbox
	contains    map[string]bool
	locations   []Location
	createPath  string
	createErr   error
	createCalls int
	reloadErr   error
}

func (f *fakeSource) Render(mailbox.Mailbox) string         { return f.rendered }
func (f *fakeSource) FindMatching(string) []mailbox.Mailbox { return f.matches }
func (f *fakeSource) Contains(email string) bool            { return f.contains[email] }
func (f *fakeSource) Locations(mailbox.Mailbox) []Location  { return f.locations }
func (f *fakeSource) Reload() error                         { return f.reloadErr }
func (f *fakeSource) CreateContact(mailbox.Mailbox) (string, error) {
	f.createCalls++
	return f.createPath, f.createErr
}

func TestNewAggregatorRequiresSources(t *testing.T) {
	_, err := NewAggregator()
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestAggregatorRenderJoinsNonEmpty(t *testing.T) {
	agg, err := NewAggregator(
		&fakeSource{rendered: "# Jane"},
		&fakeSource{},
		&fakeSource{rendered: "# Jane (book)"},
	)
	require.NoError(t, err)
	assert.Equal(t, "# Jane\n\n# Jane (book)", agg.Render(mailbox.Mailbox{Email: "jane@example.com"}))
}

func TestAggregatorFindMatchingDedupes(t *testing.T) {
	jane := mailbox.Mailbox{Name: "Jane Doe", Email: "jane@example.com"}
	bob := mailbox.Mailbox{Name: "Bob", Email: "bob@example.com"}
	agg, err := NewAggregator(
		&fakeSource{matches: []mailbox.Mailbox{jane, bob}},
		&fakeSource{matches: []mailbox.Mailbox{jane}},
	)
	require.NoError(t, err)

	matches := agg.FindMatching("example")
	require.Len(t, matches, 2)
	assert.Equal(t, jane, matches[0])
	assert.Equal(t, bob, matches[1])
}

func TestAggregatorContainsShortCircuits(t *testing.T) {
	agg, err := NewAggregator(
		&fakeSource{contains: map[string]bool{"jane@example.com": true}},
		&fakeSource{},
	)
	require.NoError(t, err)
	assert.True(t, agg.Contains("jane@example.com"))
	assert.False(t, agg.Contains("nobody@example.com"))
}

func TestAggregatorLocationsConcatenates(t *testing.T) {
	line := uint32(3)
	agg, err := NewAggregator(
		&fakeSource{locations: []Location{{Path: "/a", Line: &line}}},
		&fakeSource{locations: []Location{{Path: "/a", Line: &line}, {Path: "/b"}}},
	)
	require.NoError(t, err)
	// No deduplication: different sources may point at the same file.
	assert.Len(t, agg.Locations(mailbox.Mailbox{Email: "x@example.com"}), 3)
}

func TestAggregatorCreateContactPrecedence(t *testing.T) {
	first := &fakeSource{}
	second := &fakeSource{createPath: "/book/new.vcf"}
	third := &fakeSource{createPath: "/never.vcf"}
	agg, err := NewAggregator(first, second, third)
	require.NoError(t, err)

	path, err := agg.CreateContact(mailbox.Mailbox{Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "/book/new.vcf", path)
	assert.Equal(t, 1, first.createCalls)
	assert.Equal(t, 1, second.createCalls)
	// Creation stops at the first success.
	assert.Equal(t, 0, third.createCalls)
}

func TestAggregatorCreateContactUnsupportedEverywhere(t *testing.T) {
	agg, err := NewAggregator(&fakeSource{}, &fakeSource{})
	require.NoError(t, err)

	path, err := agg.CreateContact(mailbox.Mailbox{Email: "new@example.com"})
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestAggregatorCreateContactError(t *testing.T) {
	boom := errors.New("disk full")
	agg, err := NewAggregator(&fakeSource{createErr: boom})
	require.NoError(t, err)

	_, err = agg.CreateContact(mailbox.Mailbox{Email: "new@example.com"})
	assert.ErrorIs(t, err, boom)
}

func TestAggregatorReloadJoinsErrors(t *testing.T) {
	boom := errors.New("gone")
	agg, err := NewAggregator(&fakeSource{reloadErr: boom}, &fakeSource{})
	require.NoError(t, err)
	assert.ErrorIs(t, agg.Reload(), boom)

	ok, err := NewAggregator(&fakeSource{}, &fakeSource{})
	require.NoError(t, err)
	assert.NoError(t, ok.Reload())
}

func TestAggregatorIsASource(t *testing.T) {
	inner, err := NewAggregator(&fakeSource{rendered: "inner"})
	require.NoError(t, err)
	// Composite: an aggregator nests inside another aggregator.
	outer, err := NewAggregator(inner, &fakeSource{rendered: "outer"})
	require.NoError(t, err)
	assert.Equal(t, "inner\n\nouter", outer.Render(mailbox.Mailbox{Email: "x@example.com"}))
}
