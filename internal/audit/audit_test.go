package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/pagetrace/internal/dom"
)

func parse(t *testing.T, src string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(src)
	require.NoError(t, err)
	return doc
}

func TestDocument_CleanPage(t *testing.T) {
	doc := parse(t, `<html><body>
<input id="first" class="first-name">
<input id="last" class="last-name">
</body></html>`)

	report := Document(doc)
	assert.True(t, report.Clean())
	assert.Equal(t, 5, report.Elements, "html, head, body and two inputs")
	// #first .first-name (className) .first-name (classList) dedupes to one
	assert.Equal(t, 4, report.Selectors)
}

func TestDocument_Findings(t *testing.T) {
	doc := parse(t, `<html><body>
<label class="name-field">Name</label>
<input id="dup" class="name-field">
<input id="dup">
<input class="bad[">
<input class="x y">
</body></html>`)

	report := Document(doc)
	require.False(t, report.Clean())

	byKey := make(map[string]Finding)
	for _, f := range report.Findings {
		byKey[f.Channel+" "+f.Selector] = f
	}

	dup := byKey["id #dup"]
	assert.Equal(t, Ambiguous, dup.Problem)
	assert.Equal(t, 2, dup.Matches)

	shared := byKey["className .name-field"]
	assert.Equal(t, Ambiguous, shared.Problem)
	assert.Equal(t, 2, shared.Matches)

	bad := byKey["className .bad["]
	assert.Equal(t, Invalid, bad.Problem)
	assert.NotEmpty(t, bad.Error)

	descendant := byKey["className .x y"]
	assert.Equal(t, Unmatched, descendant.Problem)

	_, compound := byKey["classList .x.y"]
	assert.False(t, compound, "classList selector matches the element itself")

	assert.Equal(t, 2, report.Count(Ambiguous))
	assert.GreaterOrEqual(t, report.Count(Invalid), 1)
	assert.Equal(t, 1, report.Count(Unmatched))
}

func TestDocument_EmptyPage(t *testing.T) {
	report := Document(dom.NewDocument())
	assert.True(t, report.Clean())
	assert.NotNil(t, report.Findings)
}
