package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeDiffValid(t *testing.T) {
	cases := []struct {
		name string
		diff CodeDiff
		want bool
	}{
		{"replace by pattern", CodeDiff{Type: DiffReplace, SearchPattern: "old", Content: "new", Description: "swap"}, true},
		{"replace by range", CodeDiff{Type: DiffReplace, StartLine: 2, EndLine: 4, Content: "new", Description: "swap"}, true},
		{"replace no anchor", CodeDiff{Type: DiffReplace, Content: "new", Description: "swap"}, false},
		{"add appends", CodeDiff{Type: DiffAdd, Content: "extra", Description: "append"}, true},
		{"remove by pattern", CodeDiff{Type: DiffRemove, SearchPattern: "junk", Description: "drop"}, true},
		{"remove no anchor", CodeDiff{Type: DiffRemove, Description: "drop"}, false},
		{"modify needs pattern", CodeDiff{Type: DiffModify, StartLine: 1, EndLine: 2, Content: "x", Description: "m"}, false},
		{"missing description", CodeDiff{Type: DiffAdd, Content: "x"}, false},
		{"missing content", CodeDiff{Type: DiffReplace, SearchPattern: "old", Description: "swap"}, false},
		{"unknown type", CodeDiff{Type: "merge", Content: "x", Description: "m"}, false},
		{"inverted range", CodeDiff{Type: DiffReplace, StartLine: 4, EndLine: 2, Content: "x", Description: "m"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.diff.Valid())
		})
	}
}

func TestParseDiffs(t *testing.T) {
	raw := `Here are the changes you asked for:
[
  {"type": "replace", "searchPattern": "bg-blue-500", "content": "bg-red-500", "description": "change color"},
  {"type": "replace", "content": "orphan"},
  {"type": "add", "content": "<footer></footer>", "searchPattern": "</main>", "description": "add footer"}
]
Let me know if you need anything else.`

	diffs := parseDiffs(raw)
	require.Len(t, diffs, 2, "invalid diffs are filtered, not fatal")
	assert.Equal(t, DiffReplace, diffs[0].Type)
	assert.Equal(t, DiffAdd, diffs[1].Type)
}

func TestParseDiffsNoArray(t *testing.T) {
	assert.Nil(t, parseDiffs("I cannot produce diffs for this request."))
	assert.Nil(t, parseDiffs(""))
	assert.Nil(t, parseDiffs("[{not json at all"))
}

func TestFirstJSONArray(t *testing.T) {
	s := `prefix [{"a": "tricky ] bracket", "b": [1, 2]}] suffix`
	arr := firstJSONArray(s)
	assert.Equal(t, `[{"a": "tricky ] bracket", "b": [1, 2]}]`, arr)

	assert.Equal(t, "", firstJSONArray("no array here"))
	assert.Equal(t, "", firstJSONArray("[unbalanced"))
}

const diffSource = `<html>
<body class="bg-blue-500">
<h1>Title</h1>
<p>Body text</p>
</body>
</html>`

func TestApplyDiffReplacePattern(t *testing.T) {
	out, errs := ApplyDiffs(diffSource, []CodeDiff{
		{Type: DiffReplace, SearchPattern: "bg-blue-500", Content: "bg-red-500", Description: "recolor"},
	})
	require.Empty(t, errs)
	assert.Contains(t, out, "bg-red-500")
	assert.NotContains(t, out, "bg-blue-500")
	assert.Equal(t, len(strings.Split(diffSource, "\n")), len(strings.Split(out, "\n")),
		"in-place replace must not change the line count")
}

func TestApplyDiffAddAfterPattern(t *testing.T) {
	out, errs := ApplyDiffs(diffSource, []CodeDiff{
		{Type: DiffAdd, SearchPattern: "<h1>Title</h1>", Content: "<h2>Subtitle</h2>", Description: "add subtitle"},
	})
	require.Empty(t, errs)
	h1 := strings.Index(out, "<h1>")
	h2 := strings.Index(out, "<h2>")
	assert.True(t, h1 >= 0 && h2 > h1, "added line should follow the anchor")
}

func TestApplyDiffRemoveLines(t *testing.T) {
	out, errs := ApplyDiffs(diffSource, []CodeDiff{
		{Type: DiffRemove, SearchPattern: "<p>Body text</p>", Description: "drop paragraph"},
	})
	require.Empty(t, errs)
	assert.NotContains(t, out, "Body text")
}

func TestApplyDiffLineRange(t *testing.T) {
	out, errs := ApplyDiffs(diffSource, []CodeDiff{
		{Type: DiffReplace, StartLine: 3, EndLine: 4, Content: "<h1>New</h1>", Description: "swap heading block"},
	})
	require.Empty(t, errs)
	assert.Contains(t, out, "<h1>New</h1>")
	assert.NotContains(t, out, "Body text")
}

func TestApplyDiffsBottomUpOrdering(t *testing.T) {
	// Both diffs are line-anchored; applying top-down would shift the
	// second diff's target
	out, errs := ApplyDiffs(diffSource, []CodeDiff{
		{Type: DiffReplace, StartLine: 3, EndLine: 3, Content: "<h1>Replaced</h1>", Description: "heading"},
		{Type: DiffReplace, StartLine: 4, EndLine: 4, Content: "<p>Replaced body</p>", Description: "body"},
	})
	require.Empty(t, errs)
	assert.Contains(t, out, "<h1>Replaced</h1>")
	assert.Contains(t, out, "<p>Replaced body</p>")
}

func TestApplyDiffsRecordsFailuresAndContinues(t *testing.T) {
	out, errs := ApplyDiffs(diffSource, []CodeDiff{
		{Type: DiffReplace, SearchPattern: "not-in-source", Content: "x", Description: "will fail"},
		{Type: DiffReplace, SearchPattern: "Title", Content: "Headline", Description: "will apply"},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "will fail")
	assert.Contains(t, out, "Headline", "a failed diff must not block the others")
}

func TestApplyDiffsRecordsMalformedLineRange(t *testing.T) {
	src := "a\nb\nc"

	// Hand-constructed diffs bypass parse-time validation; a zero line
	// anchor must be recorded as a failure, never a panic
	out, errs := ApplyDiffs(src, []CodeDiff{
		{Type: DiffRemove, StartLine: 0, EndLine: 0, Description: "bad range"},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "malformed")
	assert.Equal(t, src, out, "a rejected diff must leave the source untouched")
}

func TestApplyDiffModifyBlock(t *testing.T) {
	src := `function greet() {
  return "hello"
}

function other() {
  return 1
}`
	out, errs := ApplyDiffs(src, []CodeDiff{
		{Type: DiffModify, SearchPattern: "function greet",
			Content: "function greet() {\n  return \"goodbye\"\n}", Description: "change greeting"},
	})
	require.Empty(t, errs)
	assert.Contains(t, out, "goodbye")
	assert.NotContains(t, out, "hello")
	assert.Contains(t, out, "function other", "modify must not touch the following block")
}
