package preprocess

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/markdown"
	"git.home.luguber.info/inful/docsite/internal/snippets"
)

func testResolver(t *testing.T) (*snippets.Resolver, string) {
	t.Helper()
	dir := t.TempDir()
	src := `# @@@SNIPPET_START hello
print("hello")
# @@@SNIPPET_END hello
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "example.py"), []byte(src), 0o644))
	return snippets.NewResolver([]string{dir}), dir
}

func testRegistry() *Registry {
	return &Registry{topics: map[string][]Link{
		"schema": {
			{Title: "Schema evolution", URL: "https://example.com/schema"},
			{Title: "Contracts", URL: "https://example.com/contracts"},
		},
	}}
}

func apply(t *testing.T, body string, resolver *snippets.Resolver, registry *Registry) string {
	t.Helper()
	edits, _, err := computeEdits([]byte(body), "page.md", "", resolver, registry, 0)
	require.NoError(t, err)
	out, err := markdown.Apply([]byte(body), edits)
	require.NoError(t, err)
	return string(out)
}

func TestComputeEdits_ReplacesExistingFence(t *testing.T) {
	resolver, _ := testResolver(t)

	body := "intro\n\n<!--@@@SNIPPET example.py::hello@@@-->\n```python\nstale\n```\noutro\n"
	out := apply(t, body, resolver, testRegistry())

	require.Equal(t, "intro\n\n<!--@@@SNIPPET example.py::hello@@@-->\n```python\nprint(\"hello\")\n```\noutro\n", out)
}

func TestComputeEdits_InsertsFenceWhenMissing(t *testing.T) {
	resolver, _ := testResolver(t)

	body := "<!--@@@SNIPPET example.py::hello@@@-->\n\ntext after\n"
	out := apply(t, body, resolver, testRegistry())

	require.Contains(t, out, "<!--@@@SNIPPET example.py::hello@@@-->\n\n```python\nprint(\"hello\")\n```\n")
	require.Contains(t, out, "text after\n")
}

func TestComputeEdits_SnippetIsIdempotent(t *testing.T) {
	resolver, _ := testResolver(t)
	registry := testRegistry()

	once := apply(t, "<!--@@@SNIPPET example.py::hello@@@-->\n", resolver, registry)
	twice := apply(t, once, resolver, registry)
	require.Equal(t, once, twice)
}

func TestComputeEdits_LinksInsertAndReplace(t *testing.T) {
	resolver, _ := testResolver(t)
	registry := testRegistry()

	body := "# Page\n\n<!--@@@LINKS schema@@@-->\n\nafter\n"
	once := apply(t, body, resolver, registry)

	require.Contains(t, once, "- [Schema evolution](https://example.com/schema)\n")
	require.Contains(t, once, "- [Contracts](https://example.com/contracts)\n")
	require.Contains(t, once, linksEndMarker)

	twice := apply(t, once, resolver, registry)
	require.Equal(t, once, twice)
}

func TestComputeEdits_LinksReplaceRemovesStaleEntries(t *testing.T) {
	resolver, _ := testResolver(t)
	registry := testRegistry()

	body := "<!--@@@LINKS schema@@@-->\n- [Old link](https://old.example.com)\n<!--@@@LINKS_END@@@-->\n"
	out := apply(t, body, resolver, registry)

	require.NotContains(t, out, "old.example.com")
	require.Contains(t, out, "- [Schema evolution](https://example.com/schema)\n")
}

func TestComputeEdits_UnknownTopicYieldsEmptyBlock(t *testing.T) {
	resolver, _ := testResolver(t)

	body := "<!--@@@LINKS nothing@@@-->\n"
	out := apply(t, body, resolver, testRegistry())

	require.Equal(t, "<!--@@@LINKS nothing@@@-->\n"+linksEndMarker+"\n", out)
}

func TestComputeEdits_MarkersInsideFencesAreIgnored(t *testing.T) {
	resolver, _ := testResolver(t)

	body := "```md\n<!--@@@SNIPPET example.py::hello@@@-->\n<!--@@@LINKS schema@@@-->\n```\n"
	out := apply(t, body, resolver, testRegistry())
	require.Equal(t, body, out)
}

func TestComputeEdits_UnknownSnippetTagFailsWithLocation(t *testing.T) {
	resolver, _ := testResolver(t)

	_, _, err := computeEdits([]byte("line one\n<!--@@@SNIPPET example.py::missing@@@-->\n"),
		"docs/intro.md", "", resolver, testRegistry(), 4)
	require.Error(t, err)
	require.Contains(t, err.Error(), "docs/intro.md:6")
}

func TestComputeEdits_UnterminatedFenceAfterMarker(t *testing.T) {
	resolver, _ := testResolver(t)

	_, _, err := computeEdits([]byte("<!--@@@SNIPPET example.py::hello@@@-->\n```python\nno closing fence\n"),
		"page.md", "", resolver, testRegistry(), 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated")
}

func TestComputeEdits_StrayLinksEndMarker(t *testing.T) {
	resolver, _ := testResolver(t)

	_, _, err := computeEdits([]byte("text\n<!--@@@LINKS_END@@@-->\n"),
		"page.md", "", resolver, testRegistry(), 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "without matching")
}
