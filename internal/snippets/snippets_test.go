package snippets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolve_TaggedRegion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "example.py", `import dlt

# @@@SNIPPET_START quickstart
pipeline = dlt.pipeline(destination="duckdb")
pipeline.run(data)
# @@@SNIPPET_END quickstart

print("not included")
`)

	r := NewResolver([]string{dir})
	snip, err := r.Resolve("", "example.py::quickstart")
	require.NoError(t, err)
	require.Equal(t, "python", snip.Language)
	require.Equal(t, "pipeline = dlt.pipeline(destination=\"duckdb\")\npipeline.run(data)\n", snip.Code)
	require.Equal(t, 3, snip.Line)
}

func TestResolve_DedentsIndentedRegion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "example.py", `def main():
    # @@@SNIPPET_START body
    x = 1
    if x:
        x += 1
    # @@@SNIPPET_END body
`)

	r := NewResolver([]string{dir})
	snip, err := r.Resolve("", "example.py::body")
	require.NoError(t, err)
	require.Equal(t, "x = 1\nif x:\n    x += 1\n", snip.Code)
}

func TestResolve_WholeFileStripsMarkerLines(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "conf.yaml", `# @@@SNIPPET_START all
key: value
# @@@SNIPPET_END all
`)

	r := NewResolver([]string{dir})
	snip, err := r.Resolve("", "conf.yaml")
	require.NoError(t, err)
	require.Equal(t, "yaml", snip.Language)
	require.Equal(t, "key: value\n", snip.Code)
}

func TestResolve_DocDirTakesPrecedenceOverSearchDirs(t *testing.T) {
	docDir := t.TempDir()
	searchDir := t.TempDir()
	writeFile(t, docDir, "snip.sh", "# @@@SNIPPET_START s\necho doc-local\n# @@@SNIPPET_END s\n")
	writeFile(t, searchDir, "snip.sh", "# @@@SNIPPET_START s\necho search-dir\n# @@@SNIPPET_END s\n")

	r := NewResolver([]string{searchDir})
	snip, err := r.Resolve(docDir, "snip.sh::s")
	require.NoError(t, err)
	require.Equal(t, "echo doc-local\n", snip.Code)
}

func TestResolve_UnknownTag(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "x = 1\n")

	r := NewResolver([]string{dir})
	_, err := r.Resolve("", "a.py::missing")
	require.Error(t, err)
	require.True(t, apperrors.IsCategory(err, apperrors.CategorySnippet))
}

func TestResolve_MissingFileListsSearchedPaths(t *testing.T) {
	r := NewResolver([]string{t.TempDir()})
	_, err := r.Resolve("", "nope.py::tag")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope.py")
}

func TestParseRegions_UnterminatedRegion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "# @@@SNIPPET_START open\nx = 1\n")

	r := NewResolver([]string{dir})
	_, err := r.Resolve("", "a.py::open")
	require.Error(t, err)
	require.Contains(t, err.Error(), "never closed")
}

func TestParseRegions_DuplicateTag(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", `# @@@SNIPPET_START s
x = 1
# @@@SNIPPET_END s
# @@@SNIPPET_START s
y = 2
# @@@SNIPPET_END s
`)

	r := NewResolver([]string{dir})
	_, err := r.Resolve("", "a.py::s")
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestParseRegions_EndWithoutStart(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "x = 1\n# @@@SNIPPET_END stray\n")

	r := NewResolver([]string{dir})
	_, err := r.Resolve("", "a.py")
	require.Error(t, err)
	require.Contains(t, err.Error(), "without matching start")
}

func TestParseRegions_NestedMarkersAreStripped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", `# @@@SNIPPET_START outer
a = 1
# @@@SNIPPET_START inner
b = 2
# @@@SNIPPET_END inner
c = 3
# @@@SNIPPET_END outer
`)

	r := NewResolver([]string{dir})
	snip, err := r.Resolve("", "a.py::outer")
	require.NoError(t, err)
	require.Equal(t, "a = 1\nb = 2\nc = 3\n", snip.Code)

	inner, err := r.Resolve("", "a.py::inner")
	require.NoError(t, err)
	require.Equal(t, "b = 2\n", inner.Code)
}

func TestMarkerTag_HTMLCommentSyntax(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "<!-- @@@SNIPPET_START block -->\ntext\n<!-- @@@SNIPPET_END block -->\n")

	r := NewResolver([]string{dir})
	snip, err := r.Resolve("", "a.md::block")
	require.NoError(t, err)
	require.Equal(t, "text\n", snip.Code)
}
