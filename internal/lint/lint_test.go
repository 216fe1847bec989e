package lint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestCheckDocs_CleanTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"intro.md":       "See [setup](guide/setup.md) and [guide](guide/).\n",
		"guide/setup.md": "Back to [intro](../intro.md). External: [site](https://example.com).\n",
		"guide/index.md": "# Guide\n",
	})

	issues, err := CheckDocs(root)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestCheckDocs_ExtensionlessLinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"intro.md":       "See [setup](guide/setup) and [guide](guide).\n",
		"guide/setup.md": "# Setup\n",
		"guide/index.md": "# Guide\n",
	})

	issues, err := CheckDocs(root)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestCheckDocs_MissingTarget(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"intro.md": "See [gone](missing.md).\n",
	})

	issues, err := CheckDocs(root)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "intro.md", issues[0].File)
	require.Equal(t, "missing.md", issues[0].Link)
	require.Equal(t, SeverityError, issues[0].Severity)
}

func TestCheckDocs_LinkEscapingTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"intro.md": "See [outside](../../etc/passwd).\n",
	})

	issues, err := CheckDocs(root)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Contains(t, issues[0].Message, "escapes")
}

func TestCheckDocs_AnchorsAndImagesAndFragments(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"intro.md":     "[top](#heading) ![img](img/flow.png) [sec](guide.md#section)\n",
		"guide.md":     "# Guide\n",
		"img/flow.png": "png-bytes",
	})

	issues, err := CheckDocs(root)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestReport_FailsOnlyOnErrors(t *testing.T) {
	require.NoError(t, Report(nil))
	require.NoError(t, Report([]Issue{{Severity: SeverityWarning, Message: "meh"}}))

	err := Report([]Issue{
		{File: "a.md", Link: "x.md", Severity: SeverityError, Message: "link target does not exist"},
	})
	require.Error(t, err)
	require.True(t, apperrors.IsCategory(err, apperrors.CategoryLint))
	require.Contains(t, err.Error(), "a.md")
}

func TestCheckSite_ValidatesHTMLRefs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.html":       `<html><body><a href="/guide/">guide</a><img src="assets/logo.png"></body></html>`,
		"guide/index.html": `<html><body><a href="../index.html">home</a><a href="/missing/page">gone</a></body></html>`,
		"assets/logo.png":  "png-bytes",
	})

	issues, err := CheckSite(root)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, filepath.Join("guide", "index.html"), issues[0].File)
	require.Equal(t, "/missing/page", issues[0].Link)
}

func TestCheckSite_IgnoresExternalAndDataRefs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.html": `<html><body>
<a href="https://example.com">x</a>
<a href="mailto:docs@example.com">m</a>
<img src="data:image/png;base64,AAAA">
<a href="#section">anchor</a>
</body></html>`,
	})

	issues, err := CheckSite(root)
	require.NoError(t, err)
	require.Empty(t, issues)
}
