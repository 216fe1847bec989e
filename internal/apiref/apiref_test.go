package apiref

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

func TestPostprocess_AddsTitleAndDemotesHeadings(t *testing.T) {
	raw := []byte(`# dlt.pipeline

Module docs.

# run

` + "```python\n# not a heading\n```\n")

	out, err := Postprocess(raw, "dlt.pipeline")
	require.NoError(t, err)

	s := string(out)
	require.Contains(t, s, "---\ntitle: dlt.pipeline\n---\n")
	require.Contains(t, s, "## dlt.pipeline\n")
	require.Contains(t, s, "## run\n")
	require.Contains(t, s, "```python\n# not a heading\n```\n")
}

func TestPostprocess_KeepsExistingTitle(t *testing.T) {
	raw := []byte("---\ntitle: Custom\n---\n# Body\n")

	out, err := Postprocess(raw, "pkg")
	require.NoError(t, err)
	require.Contains(t, string(out), "title: Custom")
	require.NotContains(t, string(out), "title: pkg")
}

func TestPagePath_MapsDotsToDirectories(t *testing.T) {
	require.Equal(t, filepath.Join("dlt", "sources", "sql")+".md", pagePath("dlt.sources.sql"))
	require.Equal(t, "dlt.md", pagePath("dlt"))
}

// fakeTool installs a shell script on PATH standing in for the docstring
// tool, echoing a deterministic page and recording its environment.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-pydoc")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return path
}

func TestRun_GeneratesPagesAndCategoryFile(t *testing.T) {
	fakeTool(t, `echo "# $2"
echo
echo "docs for $2, PYTHONPATH=$PYTHONPATH"
`)

	outDir := filepath.Join(t.TempDir(), "reference")
	cfg := &config.Config{APIRef: config.APIRefConfig{
		Enabled:    true,
		Command:    []string{"fake-pydoc"},
		Packages:   []string{"dlt", "dlt.sources"},
		PythonPath: []string{"../src"},
		OutputDir:  outDir,
		Label:      "API Reference",
	}}

	require.NoError(t, New(cfg).Run(context.Background()))

	page, err := os.ReadFile(filepath.Join(outDir, "dlt.md"))
	require.NoError(t, err)
	require.Contains(t, string(page), "title: dlt")
	require.Contains(t, string(page), "PYTHONPATH=../src")

	nested, err := os.ReadFile(filepath.Join(outDir, "dlt", "sources.md"))
	require.NoError(t, err)
	require.Contains(t, string(nested), "title: dlt.sources")

	category, err := os.ReadFile(filepath.Join(outDir, "_category_.json"))
	require.NoError(t, err)
	require.Contains(t, string(category), `"label": "API Reference"`)
}

func TestRun_DisabledIsNoop(t *testing.T) {
	cfg := &config.Config{APIRef: config.APIRefConfig{Enabled: false}}
	require.NoError(t, New(cfg).Run(context.Background()))
}

func TestRun_MissingToolFailsBeforeGenerating(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "reference")
	cfg := &config.Config{APIRef: config.APIRefConfig{
		Enabled:   true,
		Command:   []string{"no-such-docstring-tool"},
		Packages:  []string{"dlt"},
		OutputDir: outDir,
	}}

	err := New(cfg).Run(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.IsCategory(err, apperrors.CategoryTool))

	_, statErr := os.Stat(outDir)
	require.True(t, os.IsNotExist(statErr))
}

func TestRun_ToolFailurePropagatesStderr(t *testing.T) {
	fakeTool(t, `echo "module not importable" >&2
exit 1
`)

	cfg := &config.Config{APIRef: config.APIRefConfig{
		Enabled:   true,
		Command:   []string{"fake-pydoc"},
		Packages:  []string{"broken"},
		OutputDir: filepath.Join(t.TempDir(), "reference"),
	}}

	err := New(cfg).Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "module not importable")
}
