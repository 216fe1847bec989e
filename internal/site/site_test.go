package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// fakeTool installs an executable shell script on PATH and returns its name.
func fakeTool(t *testing.T, name, script string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func newBuildFixture(t *testing.T) (*config.Config, string) {
	t.Helper()
	root := t.TempDir()

	docs := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "intro.md"),
		[]byte("---\ntitle: Intro\n---\n\n# Intro\n"), 0o644))

	cfg := &config.Config{
		Docs: config.DocsConfig{
			Dir:          docs,
			ProcessedDir: filepath.Join(root, "processed"),
		},
		Site: config.SiteConfig{
			OutputDir: filepath.Join(root, "build"),
		},
		State: config.StateConfig{Path: filepath.Join(root, ".docsite", "state.db")},
	}
	cfg.Snippets.SearchDirs = []string{docs}
	return cfg, root
}

func TestBuild_ContentOnly(t *testing.T) {
	cfg, _ := newBuildFixture(t)

	record, err := NewBuilder(cfg).Build(context.Background(), Options{SkipBuild: true})
	require.NoError(t, err)
	require.Equal(t, "ok", record.Status)
	require.NotEmpty(t, record.ID)
	require.NotEmpty(t, record.ConfigHash)

	data, err := os.ReadFile(filepath.Join(cfg.Docs.ProcessedDir, "intro.md"))
	require.NoError(t, err)
	require.Contains(t, string(data), "# Intro")

	names := make([]string, 0, len(record.Steps))
	for _, s := range record.Steps {
		names = append(names, s.Name)
		require.Equal(t, "ok", s.Status)
	}
	require.Equal(t, []string{"preprocess", "api-ref", "cli-docs", "lint-docs"}, names)
}

func TestBuild_RunsFrameworkCommand(t *testing.T) {
	cfg, root := newBuildFixture(t)

	// The fake framework drops a page into the output dir.
	outDir := cfg.Site.OutputDir
	fakeTool(t, "docusaurus-build",
		"mkdir -p "+outDir+" && printf '<html><body>ok</body></html>' > "+outDir+"/index.html\n")
	cfg.Site.BuildCommand = []string{"docusaurus-build"}
	cfg.Site.Dir = root

	record, err := NewBuilder(cfg).Build(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, "ok", record.Status)

	_, err = os.Stat(filepath.Join(outDir, "index.html"))
	require.NoError(t, err)

	last := record.Steps[len(record.Steps)-1]
	require.Equal(t, "lint-site", last.Name)
}

func TestBuild_MissingBuildCommand(t *testing.T) {
	cfg, _ := newBuildFixture(t)

	record, err := NewBuilder(cfg).Build(context.Background(), Options{})
	require.Error(t, err)
	require.True(t, apperrors.IsCategory(err, apperrors.CategoryConfig))
	require.Equal(t, "failed", record.Status)

	last := record.Steps[len(record.Steps)-1]
	require.Equal(t, "framework-build", last.Name)
	require.Equal(t, "failed", last.Status)
	require.NotEmpty(t, last.Error)
}

func TestBuild_LintFailureAbortsBuild(t *testing.T) {
	cfg, _ := newBuildFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Docs.Dir, "broken.md"),
		[]byte("[gone](missing.md)\n"), 0o644))

	fakeTool(t, "never-runs", "exit 1\n")
	cfg.Site.BuildCommand = []string{"never-runs"}

	record, err := NewBuilder(cfg).Build(context.Background(), Options{})
	require.Error(t, err)
	require.True(t, apperrors.IsCategory(err, apperrors.CategoryLint))

	for _, s := range record.Steps {
		require.NotEqual(t, "framework-build", s.Name)
	}
}

func TestBuildRecord_Persisted(t *testing.T) {
	cfg, _ := newBuildFixture(t)

	record, err := NewBuilder(cfg).Build(context.Background(), Options{SkipBuild: true})
	require.NoError(t, err)

	loaded, err := LoadRecord(cfg, record.ID)
	require.NoError(t, err)
	require.Equal(t, record.ID, loaded.ID)
	require.Equal(t, record.ConfigHash, loaded.ConfigHash)
	require.Len(t, loaded.Steps, len(record.Steps))
}
