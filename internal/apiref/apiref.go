// Package apiref generates API reference pages by invoking an external
// docstring-extraction tool (pydoc-markdown by default) once per
// configured package and post-processing its markdown output for the
// site framework.
package apiref

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"git.home.luguber.info/inful/docsite/internal/config"
	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/runner"
)

// Generator runs the docstring tool and writes reference pages.
type Generator struct {
	cfg *config.Config
}

// New creates a generator from the loaded configuration.
func New(cfg *config.Config) *Generator {
	return &Generator{cfg: cfg}
}

// Run generates one reference page per configured package. The tool's
// module resolution is scoped with PYTHONPATH from the configuration.
func (g *Generator) Run(ctx context.Context) error {
	ref := g.cfg.APIRef
	if !ref.Enabled {
		slog.Info("API reference generation disabled, skipping")
		return nil
	}

	base := runner.Command{
		Argv: ref.Command,
		Env:  g.toolEnv(),
	}
	// Fail before generating anything when the tool is absent.
	if _, err := base.Resolve(); err != nil {
		return err
	}

	for _, pkg := range ref.Packages {
		cmd := base
		cmd.Argv = append(append([]string{}, ref.Command...), "-m", pkg)

		raw, err := runner.Capture(ctx, cmd)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CategoryTool, apperrors.SeverityFatal,
				"generate API reference for "+pkg)
		}

		page, err := Postprocess(raw, pkg)
		if err != nil {
			return err
		}

		outPath := filepath.Join(ref.OutputDir, pagePath(pkg))
		if err := writeFile(outPath, page); err != nil {
			return err
		}
		slog.Info("Generated API reference page", "package", pkg, "path", outPath)
	}

	return g.writeCategoryFile()
}

func (g *Generator) toolEnv() map[string]string {
	if len(g.cfg.APIRef.PythonPath) == 0 {
		return nil
	}
	paths := append([]string{}, g.cfg.APIRef.PythonPath...)
	if existing := os.Getenv("PYTHONPATH"); existing != "" {
		paths = append(paths, existing)
	}
	return map[string]string{"PYTHONPATH": strings.Join(paths, string(os.PathListSeparator))}
}

// pagePath maps a dotted package name to a file path, keeping the module
// hierarchy as directories: dlt.sources.sql -> dlt/sources/sql.md.
func pagePath(pkg string) string {
	return filepath.Join(strings.Split(pkg, ".")...) + ".md"
}

// writeCategoryFile emits the sidebar category descriptor the site
// framework reads for the reference section.
func (g *Generator) writeCategoryFile() error {
	category := []byte(`{
  "label": "` + g.cfg.APIRef.Label + `",
  "collapsible": true
}
`)
	return writeFile(filepath.Join(g.cfg.APIRef.OutputDir, "_category_.json"), category)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityError, "create reference directory")
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityError, "write "+path)
	}
	return nil
}
