// Package clidocs renders the documented project's CLI help into a docs
// page. The project's own CLI is invoked with its render-docs style
// subcommand and the captured markdown is spliced between marker
// comments, so the rest of the page stays hand-written.
package clidocs

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"regexp"

	"github.com/natefinch/atomic"

	"git.home.luguber.info/inful/docsite/internal/config"
	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/runner"
)

var (
	startRe = regexp.MustCompile(`(?m)^<!--\s*@@@CLI_REFERENCE START\s*@@@\s*-->[^\n]*\n`)
	endRe   = regexp.MustCompile(`(?m)^<!--\s*@@@CLI_REFERENCE END\s*@@@\s*-->`)
)

// Render runs the configured CLI command and updates the target page.
func Render(ctx context.Context, cfg *config.Config) error {
	if !cfg.CLIDocs.Enabled {
		slog.Info("CLI docs rendering disabled, skipping")
		return nil
	}

	rendered, err := runner.Capture(ctx, runner.Command{Argv: cfg.CLIDocs.Command})
	if err != nil {
		return err
	}

	page, err := os.ReadFile(cfg.CLIDocs.Page)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityFatal,
			"read CLI docs page "+cfg.CLIDocs.Page)
	}

	updated, err := Splice(page, rendered)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryPreprocess, apperrors.SeverityFatal,
			"update CLI docs page "+cfg.CLIDocs.Page)
	}

	if bytes.Equal(updated, page) {
		slog.Info("CLI reference already up to date", "page", cfg.CLIDocs.Page)
		return nil
	}

	if err := atomic.WriteFile(cfg.CLIDocs.Page, bytes.NewReader(updated)); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityFatal,
			"write CLI docs page "+cfg.CLIDocs.Page)
	}
	slog.Info("CLI reference updated", "page", cfg.CLIDocs.Page, "bytes", len(rendered))
	return nil
}

// Splice replaces the content between the CLI_REFERENCE markers with the
// rendered help, keeping the markers and everything outside them.
func Splice(page, rendered []byte) ([]byte, error) {
	start := startRe.FindIndex(page)
	if start == nil {
		return nil, apperrors.New(apperrors.CategoryPreprocess, apperrors.SeverityFatal,
			"page is missing the CLI_REFERENCE START marker")
	}
	end := endRe.FindIndex(page[start[1]:])
	if end == nil {
		return nil, apperrors.New(apperrors.CategoryPreprocess, apperrors.SeverityFatal,
			"page is missing the CLI_REFERENCE END marker")
	}

	if len(rendered) > 0 && rendered[len(rendered)-1] != '\n' {
		rendered = append(rendered, '\n')
	}

	out := make([]byte, 0, len(page)+len(rendered))
	out = append(out, page[:start[1]]...)
	out = append(out, '\n')
	out = append(out, rendered...)
	out = append(out, '\n')
	out = append(out, page[start[1]+end[0]:]...)
	return out, nil
}
