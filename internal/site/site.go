// Package site orchestrates the full build: preprocessing, API
// reference generation, CLI docs rendering, optional version snapshot,
// link checking, and the framework build itself. Each build leaves a
// record on disk.
package site

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docsite/internal/apiref"
	"git.home.luguber.info/inful/docsite/internal/clidocs"
	"git.home.luguber.info/inful/docsite/internal/config"
	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/lint"
	"git.home.luguber.info/inful/docsite/internal/preprocess"
	"git.home.luguber.info/inful/docsite/internal/runner"
	"git.home.luguber.info/inful/docsite/internal/state"
	"git.home.luguber.info/inful/docsite/internal/versions"
)

// Options tune a full build.
type Options struct {
	Force     bool   // reprocess all docs regardless of fingerprints
	Versioned string // publish this version before building; "latest" uses the newest repo tag
	SkipBuild bool   // stop after content generation (preprocess, api-ref, cli-docs)
	SkipLint  bool
}

// Builder runs the build pipeline.
type Builder struct {
	cfg *config.Config
}

// NewBuilder creates a builder from the loaded configuration.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build runs every configured step in order and persists a build record.
// The first failing step aborts the build; the record still captures it.
func (b *Builder) Build(ctx context.Context, opts Options) (*BuildRecord, error) {
	started := time.Now()
	record := newBuildRecord(b.cfg, started)
	slog.Info("Starting site build", "build_id", record.ID)

	err := b.runSteps(ctx, opts, record)

	record.finish(started, err)
	if saveErr := record.save(b.cfg); saveErr != nil {
		slog.Warn("Failed to persist build record", "build_id", record.ID, "error", saveErr)
	}

	if err != nil {
		return record, err
	}
	slog.Info("Site build completed", "build_id", record.ID, "duration_ms", record.Duration)
	return record, nil
}

func (b *Builder) runSteps(ctx context.Context, opts Options, record *BuildRecord) error {
	steps := []struct {
		name string
		run  func(context.Context) error
		skip bool
	}{
		{name: "preprocess", run: func(ctx context.Context) error { return b.preprocess(ctx, opts.Force) }},
		{name: "api-ref", run: b.apiRef},
		{name: "cli-docs", run: func(ctx context.Context) error { return clidocs.Render(ctx, b.cfg) }},
		{name: "lint-docs", run: b.lintDocs, skip: opts.SkipLint},
		{name: "versions", run: func(ctx context.Context) error { return b.publishVersion(opts.Versioned) },
			skip: opts.Versioned == ""},
		{name: "framework-build", run: b.frameworkBuild, skip: opts.SkipBuild},
		{name: "lint-site", run: b.lintSite, skip: opts.SkipBuild || opts.SkipLint},
	}

	for _, step := range steps {
		if step.skip {
			continue
		}
		stepStart := time.Now()
		err := step.run(ctx)
		record.addStep(step.name, stepStart, err)
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) preprocess(ctx context.Context, force bool) error {
	store, err := state.Open(b.cfg.State.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	pipeline, err := preprocess.New(b.cfg, store)
	if err != nil {
		return err
	}
	_, err = pipeline.Run(ctx, preprocess.Options{Force: force})
	return err
}

func (b *Builder) apiRef(ctx context.Context) error {
	return apiref.New(b.cfg).Run(ctx)
}

func (b *Builder) lintDocs(context.Context) error {
	issues, err := lint.CheckDocs(b.cfg.Docs.ProcessedDir)
	if err != nil {
		return err
	}
	return lint.Report(issues)
}

func (b *Builder) lintSite(context.Context) error {
	issues, err := lint.CheckSite(b.cfg.Site.OutputDir)
	if err != nil {
		return err
	}
	return lint.Report(issues)
}

func (b *Builder) publishVersion(version string) error {
	if version == "latest" {
		version = ""
	}
	_, err := versions.NewService(b.cfg).Update(version)
	return err
}

func (b *Builder) frameworkBuild(ctx context.Context) error {
	if len(b.cfg.Site.BuildCommand) == 0 {
		return apperrors.New(apperrors.CategoryConfig, apperrors.SeverityFatal,
			"site.build_command is not configured")
	}
	return runner.Run(ctx, runner.Command{
		Argv: b.cfg.Site.BuildCommand,
		Dir:  b.cfg.Site.Dir,
	})
}
