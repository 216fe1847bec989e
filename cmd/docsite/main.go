package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docsite/internal/apiref"
	"git.home.luguber.info/inful/docsite/internal/clidocs"
	"git.home.luguber.info/inful/docsite/internal/config"
	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/lint"
	"git.home.luguber.info/inful/docsite/internal/preprocess"
	"git.home.luguber.info/inful/docsite/internal/serve"
	"git.home.luguber.info/inful/docsite/internal/site"
	"git.home.luguber.info/inful/docsite/internal/state"
	"git.home.luguber.info/inful/docsite/internal/versions"
	"git.home.luguber.info/inful/docsite/internal/watch"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path (default: docsite.yaml)"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Write a starter configuration file"`

	Preprocess struct {
		Force bool `short:"f" help:"Reprocess all docs regardless of fingerprints"`
		Watch bool `short:"w" help:"Keep running and reprocess on changes"`
	} `cmd:"" help:"Transform authored docs into the processed tree"`

	APIRef struct{} `cmd:"" name:"api-ref" help:"Generate API reference pages via the docstring tool"`

	CLIDocs struct{} `cmd:"" name:"cli-docs" help:"Render the documented project's CLI help into its docs page"`

	UpdateVersions struct {
		Version string `help:"Version to publish (default: newest repo tag)"`
	} `cmd:"" help:"Snapshot the processed docs as a new version"`

	ClearVersions struct{} `cmd:"" help:"Remove all version snapshots and empty the manifest"`

	Lint struct {
		Site bool `help:"Also check local references in the built site output"`
	} `cmd:"" help:"Check links in the processed docs"`

	Build struct {
		Force     bool   `short:"f" help:"Reprocess all docs regardless of fingerprints"`
		Versioned string `help:"Publish this version before building (\"latest\" uses the newest repo tag)"`
		SkipLint  bool   `help:"Skip the link checks"`
		NoSite    bool   `help:"Stop after content generation, skip the framework build"`
	} `cmd:"" help:"Run the full site build"`

	Serve struct{} `cmd:"" help:"Watch docs and run the framework dev server"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	configPath := config.Resolve(CLI.Config)

	var err error
	switch ctx.Command() {
	case "init":
		err = config.Init(configPath, CLI.Init.Force)
	case "preprocess":
		err = withConfig(configPath, runPreprocess)
	case "api-ref":
		err = withConfig(configPath, func(cfg *config.Config) error {
			return apiref.New(cfg).Run(signalContext())
		})
	case "cli-docs":
		err = withConfig(configPath, func(cfg *config.Config) error {
			return clidocs.Render(signalContext(), cfg)
		})
	case "update-versions":
		err = withConfig(configPath, func(cfg *config.Config) error {
			_, updateErr := versions.NewService(cfg).Update(CLI.UpdateVersions.Version)
			return updateErr
		})
	case "clear-versions":
		err = withConfig(configPath, func(cfg *config.Config) error {
			return versions.NewService(cfg).Clear()
		})
	case "lint":
		err = withConfig(configPath, runLint)
	case "build":
		err = withConfig(configPath, func(cfg *config.Config) error {
			_, buildErr := site.NewBuilder(cfg).Build(signalContext(), site.Options{
				Force:     CLI.Build.Force,
				Versioned: CLI.Build.Versioned,
				SkipLint:  CLI.Build.SkipLint,
				SkipBuild: CLI.Build.NoSite,
			})
			return buildErr
		})
	case "serve":
		err = withConfig(configPath, runServe)
	}

	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func withConfig(path string, run func(cfg *config.Config) error) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	return run(cfg)
}

func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

func runPreprocess(cfg *config.Config) error {
	ctx := signalContext()

	store, err := state.Open(cfg.State.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	pipeline, err := preprocess.New(cfg, store)
	if err != nil {
		return err
	}
	if _, err := pipeline.Run(ctx, preprocess.Options{Force: CLI.Preprocess.Force}); err != nil {
		return err
	}
	if !CLI.Preprocess.Watch {
		return nil
	}

	roots := append([]string{cfg.Docs.Dir}, cfg.Snippets.SearchDirs...)
	watcher, err := watch.New(cfg.Serve.Debounce, roots...)
	if err != nil {
		return err
	}
	watcher.OnChange = func(ctx context.Context) error {
		_, runErr := pipeline.Run(ctx, preprocess.Options{})
		return runErr
	}

	slog.Info("Watching for changes", "dirs", roots)
	return watcher.Run(ctx)
}

func runLint(cfg *config.Config) error {
	issues, err := lint.CheckDocs(cfg.Docs.ProcessedDir)
	if err != nil {
		return err
	}
	if CLI.Lint.Site {
		siteIssues, err := lint.CheckSite(cfg.Site.OutputDir)
		if err != nil {
			return err
		}
		issues = append(issues, siteIssues...)
	}
	for _, issue := range issues {
		slog.Warn(issue.Message, "file", issue.File, "link", issue.Link, "severity", issue.Severity)
	}
	return lint.Report(issues)
}

func runServe(cfg *config.Config) error {
	server, err := serve.New(cfg)
	if err != nil {
		return err
	}
	return server.Run(signalContext())
}
