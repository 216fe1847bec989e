// Package serve is the development mode: it keeps the processed docs in
// sync with the authored tree while the framework's dev server runs as a
// child process. Changes are picked up by a filesystem watcher, a
// scheduler forces periodic full rebuilds, metrics are exposed over
// HTTP, and build events can be published to NATS.
package serve

import (
	"context"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docsite/internal/config"
	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/runner"
	"git.home.luguber.info/inful/docsite/internal/site"
	"git.home.luguber.info/inful/docsite/internal/watch"
)

// Server runs the serve mode until its context is cancelled.
type Server struct {
	cfg     *config.Config
	builder *site.Builder
	metrics *Metrics
	events  *Publisher
}

// New creates a serve-mode server. The NATS publisher is optional and
// only connected when serve.nats_url is configured.
func New(cfg *config.Config) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		builder: site.NewBuilder(cfg),
		metrics: NewMetrics(),
	}
	if cfg.Serve.NATSURL != "" {
		events, err := NewPublisher(cfg.Serve.NATSURL, cfg.Serve.NATSSubject)
		if err != nil {
			return nil, err
		}
		s.events = events
	}
	return s, nil
}

// Run performs the initial content build, starts the dev server child,
// and blocks dispatching rebuilds until ctx is cancelled or the child
// exits on its own.
func (s *Server) Run(ctx context.Context) error {
	defer s.events.Close()

	go s.metrics.Serve(ctx, s.cfg.Serve.MetricsAddr)

	// The dev server needs content to start from.
	s.rebuild(ctx, "initial", true)

	child, err := s.startDevServer(ctx)
	if err != nil {
		return err
	}
	childExit := make(chan error, 1)
	go func() { childExit <- child.Wait() }()

	scheduler, err := s.startScheduler(ctx)
	if err != nil {
		s.stopChild(child)
		return err
	}

	watcher, err := s.newWatcher()
	if err != nil {
		s.shutdownScheduler(scheduler)
		s.stopChild(child)
		return err
	}

	watchDone := make(chan error, 1)
	go func() { watchDone <- watcher.Run(ctx) }()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down serve mode")
		s.shutdownScheduler(scheduler)
		s.stopChild(child)
		<-childExit
		<-watchDone
		return nil
	case err := <-childExit:
		s.shutdownScheduler(scheduler)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CategoryServe, apperrors.SeverityFatal, "dev server exited")
		}
		return apperrors.New(apperrors.CategoryServe, apperrors.SeverityFatal, "dev server exited unexpectedly")
	}
}

// rebuild regenerates the processed content. The framework build is
// skipped; the dev server renders from the processed tree itself.
func (s *Server) rebuild(ctx context.Context, trigger string, force bool) {
	started := time.Now()
	_, err := s.builder.Build(ctx, site.Options{Force: force, SkipBuild: true, SkipLint: true})
	elapsed := time.Since(started)

	s.metrics.ObserveRebuild(trigger, elapsed, err)
	s.events.Publish(trigger, elapsed, err)

	if err != nil {
		slog.Warn("Rebuild failed", "trigger", trigger, "error", err)
		return
	}
	slog.Info("Rebuild completed", "trigger", trigger, "duration", elapsed)
}

func (s *Server) newWatcher() (*watch.Watcher, error) {
	roots := append([]string{s.cfg.Docs.Dir}, s.cfg.Snippets.SearchDirs...)
	w, err := watch.New(s.cfg.Serve.Debounce, dedupe(roots)...)
	if err != nil {
		return nil, err
	}
	w.OnChange = func(ctx context.Context) error {
		s.rebuild(ctx, "watch", false)
		return nil
	}
	return w, nil
}

// startScheduler arms the periodic forced rebuild when configured.
func (s *Server) startScheduler(ctx context.Context) (gocron.Scheduler, error) {
	if s.cfg.Serve.RebuildInterval <= 0 {
		return nil, nil
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryServe, apperrors.SeverityFatal, "create scheduler")
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(s.cfg.Serve.RebuildInterval),
		gocron.NewTask(func() { s.rebuild(ctx, "schedule", true) }),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryServe, apperrors.SeverityFatal, "schedule periodic rebuild")
	}
	scheduler.Start()
	slog.Info("Periodic rebuild scheduled", "interval", s.cfg.Serve.RebuildInterval)
	return scheduler, nil
}

func (s *Server) shutdownScheduler(scheduler gocron.Scheduler) {
	if scheduler == nil {
		return
	}
	if err := scheduler.Shutdown(); err != nil {
		slog.Warn("Scheduler shutdown failed", "error", err)
	}
}

func (s *Server) startDevServer(ctx context.Context) (*exec.Cmd, error) {
	if len(s.cfg.Site.DevCommand) == 0 {
		return nil, apperrors.New(apperrors.CategoryConfig, apperrors.SeverityFatal,
			"site.dev_command is not configured")
	}
	return runner.Start(ctx, runner.Command{
		Argv: s.cfg.Site.DevCommand,
		Dir:  s.cfg.Site.Dir,
	})
}

// stopChild asks the dev server to terminate gracefully before killing it.
func (s *Server) stopChild(child *exec.Cmd) {
	if child == nil || child.Process == nil {
		return
	}
	if err := child.Process.Signal(syscall.SIGTERM); err != nil {
		_ = child.Process.Kill()
		return
	}
	time.AfterFunc(5*time.Second, func() { _ = child.Process.Kill() })
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
