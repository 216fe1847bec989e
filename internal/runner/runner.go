// Package runner executes the external tools the pipeline delegates to:
// the docstring-extraction tool, the documented project's CLI, and the
// static-site framework. Failures carry the tool's stderr so the user
// sees the underlying cause, and missing binaries are reported as tool
// errors before anything runs.
package runner

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// Command describes one external tool invocation.
type Command struct {
	Argv []string          // Argv[0] is resolved through PATH
	Dir  string            // working directory, empty = inherit
	Env  map[string]string // extra environment, merged over os.Environ()
}

// Resolve checks that the command's binary exists on PATH and returns its
// absolute path.
func (c Command) Resolve() (string, error) {
	if len(c.Argv) == 0 {
		return "", apperrors.New(apperrors.CategoryConfig, apperrors.SeverityFatal, "empty command")
	}
	path, err := exec.LookPath(c.Argv[0])
	if err != nil {
		return "", apperrors.Newf(apperrors.CategoryTool, apperrors.SeverityFatal,
			"required tool %q not found on PATH", c.Argv[0])
	}
	return path, nil
}

// Run executes the command, streaming its output to the parent process.
func Run(ctx context.Context, c Command) error {
	cmd, err := build(ctx, c)
	if err != nil {
		return err
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	slog.Info("Running external tool", "command", strings.Join(c.Argv, " "), "dir", c.Dir)
	if err := cmd.Run(); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryTool, apperrors.SeverityFatal,
			"command failed: "+strings.Join(c.Argv, " "))
	}
	return nil
}

// Capture executes the command and returns its stdout. On failure the
// error includes whatever the tool wrote to stderr.
func Capture(ctx context.Context, c Command) ([]byte, error) {
	cmd, err := build(ctx, c)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Capturing external tool output", "command", strings.Join(c.Argv, " "))
	if err := cmd.Run(); err != nil {
		msg := "command failed: " + strings.Join(c.Argv, " ")
		if s := strings.TrimSpace(stderr.String()); s != "" {
			msg += "\n" + s
		}
		return nil, apperrors.Wrap(err, apperrors.CategoryTool, apperrors.SeverityFatal, msg)
	}
	return stdout.Bytes(), nil
}

// Start launches the command without waiting for it, for long-running
// child processes like the framework's dev server. The caller owns the
// returned process.
func Start(ctx context.Context, c Command) (*exec.Cmd, error) {
	cmd, err := build(ctx, c)
	if err != nil {
		return nil, err
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	slog.Info("Starting external tool", "command", strings.Join(c.Argv, " "))
	if err := cmd.Start(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryTool, apperrors.SeverityFatal,
			"start command: "+strings.Join(c.Argv, " "))
	}
	return cmd, nil
}

func build(ctx context.Context, c Command) (*exec.Cmd, error) {
	path, err := c.Resolve()
	if err != nil {
		return nil, err
	}

	// #nosec G204 -- path comes from exec.LookPath over the configured argv
	cmd := exec.CommandContext(ctx, path, c.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = mergeEnv(os.Environ(), c.Env)
	return cmd, nil
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key := kv[:strings.Index(kv, "=")+1]
		if _, shadowed := extra[strings.TrimSuffix(key, "=")]; shadowed {
			continue
		}
		out = append(out, kv)
	}
	for k, v := range extra {
		out = append(out, k+"="+v)
	}
	return out
}
