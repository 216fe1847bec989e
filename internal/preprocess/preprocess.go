// Package preprocess rewrites authored documentation into the processed
// tree consumed by the static-site framework: snippet markers are filled
// with tagged code regions, related-links markers with registry entries,
// and everything else (frontmatter included) passes through untouched.
package preprocess

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"git.home.luguber.info/inful/docsite/internal/config"
	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/frontmatter"
	"git.home.luguber.info/inful/docsite/internal/markdown"
	"git.home.luguber.info/inful/docsite/internal/snippets"
	"git.home.luguber.info/inful/docsite/internal/state"
)

// Options tune a single pipeline run.
type Options struct {
	Force bool // reprocess everything regardless of stored fingerprints
}

// Result summarizes a pipeline run.
type Result struct {
	Processed int
	Skipped   int
	Assets    int
	Duration  time.Duration
}

// Pipeline transforms the docs tree into the processed tree.
type Pipeline struct {
	cfg      *config.Config
	resolver *snippets.Resolver
	registry *Registry
	store    *state.Store // nil disables incremental skipping
}

// New creates a pipeline, loading the links registry up front so a broken
// registry fails the run before any file is touched.
func New(cfg *config.Config, store *state.Store) (*Pipeline, error) {
	registry, err := LoadRegistry(cfg.Links.Registry)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:      cfg,
		resolver: snippets.NewResolver(cfg.Snippets.SearchDirs),
		registry: registry,
		store:    store,
	}, nil
}

// Run walks the docs tree and produces the processed tree. Markdown files
// are preprocessed; all other files are copied through as assets.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()
	result := &Result{}
	live := make(map[string]struct{})

	err := filepath.WalkDir(p.cfg.Docs.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityFatal, "walk docs dir")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(p.cfg.Docs.Dir, path)
		if err != nil {
			return err
		}
		if p.ignored(rel) {
			return nil
		}
		live[rel] = struct{}{}

		if isMarkdown(rel) {
			processed, err := p.processDoc(ctx, path, rel, opts.Force)
			if err != nil {
				return err
			}
			if processed {
				result.Processed++
			} else {
				result.Skipped++
			}
			return nil
		}

		if err := p.copyAsset(path, rel); err != nil {
			return err
		}
		result.Assets++
		return nil
	})
	if err != nil {
		return nil, err
	}

	if p.store != nil {
		if removed, err := p.store.Prune(ctx, live); err != nil {
			slog.Warn("Failed to prune fingerprint store", "error", err)
		} else if removed > 0 {
			slog.Debug("Pruned stale fingerprints", "removed", removed)
		}
	}

	result.Duration = time.Since(started)
	slog.Info("Preprocessing completed",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"assets", result.Assets,
		"duration", result.Duration)
	return result, nil
}

// processDoc preprocesses a single markdown file. It returns false when
// the stored fingerprint matched and the output was left alone.
func (p *Pipeline) processDoc(ctx context.Context, path, rel string, force bool) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityError, "read doc "+rel)
	}

	doc, err := frontmatter.Parse(content)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.CategoryPreprocess, apperrors.SeverityError, "parse frontmatter of "+rel)
	}

	lineBase := 0
	if doc.Has {
		lineBase = bytes.Count(doc.Frontmatter, []byte("\n")) + 2
	}

	edits, deps, err := computeEdits(doc.Body, rel, filepath.Dir(path), p.resolver, p.registry, lineBase)
	if err != nil {
		return false, err
	}

	doc.Body, err = markdown.Apply(doc.Body, edits)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.CategoryPreprocess, apperrors.SeverityError, "apply edits to "+rel)
	}
	output := doc.Bytes()

	digest, err := p.fingerprint(content, deps)
	if err != nil {
		return false, err
	}

	outPath := filepath.Join(p.cfg.Docs.ProcessedDir, rel)
	if !force && p.store != nil {
		stored, ok, err := p.store.Get(ctx, rel)
		if err != nil {
			return false, apperrors.Wrap(err, apperrors.CategoryPreprocess, apperrors.SeverityError, "read fingerprint for "+rel)
		}
		if ok && stored == digest {
			if _, err := os.Stat(outPath); err == nil {
				slog.Debug("Skipping unchanged doc", "file", rel)
				return false, nil
			}
		}
	}

	if err := writeAtomic(outPath, output); err != nil {
		return false, err
	}
	if p.store != nil {
		if err := p.store.Put(ctx, rel, digest); err != nil {
			return false, apperrors.Wrap(err, apperrors.CategoryPreprocess, apperrors.SeverityError, "store fingerprint for "+rel)
		}
	}
	slog.Debug("Processed doc", "file", rel, "edits", len(edits))
	return true, nil
}

// fingerprint binds the doc content to everything that influenced its
// output: snippet sources and the links registry.
func (p *Pipeline) fingerprint(content []byte, deps []string) (string, error) {
	depContents := make(map[string][]byte, len(deps)+1)
	for _, dep := range deps {
		data, err := os.ReadFile(dep)
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityError, "read snippet dependency")
		}
		depContents[dep] = data
	}
	if p.cfg.Links.Registry != "" {
		depContents["registry:"+p.cfg.Links.Registry] = p.registry.Raw()
	}
	return state.Digest(content, depContents), nil
}

func (p *Pipeline) copyAsset(path, rel string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityError, "read asset "+rel)
	}
	return writeAtomic(filepath.Join(p.cfg.Docs.ProcessedDir, rel), data)
}

func (p *Pipeline) ignored(rel string) bool {
	for _, pattern := range p.cfg.Docs.Ignore {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".mdx":
		return true
	}
	return false
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityError, "create output directory")
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityError, "write "+path)
	}
	return nil
}
