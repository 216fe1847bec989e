// Package versions manages versioned documentation snapshots: a
// directory per published version plus a JSON manifest the site
// framework reads, and a lock file recording where each snapshot came
// from.
package versions

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docsite/internal/config"
	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// Service performs version snapshot operations against the configured
// layout.
type Service struct {
	cfg *config.Config

	now func() time.Time // test hook
}

// NewService creates a version service from the loaded configuration.
func NewService(cfg *config.Config) *Service {
	return &Service{cfg: cfg, now: time.Now}
}

// UpdateResult describes what an Update call did.
type UpdateResult struct {
	Version  string
	Snapshot string   // snapshot directory, empty when skipped
	Pruned   []string // versions removed by the keep limit
	Skipped  bool     // version was already published
}

// Update snapshots the processed docs tree as the given version. When
// version is empty the newest semver tag of the enclosing repository is
// used. Publishing an already-listed version is a no-op.
func (s *Service) Update(version string) (*UpdateResult, error) {
	if version == "" {
		tag, err := LatestTag(s.cfg.Versions.RepoDir)
		if err != nil {
			return nil, err
		}
		version = tag
	}
	version = strings.TrimPrefix(version, "v")

	manifest, err := LoadManifest(s.cfg.Versions.Manifest)
	if err != nil {
		return nil, err
	}
	if manifest.Contains(version) {
		slog.Info("Version already published, nothing to do", "version", version)
		return &UpdateResult{Version: version, Skipped: true}, nil
	}

	if _, err := os.Stat(s.cfg.Docs.ProcessedDir); err != nil {
		return nil, apperrors.Newf(apperrors.CategoryVersions, apperrors.SeverityFatal,
			"processed docs not found at %s (run `docsite preprocess` first)", s.cfg.Docs.ProcessedDir)
	}

	snapshot := s.snapshotPath(version)
	if err := copyTree(s.cfg.Docs.ProcessedDir, snapshot); err != nil {
		return nil, err
	}

	if s.cfg.Versions.SidebarFile != "" {
		if err := s.copySidebar(version); err != nil {
			return nil, err
		}
	}

	manifest.Insert(version)
	pruned := manifest.Trim(s.cfg.Versions.Keep)
	for _, old := range pruned {
		s.removeVersionFiles(old)
	}

	if err := manifest.Save(s.cfg.Versions.Manifest); err != nil {
		return nil, err
	}
	if err := s.updateLock(version, pruned); err != nil {
		return nil, err
	}

	slog.Info("Published documentation version",
		"version", version,
		"snapshot", snapshot,
		"pruned", len(pruned))
	return &UpdateResult{Version: version, Snapshot: snapshot, Pruned: pruned}, nil
}

// Clear removes every snapshot and empties the manifest and lock.
func (s *Service) Clear() error {
	manifest, err := LoadManifest(s.cfg.Versions.Manifest)
	if err != nil {
		return err
	}

	for _, dir := range []string{s.cfg.Versions.SnapshotDir, s.cfg.Versions.SidebarsDir} {
		if err := os.RemoveAll(dir); err != nil {
			return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityFatal, "remove "+dir)
		}
	}

	removed := len(manifest.Versions)
	manifest.Versions = []string{}
	if err := manifest.Save(s.cfg.Versions.Manifest); err != nil {
		return err
	}
	if err := (Lock{}).Save(s.cfg.Versions.LockFile); err != nil {
		return err
	}

	slog.Info("Cleared documentation versions", "removed", removed)
	return nil
}

func (s *Service) snapshotPath(version string) string {
	return filepath.Join(s.cfg.Versions.SnapshotDir, "version-"+Slug(version))
}

func (s *Service) sidebarPath(version string) string {
	return filepath.Join(s.cfg.Versions.SidebarsDir, "version-"+Slug(version)+"-sidebars.json")
}

func (s *Service) copySidebar(version string) error {
	data, err := os.ReadFile(s.cfg.Versions.SidebarFile)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryVersions, apperrors.SeverityFatal,
			"read sidebar file "+s.cfg.Versions.SidebarFile)
	}
	dst := s.sidebarPath(version)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityFatal, "create sidebars dir")
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityFatal, "write "+dst)
	}
	return nil
}

func (s *Service) removeVersionFiles(version string) {
	for _, path := range []string{s.snapshotPath(version), s.sidebarPath(version)} {
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("Failed to remove pruned version files", "version", version, "path", path, "error", err)
		}
	}
}

func (s *Service) updateLock(version string, pruned []string) error {
	lock, err := LoadLock(s.cfg.Versions.LockFile)
	if err != nil {
		return err
	}
	lock[version] = LockEntry{
		Commit:    HeadCommit(s.cfg.Versions.RepoDir),
		CreatedAt: s.now().UTC(),
	}
	for _, old := range pruned {
		delete(lock, old)
	}
	return lock.Save(s.cfg.Versions.LockFile)
}

// copyTree copies src into dst recursively. dst is replaced wholesale so
// a re-published snapshot never carries stale files.
func copyTree(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityFatal, "clear snapshot dir")
	}

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityFatal, "copy docs snapshot")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
