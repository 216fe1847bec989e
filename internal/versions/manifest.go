package versions

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/natefinch/atomic"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// Manifest is the framework-facing version list (versions.json): version
// names ordered newest first.
type Manifest struct {
	Versions []string
}

// LoadManifest reads versions.json; a missing file is an empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryVersions, apperrors.SeverityFatal, "read version manifest")
	}

	var versions []string
	if err := json.Unmarshal(data, &versions); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryVersions, apperrors.SeverityFatal, "parse version manifest")
	}
	return &Manifest{Versions: versions}, nil
}

// Save writes the manifest atomically.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m.Versions, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryVersions, apperrors.SeverityFatal, "marshal version manifest")
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryVersions, apperrors.SeverityFatal, "write version manifest")
	}
	return nil
}

// Contains reports whether version is already listed.
func (m *Manifest) Contains(version string) bool {
	for _, v := range m.Versions {
		if v == version {
			return true
		}
	}
	return false
}

// Insert adds version keeping newest-first semver order. Non-semver
// names go to the front, matching "latest wins" framework behavior.
func (m *Manifest) Insert(version string) {
	at := 0
	for at < len(m.Versions) && newerVersion(m.Versions[at], version) {
		at++
	}
	m.Versions = append(m.Versions, "")
	copy(m.Versions[at+1:], m.Versions[at:])
	m.Versions[at] = version
}

// Trim drops the oldest versions beyond keep (0 keeps everything) and
// returns the removed names.
func (m *Manifest) Trim(keep int) []string {
	if keep <= 0 || len(m.Versions) <= keep {
		return nil
	}
	removed := append([]string{}, m.Versions[keep:]...)
	m.Versions = m.Versions[:keep]
	return removed
}

// LockEntry records provenance for one snapshot.
type LockEntry struct {
	Commit    string    `json:"commit,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Lock is the provenance ledger (versions-lock.json) keyed by version.
type Lock map[string]LockEntry

// LoadLock reads versions-lock.json; a missing file is an empty lock.
func LoadLock(path string) (Lock, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Lock{}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryVersions, apperrors.SeverityFatal, "read version lock")
	}

	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryVersions, apperrors.SeverityFatal, "parse version lock")
	}
	if lock == nil {
		lock = Lock{}
	}
	return lock, nil
}

// Save writes the lock atomically.
func (l Lock) Save(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryVersions, apperrors.SeverityFatal, "marshal version lock")
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryVersions, apperrors.SeverityFatal, "write version lock")
	}
	return nil
}
