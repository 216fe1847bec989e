package site

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"git.home.luguber.info/inful/docsite/internal/config"
	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// BuildRecord is the persisted record of one build: its inputs, the
// steps that ran, and how long everything took.
type BuildRecord struct {
	ID         string       `json:"id"`
	Timestamp  time.Time    `json:"timestamp"`
	ConfigHash string       `json:"config_hash"`
	Steps      []StepRecord `json:"steps"`
	Status     string       `json:"status"`
	Duration   int64        `json:"duration_ms"`
}

// StepRecord captures one pipeline step.
type StepRecord struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Duration int64  `json:"duration_ms"`
	Error    string `json:"error,omitempty"`
}

func newBuildRecord(cfg *config.Config, now time.Time) *BuildRecord {
	return &BuildRecord{
		ID:         uuid.NewString(),
		Timestamp:  now.UTC(),
		ConfigHash: configHash(cfg),
		Status:     "running",
	}
}

// configHash fingerprints the effective configuration so two records can
// be compared for identical inputs.
func configHash(cfg *config.Config) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

func (r *BuildRecord) addStep(name string, started time.Time, err error) {
	step := StepRecord{
		Name:     name,
		Status:   "ok",
		Duration: time.Since(started).Milliseconds(),
	}
	if err != nil {
		step.Status = "failed"
		step.Error = err.Error()
	}
	r.Steps = append(r.Steps, step)
}

func (r *BuildRecord) finish(started time.Time, err error) {
	r.Duration = time.Since(started).Milliseconds()
	if err != nil {
		r.Status = "failed"
	} else {
		r.Status = "ok"
	}
}

// save writes the record under the state directory, one file per build.
func (r *BuildRecord) save(cfg *config.Config) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryInternal, apperrors.SeverityError, "marshal build record")
	}
	data = append(data, '\n')

	path := recordPath(cfg, r.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityError, "create builds dir")
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityError, "write build record")
	}
	return nil
}

// LoadRecord reads a persisted build record.
func LoadRecord(cfg *config.Config, id string) (*BuildRecord, error) {
	data, err := os.ReadFile(recordPath(cfg, id))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityError, "read build record")
	}
	var r BuildRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryInternal, apperrors.SeverityError, "unmarshal build record")
	}
	return &r, nil
}

func recordPath(cfg *config.Config, id string) string {
	return filepath.Join(filepath.Dir(cfg.State.Path), "builds", id+".json")
}
