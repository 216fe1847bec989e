// Package config loads and validates the docsite configuration file.
//
// Configuration is YAML by default (docsite.yaml); a .toml extension is
// also accepted for projects that keep their tooling config in TOML.
// A .env file next to the working directory is loaded before parsing and
// ${VAR} references inside the file are expanded from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// Config is the top-level docsite configuration.
type Config struct {
	Docs     DocsConfig     `yaml:"docs" toml:"docs"`
	Snippets SnippetsConfig `yaml:"snippets" toml:"snippets"`
	Links    LinksConfig    `yaml:"links" toml:"links"`
	APIRef   APIRefConfig   `yaml:"api_ref" toml:"api_ref"`
	CLIDocs  CLIDocsConfig  `yaml:"cli_docs" toml:"cli_docs"`
	Versions VersionsConfig `yaml:"versions" toml:"versions"`
	Site     SiteConfig     `yaml:"site" toml:"site"`
	Serve    ServeConfig    `yaml:"serve" toml:"serve"`
	State    StateConfig    `yaml:"state" toml:"state"`
}

// DocsConfig describes the raw and processed documentation trees.
type DocsConfig struct {
	Dir          string   `yaml:"dir" toml:"dir"`                     // authored markdown
	ProcessedDir string   `yaml:"processed_dir" toml:"processed_dir"` // preprocessed output
	Ignore       []string `yaml:"ignore,omitempty" toml:"ignore"`     // glob patterns, relative to Dir
}

// SnippetsConfig describes where tagged code snippets are searched for.
type SnippetsConfig struct {
	SearchDirs []string `yaml:"search_dirs" toml:"search_dirs"`
}

// LinksConfig points at the related-links registry.
type LinksConfig struct {
	Registry string `yaml:"registry,omitempty" toml:"registry"`
}

// APIRefConfig controls API reference generation through the external
// docstring-extraction tool.
type APIRefConfig struct {
	Enabled    bool     `yaml:"enabled" toml:"enabled"`
	Command    []string `yaml:"command,omitempty" toml:"command"` // defaults to ["pydoc-markdown"]
	Packages   []string `yaml:"packages" toml:"packages"`
	PythonPath []string `yaml:"python_path,omitempty" toml:"python_path"`
	OutputDir  string   `yaml:"output_dir" toml:"output_dir"`
	Label      string   `yaml:"label,omitempty" toml:"label"` // sidebar category label
}

// CLIDocsConfig controls rendering of the documented project's CLI help.
type CLIDocsConfig struct {
	Enabled bool     `yaml:"enabled" toml:"enabled"`
	Command []string `yaml:"command" toml:"command"` // e.g. ["dlt", "render-docs"]
	Page    string   `yaml:"page" toml:"page"`       // docs page carrying the CLI_REFERENCE markers
}

// VersionsConfig controls versioned documentation snapshots.
type VersionsConfig struct {
	Manifest    string `yaml:"manifest" toml:"manifest"`         // versions.json
	LockFile    string `yaml:"lock_file" toml:"lock_file"`       // versions-lock.json
	SnapshotDir string `yaml:"snapshot_dir" toml:"snapshot_dir"` // versioned_docs
	SidebarsDir string `yaml:"sidebars_dir" toml:"sidebars_dir"` // versioned_sidebars
	SidebarFile string `yaml:"sidebar_file,omitempty" toml:"sidebar_file"`
	Keep        int    `yaml:"keep,omitempty" toml:"keep"` // 0 = unlimited
	RepoDir     string `yaml:"repo_dir,omitempty" toml:"repo_dir"`
}

// SiteConfig describes how the external static-site framework is invoked.
type SiteConfig struct {
	Dir          string   `yaml:"dir,omitempty" toml:"dir"` // working dir for the framework
	BuildCommand []string `yaml:"build_command" toml:"build_command"`
	DevCommand   []string `yaml:"dev_command" toml:"dev_command"`
	OutputDir    string   `yaml:"output_dir" toml:"output_dir"`
}

// ServeConfig tunes the long-running serve mode.
type ServeConfig struct {
	MetricsAddr     string        `yaml:"metrics_addr,omitempty" toml:"metrics_addr"`
	Debounce        time.Duration `yaml:"debounce,omitempty" toml:"debounce"`
	RebuildInterval time.Duration `yaml:"rebuild_interval,omitempty" toml:"rebuild_interval"`
	NATSURL         string        `yaml:"nats_url,omitempty" toml:"nats_url"`
	NATSSubject     string        `yaml:"nats_subject,omitempty" toml:"nats_subject"`
}

// StateConfig locates the incremental-build state database.
type StateConfig struct {
	Path string `yaml:"path,omitempty" toml:"path"`
}

// Load reads, expands, parses, defaults, and validates a configuration file.
func Load(configPath string) (*Config, error) {
	// .env is optional; ignore a missing file but surface parse failures.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		if _, statErr := os.Stat(".env"); statErr == nil {
			return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "load .env")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.CategoryConfig, apperrors.SeverityFatal,
				"configuration file not found: %s (run `docsite init` to create one)", configPath)
		}
		return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "read config file")
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "parse TOML config")
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "parse YAML config")
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints. All problems are reported at
// once so the user does not fix them one at a time.
func (c *Config) Validate() error {
	var problems []string

	if c.Docs.Dir == "" {
		problems = append(problems, "docs.dir is required")
	}
	if c.Docs.ProcessedDir == "" {
		problems = append(problems, "docs.processed_dir is required")
	}
	if c.Docs.Dir != "" && c.Docs.Dir == c.Docs.ProcessedDir {
		problems = append(problems, "docs.processed_dir must differ from docs.dir")
	}
	if c.APIRef.Enabled && len(c.APIRef.Packages) == 0 {
		problems = append(problems, "api_ref.packages is required when api_ref is enabled")
	}
	if c.CLIDocs.Enabled {
		if len(c.CLIDocs.Command) == 0 {
			problems = append(problems, "cli_docs.command is required when cli_docs is enabled")
		}
		if c.CLIDocs.Page == "" {
			problems = append(problems, "cli_docs.page is required when cli_docs is enabled")
		}
	}
	if c.Versions.Keep < 0 {
		problems = append(problems, "versions.keep must not be negative")
	}
	if c.Serve.NATSURL != "" && c.Serve.NATSSubject == "" {
		problems = append(problems, "serve.nats_subject is required when serve.nats_url is set")
	}

	if len(problems) > 0 {
		return apperrors.Newf(apperrors.CategoryValidation, apperrors.SeverityFatal,
			"invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Docs.Dir == "" {
		c.Docs.Dir = "docs"
	}
	if c.Docs.ProcessedDir == "" {
		c.Docs.ProcessedDir = "docs_processed"
	}
	if len(c.Snippets.SearchDirs) == 0 {
		c.Snippets.SearchDirs = []string{c.Docs.Dir}
	}
	if len(c.APIRef.Command) == 0 {
		c.APIRef.Command = []string{"pydoc-markdown"}
	}
	if c.APIRef.OutputDir == "" {
		c.APIRef.OutputDir = filepath.Join(c.Docs.ProcessedDir, "reference")
	}
	if c.APIRef.Label == "" {
		c.APIRef.Label = "API Reference"
	}
	if c.Versions.Manifest == "" {
		c.Versions.Manifest = "versions.json"
	}
	if c.Versions.LockFile == "" {
		c.Versions.LockFile = "versions-lock.json"
	}
	if c.Versions.SnapshotDir == "" {
		c.Versions.SnapshotDir = "versioned_docs"
	}
	if c.Versions.SidebarsDir == "" {
		c.Versions.SidebarsDir = "versioned_sidebars"
	}
	if c.Versions.RepoDir == "" {
		c.Versions.RepoDir = "."
	}
	if c.Site.OutputDir == "" {
		c.Site.OutputDir = "build"
	}
	if c.Serve.Debounce <= 0 {
		c.Serve.Debounce = 500 * time.Millisecond
	}
	if c.Serve.MetricsAddr == "" {
		c.Serve.MetricsAddr = "localhost:9109"
	}
	if c.State.Path == "" {
		c.State.Path = filepath.Join(".docsite", "state.db")
	}
}

// DefaultConfigNames are probed in order when no -c flag is given.
var DefaultConfigNames = []string{"docsite.yaml", "docsite.yml", "docsite.toml"}

// Resolve returns the config path to use: the explicit path when given,
// otherwise the first default name that exists in the working directory.
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range DefaultConfigNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return DefaultConfigNames[0]
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
