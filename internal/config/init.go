package config

import (
	"os"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

const starterConfig = `# docsite configuration
#
# Values may reference environment variables with ${VAR}; a .env file in
# the working directory is loaded automatically.

docs:
  dir: docs
  processed_dir: docs_processed
  # ignore:
  #   - "drafts/**"

snippets:
  search_dirs:
    - docs
    - examples

links:
  # registry: links.yaml

api_ref:
  enabled: false
  packages: []
  # python_path:
  #   - ../src
  output_dir: docs_processed/reference

cli_docs:
  enabled: false
  command: []
  # page: docs/reference/cli.md

versions:
  manifest: versions.json
  lock_file: versions-lock.json
  snapshot_dir: versioned_docs
  sidebars_dir: versioned_sidebars
  # sidebar_file: sidebars.js
  keep: 0

site:
  build_command: ["npx", "docusaurus", "build"]
  dev_command: ["npx", "docusaurus", "start"]
  output_dir: build

serve:
  metrics_addr: localhost:9109
  debounce: 500ms
  # rebuild_interval: 30m
  # nats_url: nats://localhost:4222
  # nats_subject: docsite.builds
`

// Init writes a commented starter configuration file. An existing file is
// never overwritten unless force is set.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return apperrors.Newf(apperrors.CategoryConfig, apperrors.SeverityFatal,
			"configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := ensureParentDir(configPath); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityFatal, "prepare config directory")
	}
	if err := os.WriteFile(configPath, []byte(starterConfig), 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityFatal, "write starter config")
	}
	return nil
}
