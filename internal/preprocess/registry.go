package preprocess

import (
	"os"

	"gopkg.in/yaml.v3"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// Link is one entry in the related-links registry.
type Link struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// Registry maps topics to related links, loaded from a YAML file of the
// shape `topic: [{title: ..., url: ...}, ...]`.
type Registry struct {
	path   string
	raw    []byte
	topics map[string][]Link
}

// LoadRegistry reads the registry file. An empty path yields an empty
// registry so callers do not need to special-case the optional feature.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return &Registry{topics: map[string][]Link{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "read links registry")
	}

	var topics map[string][]Link
	if err := yaml.Unmarshal(data, &topics); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "parse links registry")
	}
	if topics == nil {
		topics = map[string][]Link{}
	}
	return &Registry{path: path, raw: data, topics: topics}, nil
}

// Links returns the links registered for topic.
func (r *Registry) Links(topic string) ([]Link, bool) {
	links, ok := r.topics[topic]
	return links, ok
}

// Raw returns the registry file contents, for fingerprinting.
func (r *Registry) Raw() []byte {
	return r.raw
}
