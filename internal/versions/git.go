package versions

import (
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// LatestTag returns the highest semver tag of the repository containing
// repoDir. Non-semver tags are ignored.
func LatestTag(repoDir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(repoDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CategoryVersions, apperrors.SeverityFatal,
			"open git repository at "+repoDir)
	}

	tags, err := repo.Tags()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CategoryVersions, apperrors.SeverityFatal, "list git tags")
	}

	var best string
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		name := strings.TrimPrefix(ref.Name().String(), "refs/tags/")
		if _, err := parseSemver(name); err != nil {
			slog.Debug("Skipping non-semver tag", "tag", name)
			return nil
		}
		if best == "" || newerVersion(name, best) {
			best = name
		}
		return nil
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CategoryVersions, apperrors.SeverityFatal, "iterate git tags")
	}

	if best == "" {
		return "", apperrors.New(apperrors.CategoryVersions, apperrors.SeverityFatal,
			"no semver tags found; pass --version explicitly")
	}
	return best, nil
}

// HeadCommit returns the current HEAD commit SHA. Failures are soft: the
// lock file simply records an empty commit outside a git checkout.
func HeadCommit(repoDir string) string {
	repo, err := git.PlainOpenWithOptions(repoDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()
}
