// Package lint verifies the output of the preprocessing pipeline:
// relative links in processed markdown must stay inside the processed
// tree and point at files that exist, and local references in the built
// site must resolve.
package lint

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/frontmatter"
	"git.home.luguber.info/inful/docsite/internal/markdown"
)

// Severity of a lint issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding against a file.
type Issue struct {
	File     string
	Link     string
	Severity Severity
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: [%s] %s (%s)", i.File, i.Severity, i.Message, i.Link)
}

// CheckDocs walks the processed markdown tree and validates every
// relative link destination.
func CheckDocs(root string) ([]Issue, error) {
	var issues []Issue

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isMarkdown(path) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		doc, err := frontmatter.Parse(content)
		if err != nil {
			rel, _ := filepath.Rel(root, path)
			issues = append(issues, Issue{
				File: rel, Severity: SeverityError,
				Message: "broken frontmatter: " + err.Error(),
			})
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		for _, link := range markdown.ExtractLinks(doc.Body) {
			if issue := checkDestination(root, rel, link.Destination); issue != nil {
				issues = append(issues, *issue)
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryLint, apperrors.SeverityFatal, "walk processed docs")
	}
	return issues, nil
}

// checkDestination validates a single link destination, returning nil
// for links that are out of scope (external, anchors, site-absolute).
func checkDestination(root, fromRel, dest string) *Issue {
	if dest == "" || isExternal(dest) || strings.HasPrefix(dest, "#") {
		return nil
	}
	// Site-absolute paths depend on the framework's routing; out of scope.
	if strings.HasPrefix(dest, "/") {
		return nil
	}

	target := stripFragment(dest)
	if target == "" {
		return nil
	}

	resolved := filepath.Join(root, filepath.Dir(fromRel), filepath.FromSlash(target))

	// The link must not escape the processed tree.
	if relToRoot, err := filepath.Rel(root, resolved); err != nil || strings.HasPrefix(relToRoot, "..") {
		return &Issue{
			File: fromRel, Link: dest, Severity: SeverityError,
			Message: "link escapes the docs tree",
		}
	}

	if targetExists(resolved) {
		return nil
	}
	return &Issue{
		File: fromRel, Link: dest, Severity: SeverityError,
		Message: "link target does not exist",
	}
}

// targetExists accepts the framework's extensionless link style: a link
// to `guide/setup` matches setup.md, setup.mdx, or setup/index.md.
func targetExists(path string) bool {
	candidates := []string{
		path,
		path + ".md",
		path + ".mdx",
		filepath.Join(path, "index.md"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return true
		}
	}
	return false
}

// Report converts findings into a command result: any error-severity
// issue fails the lint, warnings alone do not.
func Report(issues []Issue) error {
	errors := 0
	for _, i := range issues {
		if i.Severity == SeverityError {
			errors++
		}
	}
	if errors == 0 {
		return nil
	}

	lines := make([]string, 0, len(issues))
	for _, i := range issues {
		lines = append(lines, "  "+i.String())
	}
	return apperrors.Newf(apperrors.CategoryLint, apperrors.SeverityError,
		"%d broken link(s):\n%s", errors, strings.Join(lines, "\n"))
}

func isExternal(dest string) bool {
	return strings.Contains(dest, "://") ||
		strings.HasPrefix(dest, "mailto:") ||
		strings.HasPrefix(dest, "tel:")
}

func stripFragment(dest string) string {
	if i := strings.IndexAny(dest, "#?"); i >= 0 {
		dest = dest[:i]
	}
	return dest
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".mdx":
		return true
	}
	return false
}
