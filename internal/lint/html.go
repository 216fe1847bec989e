package lint

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

// CheckSite walks the built site output and validates local href/src
// references in every HTML page.
func CheckSite(root string) ([]Issue, error) {
	var issues []Issue

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		doc, parseErr := html.Parse(f)
		_ = f.Close()

		rel, _ := filepath.Rel(root, path)
		if parseErr != nil {
			issues = append(issues, Issue{
				File: rel, Severity: SeverityWarning,
				Message: "unparseable HTML: " + parseErr.Error(),
			})
			return nil
		}

		for _, ref := range localRefs(doc) {
			if issue := checkHTMLRef(root, rel, ref); issue != nil {
				issues = append(issues, *issue)
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryLint, apperrors.SeverityFatal, "walk site output")
	}
	return issues, nil
}

// localRefs collects href and src attribute values from the parsed page.
func localRefs(doc *html.Node) []string {
	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "href" || attr.Key == "src" {
					refs = append(refs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs
}

func checkHTMLRef(root, fromRel, ref string) *Issue {
	if ref == "" || isExternal(ref) || strings.HasPrefix(ref, "#") ||
		strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "javascript:") {
		return nil
	}

	target := stripFragment(ref)
	if target == "" {
		return nil
	}

	var resolved string
	if strings.HasPrefix(target, "/") {
		resolved = filepath.Join(root, filepath.FromSlash(target))
	} else {
		resolved = filepath.Join(root, filepath.Dir(fromRel), filepath.FromSlash(target))
	}

	if htmlTargetExists(resolved) {
		return nil
	}
	return &Issue{
		File: fromRel, Link: ref, Severity: SeverityError,
		Message: "reference target does not exist in site output",
	}
}

// htmlTargetExists accepts pretty URLs: /guide/ is satisfied by
// /guide/index.html.
func htmlTargetExists(path string) bool {
	candidates := []string{
		path,
		filepath.Join(path, "index.html"),
		path + ".html",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return true
		}
	}
	return false
}
