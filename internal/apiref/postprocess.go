package apiref

import (
	"strings"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/frontmatter"
)

// Postprocess adapts raw tool output to a site-framework page: a
// frontmatter title is ensured and top-level headings are demoted one
// level so the page title stays the only H1.
func Postprocess(raw []byte, pkg string) ([]byte, error) {
	doc, err := frontmatter.Parse(raw)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryPreprocess, apperrors.SeverityError,
			"parse generated reference for "+pkg)
	}

	fields, err := doc.Fields()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryPreprocess, apperrors.SeverityError,
			"parse reference frontmatter for "+pkg)
	}
	if _, ok := fields["title"]; !ok {
		fields["title"] = pkg
	}
	if err := doc.SetFields(fields); err != nil {
		return nil, err
	}

	doc.Body = demoteHeadings(doc.Body)
	return doc.Bytes(), nil
}

// demoteHeadings turns `# Heading` into `## Heading`, leaving fenced code
// blocks alone.
func demoteHeadings(body []byte) []byte {
	lines := strings.Split(string(body), "\n")
	inFence := false
	for i, l := range lines {
		trimmed := strings.TrimLeft(l, " \t")
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if strings.HasPrefix(l, "# ") {
			lines[i] = "#" + l
		}
	}
	return []byte(strings.Join(lines, "\n"))
}
