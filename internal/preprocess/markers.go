package preprocess

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/markdown"
	"git.home.luguber.info/inful/docsite/internal/snippets"
)

// Marker syntax recognized in documentation pages.
//
//	<!--@@@SNIPPET examples/load.py::quickstart@@@-->
//	<!--@@@LINKS schema@@@-->
//	<!--@@@LINKS_END@@@-->
var (
	snippetMarkerRe = regexp.MustCompile(`<!--\s*@@@SNIPPET\s+(\S+)\s*@@@\s*-->`)
	linksMarkerRe   = regexp.MustCompile(`<!--\s*@@@LINKS\s+(\S+)\s*@@@\s*-->`)
	linksEndRe      = regexp.MustCompile(`<!--\s*@@@LINKS_END\s*@@@\s*-->`)
)

const linksEndMarker = "<!--@@@LINKS_END@@@-->"

// line is one source line with its byte range; end includes the trailing
// newline when present.
type line struct {
	start, end int
	text       string
}

func splitLines(body []byte) []line {
	var lines []line
	start := 0
	for i := 0; i < len(body); i++ {
		if body[i] == '\n' {
			lines = append(lines, line{start: start, end: i + 1, text: string(body[start:i])})
			start = i + 1
		}
	}
	if start < len(body) {
		lines = append(lines, line{start: start, end: len(body), text: string(body[start:])})
	}
	return lines
}

func isFenceLine(text string) bool {
	trimmed := strings.TrimLeft(text, " \t")
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// computeEdits scans a Markdown body for preprocessing markers and
// returns the byte-range edits to apply plus the snippet source files the
// document now depends on. Markers inside fenced code blocks are ignored
// so marker syntax can be documented.
//
// docPath and lineBase are used for error reporting only; lineBase is the
// number of lines consumed by frontmatter.
func computeEdits(body []byte, docPath, docDir string, resolver *snippets.Resolver, registry *Registry, lineBase int) ([]markdown.Edit, []string, error) {
	lines := splitLines(body)
	var edits []markdown.Edit
	var deps []string

	errAt := func(i int, format string, args ...any) error {
		return apperrors.New(apperrors.CategoryPreprocess, apperrors.SeverityError,
			fmt.Sprintf(format, args...)).
			WithContext("file", docPath).
			WithContext("line", lineBase+i+1)
	}

	inFence := false
	i := 0
	for i < len(lines) {
		l := lines[i]

		if isFenceLine(l.text) {
			inFence = !inFence
			i++
			continue
		}
		if inFence {
			i++
			continue
		}

		if m := snippetMarkerRe.FindStringSubmatch(l.text); m != nil {
			snip, err := resolver.Resolve(docDir, m[1])
			if err != nil {
				return nil, nil, apperrors.Wrap(err, apperrors.CategoryPreprocess, apperrors.SeverityError,
					fmt.Sprintf("%s:%d: snippet marker %q", docPath, lineBase+i+1, m[1]))
			}
			deps = append(deps, snip.File)
			block := fmt.Sprintf("```%s\n%s```\n", snip.Language, snip.Code)

			// Replace the fenced block following the marker, or insert a
			// fresh one when the marker stands alone.
			j := i + 1
			for j < len(lines) && isBlank(lines[j].text) {
				j++
			}
			if j < len(lines) && isFenceLine(lines[j].text) {
				k := j + 1
				for k < len(lines) && !isFenceLine(lines[k].text) {
					k++
				}
				if k == len(lines) {
					return nil, nil, errAt(j, "unterminated code fence after snippet marker")
				}
				edits = append(edits, markdown.Edit{Start: lines[j].start, End: lines[k].end, Replacement: []byte(block)})
				i = k + 1
				continue
			}
			edits = append(edits, markdown.Edit{Start: l.end, End: l.end, Replacement: []byte("\n" + block)})
			i++
			continue
		}

		if m := linksMarkerRe.FindStringSubmatch(l.text); m != nil {
			topic := m[1]
			links, known := registry.Links(topic)
			if !known {
				slog.Warn("No links registered for topic", "topic", topic, "file", docPath)
			}
			list := renderLinkList(links)

			// Replace up to the end marker when present, insert otherwise.
			j := i + 1
			endIdx := -1
			for ; j < len(lines); j++ {
				if linksEndRe.MatchString(lines[j].text) {
					endIdx = j
					break
				}
				if snippetMarkerRe.MatchString(lines[j].text) || linksMarkerRe.MatchString(lines[j].text) {
					break
				}
			}
			if endIdx >= 0 {
				edits = append(edits, markdown.Edit{Start: l.end, End: lines[endIdx].start, Replacement: []byte(list)})
				i = endIdx + 1
				continue
			}
			edits = append(edits, markdown.Edit{Start: l.end, End: l.end, Replacement: []byte(list + linksEndMarker + "\n")})
			i++
			continue
		}

		if linksEndRe.MatchString(l.text) {
			return nil, nil, errAt(i, "links end marker without matching links marker")
		}

		i++
	}

	return edits, deps, nil
}

func renderLinkList(links []Link) string {
	if len(links) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n")
	for _, l := range links {
		fmt.Fprintf(&b, "- [%s](%s)\n", l.Title, l.URL)
	}
	b.WriteString("\n")
	return b.String()
}
