// Package snippets extracts tagged code regions from example source files.
//
// A region is delimited by marker lines placed in comments:
//
//	# @@@SNIPPET_START quickstart
//	pipeline = dlt.pipeline(...)
//	# @@@SNIPPET_END quickstart
//
// Markers may appear in any comment syntax; only the marker token and the
// tag are significant. Marker lines are never part of the extracted code,
// including markers of other regions nested inside.
package snippets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "git.home.luguber.info/inful/docsite/internal/errors"
)

const (
	startMarker = "@@@SNIPPET_START"
	endMarker   = "@@@SNIPPET_END"
)

// Snippet is one extracted code region.
type Snippet struct {
	Tag      string
	Code     string // dedented, no marker lines, trailing newline preserved
	Language string // fence language derived from the file extension
	File     string // absolute path of the source file
	Line     int    // 1-based line of the start marker
}

// Resolver locates and caches snippets across the configured search dirs.
type Resolver struct {
	searchDirs []string
	cache      map[string]map[string]Snippet // file path -> tag -> snippet
}

// NewResolver creates a resolver over the given search directories.
func NewResolver(searchDirs []string) *Resolver {
	return &Resolver{
		searchDirs: searchDirs,
		cache:      make(map[string]map[string]Snippet),
	}
}

// Resolve finds the snippet for a `path::tag` reference. The path is tried
// relative to docDir first, then relative to each search directory. A
// reference without `::tag` yields the whole file (minus marker lines).
func (r *Resolver) Resolve(docDir, ref string) (Snippet, error) {
	path, tag := splitRef(ref)

	file, err := r.locate(docDir, path)
	if err != nil {
		return Snippet{}, err
	}

	byTag, err := r.extract(file)
	if err != nil {
		return Snippet{}, err
	}

	if tag == "" {
		return wholeFile(file, byTag)
	}

	snip, ok := byTag[tag]
	if !ok {
		return Snippet{}, apperrors.Newf(apperrors.CategorySnippet, apperrors.SeverityError,
			"snippet tag %q not found in %s", tag, file)
	}
	return snip, nil
}

func splitRef(ref string) (path, tag string) {
	if i := strings.Index(ref, "::"); i >= 0 {
		return ref[:i], ref[i+2:]
	}
	return ref, ""
}

func (r *Resolver) locate(docDir, path string) (string, error) {
	candidates := make([]string, 0, len(r.searchDirs)+1)
	if docDir != "" {
		candidates = append(candidates, filepath.Join(docDir, path))
	}
	for _, dir := range r.searchDirs {
		candidates = append(candidates, filepath.Join(dir, path))
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(c)
			if err != nil {
				return "", apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityError, "resolve snippet path")
			}
			return abs, nil
		}
	}
	return "", apperrors.Newf(apperrors.CategorySnippet, apperrors.SeverityError,
		"snippet source %q not found (searched %s)", path, strings.Join(candidates, ", "))
}

// extract parses every tagged region in file, using the cache when the
// file was already parsed during this run.
func (r *Resolver) extract(file string) (map[string]Snippet, error) {
	if cached, ok := r.cache[file]; ok {
		return cached, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityError, "read snippet source")
	}

	byTag, err := parseRegions(file, string(data))
	if err != nil {
		return nil, err
	}
	r.cache[file] = byTag
	return byTag, nil
}

func parseRegions(file, content string) (map[string]Snippet, error) {
	lines := strings.Split(content, "\n")
	lang := languageFor(file)

	type open struct {
		startLine int // index of the marker line
	}
	opens := make(map[string]open)
	byTag := make(map[string]Snippet)

	for i, line := range lines {
		switch {
		case strings.Contains(line, startMarker):
			tag := markerTag(line, startMarker)
			if tag == "" {
				return nil, snippetErrf(file, i+1, "start marker without tag")
			}
			if _, dup := byTag[tag]; dup {
				return nil, snippetErrf(file, i+1, "duplicate snippet tag %q", tag)
			}
			if _, already := opens[tag]; already {
				return nil, snippetErrf(file, i+1, "snippet tag %q opened twice", tag)
			}
			opens[tag] = open{startLine: i}

		case strings.Contains(line, endMarker):
			tag := markerTag(line, endMarker)
			o, ok := opens[tag]
			if !ok {
				return nil, snippetErrf(file, i+1, "end marker for %q without matching start", tag)
			}
			delete(opens, tag)

			body := dropMarkerLines(lines[o.startLine+1 : i])
			byTag[tag] = Snippet{
				Tag:      tag,
				Code:     dedent(body),
				Language: lang,
				File:     file,
				Line:     o.startLine + 1,
			}
		}
	}

	for tag, o := range opens {
		return nil, snippetErrf(file, o.startLine+1, "snippet %q is never closed", tag)
	}
	return byTag, nil
}

func wholeFile(file string, byTag map[string]Snippet) (Snippet, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Snippet{}, apperrors.Wrap(err, apperrors.CategoryFileSystem, apperrors.SeverityError, "read snippet source")
	}
	body := dropMarkerLines(strings.Split(string(data), "\n"))
	_ = byTag
	return Snippet{
		Code:     dedent(body),
		Language: languageFor(file),
		File:     file,
		Line:     1,
	}, nil
}

func markerTag(line, marker string) string {
	rest := line[strings.Index(line, marker)+len(marker):]
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	// Allow the tag to sit inside closing comment syntax like `tag -->`.
	return strings.TrimRight(fields[0], "-*/>#")
}

func dropMarkerLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.Contains(l, startMarker) || strings.Contains(l, endMarker) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// dedent strips the common leading whitespace of all non-blank lines and
// trims leading/trailing blank lines. The result ends with a newline when
// non-empty.
func dedent(lines []string) string {
	// Trim surrounding blank lines.
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	lines = lines[start:end]
	if len(lines) == 0 {
		return ""
	}

	prefix := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		indent := len(l) - len(strings.TrimLeft(l, " \t"))
		if prefix < 0 || indent < prefix {
			prefix = indent
		}
	}
	if prefix < 0 {
		prefix = 0
	}

	var b strings.Builder
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(l[prefix:])
		b.WriteString("\n")
	}
	return b.String()
}

func snippetErrf(file string, line int, format string, args ...any) error {
	return apperrors.New(apperrors.CategorySnippet, apperrors.SeverityError,
		fmt.Sprintf(format, args...)).
		WithContext("file", file).
		WithContext("line", line)
}

var languages = map[string]string{
	".py":   "python",
	".go":   "go",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".sh":   "shell",
	".bash": "shell",
	".yml":  "yaml",
	".yaml": "yaml",
	".toml": "toml",
	".json": "json",
	".sql":  "sql",
	".md":   "md",
}

func languageFor(file string) string {
	if lang, ok := languages[strings.ToLower(filepath.Ext(file))]; ok {
		return lang
	}
	return "text"
}
