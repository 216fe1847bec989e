// Package frontmatter splits and reassembles YAML frontmatter without
// disturbing the Markdown body. Documents without frontmatter round-trip
// byte-identically, as do documents whose frontmatter is never touched.
package frontmatter

import (
	"bytes"
	"errors"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but never closed it.
var ErrMissingClosingDelimiter = errors.New("frontmatter opening delimiter found but closing delimiter is missing")

// Doc is a Markdown document separated into raw frontmatter and body.
//
// Frontmatter holds the YAML between the `---` delimiters (without the
// delimiters themselves); Body is everything after the closing delimiter.
// The newline flavor of the original document is preserved on output.
type Doc struct {
	Frontmatter []byte
	Body        []byte
	Has         bool

	newline string
}

// Parse splits content into frontmatter and body.
//
// If content does not begin with a `---` line, the document has no
// frontmatter and Body is the full input.
func Parse(content []byte) (*Doc, error) {
	d := &Doc{newline: detectNewline(content)}

	open := []byte("---" + d.newline)
	if !bytes.HasPrefix(content, open) {
		d.Body = content
		return d, nil
	}

	rest := content[len(open):]

	// An immediately following `---` line is an empty frontmatter block.
	if bytes.HasPrefix(rest, open) {
		d.Has = true
		d.Frontmatter = []byte{}
		d.Body = rest[len(open):]
		return d, nil
	}

	closeSeq := []byte(d.newline + "---" + d.newline)
	idx := bytes.Index(rest, closeSeq)
	if idx < 0 {
		return nil, ErrMissingClosingDelimiter
	}

	d.Has = true
	d.Frontmatter = rest[:idx+len(d.newline)]
	d.Body = rest[idx+len(closeSeq):]
	return d, nil
}

// Bytes reassembles the document. Documents without frontmatter return
// the body unchanged.
func (d *Doc) Bytes() []byte {
	if !d.Has {
		return d.Body
	}

	nl := d.newline
	if nl == "" {
		nl = "\n"
	}
	delim := []byte("---" + nl)

	out := make([]byte, 0, 2*len(delim)+len(d.Frontmatter)+len(d.Body))
	out = append(out, delim...)
	out = append(out, d.Frontmatter...)
	out = append(out, delim...)
	out = append(out, d.Body...)
	return out
}

// Fields parses the raw frontmatter into a map. A document without
// frontmatter (or with an empty block) yields an empty map.
func (d *Doc) Fields() (map[string]any, error) {
	if len(d.Frontmatter) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(d.Frontmatter, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// SetFields replaces the frontmatter with the serialized fields and marks
// the document as having frontmatter. Keys are emitted in sorted order so
// repeated runs produce identical output.
func (d *Doc) SetFields(fields map[string]any) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	// Encode through an ordered node to keep key order stable; yaml.v3
	// randomizes map iteration otherwise.
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: k}
		valNode := &yaml.Node{}
		if err := valNode.Encode(fields[k]); err != nil {
			return err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	if err := enc.Encode(node); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	d.Frontmatter = buf.Bytes()
	d.Has = true
	return nil
}

func detectNewline(content []byte) string {
	for i := 0; i+1 < len(content); i++ {
		if content[i] == '\r' && content[i+1] == '\n' {
			return "\r\n"
		}
		if content[i] == '\n' {
			return "\n"
		}
	}
	return "\n"
}
