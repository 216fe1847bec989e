// Package markdown provides the low-level Markdown plumbing shared by the
// preprocessing and lint stages: minimal-diff byte-range edits and
// link extraction.
package markdown

import (
	"fmt"
	"sort"
)

// Edit replaces source[Start:End] (End exclusive) with Replacement.
//
// Edits address offsets in the original source, so a set of edits can be
// computed from a single scan and applied in one pass without any offset
// bookkeeping by the caller.
type Edit struct {
	Start       int
	End         int
	Replacement []byte
}

// Apply applies non-overlapping edits to source and returns new content.
// The original slice is not modified.
//
// Edits are applied back-to-front so earlier edits cannot invalidate the
// offsets of later ones. Overlapping or out-of-range edits are rejected.
func Apply(source []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return source, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start > sorted[j].Start })

	if err := validate(sorted, len(source)); err != nil {
		return nil, err
	}

	// Size the result up front; edits shift lengths by replacement deltas.
	size := len(source)
	for _, e := range sorted {
		size += len(e.Replacement) - (e.End - e.Start)
	}
	if size < 0 {
		size = 0
	}

	out := make([]byte, 0, size)
	out = append(out, source...)
	for _, e := range sorted {
		tail := append([]byte(nil), out[e.End:]...)
		out = append(out[:e.Start], e.Replacement...)
		out = append(out, tail...)
	}
	return out, nil
}

func validate(sorted []Edit, sourceLen int) error {
	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start {
			return fmt.Errorf("edit %d: invalid range [%d,%d)", i, e.Start, e.End)
		}
		if e.End > sourceLen {
			return fmt.Errorf("edit %d: range [%d,%d) exceeds source length %d", i, e.Start, e.End, sourceLen)
		}
		// Sorted descending by Start: the current edit must end at or
		// before the previous (later-in-file) edit's start.
		if i > 0 && e.End > sorted[i-1].Start {
			return fmt.Errorf("edit %d: overlaps edit %d", i, i-1)
		}
	}
	return nil
}
