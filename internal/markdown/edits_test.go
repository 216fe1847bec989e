package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApply_NoEdits_ReturnsSource(t *testing.T) {
	src := []byte("hello world")
	out, err := Apply(src, nil)
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestApply_SingleReplacement(t *testing.T) {
	src := []byte("hello world")
	out, err := Apply(src, []Edit{{Start: 6, End: 11, Replacement: []byte("docs")}})
	require.NoError(t, err)
	require.Equal(t, "hello docs", string(out))
}

func TestApply_MultipleEditsUseOriginalOffsets(t *testing.T) {
	src := []byte("aaa bbb ccc")
	out, err := Apply(src, []Edit{
		{Start: 0, End: 3, Replacement: []byte("X")},
		{Start: 8, End: 11, Replacement: []byte("YYYYY")},
	})
	require.NoError(t, err)
	require.Equal(t, "X bbb YYYYY", string(out))
}

func TestApply_InsertionAtPoint(t *testing.T) {
	src := []byte("ab")
	out, err := Apply(src, []Edit{{Start: 1, End: 1, Replacement: []byte("-")}})
	require.NoError(t, err)
	require.Equal(t, "a-b", string(out))
}

func TestApply_Deletion(t *testing.T) {
	src := []byte("one two three")
	out, err := Apply(src, []Edit{{Start: 3, End: 7}})
	require.NoError(t, err)
	require.Equal(t, "one three", string(out))
}

func TestApply_RejectsOverlappingEdits(t *testing.T) {
	src := []byte("abcdef")
	_, err := Apply(src, []Edit{
		{Start: 0, End: 4, Replacement: []byte("x")},
		{Start: 2, End: 6, Replacement: []byte("y")},
	})
	require.Error(t, err)
}

func TestApply_RejectsOutOfRange(t *testing.T) {
	_, err := Apply([]byte("ab"), []Edit{{Start: 0, End: 5}})
	require.Error(t, err)

	_, err = Apply([]byte("ab"), []Edit{{Start: -1, End: 1}})
	require.Error(t, err)
}

func TestApply_DoesNotModifySource(t *testing.T) {
	src := []byte("abcdef")
	_, err := Apply(src, []Edit{{Start: 0, End: 3, Replacement: []byte("ZZZZZZZZ")}})
	require.NoError(t, err)
	require.Equal(t, "abcdef", string(src))
}

func TestExtractLinks_FindsAllKinds(t *testing.T) {
	body := []byte(`# Page

See [guide](../guide.md) and ![diagram](img/flow.png).

Auto link: <https://example.com/x>

[ref]: ./other.md
`)

	links := ExtractLinks(body)

	dests := make(map[LinkKind][]string)
	for _, l := range links {
		dests[l.Kind] = append(dests[l.Kind], l.Destination)
	}

	require.Contains(t, dests[LinkKindInline], "../guide.md")
	require.Contains(t, dests[LinkKindImage], "img/flow.png")
	require.Contains(t, dests[LinkKindAuto], "https://example.com/x")
	require.Contains(t, dests[LinkKindReferenceDefinition], "./other.md")
}
