package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_FormatsCategoryAndSeverity(t *testing.T) {
	err := New(CategorySnippet, SeverityError, "unknown tag")
	require.Equal(t, "snippet (error): unknown tag", err.Error())
}

func TestWrap_PreservesCauseForErrorsIs(t *testing.T) {
	cause := stderrors.New("no such file")
	err := Wrap(cause, CategoryFileSystem, SeverityFatal, "read docs dir")

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "no such file")
}

func TestIsCategory_MatchesThroughWrapping(t *testing.T) {
	inner := New(CategoryTool, SeverityFatal, "pydoc-markdown not found")
	wrapped := fmt.Errorf("api-ref step: %w", inner)

	require.True(t, IsCategory(wrapped, CategoryTool))
	require.False(t, IsCategory(wrapped, CategoryConfig))
}

func TestGetCategory_DefaultsToInternal(t *testing.T) {
	require.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
}

func TestWithContext_AccumulatesFields(t *testing.T) {
	err := New(CategoryPreprocess, SeverityError, "marker without fence").
		WithContext("file", "docs/intro.md").
		WithContext("line", 42)

	require.Equal(t, "docs/intro.md", err.Context["file"])
	require.Equal(t, 42, err.Context["line"])
}

func TestExitCode_Mapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"config", New(CategoryConfig, SeverityFatal, "bad yaml"), 2},
		{"validation", New(CategoryValidation, SeverityFatal, "missing docs dir"), 2},
		{"tool missing", New(CategoryTool, SeverityFatal, "not on PATH"), 3},
		{"site build", New(CategorySite, SeverityFatal, "exit status 1"), 1},
		{"plain error", stderrors.New("boom"), 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}
