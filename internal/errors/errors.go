// Package errors provides a structured error type for category-based
// classification across the documentation pipeline and its CLI.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies a pipeline error by the subsystem that produced it.
type Category string

const (
	// User-facing configuration and input errors
	CategoryConfig     Category = "config"
	CategoryValidation Category = "validation"

	// Content processing errors
	CategoryPreprocess Category = "preprocess"
	CategorySnippet    Category = "snippet"
	CategoryLint       Category = "lint"

	// External tool and versioning errors
	CategoryTool     Category = "tool"
	CategoryVersions Category = "versions"
	CategorySite     Category = "site"

	// Runtime and infrastructure errors
	CategoryServe      Category = "serve"
	CategoryFileSystem Category = "filesystem"
	CategoryInternal   Category = "internal"
)

// Severity indicates how critical an error is.
type Severity string

const (
	SeverityFatal   Severity = "fatal"   // Stops execution
	SeverityError   Severity = "error"   // Error, but not fatal
	SeverityWarning Severity = "warning" // Continues with degraded functionality
)

// PipelineError is a structured error with category, severity, and context.
type PipelineError struct {
	Category Category      `json:"category"`
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for a PipelineError.
type ContextFields map[string]any

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap supports errors.Is/errors.As chains.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *PipelineError) WithContext(key string, value any) *PipelineError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new PipelineError.
func New(category Category, severity Severity, message string) *PipelineError {
	return &PipelineError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Newf creates a new PipelineError with a formatted message.
func Newf(category Category, severity Severity, format string, args ...any) *PipelineError {
	return New(category, severity, fmt.Sprintf(format, args...))
}

// Wrap creates a new PipelineError that wraps an existing error.
func Wrap(err error, category Category, severity Severity, message string) *PipelineError {
	return &PipelineError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category.
func IsCategory(err error, category Category) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or CategoryInternal
// for errors that are not PipelineErrors.
func GetCategory(err error) Category {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return CategoryInternal
}

// ExitCode maps an error to the process exit code used by the CLI.
// Configuration and validation problems exit with 2 so callers can
// distinguish "fix your config" from pipeline failures; a missing
// external tool exits with 3; everything else exits with 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCategory(err) {
	case CategoryConfig, CategoryValidation:
		return 2
	case CategoryTool:
		return 3
	default:
		return 1
	}
}
