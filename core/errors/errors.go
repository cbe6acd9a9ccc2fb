// Package errors provides standardized error types and helpers for the redline codebase.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates the query matched nothing inside the requested scope
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous indicates the query matched more than once with no occurrence selected
	ErrAmbiguous = errors.New("ambiguous match")
	// ErrInvalidStructure indicates an edit would produce structurally invalid output
	ErrInvalidStructure = errors.New("invalid structure")
	// ErrAlreadyDeleted indicates the target is already inside an active deletion
	ErrAlreadyDeleted = errors.New("already deleted")
	// ErrStorage indicates a container I/O or validation failure
	ErrStorage = errors.New("storage failure")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError reports a query that matched nothing in scope. OutOfScope
// records how many matches exist in the document but outside the requested
// scope, so callers can tell "text absent" from "text excluded by scope".
type NotFoundError struct {
	Query      string
	Scope      string // description of the scope that was applied, "" if none
	OutOfScope int    // matches present in the document but excluded by scope
	Err        error
}

func (e *NotFoundError) Error() string {
	if e.OutOfScope > 0 {
		return fmt.Sprintf("no match for %q in scope %s (%d match(es) exist outside the scope)",
			e.Query, e.Scope, e.OutOfScope)
	}
	if e.Scope != "" {
		return fmt.Sprintf("no match for %q in scope %s (none outside it either)", e.Query, e.Scope)
	}
	return fmt.Sprintf("no match for %q in document", e.Query)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// AmbiguousError reports multiple matches with no occurrence selection.
// Contexts holds a short surrounding-text excerpt per match, in document order.
type AmbiguousError struct {
	Query    string
	Contexts []string
	Err      error
}

func (e *AmbiguousError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d matches for %q; specify an occurrence:", len(e.Contexts), e.Query)
	for i, ctx := range e.Contexts {
		fmt.Fprintf(&b, "\n  %d: %s", i+1, ctx)
	}
	return b.String()
}

func (e *AmbiguousError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrAmbiguous
}

// StructureError reports a structural rule the staged edit would violate.
// Violations are human-readable descriptions collected by the validation gate.
type StructureError struct {
	Operation  string
	Violations []string
	Err        error
}

func (e *StructureError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("%s rejected: %s", e.Operation, e.Violations[0])
	}
	return fmt.Sprintf("%s rejected: %d structural violations: %s",
		e.Operation, len(e.Violations), strings.Join(e.Violations, "; "))
}

func (e *StructureError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidStructure
}

// AlreadyDeletedError reports a mutation whose target span lies entirely
// inside an active tracked deletion.
type AlreadyDeletedError struct {
	Text   string // the targeted text
	Author string // author of the enclosing deletion
	Err    error
}

func (e *AlreadyDeletedError) Error() string {
	if e.Author != "" {
		return fmt.Sprintf("target %q is already deleted (by %s)", e.Text, e.Author)
	}
	return fmt.Sprintf("target %q is already deleted", e.Text)
}

func (e *AlreadyDeletedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrAlreadyDeleted
}

// StorageError reports a container-level failure. Storage failures are fatal
// for the session; the container's persisted bytes are never touched.
type StorageError struct {
	Part    string // container part involved, e.g. "word/document.xml"
	Op      string // "open", "serialize", "validate", "persist"
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("storage %s failed for %s: %s", e.Op, e.Part, e.Message)
	}
	return fmt.Sprintf("storage %s failed: %s", e.Op, e.Message)
}

func (e *StorageError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrStorage
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// Is reports whether any error in err's chain matches target.
// Re-exported so callers don't need both this package and the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
