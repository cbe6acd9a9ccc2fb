package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "no scope",
			err:      &NotFoundError{Query: "Contract"},
			wantMsg:  `no match for "Contract" in document`,
			wantBase: ErrNotFound,
		},
		{
			name:     "scoped with outside matches",
			err:      &NotFoundError{Query: "Contract", Scope: `section:"Executive Summary"`, OutOfScope: 2},
			wantMsg:  `no match for "Contract" in scope section:"Executive Summary" (2 match(es) exist outside the scope)`,
			wantBase: ErrNotFound,
		},
		{
			name:     "scoped and truly absent",
			err:      &NotFoundError{Query: "Contract", Scope: "style:Heading1"},
			wantMsg:  `no match for "Contract" in scope style:Heading1 (none outside it either)`,
			wantBase: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, tt.wantBase) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.wantBase)
			}
		})
	}
}

func TestAmbiguousError(t *testing.T) {
	err := &AmbiguousError{
		Query:    "the",
		Contexts: []string{"...the quick...", "...over the lazy..."},
	}
	msg := err.Error()
	if !strings.Contains(msg, "2 matches") {
		t.Errorf("Error() = %q, want match count", msg)
	}
	if !strings.Contains(msg, "1: ...the quick...") || !strings.Contains(msg, "2: ...over the lazy...") {
		t.Errorf("Error() = %q, want enumerated contexts", msg)
	}
	if !errors.Is(err, ErrAmbiguous) {
		t.Error("AmbiguousError should unwrap to ErrAmbiguous")
	}
}

func TestStructureError(t *testing.T) {
	single := &StructureError{Operation: "delete", Violations: []string{"deletion nested in deletion"}}
	if got := single.Error(); got != "delete rejected: deletion nested in deletion" {
		t.Errorf("Error() = %q", got)
	}

	multi := &StructureError{Operation: "move", Violations: []string{"unpaired marker 3", "duplicate id 7"}}
	if !strings.Contains(multi.Error(), "2 structural violations") {
		t.Errorf("Error() = %q, want violation count", multi.Error())
	}
	if !errors.Is(multi, ErrInvalidStructure) {
		t.Error("StructureError should unwrap to ErrInvalidStructure")
	}
}

func TestAlreadyDeletedError(t *testing.T) {
	err := &AlreadyDeletedError{Text: "obsolete clause", Author: "Reviewer A"}
	if got := err.Error(); got != `target "obsolete clause" is already deleted (by Reviewer A)` {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrAlreadyDeleted) {
		t.Error("AlreadyDeletedError should unwrap to ErrAlreadyDeleted")
	}
}

func TestStorageError(t *testing.T) {
	err := &StorageError{Part: "word/document.xml", Op: "open", Message: "not a zip archive"}
	if got := err.Error(); got != "storage open failed for word/document.xml: not a zip archive" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrStorage) {
		t.Error("StorageError should unwrap to ErrStorage")
	}
}

func TestWrappedChain(t *testing.T) {
	inner := New("boom")
	err := &StorageError{Op: "persist", Message: "write failed", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("wrapped error should be reachable through the chain")
	}
	var se *StorageError
	if !As(err, &se) {
		t.Error("As should find StorageError in chain")
	}
}
