package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"simple", "doc.docx", nil},
		{"nested", "out/result.docx", nil},
		{"absolute", "/tmp/doc.docx", nil},
		{"empty", "", ErrEmptyPath},
		{"null byte", "doc\x00.docx", ErrInvalidCharacter},
		{"control char", "doc\x07.docx", ErrInvalidCharacter},
		{"too long", strings.Repeat("a", MaxPathLength+1), ErrPathTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePath(%q) = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePartName(t *testing.T) {
	tests := []struct {
		name    string
		part    string
		wantErr error
	}{
		{"document part", "word/document.xml", nil},
		{"rels", "_rels/.rels", nil},
		{"content types", "[Content_Types].xml", nil},
		{"empty", "", ErrInvalidPartName},
		{"absolute", "/etc/passwd", ErrInvalidPartName},
		{"traversal", "../outside.xml", ErrPathTraversal},
		{"inner traversal", "word/../../outside.xml", ErrPathTraversal},
		{"backslash", `word\document.xml`, ErrInvalidPartName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePartName(tt.part)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePartName(%q) = %v, want %v", tt.part, err, tt.wantErr)
			}
		})
	}
}
