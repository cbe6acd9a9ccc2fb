// Package validation provides input validation for user-supplied paths and
// container part names, preventing path traversal and malformed archives.
package validation

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"
)

// MaxPathLength is the maximum allowed path length.
const MaxPathLength = 4096

// Common validation errors.
var (
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrInvalidPartName  = errors.New("invalid container part name")
)

// ValidatePath checks a user-supplied filesystem path for dangerous
// patterns, length limits, and invalid characters.
func ValidatePath(p string) error {
	if p == "" {
		return ErrEmptyPath
	}
	if len(p) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(p, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range p {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ValidatePartName checks a zip container part name. Part names are always
// slash-separated and relative; anything that could escape an extraction
// directory is rejected.
func ValidatePartName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPartName)
	}
	if err := ValidatePath(name); err != nil {
		return err
	}
	if strings.Contains(name, `\`) {
		return fmt.Errorf("%w: backslash in %q", ErrInvalidPartName, name)
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: absolute name %q", ErrInvalidPartName, name)
	}
	clean := path.Clean(name)
	if clean != name || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q escapes the container root", ErrPathTraversal, name)
	}
	return nil
}
