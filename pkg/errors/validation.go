package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// elementNameRegex matches valid MaterialX element names.
var elementNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateElementName validates the name of a document element, such as a
// renderable selected with --element or through the API.
func ValidateElementName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidElement, "element name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidElement, "element name too long (max 256 characters)")
	}
	if !elementNameRegex.MatchString(name) {
		return New(ErrCodeInvalidElement, "invalid element name: %q", name)
	}
	return nil
}

// ValidateOutputPath validates a path the generator is about to write.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - Must not name a directory (trailing separator)
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "output path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) {
		return New(ErrCodeInvalidPath, "output path must name a file, not a directory")
	}

	return nil
}

// ValidateRelativePath validates a path that must stay inside a root, such
// as an xi:include href or an implementation file reference.
//
// Validation rules:
//   - Path cannot be empty
//   - No null bytes or control characters
//   - No absolute paths
//   - No parent directory traversal
func ValidateRelativePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") || filepath.IsAbs(path) {
		return New(ErrCodeInvalidPath, "path must be relative: %q", path)
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	return nil
}
