// Package validation checks names before they are sent to the file store.
package validation

import (
	"fmt"
	"strings"
)

// ValidateFilename validates a bare file name (not a path). The store
// resolves names inside its own directory, so separators and ".." are
// rejected.
func ValidateFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if strings.ContainsRune(filename, 0) {
		return fmt.Errorf("filename contains null byte: %q", filename)
	}

	// Reject path separators (both Unix and Windows style)
	if strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("filename cannot contain path separators: %s", filename)
	}

	// Separators are already rejected, so only the literal ".." remains.
	// Names like "data..v2.csv" stay valid.
	if filename == ".." || filename == "." {
		return fmt.Errorf("filename cannot be %q", filename)
	}

	return nil
}
