// Package security guards file writes against paths that escape their
// intended directory.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Within returns an error unless target resolves to boundary or a path below it.
func Within(boundary, target string) error {
	absBoundary, err := filepath.Abs(boundary)
	if err != nil {
		return fmt.Errorf("failed to resolve boundary path %q: %w", boundary, err)
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("failed to resolve target path %q: %w", target, err)
	}

	rel, err := filepath.Rel(absBoundary, absTarget)
	if err != nil {
		return fmt.Errorf("invalid path relationship between %q and %q: %w", absBoundary, absTarget, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected: %q escapes %q", target, boundary)
	}
	return nil
}

// Join joins a relative path onto boundary and rejects results outside it.
func Join(boundary, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %q must be relative", rel)
	}
	full := filepath.Join(boundary, filepath.FromSlash(rel))
	if err := Within(boundary, full); err != nil {
		return "", err
	}
	return full, nil
}
