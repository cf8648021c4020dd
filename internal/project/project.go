// Package project persists optimization jobs and the stock inventory as
// JSON files.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// DefaultDir returns ~/.cutplan, or .cutplan when the home directory is
// unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cutplan")
}

// writeJSON writes v indented to path, creating parent directories.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}
