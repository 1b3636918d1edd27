// Package filesystem holds small path helpers shared by the stores and
// loaders.
package filesystem

import (
	"os"
	"path/filepath"
)

// UserHomeDir returns the current user's home directory, falling back to "."
// when it cannot be determined.
func UserHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// ExpandPath resolves a leading "~/" against the home directory and cleans
// relative paths. Absolute paths pass through untouched.
func ExpandPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if len(path) > 1 && path[:2] == "~/" {
		return filepath.Join(UserHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}
