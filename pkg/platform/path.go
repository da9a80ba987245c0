// Package platform normalizes path syntax differences between the
// environments rush runs in, kept separate from internal/expand's tilde
// expansion since callers here (cd, the completer) want a cleaned,
// absolute-ish path rather than expand's unquoted-word semantics.
package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// NormalizePath expands a leading ~ and cleans the result, letting cd and
// the completer share one notion of "the directory the user meant" instead
// of each re-implementing tilde handling.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	if strings.HasPrefix(path, "~") {
		home := os.Getenv("HOME")
		if home == "" {
			home, _ = os.UserHomeDir()
		}
		if home != "" {
			path = home + strings.TrimPrefix(path, "~")
		}
	}
	return filepath.Clean(path)
}

// IsAbsolute reports whether path is already rooted.
func IsAbsolute(path string) bool {
	return filepath.IsAbs(path)
}

// JoinPath joins path elements with the platform separator.
func JoinPath(elem ...string) string {
	return filepath.Join(elem...)
}
