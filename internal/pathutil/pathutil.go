// Package pathutil resolves user-supplied filesystem paths.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandHomePath expands a leading "~" to the user's home directory and
// cleans the result. Paths without a tilde are cleaned unchanged.
func ExpandHomePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return filepath.Clean(p)
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return filepath.Clean(p)
	}
	if p == "~" {
		return filepath.Clean(home)
	}
	return filepath.Clean(filepath.Join(home, strings.TrimPrefix(p, "~/")))
}
