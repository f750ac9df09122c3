package images

import (
	"path/filepath"
	"strings"
)

// Icon families and vector/animation formats that never get responsive
// variants. Icons are produced at exact pixel sizes by the icons
// package, and .svg/.gif files are served as authored.
var (
	skipPrefixes = []string{
		"favicon",
		"apple-touch-icon",
		"android-chrome",
		"mstile",
		"safari-pinned-tab",
	}

	skipExts = map[string]bool{
		".svg": true,
		".gif": true,
	}
)

// ShouldSkip reports whether the file is excluded from variant
// generation. Matching is case-insensitive on the basename. Skipped
// files are invisible to the engine: never processed, never counted.
func ShouldSkip(name string) bool {
	if IsIconFamily(name) {
		return true
	}
	return skipExts[filepath.Ext(strings.ToLower(name))]
}

// IsIconFamily reports whether name belongs to one of the generated
// icon families.
func IsIconFamily(name string) bool {
	base := strings.ToLower(filepath.Base(name))
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}
	return false
}
