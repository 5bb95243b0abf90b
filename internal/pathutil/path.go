package pathutil

import (
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

var (
	windowsDriveRe = regexp.MustCompile(`^[a-zA-Z]:[\\/]`)
	urlSchemeRe    = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
)

// LooksLikePath reports whether s plausibly denotes a filesystem path
// rather than some other string value harvested from a transcript line.
func LooksLikePath(s string) bool {
	if s == "" {
		return false
	}
	if urlSchemeRe.MatchString(s) {
		return false
	}
	if s == "~" || s == "." || s == ".." {
		return true
	}
	if strings.ContainsAny(s, "/\\") {
		return true
	}
	return windowsDriveRe.MatchString(s)
}

// Normalize resolves path to an absolute, separator-collapsed form, and
// lower-cases it on platforms with case-insensitive filesystems (Windows
// and macOS). On Linux the case is left intact.
func Normalize(path string) string {
	abs := toAbsolute(path)
	abs = strings.TrimRight(abs, `/\`)
	if abs == "" {
		abs = "/"
	}
	if caseInsensitiveFS() {
		abs = strings.ToLower(abs)
	}
	return abs
}

func caseInsensitiveFS() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

func toAbsolute(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
