package pathutil

import (
	"regexp"
	"strings"
)

var (
	xmlPreambleRe   = regexp.MustCompile(`^<[a-zA-Z][a-zA-Z0-9_-]*>`)
	markdownHeaderRe = regexp.MustCompile(`(?i)^#\s*(agents|instructions|system)\b`)
	bracketModeRe   = regexp.MustCompile(`^\[MODE:\s*[^\]]+\]`)
	ideContextRe    = regexp.MustCompile(`(?i)^<ide[_-]?context>`)
	shellPromptRe   = regexp.MustCompile(`^[>$]\s+\S`)
	logDumpRe       = regexp.MustCompile(`^\d+[,.]?\s`)
)

// IsSystemContextMessage reports whether a trimmed user-message body looks
// like injected system/IDE context rather than a human-authored prompt, and
// is therefore ineligible as a session title.
func IsSystemContextMessage(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	if strings.Contains(trimmed, "You are an automated") {
		return true
	}
	switch {
	case ideContextRe.MatchString(trimmed):
		return true
	case xmlPreambleRe.MatchString(trimmed):
		return true
	case markdownHeaderRe.MatchString(trimmed):
		return true
	case bracketModeRe.MatchString(trimmed):
		return true
	case shellPromptRe.MatchString(trimmed):
		return true
	case logDumpRe.MatchString(trimmed):
		return true
	default:
		return false
	}
}
