package sessionindex

import (
	"os"
	"strconv"
	"time"
)

// EnvConfig holds the five spec-mandated environment knobs (spec §6),
// loaded directly from os.Getenv, grounded on codex.DefaultCodexHome()'s
// os.Getenv("CODEX_HOME") idiom.
type EnvConfig struct {
	ClaudeHome          string
	ClaudeCmd           string
	SeenSessionRetention time.Duration
	SeenSessionMax      int
	DebounceInterval    time.Duration
}

const (
	defaultSeenSessionRetention = 7 * 24 * time.Hour
	defaultSeenSessionMax       = 10000
	defaultDebounceInterval     = 250 * time.Millisecond
)

// LoadEnvConfig reads CLAUDE_HOME, CLAUDE_CMD,
// CLAUDE_SEEN_SESSION_RETENTION_MS, CLAUDE_SEEN_SESSION_MAX, and
// CLAUDE_INDEXER_DEBOUNCE_MS, falling back to their spec-mandated
// defaults when unset or unparsable.
func LoadEnvConfig() EnvConfig {
	cfg := EnvConfig{
		ClaudeHome:           os.Getenv("CLAUDE_HOME"),
		ClaudeCmd:            os.Getenv("CLAUDE_CMD"),
		SeenSessionRetention: defaultSeenSessionRetention,
		SeenSessionMax:       defaultSeenSessionMax,
		DebounceInterval:     defaultDebounceInterval,
	}

	if v := os.Getenv("CLAUDE_SEEN_SESSION_RETENTION_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			cfg.SeenSessionRetention = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("CLAUDE_SEEN_SESSION_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SeenSessionMax = n
		}
	}
	if v := os.Getenv("CLAUDE_INDEXER_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			cfg.DebounceInterval = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}
