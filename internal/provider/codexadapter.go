package provider

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/brianly1003/cdev/internal/pathutil"
)

type codexAdapter struct {
	home string
}

// NewCodexAdapter builds the provider.Adapter for Codex CLI's flat
// rollout-*.jsonl layout under {home}/sessions.
func NewCodexAdapter() Adapter {
	return &codexAdapter{home: defaultCodexHome()}
}

func defaultCodexHome() string {
	if v := os.Getenv("CODEX_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".codex"
	}
	return filepath.Join(home, ".codex")
}

func (a *codexAdapter) Name() Name          { return Codex }
func (a *codexAdapter) DisplayName() string { return "Codex CLI" }
func (a *codexAdapter) HomeDir() string     { return a.home }
func (a *codexAdapter) SupportsResume() bool { return Codex.Resumable() }

func (a *codexAdapter) ListSessionFiles() ([]string, error) {
	root := filepath.Join(a.home, "sessions")
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // surfaced as a partial scan, matching the IoTransient policy
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), "rollout-") && strings.HasSuffix(d.Name(), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (a *codexAdapter) ParseSessionFile(data []byte, filePath string) (Meta, error) {
	return ScanJSONL(data, a.IsValidSessionID), nil
}

func (a *codexAdapter) ResolveProjectPath(filePath string, meta Meta) string {
	if pathutil.LooksLikePath(meta.Cwd) {
		return pathutil.Normalize(meta.Cwd)
	}
	return pathutil.Normalize(filepath.Dir(filePath))
}

// ExtractSessionID prefers the embedded id; Codex rollout filenames carry a
// timestamp plus id suffix rather than a bare UUID, so the filename is only
// consulted as a last resort (it is not this provider's primary id source).
func (a *codexAdapter) ExtractSessionID(filePath string, meta Meta) string {
	if meta.SessionID != "" && a.IsValidSessionID(meta.SessionID) {
		return meta.SessionID
	}
	name := strings.TrimSuffix(filepath.Base(filePath), ".jsonl")
	if idx := strings.LastIndex(name, "-"); idx != -1 && idx+1 < len(name) {
		if candidate := name[idx+1:]; a.IsValidSessionID(candidate) {
			return candidate
		}
	}
	return ""
}

// IsValidSessionID accepts any non-empty id, per spec §3 ("other providers
// accept any non-empty id").
func (a *codexAdapter) IsValidSessionID(id string) bool {
	return id != ""
}
