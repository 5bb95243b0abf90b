package provider

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/brianly1003/cdev/internal/pathutil"
)

// kimiAdapter is modeled as a structural twin of codexAdapter: JSONL
// transcripts under {home}/sessions, cwd harvested from the header line,
// the embedded session id preferred and the file's base name used as the
// id only when the embedded one is missing. No transcript sample for Kimi CLI was
// available in the retrieved example corpus (see DESIGN.md); this shape
// is the closest documented provider layout in spec §4.1 for a CLI
// without a directory-per-project convention.
type kimiAdapter struct {
	home string
}

// NewKimiAdapter builds the provider.Adapter for Kimi CLI.
func NewKimiAdapter() Adapter {
	return &kimiAdapter{home: defaultKimiHome()}
}

func defaultKimiHome() string {
	if v := os.Getenv("KIMI_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".kimi"
	}
	return filepath.Join(home, ".kimi")
}

func (a *kimiAdapter) Name() Name          { return Kimi }
func (a *kimiAdapter) DisplayName() string { return "Kimi CLI" }
func (a *kimiAdapter) HomeDir() string     { return a.home }
func (a *kimiAdapter) SupportsResume() bool { return Kimi.Resumable() }

func (a *kimiAdapter) ListSessionFiles() ([]string, error) {
	root := filepath.Join(a.home, "sessions")
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (a *kimiAdapter) ParseSessionFile(data []byte, filePath string) (Meta, error) {
	return ScanJSONL(data, a.IsValidSessionID), nil
}

func (a *kimiAdapter) ResolveProjectPath(filePath string, meta Meta) string {
	if pathutil.LooksLikePath(meta.Cwd) {
		return pathutil.Normalize(meta.Cwd)
	}
	return pathutil.Normalize(filepath.Dir(filePath))
}

func (a *kimiAdapter) ExtractSessionID(filePath string, meta Meta) string {
	if meta.SessionID != "" && a.IsValidSessionID(meta.SessionID) {
		return meta.SessionID
	}
	base := strings.TrimSuffix(filepath.Base(filePath), ".jsonl")
	if a.IsValidSessionID(base) {
		return base
	}
	return ""
}

func (a *kimiAdapter) IsValidSessionID(id string) bool {
	return id != ""
}
