package provider

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/brianly1003/cdev/internal/pathutil"
)

type geminiAdapter struct {
	home string
}

// NewGeminiAdapter builds the provider.Adapter for Gemini CLI, whose
// session files live as session-*.json under {home}/tmp/*/chats, grounded
// on the forge geminicli watcher's session-*.json glob.
func NewGeminiAdapter() Adapter {
	return &geminiAdapter{home: defaultGeminiHome()}
}

func defaultGeminiHome() string {
	if v := os.Getenv("GEMINI_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".gemini"
	}
	return filepath.Join(home, ".gemini")
}

func (a *geminiAdapter) Name() Name          { return Gemini }
func (a *geminiAdapter) DisplayName() string { return "Gemini CLI" }
func (a *geminiAdapter) HomeDir() string     { return a.home }
func (a *geminiAdapter) SupportsResume() bool { return Gemini.Resumable() }

// ListSessionFiles walks {home}/tmp/*/chats looking for session-*.json
// files, one JSON object per session (no resume support, so no binding
// participation, but still indexed for project listing).
func (a *geminiAdapter) ListSessionFiles() ([]string, error) {
	tmpRoot := filepath.Join(a.home, "tmp")
	hashDirs, err := os.ReadDir(tmpRoot)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, hd := range hashDirs {
		if !hd.IsDir() {
			continue
		}
		chatsDir := filepath.Join(tmpRoot, hd.Name(), "chats")
		entries, err := os.ReadDir(chatsDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasPrefix(name, "session-") || !strings.HasSuffix(name, ".json") {
				continue
			}
			files = append(files, filepath.Join(chatsDir, name))
		}
	}
	return files, nil
}

func (a *geminiAdapter) ParseSessionFile(data []byte, filePath string) (Meta, error) {
	return ScanJSONObject(data, a.IsValidSessionID)
}

func (a *geminiAdapter) ResolveProjectPath(filePath string, meta Meta) string {
	if pathutil.LooksLikePath(meta.Cwd) {
		return pathutil.Normalize(meta.Cwd)
	}
	// The hash-named directory two levels up encodes the project root but
	// is not reversible (it's a content hash, not an encoded path); fall
	// back to the chats directory itself so sessions still group together.
	return pathutil.Normalize(filepath.Dir(filePath))
}

func (a *geminiAdapter) ExtractSessionID(filePath string, meta Meta) string {
	if meta.SessionID != "" && a.IsValidSessionID(meta.SessionID) {
		return meta.SessionID
	}
	name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(filePath), "session-"), ".json")
	if a.IsValidSessionID(name) {
		return name
	}
	return ""
}

func (a *geminiAdapter) IsValidSessionID(id string) bool {
	return id != ""
}
