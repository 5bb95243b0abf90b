package provider

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/brianly1003/cdev/internal/pathutil"
)

type opencodeAdapter struct {
	home string
}

// NewOpenCodeAdapter builds the provider.Adapter for OpenCode, whose
// per-session metadata lives in one JSON file per session under
// {storageDir}/session/{projectID}/{sessionID}.json.
func NewOpenCodeAdapter() Adapter {
	return &opencodeAdapter{home: defaultOpenCodeStorageDir()}
}

func defaultOpenCodeStorageDir() string {
	if v := os.Getenv("OPENCODE_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".local", "share", "opencode", "storage")
	}
	for _, candidate := range openCodeStorageCandidates(home) {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return filepath.Join(home, ".local", "share", "opencode", "storage")
}

// openCodeStorageCandidates mirrors the forge OpenCode adapter's
// platform-ordered candidate search.
func openCodeStorageCandidates(home string) []string {
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = append(candidates, filepath.Join(home, "Library", "Application Support", "opencode", "storage"))
	case "linux":
		xdgData := os.Getenv("XDG_DATA_HOME")
		if xdgData == "" {
			xdgData = filepath.Join(home, ".local", "share")
		}
		candidates = append(candidates, filepath.Join(xdgData, "opencode", "storage"))
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			candidates = append(candidates, filepath.Join(localAppData, "opencode", "Data", "storage"))
		}
	}
	defaultPath := filepath.Join(home, ".local", "share", "opencode", "storage")
	if len(candidates) == 0 || candidates[len(candidates)-1] != defaultPath {
		candidates = append(candidates, defaultPath)
	}
	return candidates
}

func (a *opencodeAdapter) Name() Name          { return OpenCode }
func (a *opencodeAdapter) DisplayName() string { return "OpenCode" }
func (a *opencodeAdapter) HomeDir() string     { return a.home }
func (a *opencodeAdapter) SupportsResume() bool { return OpenCode.Resumable() }

func (a *opencodeAdapter) ListSessionFiles() ([]string, error) {
	sessionRoot := filepath.Join(a.home, "session")
	projectDirs, err := os.ReadDir(sessionRoot)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, pd := range projectDirs {
		if !pd.IsDir() {
			continue
		}
		dir := filepath.Join(sessionRoot, pd.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func (a *opencodeAdapter) ParseSessionFile(data []byte, filePath string) (Meta, error) {
	return ScanJSONObject(data, a.IsValidSessionID)
}

func (a *opencodeAdapter) ResolveProjectPath(filePath string, meta Meta) string {
	if pathutil.LooksLikePath(meta.Cwd) {
		return pathutil.Normalize(meta.Cwd)
	}
	// Fall back to the project-id directory name; OpenCode's own project
	// index maps that id back to a worktree path, which is out of scope
	// here (session.json itself rarely omits cwd/directory).
	return pathutil.Normalize(filepath.Base(filepath.Dir(filePath)))
}

func (a *opencodeAdapter) ExtractSessionID(filePath string, meta Meta) string {
	if meta.SessionID != "" && a.IsValidSessionID(meta.SessionID) {
		return meta.SessionID
	}
	base := strings.TrimSuffix(filepath.Base(filePath), ".json")
	if a.IsValidSessionID(base) {
		return base
	}
	return ""
}

func (a *opencodeAdapter) IsValidSessionID(id string) bool {
	return id != ""
}
