package provider

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/brianly1003/cdev/internal/pathutil"
)

// claudeUUIDPattern mirrors internal/adapters/claude/sessions.go's
// uuidPattern, minus the filename's ".jsonl" suffix requirement (the
// provider interface validates bare ids, not filenames).
var claudeUUIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

type claudeAdapter struct {
	home string
}

// NewClaudeAdapter builds the provider.Adapter for Claude Code's
// directory-per-project transcript layout.
func NewClaudeAdapter() Adapter {
	return &claudeAdapter{home: defaultClaudeHome()}
}

func defaultClaudeHome() string {
	if v := os.Getenv("CLAUDE_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claude"
	}
	return filepath.Join(home, ".claude")
}

func (a *claudeAdapter) Name() Name         { return Claude }
func (a *claudeAdapter) DisplayName() string { return "Claude Code" }
func (a *claudeAdapter) HomeDir() string    { return a.home }
func (a *claudeAdapter) SupportsResume() bool { return Claude.Resumable() }

// ListSessionFiles walks {home}/projects/{slug}/*.jsonl across every
// project slug, not just one repo — unlike claude.ListSessions, which is
// scoped to a single repo path, the indexer needs every session on disk.
func (a *claudeAdapter) ListSessionFiles() ([]string, error) {
	projectsDir := filepath.Join(a.home, "projects")
	slugs, err := os.ReadDir(projectsDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, slug := range slugs {
		if !slug.IsDir() {
			continue
		}
		dir := filepath.Join(projectsDir, slug.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
				continue
			}
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func (a *claudeAdapter) ParseSessionFile(data []byte, filePath string) (Meta, error) {
	return ScanJSONL(data, a.IsValidSessionID), nil
}

// ResolveProjectPath follows spec §6's probing order; Meta only carries
// Cwd among those candidate fields, so the cwd harvested by ScanJSONL is
// tried first, falling back to decoding the slug directory name the same
// lossy way internal/adapters/codex/index.go's decodeProjectPath does.
func (a *claudeAdapter) ResolveProjectPath(filePath string, meta Meta) string {
	if pathutil.LooksLikePath(meta.Cwd) {
		return pathutil.Normalize(meta.Cwd)
	}
	slug := filepath.Base(filepath.Dir(filePath))
	return pathutil.Normalize(decodeSlug(slug))
}

func decodeSlug(encoded string) string {
	if strings.HasPrefix(encoded, "-") {
		return string(filepath.Separator) + strings.ReplaceAll(encoded[1:], "-", string(filepath.Separator))
	}
	return strings.ReplaceAll(encoded, "-", string(filepath.Separator))
}

// ExtractSessionID prefers the embedded id harvested from the transcript
// and falls back to the filename's UUID when the embedded id is missing or
// invalid, the same precedence every other adapter uses (see DESIGN.md).
func (a *claudeAdapter) ExtractSessionID(filePath string, meta Meta) string {
	if meta.SessionID != "" && a.IsValidSessionID(meta.SessionID) {
		return meta.SessionID
	}
	base := strings.TrimSuffix(filepath.Base(filePath), ".jsonl")
	if a.IsValidSessionID(base) {
		return base
	}
	return ""
}

func (a *claudeAdapter) IsValidSessionID(id string) bool {
	return claudeUUIDPattern.MatchString(id)
}
