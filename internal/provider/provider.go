// Package provider implements per-CLI session discovery: file enumeration,
// JSONL header parsing, and the project-path/session-id rules that turn a
// raw transcript file into metadata the indexer can key a session on.
package provider

import "time"

// Name identifies a supported coding-assistant CLI.
type Name string

const (
	Claude   Name = "claude"
	Codex    Name = "codex"
	OpenCode Name = "opencode"
	Gemini   Name = "gemini"
	Kimi     Name = "kimi"
)

// Resumable reports whether sessions from this provider accept a "resume"
// argument on the CLI and therefore participate in terminal binding.
func (n Name) Resumable() bool {
	switch n {
	case Claude, Codex, OpenCode, Kimi:
		return true
	case Gemini:
		return false
	default:
		return false
	}
}

func (n Name) String() string { return string(n) }

// Meta is the pure, no-I/O result of parsing a session file's header.
type Meta struct {
	SessionID    string
	Cwd          string
	Title        string
	Summary      string
	CreatedAt    time.Time
	MessageCount int
}

// Adapter is implemented once per supported CLI.
type Adapter interface {
	Name() Name
	DisplayName() string
	HomeDir() string

	// ListSessionFiles enumerates all candidate transcript files owned by
	// this provider. I/O heavy; errors are logged by the caller and treated
	// as "this provider yielded no files for this scan".
	ListSessionFiles() ([]string, error)

	// ParseSessionFile is a pure function: no I/O, given file bytes already
	// read from disk by the caller.
	ParseSessionFile(data []byte, filePath string) (Meta, error)

	ResolveProjectPath(filePath string, meta Meta) string
	ExtractSessionID(filePath string, meta Meta) string
	IsValidSessionID(id string) bool
	SupportsResume() bool
}
