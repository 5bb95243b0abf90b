package sessionindex

import (
	"sort"
	"time"

	"github.com/brianly1003/cdev/internal/provider"
)

// Session is the immutable session record produced per scan (spec §3).
type Session struct {
	Key          Key
	ProjectPath  string
	Cwd          string
	UpdatedAt    int64 // ms, source: filesystem mtime
	CreatedAt    time.Time
	MessageCount int
	Title        string
	Summary      string
	Archived     bool
	SourceFile   string
}

// Provider is a convenience accessor for Key.Provider.
func (s Session) Provider() provider.Name { return s.Key.Provider }

// Project is an ordered group of sessions sharing a ProjectPath.
type Project struct {
	Path     string
	Color    string
	Sessions []Session
}

// sortSessions orders sessions within a project by UpdatedAt descending,
// ties broken by SessionKey ascending (spec §3).
func sortSessions(sessions []Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].UpdatedAt != sessions[j].UpdatedAt {
			return sessions[i].UpdatedAt > sessions[j].UpdatedAt
		}
		return sessions[i].Key.String() < sessions[j].Key.String()
	})
}

// sortProjects orders project groups by the newest UpdatedAt among their
// sessions, descending; ties by ProjectPath ascending (spec §3).
func sortProjects(projects []Project) {
	sort.Slice(projects, func(i, j int) bool {
		a, b := newestUpdatedAt(projects[i]), newestUpdatedAt(projects[j])
		if a != b {
			return a > b
		}
		return projects[i].Path < projects[j].Path
	})
}

func newestUpdatedAt(p Project) int64 {
	var newest int64
	for _, s := range p.Sessions {
		if s.UpdatedAt > newest {
			newest = s.UpdatedAt
		}
	}
	return newest
}
