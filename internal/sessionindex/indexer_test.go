package sessionindex

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianly1003/cdev/internal/provider"
)

// fakeAdapter is a minimal provider.Adapter backed by a temp directory,
// used so Indexer tests never touch a real CLI's home directory.
type fakeAdapter struct {
	root string
}

func newFakeAdapter(t *testing.T) *fakeAdapter {
	return &fakeAdapter{root: t.TempDir()}
}

func (f *fakeAdapter) Name() provider.Name  { return provider.Claude }
func (f *fakeAdapter) DisplayName() string  { return "Fake" }
func (f *fakeAdapter) HomeDir() string      { return f.root }
func (f *fakeAdapter) SupportsResume() bool { return true }

func (f *fakeAdapter) ListSessionFiles() ([]string, error) {
	var out []string
	err := filepath.Walk(f.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".jsonl" {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

func (f *fakeAdapter) ParseSessionFile(data []byte, filePath string) (provider.Meta, error) {
	return provider.ScanJSONL(data, f.IsValidSessionID), nil
}

func (f *fakeAdapter) ResolveProjectPath(filePath string, meta provider.Meta) string {
	return meta.Cwd
}

func (f *fakeAdapter) ExtractSessionID(filePath string, meta provider.Meta) string {
	return meta.SessionID
}

func (f *fakeAdapter) IsValidSessionID(id string) bool { return id != "" }

func writeSessionFile(t *testing.T, dir, name string, lines ...map[string]interface{}) string {
	t.Helper()
	path := filepath.Join(dir, name)
	var data []byte
	for _, l := range lines {
		b, err := json.Marshal(l)
		if err != nil {
			t.Fatal(err)
		}
		data = append(data, b...)
		data = append(data, '\n')
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testEnv() EnvConfig {
	return EnvConfig{
		SeenSessionRetention: time.Hour,
		SeenSessionMax:       1000,
		DebounceInterval:     10 * time.Millisecond,
	}
}

func TestRefreshExposesSessionFromFullScan(t *testing.T) {
	a := newFakeAdapter(t)
	writeSessionFile(t, a.root, "s1.jsonl",
		map[string]interface{}{"sessionId": "sess-1", "cwd": "/repo/a", "title": "hello"},
	)

	ix := New(testEnv(), WithAdapters([]provider.Adapter{a}))
	ix.Refresh()

	projects := ix.GetProjects()
	if len(projects) != 1 || len(projects[0].Sessions) != 1 {
		t.Fatalf("got %+v, want one project with one session", projects)
	}
	if projects[0].Sessions[0].Key.SessionID != "sess-1" {
		t.Errorf("session id = %q", projects[0].Sessions[0].Key.SessionID)
	}
}

func TestOrphanFileWithoutCwdIsDropped(t *testing.T) {
	a := newFakeAdapter(t)
	writeSessionFile(t, a.root, "orphan.jsonl",
		map[string]interface{}{"sessionId": "sess-1", "title": "no cwd here"},
	)

	ix := New(testEnv(), WithAdapters([]provider.Adapter{a}))
	ix.Refresh()

	if projects := ix.GetProjects(); len(projects) != 0 {
		t.Fatalf("expected no projects for orphan file, got %+v", projects)
	}
}

func TestOnUpdateFiresOnlyWhenStateChanges(t *testing.T) {
	a := newFakeAdapter(t)
	writeSessionFile(t, a.root, "s1.jsonl",
		map[string]interface{}{"sessionId": "sess-1", "cwd": "/repo/a"},
	)

	ix := New(testEnv(), WithAdapters([]provider.Adapter{a}))
	updates := 0
	ix.OnUpdate(func(projects []Project) { updates++ })

	ix.Refresh()
	ix.Refresh()

	if updates != 1 {
		t.Errorf("updates = %d, want 1 (second scan is a no-op)", updates)
	}
}

func TestOnNewSessionFiresOnceAfterInitialization(t *testing.T) {
	a := newFakeAdapter(t)

	ix := New(testEnv(), WithAdapters([]provider.Adapter{a}))
	var newSessions []Session
	ix.OnNewSession(func(s Session) { newSessions = append(newSessions, s) })

	ix.Refresh() // nothing on disk yet: establishes baseline, no "new" sessions

	writeSessionFile(t, a.root, "s1.jsonl",
		map[string]interface{}{"sessionId": "sess-1", "cwd": "/repo/a"},
	)
	ix.Refresh()
	ix.Refresh() // unchanged: must not re-fire

	if len(newSessions) != 1 {
		t.Fatalf("newSessions = %+v, want exactly one", newSessions)
	}
	if newSessions[0].Key.SessionID != "sess-1" {
		t.Errorf("session id = %q", newSessions[0].Key.SessionID)
	}
}

func TestCreatedAtIsPinnedAcrossScans(t *testing.T) {
	a := newFakeAdapter(t)
	path := writeSessionFile(t, a.root, "s1.jsonl",
		map[string]interface{}{"sessionId": "sess-1", "cwd": "/repo/a", "timestamp": float64(1700000000)},
	)

	ix := New(testEnv(), WithAdapters([]provider.Adapter{a}))
	ix.Refresh()

	first, ok := ix.GetSession(Key{Provider: provider.Claude, SessionID: "sess-1"})
	if !ok {
		t.Fatal("session not found after first scan")
	}

	// Rewrite with a later mtime and a different (wrong/regressed) timestamp;
	// the pinned createdAt must not move.
	time.Sleep(5 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"sessionId":"sess-1","cwd":"/repo/a","timestamp":1800000000}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ix.Refresh()

	second, ok := ix.GetSession(Key{Provider: provider.Claude, SessionID: "sess-1"})
	if !ok {
		t.Fatal("session not found after second scan")
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("createdAt moved from %v to %v, want pinned", first.CreatedAt, second.CreatedAt)
	}
}

func TestIncrementalScanUpsertsAndRemoves(t *testing.T) {
	a := newFakeAdapter(t)
	path := writeSessionFile(t, a.root, "s1.jsonl",
		map[string]interface{}{"sessionId": "sess-1", "cwd": "/repo/a"},
	)

	ix := New(testEnv(), WithAdapters([]provider.Adapter{a}))
	ix.Refresh()

	if _, ok := ix.GetSession(Key{Provider: provider.Claude, SessionID: "sess-1"}); !ok {
		t.Fatal("expected session present after full scan")
	}

	path2 := writeSessionFile(t, a.root, "s2.jsonl",
		map[string]interface{}{"sessionId": "sess-2", "cwd": "/repo/a"},
	)
	ix.mu.Lock()
	upserted, _ := ix.incrementalScanLocked(a, path2, false)
	ix.mu.Unlock()

	if !upserted {
		t.Error("expected change after incremental upsert")
	}
	if _, ok := ix.GetSession(Key{Provider: provider.Claude, SessionID: "sess-2"}); !ok {
		t.Error("expected session present after incremental upsert")
	}

	ix.mu.Lock()
	changed, _ := ix.incrementalScanLocked(a, path, true)
	ix.mu.Unlock()

	if !changed {
		t.Error("expected change after incremental removal")
	}
	if _, ok := ix.GetSession(Key{Provider: provider.Claude, SessionID: "sess-1"}); ok {
		t.Error("expected session gone after incremental removal")
	}
}

func TestIncrementalScanMigratesSessionID(t *testing.T) {
	a := newFakeAdapter(t)
	path := writeSessionFile(t, a.root, "s1.jsonl",
		map[string]interface{}{"sessionId": "sess-1", "cwd": "/repo/a"},
	)

	ix := New(testEnv(), WithAdapters([]provider.Adapter{a}))
	ix.Refresh()

	if err := os.WriteFile(path, []byte(`{"sessionId":"sess-2","cwd":"/repo/a"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ix.mu.Lock()
	ix.incrementalScanLocked(a, path, false)
	ix.mu.Unlock()

	if _, ok := ix.GetSession(Key{Provider: provider.Claude, SessionID: "sess-1"}); ok {
		t.Error("old session id should no longer be present after migration")
	}
	if _, ok := ix.GetSession(Key{Provider: provider.Claude, SessionID: "sess-2"}); !ok {
		t.Error("new session id should be present after migration")
	}
}

func TestOverrideDeletedSessionIsNotExposed(t *testing.T) {
	a := newFakeAdapter(t)
	writeSessionFile(t, a.root, "s1.jsonl",
		map[string]interface{}{"sessionId": "sess-1", "cwd": "/repo/a"},
	)

	store := fakeOverrideStore{overrides: map[Key]Override{
		{Provider: provider.Claude, SessionID: "sess-1"}: {Deleted: true},
	}}

	ix := New(testEnv(), WithAdapters([]provider.Adapter{a}), WithOverrideStore(store))
	ix.Refresh()

	if projects := ix.GetProjects(); len(projects) != 0 {
		t.Fatalf("expected deleted override to suppress session, got %+v", projects)
	}
}

func TestOverrideTitleIsApplied(t *testing.T) {
	a := newFakeAdapter(t)
	writeSessionFile(t, a.root, "s1.jsonl",
		map[string]interface{}{"sessionId": "sess-1", "cwd": "/repo/a", "title": "original"},
	)

	overriddenTitle := "renamed by user"
	store := fakeOverrideStore{overrides: map[Key]Override{
		{Provider: provider.Claude, SessionID: "sess-1"}: {TitleOverride: &overriddenTitle},
	}}

	ix := New(testEnv(), WithAdapters([]provider.Adapter{a}), WithOverrideStore(store))
	ix.Refresh()

	s, ok := ix.GetSession(Key{Provider: provider.Claude, SessionID: "sess-1"})
	if !ok {
		t.Fatal("session not found")
	}
	if s.Title != overriddenTitle {
		t.Errorf("title = %q, want %q", s.Title, overriddenTitle)
	}
}

type fakeOverrideStore struct {
	overrides map[Key]Override
}

func (f fakeOverrideStore) Get(key Key) (Override, bool) {
	o, ok := f.overrides[key]
	return o, ok
}
