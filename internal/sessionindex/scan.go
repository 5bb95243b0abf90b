package sessionindex

import (
	"os"
	"sort"
	"time"

	"github.com/brianly1003/cdev/internal/pathutil"
	"github.com/brianly1003/cdev/internal/provider"
	"github.com/rs/zerolog/log"
)

// incrementalScanLocked re-resolves a single file after a debounced
// fsnotify event (spec §4.3 incremental scan). Caller must hold ix.mu.
// Handles the session-id migration case: if the file's embedded
// sessionId changed since the last scan, the old key's record and
// pinned-createdAt entry are dropped so the old identity does not
// linger as a phantom session.
func (ix *Indexer) incrementalScanLocked(a provider.Adapter, path string, removed bool) (changed bool, newSession *Session) {
	normPath := pathutil.Normalize(path)
	oldKey, hadOldKey := ix.fileToKey[normPath]

	dropOld := func() {
		if hadOldKey {
			delete(ix.sessions, oldKey)
			delete(ix.fileToKey, normPath)
		}
	}

	commit := func() bool {
		projects := groupIntoProjects(ix.sessions)
		changed := !sameProjects(projects, ix.projectsSnapshot)
		ix.projectsSnapshot = projects
		return changed
	}

	if removed {
		if !hadOldKey {
			return false, nil
		}
		dropOld()
		ix.cache.Invalidate(normPath)
		return commit(), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("sessionindex: incremental stat failed, leaving prior state")
		return false, nil
	}
	mtimeMs := info.ModTime().UnixMilli()
	size := info.Size()

	ix.cache.Invalidate(normPath)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("sessionindex: incremental read failed, leaving prior state")
		return false, nil
	}

	parsed, parseErr := a.ParseSessionFile(data, path)
	if parseErr != nil || parsed.Cwd == "" {
		ix.cache.Store(normPath, mtimeMs, size, nil)
		dropOld()
		return commit(), nil
	}
	metaCopy := parsed
	ix.cache.Store(normPath, mtimeMs, size, &metaCopy)

	pf := parsedFile{path: path, normPath: normPath, mtimeMs: mtimeMs, size: size, meta: &metaCopy}
	session, newKey, ok := ix.buildSession(a, pf)
	if !ok {
		dropOld()
		return commit(), nil
	}

	if hadOldKey && oldKey != newKey {
		log.Info().Str("path", path).Str("old_key", oldKey.String()).Str("new_key", newKey.String()).
			Msg("sessionindex: session id migrated for file")
		delete(ix.sessions, oldKey)
		delete(ix.knownKeys, oldKey)
		delete(ix.seenKeys, oldKey)
		delete(ix.createdAtPinned, oldKey)
	}

	ix.sessions[newKey] = session
	ix.fileToKey[normPath] = newKey
	changed = commit()

	now := time.Now()
	_, known := ix.knownKeys[newKey]
	_, seen := ix.seenKeys[newKey]
	if ix.initialized && !known && !seen {
		s := session
		newSession = &s
	}
	ix.seenKeys[newKey] = now
	ix.knownKeys[newKey] = struct{}{}
	ix.pruneSeenKeysLocked(now, ix.sessions)

	return changed, newSession
}

// parsedFile is the intermediate result of stat+cache+parse for one
// candidate file, before session-id validation and override application.
type parsedFile struct {
	path     string
	normPath string
	mtimeMs  int64
	size     int64
	meta     *provider.Meta
}

// scanProvider enumerates and stat+parses every candidate file for one
// adapter, consulting the shared metacache.Cache. I/O errors for
// individual files are logged and that file is simply omitted (IoTransient
// policy, spec §7); an unreadable provider root yields no files at all.
func (ix *Indexer) scanProvider(a provider.Adapter, seenPaths map[string]struct{}) []parsedFile {
	files, err := a.ListSessionFiles()
	if err != nil {
		log.Warn().Err(err).Str("provider", string(a.Name())).Msg("sessionindex: failed to list session files")
		return nil
	}

	var out []parsedFile
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("sessionindex: stat failed, dropping file from this scan")
			continue
		}

		normPath := pathutil.Normalize(path)
		seenPaths[normPath] = struct{}{}

		mtimeMs := info.ModTime().UnixMilli()
		size := info.Size()

		meta, ok := ix.cache.Lookup(normPath, mtimeMs, size)
		if !ok {
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("sessionindex: read failed, dropping file from this scan")
				continue
			}
			parsed, err := a.ParseSessionFile(data, path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("sessionindex: parse failed")
				ix.cache.Store(normPath, mtimeMs, size, nil)
				meta = nil
			} else if parsed.Cwd == "" {
				ix.cache.Store(normPath, mtimeMs, size, nil)
				meta = nil
			} else {
				metaCopy := parsed
				ix.cache.Store(normPath, mtimeMs, size, &metaCopy)
				meta = &metaCopy
			}
		}

		out = append(out, parsedFile{path: path, normPath: normPath, mtimeMs: mtimeMs, size: size, meta: meta})
	}
	return out
}

// buildSession constructs a Session from one parsed file, honoring the
// pinned-createdAt invariant (I6) and applying overrides last. Returns
// ok=false if the file is an orphan (no cwd) or its session id fails
// validation (I1, I2).
func (ix *Indexer) buildSession(a provider.Adapter, pf parsedFile) (Session, Key, bool) {
	if pf.meta == nil || pf.meta.Cwd == "" {
		return Session{}, Key{}, false
	}

	id := a.ExtractSessionID(pf.path, *pf.meta)
	if id == "" || !a.IsValidSessionID(id) {
		log.Warn().Str("path", pf.path).Str("provider", string(a.Name())).
			Msg("sessionindex: invalid or missing session id, skipping file")
		return Session{}, Key{}, false
	}

	key := Key{Provider: a.Name(), SessionID: id}

	createdAt, pinned := ix.createdAtPinned[key]
	if !pinned {
		createdAt = pf.meta.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.UnixMilli(pf.mtimeMs)
		}
		ix.createdAtPinned[key] = createdAt
	}

	session := Session{
		Key:          key,
		ProjectPath:  pathutil.Normalize(a.ResolveProjectPath(pf.path, *pf.meta)),
		Cwd:          pf.meta.Cwd,
		UpdatedAt:    pf.mtimeMs,
		CreatedAt:    createdAt,
		MessageCount: pf.meta.MessageCount,
		Title:        pf.meta.Title,
		Summary:      pf.meta.Summary,
		SourceFile:   pf.path,
	}

	if override, ok := ix.overrides.Get(key); ok {
		merged, deleted := ApplyOverride(session, override)
		if deleted {
			return Session{}, Key{}, false
		}
		session = merged
	}

	return session, key, true
}

// fullScanLocked performs the full-scan algorithm (spec §4.3). Caller must
// hold ix.mu. Returns whether the exposed projects changed and the list of
// newly-detected sessions (sorted, ready for onNewSession).
func (ix *Indexer) fullScanLocked() (changed bool, newSessions []Session) {
	seenPaths := make(map[string]struct{})
	newFileToKey := make(map[string]Key)
	newSessionsMap := make(map[Key]Session)

	for _, a := range ix.adapters {
		parsedFiles := ix.scanProvider(a, seenPaths)
		for _, pf := range parsedFiles {
			session, key, ok := ix.buildSession(a, pf)
			if !ok {
				continue
			}
			newFileToKey[pf.normPath] = key
			newSessionsMap[key] = session
		}
	}

	ix.cache.Sweep(seenPaths)

	newlyDetected := ix.reconcileLocked(newSessionsMap)

	projects := groupIntoProjects(newSessionsMap)
	changed = !sameProjects(projects, ix.projectsSnapshot)

	ix.sessions = newSessionsMap
	ix.fileToKey = newFileToKey
	ix.projectsSnapshot = projects

	return changed, newlyDetected
}

// reconcileLocked updates knownKeys/seenKeys against the freshly scanned
// session set and returns the sessions that cross the "new after
// initialization" boundary (spec §4.3 "New session detection"). Caller
// must hold ix.mu.
func (ix *Indexer) reconcileLocked(newSessionsMap map[Key]Session) []Session {
	now := time.Now()
	var newlyDetected []Session

	for key, session := range newSessionsMap {
		_, known := ix.knownKeys[key]
		_, seen := ix.seenKeys[key]
		if ix.initialized && !known && !seen {
			newlyDetected = append(newlyDetected, session)
		}
		ix.seenKeys[key] = now
	}

	ix.pruneSeenKeysLocked(now, newSessionsMap)

	ix.knownKeys = make(map[Key]struct{}, len(newSessionsMap))
	for key := range newSessionsMap {
		ix.knownKeys[key] = struct{}{}
	}

	sort.Slice(newlyDetected, func(i, j int) bool {
		if newlyDetected[i].UpdatedAt != newlyDetected[j].UpdatedAt {
			return newlyDetected[i].UpdatedAt < newlyDetected[j].UpdatedAt
		}
		return newlyDetected[i].Key.String() < newlyDetected[j].Key.String()
	})
	return newlyDetected
}

// pruneSeenKeysLocked evicts seenKeys entries past the retention window,
// then trims down to the configured cap by discarding the oldest. A key
// that is also absent from the live session set has its pinned-createdAt
// entry released at the same time (Destroyed lifecycle, spec §3).
func (ix *Indexer) pruneSeenKeysLocked(now time.Time, live map[Key]Session) {
	for key, lastSeen := range ix.seenKeys {
		if now.Sub(lastSeen) > ix.env.SeenSessionRetention {
			delete(ix.seenKeys, key)
			if _, stillLive := live[key]; !stillLive {
				delete(ix.createdAtPinned, key)
			}
		}
	}

	if len(ix.seenKeys) <= ix.env.SeenSessionMax {
		return
	}

	type keyed struct {
		key      Key
		lastSeen time.Time
	}
	all := make([]keyed, 0, len(ix.seenKeys))
	for k, t := range ix.seenKeys {
		all = append(all, keyed{k, t})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].lastSeen.Before(all[j].lastSeen) })

	excess := len(all) - ix.env.SeenSessionMax
	for i := 0; i < excess; i++ {
		delete(ix.seenKeys, all[i].key)
		if _, stillLive := live[all[i].key]; !stillLive {
			delete(ix.createdAtPinned, all[i].key)
		}
	}
}

func groupIntoProjects(sessions map[Key]Session) []Project {
	byPath := make(map[string][]Session)
	for _, s := range sessions {
		byPath[s.ProjectPath] = append(byPath[s.ProjectPath], s)
	}

	projects := make([]Project, 0, len(byPath))
	for path, group := range byPath {
		sortSessions(group)
		projects = append(projects, Project{Path: path, Sessions: group})
	}
	sortProjects(projects)
	return projects
}

// sameProjects reports whether two (already-sorted) project slices are
// observationally equivalent, used for the P5/P6 idempotence checks and
// to decide whether onUpdate should fire at all.
func sameProjects(a, b []Project) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Path != b[i].Path || len(a[i].Sessions) != len(b[i].Sessions) {
			return false
		}
		for j := range a[i].Sessions {
			if a[i].Sessions[j] != b[i].Sessions[j] {
				return false
			}
		}
	}
	return true
}
