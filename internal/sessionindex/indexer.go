// Package sessionindex implements the filesystem-watching session index:
// it turns the JSONL/JSON transcript files each supported coding-assistant
// CLI leaves on disk into a live, deduplicated, per-project view of
// sessions (spec §3, §4).
package sessionindex

import (
	"context"
	"sync"
	"time"

	"github.com/brianly1003/cdev/internal/metacache"
	"github.com/brianly1003/cdev/internal/provider"
	"github.com/rs/zerolog/log"
)

// UpdateHandler receives the full, freshly-sorted project list whenever a
// scan changes the exposed state (spec §5 "onUpdate").
type UpdateHandler func(projects []Project)

// NewSessionHandler receives one session the first time it crosses the
// "new after initialization" boundary (spec §5 "onNewSession").
type NewSessionHandler func(session Session)

// Subscription is returned by OnUpdate/OnNewSession; call Unsubscribe to
// stop receiving callbacks.
type Subscription struct {
	unsubscribe func()
}

// Unsubscribe removes the associated handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Indexer is the single-writer-many-reader authority over the discovered
// session set for every registered provider. Zero value is not usable;
// construct with New.
type Indexer struct {
	adapters  []provider.Adapter
	cache     *metacache.Cache
	overrides OverrideStore
	env       EnvConfig

	mu               sync.Mutex
	sessions         map[Key]Session
	fileToKey        map[string]Key
	createdAtPinned  map[Key]time.Time
	knownKeys        map[Key]struct{}
	seenKeys         map[Key]time.Time
	projectsSnapshot []Project
	initialized      bool
	refreshing       bool
	refreshQueued    bool

	handlersMu         sync.Mutex
	nextHandlerID      int
	updateHandlers     map[int]UpdateHandler
	newSessionHandlers map[int]NewSessionHandler

	watchMu  sync.Mutex
	watchers []*rootWatcher
	cancel   context.CancelFunc
}

// Option configures an Indexer at construction time.
type Option func(*Indexer)

// WithOverrideStore wires a persisted override collaborator (spec §6.3).
// Without this option every session is exposed unmodified.
func WithOverrideStore(store OverrideStore) Option {
	return func(ix *Indexer) { ix.overrides = store }
}

// WithAdapters overrides the default provider.AllAdapters() set, mainly
// for tests that need a narrower or fake adapter list.
func WithAdapters(adapters []provider.Adapter) Option {
	return func(ix *Indexer) { ix.adapters = adapters }
}

// New constructs an Indexer. Call Refresh (or Start) before reading any
// state; an un-scanned Indexer exposes an empty project list.
func New(env EnvConfig, opts ...Option) *Indexer {
	ix := &Indexer{
		adapters:           provider.AllAdapters(),
		cache:              metacache.New(),
		overrides:          noopOverrideStore{},
		env:                env,
		sessions:           make(map[Key]Session),
		fileToKey:          make(map[string]Key),
		createdAtPinned:    make(map[Key]time.Time),
		knownKeys:          make(map[Key]struct{}),
		seenKeys:           make(map[Key]time.Time),
		updateHandlers:     make(map[int]UpdateHandler),
		newSessionHandlers: make(map[int]NewSessionHandler),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// OnUpdate registers a handler invoked after every scan whose result
// differs from the previously exposed state. The handler observes the
// already-committed state (it may safely call GetProjects()).
func (ix *Indexer) OnUpdate(h UpdateHandler) *Subscription {
	ix.handlersMu.Lock()
	defer ix.handlersMu.Unlock()
	id := ix.nextHandlerID
	ix.nextHandlerID++
	ix.updateHandlers[id] = h
	return &Subscription{unsubscribe: func() {
		ix.handlersMu.Lock()
		defer ix.handlersMu.Unlock()
		delete(ix.updateHandlers, id)
	}}
}

// OnNewSession registers a handler invoked once per session the first
// time it is observed after the Indexer finished its first full scan.
func (ix *Indexer) OnNewSession(h NewSessionHandler) *Subscription {
	ix.handlersMu.Lock()
	defer ix.handlersMu.Unlock()
	id := ix.nextHandlerID
	ix.nextHandlerID++
	ix.newSessionHandlers[id] = h
	return &Subscription{unsubscribe: func() {
		ix.handlersMu.Lock()
		defer ix.handlersMu.Unlock()
		delete(ix.newSessionHandlers, id)
	}}
}

// GetProjects returns the current exposed, sorted project list. The
// returned slice and its Sessions slices must be treated as read-only.
func (ix *Indexer) GetProjects() []Project {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.projectsSnapshot
}

// GetFilePathForSession returns the source transcript path backing key,
// if that session is currently live.
func (ix *Indexer) GetFilePathForSession(key Key) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	s, ok := ix.sessions[key]
	if !ok {
		return "", false
	}
	return s.SourceFile, true
}

// GetSession returns the current record for key, if live.
func (ix *Indexer) GetSession(key Key) (Session, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	s, ok := ix.sessions[key]
	return s, ok
}

// Refresh runs one full scan synchronously. Concurrent calls coalesce:
// a caller that arrives while a scan is already running marks a
// follow-up scan queued and returns immediately, without waiting for it;
// the in-flight call then runs exactly one more scan however many callers
// queued one.
func (ix *Indexer) Refresh() {
	ix.mu.Lock()
	if ix.refreshing {
		ix.refreshQueued = true
		ix.mu.Unlock()
		return
	}
	ix.refreshing = true
	ix.mu.Unlock()

	for {
		ix.runScanAndNotify()

		ix.mu.Lock()
		if ix.refreshQueued {
			ix.refreshQueued = false
			ix.mu.Unlock()
			continue
		}
		ix.refreshing = false
		ix.mu.Unlock()
		return
	}
}

func (ix *Indexer) runScanAndNotify() {
	ix.mu.Lock()
	changed, newSessions := ix.fullScanLocked()
	projects := ix.projectsSnapshot
	ix.initialized = true
	ix.mu.Unlock()

	if changed {
		ix.notifyUpdate(projects)
	}
	for _, s := range newSessions {
		ix.notifyNewSession(s)
	}
}

func (ix *Indexer) notifyUpdate(projects []Project) {
	ix.handlersMu.Lock()
	handlers := make([]UpdateHandler, 0, len(ix.updateHandlers))
	for _, h := range ix.updateHandlers {
		handlers = append(handlers, h)
	}
	ix.handlersMu.Unlock()

	for _, h := range handlers {
		safeCallUpdate(h, projects)
	}
}

func (ix *Indexer) notifyNewSession(s Session) {
	ix.handlersMu.Lock()
	handlers := make([]NewSessionHandler, 0, len(ix.newSessionHandlers))
	for _, h := range ix.newSessionHandlers {
		handlers = append(handlers, h)
	}
	ix.handlersMu.Unlock()

	for _, h := range handlers {
		safeCallNewSession(h, s)
	}
}

func safeCallUpdate(h UpdateHandler, projects []Project) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("sessionindex: onUpdate handler panicked")
		}
	}()
	h(projects)
}

func safeCallNewSession(h NewSessionHandler, s Session) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("sessionindex: onNewSession handler panicked")
		}
	}()
	h(s)
}

// Start runs an initial synchronous Refresh, then begins watching every
// provider's root directories and incrementally rescanning on change
// until ctx is cancelled or Stop is called.
func (ix *Indexer) Start(ctx context.Context) error {
	ix.Refresh()

	watchCtx, cancel := context.WithCancel(ctx)
	ix.watchMu.Lock()
	ix.cancel = cancel
	ix.watchMu.Unlock()

	for _, a := range ix.adapters {
		rw, err := newRootWatcher(a, ix.env.DebounceInterval, ix.handlePathChanged)
		if err != nil {
			log.Warn().Err(err).Str("provider", string(a.Name())).Msg("sessionindex: failed to watch provider root")
			continue
		}
		ix.watchMu.Lock()
		ix.watchers = append(ix.watchers, rw)
		ix.watchMu.Unlock()
		rw.start(watchCtx)
	}
	return nil
}

// Stop tears down every provider watcher. Safe to call on an Indexer
// that was never Started.
func (ix *Indexer) Stop() {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()
	if ix.cancel != nil {
		ix.cancel()
	}
	for _, rw := range ix.watchers {
		rw.stop()
	}
	ix.watchers = nil
}

// handlePathChanged is the debounced fsnotify callback: it rescans one
// file (spec §4.3 incremental scan), updates the live state, and fires
// onUpdate/onNewSession if anything changed. Directory events and files
// without a .json/.jsonl extension are ignored by rootWatcher before they
// reach here; other files are not checked against the adapter's own file
// naming.
func (ix *Indexer) handlePathChanged(a provider.Adapter, path string, removed bool) {
	ix.mu.Lock()
	changed, newSession := ix.incrementalScanLocked(a, path, removed)
	projects := ix.projectsSnapshot
	ix.mu.Unlock()

	if changed {
		ix.notifyUpdate(projects)
	}
	if newSession != nil {
		ix.notifyNewSession(*newSession)
	}
}
