// Package association implements the Association Coordinator: the logic
// deciding when a freshly indexed session should be offered for binding,
// with watermark-based deduplication across re-scans (spec §4.5).
package association

import (
	"sort"
	"sync"
	"time"

	"github.com/brianly1003/cdev/internal/binding"
	"github.com/brianly1003/cdev/internal/provider"
	"github.com/brianly1003/cdev/internal/sessionindex"
	"github.com/rs/zerolog/log"
)

// DefaultMaxAssociationAge bounds how much later than a session's
// updatedAt a candidate terminal's createdAt may be and still be offered
// for binding — a stale session must not rebind a freshly spawned
// terminal created for a different run (spec §4.5).
const DefaultMaxAssociationAge = 30 * time.Second

// Registry is the external terminal registry collaborator (spec §4.5,
// out of scope to implement here beyond its interface).
type Registry interface {
	// FindUnassociatedTerminals returns running, unbound terminals whose
	// mode matches p and whose cwd matches cwd after normalization,
	// oldest-first.
	FindUnassociatedTerminals(p provider.Name, cwd string) ([]binding.Terminal, error)

	// BindSession delegates to the Binding Authority.
	BindSession(terminal binding.TerminalID, key sessionindex.Key) binding.BindResult
}

// Coordinator composes a Registry and tracks per-session watermarks.
type Coordinator struct {
	registry            Registry
	maxAssociationAge   time.Duration
	mu                  sync.Mutex
	watermarks          map[sessionindex.Key]int64
}

// Option configures a Coordinator at construction time.
type Option func(*Coordinator)

// WithMaxAssociationAge overrides DefaultMaxAssociationAge.
func WithMaxAssociationAge(d time.Duration) Option {
	return func(c *Coordinator) { c.maxAssociationAge = d }
}

// New creates a Coordinator bound to the given terminal registry.
func New(registry Registry, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry:          registry,
		maxAssociationAge: DefaultMaxAssociationAge,
		watermarks:        make(map[sessionindex.Key]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AssociateResult is the outcome of associateSingleSession.
type AssociateResult struct {
	Associated bool
	TerminalID binding.TerminalID
}

// isEligible reports whether s can ever participate in binding, regardless
// of watermark state: its provider must be resumable and it must carry a
// cwd (spec §4.5).
func isEligible(s sessionindex.Session) bool {
	return s.Provider().Resumable() && s.Cwd != ""
}

// CollectNewOrAdvanced filters projects for candidate sessions — eligible
// sessions whose updatedAt strictly exceeds their stored watermark — and
// advances the watermark for each one accepted. Pure aside from the
// watermark mutation; iteration order follows the projects/session sort
// already applied by the indexer.
func (c *Coordinator) CollectNewOrAdvanced(projects []sessionindex.Project) []sessionindex.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	var candidates []sessionindex.Session
	for _, p := range projects {
		for _, s := range p.Sessions {
			if c.isCandidateLocked(s) {
				c.advanceLocked(s)
				candidates = append(candidates, s)
			}
		}
	}
	return candidates
}

// NoteSession applies the same candidate test to a single session, used by
// the incremental (debounced) scan path. Returns true and advances the
// watermark iff s is new-or-advanced.
func (c *Coordinator) NoteSession(s sessionindex.Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCandidateLocked(s) {
		return false
	}
	c.advanceLocked(s)
	return true
}

func (c *Coordinator) isCandidateLocked(s sessionindex.Session) bool {
	if !isEligible(s) {
		return false
	}
	watermark, exists := c.watermarks[s.Key]
	return !exists || s.UpdatedAt > watermark
}

func (c *Coordinator) advanceLocked(s sessionindex.Session) {
	c.watermarks[s.Key] = s.UpdatedAt
}

// AssociateSingleSession queries the registry for unassociated terminals at
// s's cwd and attempts a single-shot bind to the oldest one not created
// after s.UpdatedAt+maxAssociationAge. It never retries and never steals
// an existing binding — any bind failure yields {Associated: false}.
func (c *Coordinator) AssociateSingleSession(s sessionindex.Session) AssociateResult {
	if !isEligible(s) {
		return AssociateResult{}
	}

	terminals, err := c.registry.FindUnassociatedTerminals(s.Provider(), s.Cwd)
	if err != nil {
		log.Warn().Err(err).Str("provider", string(s.Provider())).Str("cwd", s.Cwd).
			Msg("association: failed to query terminal registry")
		return AssociateResult{}
	}
	if len(terminals) == 0 {
		return AssociateResult{}
	}

	sorted := make([]binding.Terminal, len(terminals))
	copy(sorted, terminals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	cutoff := time.UnixMilli(s.UpdatedAt).Add(c.maxAssociationAge)
	var chosen *binding.Terminal
	for i := range sorted {
		if !sorted[i].CreatedAt.After(cutoff) {
			chosen = &sorted[i]
			break
		}
	}
	if chosen == nil {
		log.Debug().Str("session", s.Key.String()).Msg("association: no terminal within max association age")
		return AssociateResult{}
	}

	result := c.registry.BindSession(chosen.ID, s.Key)
	if !result.Success {
		log.Debug().Str("session", s.Key.String()).Str("terminal", string(chosen.ID)).
			Str("reason", string(result.Reason)).Msg("association: bind rejected")
		return AssociateResult{}
	}

	return AssociateResult{Associated: true, TerminalID: chosen.ID}
}
