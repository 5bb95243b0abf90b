package sessionindex

import "time"

// Override carries user-visible mutations applied to a session on top of
// its parsed metadata (spec §6). Zero-value fields mean "no change";
// Deleted is the only field that needs no "was it set" distinction since a
// false value is never meaningfully different from absent.
type Override struct {
	Deleted           bool
	TitleOverride     *string
	SummaryOverride   *string
	CreatedAtOverride *time.Time
	Archived          *bool
}

// OverrideStore is the out-of-scope persisted-override collaborator (spec
// §6.3); only this interface and ApplyOverride are implemented here.
type OverrideStore interface {
	// Get returns the override for key, if any has been recorded.
	Get(key Key) (Override, bool)
}

// ApplyOverride merges override onto session, returning the merged record
// and whether the session should be treated as deleted (not exposed).
func ApplyOverride(session Session, override Override) (Session, bool) {
	if override.Deleted {
		return session, true
	}

	if override.TitleOverride != nil {
		session.Title = *override.TitleOverride
	}
	if override.SummaryOverride != nil {
		session.Summary = *override.SummaryOverride
	}
	if override.CreatedAtOverride != nil {
		session.CreatedAt = *override.CreatedAtOverride
	}
	if override.Archived != nil {
		session.Archived = *override.Archived
	}
	return session, false
}

// noopOverrideStore is used when the indexer is constructed without an
// OverrideStore — every session passes through unmodified (L1's "override
// removed" case is then always true).
type noopOverrideStore struct{}

func (noopOverrideStore) Get(Key) (Override, bool) { return Override{}, false }
