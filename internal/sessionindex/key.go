package sessionindex

import (
	"strings"

	"github.com/brianly1003/cdev/internal/provider"
)

// Key is the composite (provider, sessionId) key — globally unique across
// every provider's session space (spec §3).
type Key struct {
	Provider  provider.Name
	SessionID string
}

// String renders the key as "provider:sessionId".
func (k Key) String() string {
	return string(k.Provider) + ":" + k.SessionID
}

// ParseKey accepts either a "provider:sessionId" composite key or a legacy
// bare sessionId, which defaults to the claude provider.
func ParseKey(s string) Key {
	if idx := strings.Index(s, ":"); idx > 0 {
		return Key{Provider: provider.Name(s[:idx]), SessionID: s[idx+1:]}
	}
	return Key{Provider: provider.Claude, SessionID: s}
}
