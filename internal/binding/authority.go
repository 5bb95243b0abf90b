// Package binding implements the session-to-terminal Binding Authority: a
// small, pure in-memory registry enforcing a bijection between session
// keys and terminal ids (spec §4.4).
package binding

import (
	"sync"
	"time"

	"github.com/brianly1003/cdev/internal/sessionindex"
)

// TerminalID is an opaque identifier for a PTY-backed terminal; the
// authority never interprets it further.
type TerminalID string

// Terminal is the minimal terminal identity the authority and coordinator
// reason about.
type Terminal struct {
	ID        TerminalID
	CreatedAt time.Time
}

// RejectReason names why a bind call failed.
type RejectReason string

const (
	ReasonNone                RejectReason = ""
	ReasonSessionAlreadyOwned RejectReason = "session_already_owned"
	ReasonTerminalAlreadyBound RejectReason = "terminal_already_bound"
)

// BindResult is the outcome of a bind attempt. It is always returned, never
// an error — BindRejected is a typed result, not a thrown failure (spec §7).
type BindResult struct {
	Success    bool
	Reason     RejectReason
	OwnerKey   sessionindex.Key // set when Reason == ReasonSessionAlreadyOwned
	Terminal   TerminalID       // the terminal actually bound, or the rejecting one
	OtherKey   sessionindex.Key // set when Reason == ReasonTerminalAlreadyBound
}

// Authority is the bijective session↔terminal registry. Safe for
// concurrent use; every method is synchronous and holds its own lock for
// the duration of the operation (spec §4.4, §5).
type Authority struct {
	mu         sync.Mutex
	bySession  map[sessionindex.Key]TerminalID
	byTerminal map[TerminalID]sessionindex.Key
}

// New creates an empty Authority.
func New() *Authority {
	return &Authority{
		bySession:  make(map[sessionindex.Key]TerminalID),
		byTerminal: make(map[TerminalID]sessionindex.Key),
	}
}

// Bind attempts to pair key with terminal. It is idempotent: binding the
// same (key, terminal) pair twice succeeds both times.
func (a *Authority) Bind(key sessionindex.Key, terminal TerminalID) BindResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if owner, ok := a.bySession[key]; ok {
		if owner == terminal {
			return BindResult{Success: true, Terminal: terminal}
		}
		return BindResult{
			Success:  false,
			Reason:   ReasonSessionAlreadyOwned,
			OwnerKey: key,
			Terminal: owner,
		}
	}

	if existingKey, ok := a.byTerminal[terminal]; ok && existingKey != key {
		return BindResult{
			Success:  false,
			Reason:   ReasonTerminalAlreadyBound,
			OtherKey: existingKey,
			Terminal: terminal,
		}
	}

	a.bySession[key] = terminal
	a.byTerminal[terminal] = key
	return BindResult{Success: true, Terminal: terminal}
}

// OwnerForSession returns the terminal bound to key, if any.
func (a *Authority) OwnerForSession(key sessionindex.Key) (TerminalID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.bySession[key]
	return t, ok
}

// SessionForTerminal returns the session key bound to terminal, if any.
func (a *Authority) SessionForTerminal(terminal TerminalID) (sessionindex.Key, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	k, ok := a.byTerminal[terminal]
	return k, ok
}

// UnbindTerminal removes the binding owned by terminal, if present, and
// returns the cleared key.
func (a *Authority) UnbindTerminal(terminal TerminalID) (sessionindex.Key, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key, ok := a.byTerminal[terminal]
	if !ok {
		return sessionindex.Key{}, false
	}
	delete(a.byTerminal, terminal)
	delete(a.bySession, key)
	return key, true
}

// ClearSessionOwner removes the binding for key regardless of which
// terminal holds it — used when a terminal process exits and only the
// session key is known to the caller.
func (a *Authority) ClearSessionOwner(key sessionindex.Key) (TerminalID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	terminal, ok := a.bySession[key]
	if !ok {
		return "", false
	}
	delete(a.bySession, key)
	delete(a.byTerminal, terminal)
	return terminal, true
}
