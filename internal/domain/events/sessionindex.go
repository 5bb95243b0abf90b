package events

import "time"

// SessionIndexedPayload represents the payload for session_indexed events.
// `cdev index watch` publishes one for each session the indexer reports as
// new; metadata changes to an already-known session do not produce one.
type SessionIndexedPayload struct {
	Provider     string    `json:"provider"`
	ProjectPath  string    `json:"project_path"`
	SessionID    string    `json:"session_id"`
	FilePath     string    `json:"file_path"`
	Title        string    `json:"title,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	IsNew        bool      `json:"is_new"`
}

// NewSessionIndexedEvent creates a new session_indexed event.
func NewSessionIndexedEvent(workspaceID string, payload SessionIndexedPayload) *BaseEvent {
	return NewEventWithContext(EventTypeSessionIndexed, payload, workspaceID, payload.SessionID)
}

// SessionBoundPayload represents the payload for session_bound events.
// Describes a session↔terminal pairing that was created, released, or
// rejected. The binding authority returns BindResult values and does not
// publish this event itself.
type SessionBoundPayload struct {
	SessionID  string `json:"session_id"`
	TerminalID string `json:"terminal_id"`
	Action     string `json:"action"` // "bound", "released", "rejected"
	Reason     string `json:"reason,omitempty"`
}

// NewSessionBoundEvent creates a new session_bound event.
func NewSessionBoundEvent(workspaceID, sessionID, terminalID, action, reason string) *BaseEvent {
	return NewEventWithContext(EventTypeSessionBound, SessionBoundPayload{
		SessionID:  sessionID,
		TerminalID: terminalID,
		Action:     action,
		Reason:     reason,
	}, workspaceID, sessionID)
}
