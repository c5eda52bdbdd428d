package types

import "github.com/google/uuid"

// SessionID identifies a conversation session. It is an opaque
// caller-supplied string; the core only matches it exactly.
type SessionID string

// NewSessionID generates a new UUID v7 SessionID for callers that do not
// bring their own identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.Must(uuid.NewV7()).String())
}

// String returns the string representation of the session ID
func (s SessionID) String() string {
	return string(s)
}
