package domain

import "context"

// LLMClient defines how the core application interacts with a generation provider.
// Implementations receive the whole transcript on every call and keep no
// conversation state of their own.
type LLMClient interface {
	GenerateReply(ctx context.Context, modelID string, transcript []Message) (string, error)
}

// SessionStore keeps one Session per browser session for as long as it lives.
type SessionStore interface {
	// Initialize returns the session for id, creating an empty one if none exists.
	// created reports whether a new session was made.
	Initialize(id SessionID, modelID string) (session *Session, created bool)
	GetSession(id SessionID) (*Session, error)
	DeleteSession(id SessionID) error
	// BeginTurn keeps the session alive while a turn waits on the provider.
	// Call end once the turn is over.
	BeginTurn(id SessionID) (end func())
}
