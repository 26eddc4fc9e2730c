package domain

import (
	"slices"
	"sync"
)

// Message is one entry of a transcript. It is handed out by value and never
// modified after it has been appended.
type Message struct {
	Role      Role
	Content   string
	CreatedAt Timestamp
}

// Session holds the transcript and the selected model for one browser session.
// It only grows: messages are appended, never edited or removed.
type Session struct {
	ID        SessionID
	ModelID   string
	CreatedAt Timestamp

	mu       sync.RWMutex
	messages []Message
}

// NewSession returns a session with an empty transcript.
func NewSession(id SessionID, modelID string, now Timestamp) *Session {
	if modelID == "" {
		modelID = DefaultModelID
	}
	return &Session{
		ID:        id,
		ModelID:   modelID,
		CreatedAt: now,
	}
}

// Append adds a message to the end of the transcript and returns it.
// Role alternation is not checked.
func (s *Session) Append(role Role, content string, at Timestamp) Message {
	msg := Message{Role: role, Content: content, CreatedAt: at}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)

	return msg
}

// Transcript returns a copy of the messages in turn order.
func (s *Session) Transcript() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// Len returns the number of messages in the transcript.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
