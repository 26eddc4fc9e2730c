package domain

import "time"

type SessionID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultModelID is the model a new session starts with unless configured otherwise.
const DefaultModelID = "gemini-1.5-flash"

type Timestamp = time.Time
