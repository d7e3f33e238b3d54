package domain

import (
	"time"
)

// Message is a single turn in a session's history. Immutable once
// appended; insertion order is chronological and authoritative.
type Message struct {
	ID        string     `json:"id"`
	SessionID string     `json:"sessionID"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)
