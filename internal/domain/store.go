package domain

import "context"

// SessionStore is the persistence contract behind the in-memory session
// store. Implementations must preserve message insertion order.
type SessionStore interface {
	CreateSession(ctx context.Context, sess *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, limit int) ([]*Session, error)

	AppendMessage(ctx context.Context, msg *Message) error
	GetMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error)

	SaveContext(ctx context.Context, sessionID string, kv AnalysisContext) error
	LoadContext(ctx context.Context, sessionID string) (AnalysisContext, error)
}
