// Package session holds conversation history and accumulated analysis
// context per session, in memory with optional sqlite write-through.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okabe/vidql/internal/domain"
	"github.com/okabe/vidql/internal/logging"
	"github.com/okabe/vidql/internal/metrics"
)

// ErrUnknownSession reports an operation on a session id that was never
// created.
var ErrUnknownSession = errors.New("unknown session")

// sessionEntry serializes access per session. Distinct sessions never
// contend on each other's locks.
type sessionEntry struct {
	mu      sync.Mutex
	session domain.Session
	history []domain.Message
	context domain.AnalysisContext
}

// Store is the in-memory session store. When backed by a Storage it
// loads sessions on first access and writes through on every mutation;
// the in-memory state stays authoritative for the running process.
type Store struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	backing domain.SessionStore
	log     *logging.Logger
}

// NewStore creates a store. backing may be nil for a purely in-memory
// store.
func NewStore(backing domain.SessionStore) *Store {
	return &Store{
		entries: make(map[string]*sessionEntry),
		backing: backing,
		log:     logging.New("session"),
	}
}

// entry returns the in-memory entry for id, loading it from backing
// storage on first access. Returns nil when the session does not exist
// anywhere.
func (s *Store) entry(ctx context.Context, id string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		return e
	}
	if s.backing == nil {
		return nil
	}

	sess, err := s.backing.GetSession(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("storage_load_failed", map[string]interface{}{"session": id}, err)
		}
		return nil
	}

	e := &sessionEntry{session: *sess, context: make(domain.AnalysisContext)}
	if msgs, err := s.backing.GetMessages(ctx, id, 0); err == nil {
		for _, m := range msgs {
			e.history = append(e.history, *m)
		}
	}
	if actx, err := s.backing.LoadContext(ctx, id); err == nil {
		e.context = actx
	}
	s.entries[id] = e
	return e
}

// GetOrCreate returns the session for id, creating it with the given
// video reference on first use. Idempotent per id: the video reference
// is not updated once set.
func (s *Store) GetOrCreate(ctx context.Context, id, videoRef string) (domain.Session, bool) {
	if e := s.entry(ctx, id); e != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.session, false
	}

	now := time.Now()
	sess := domain.Session{
		ID:        id,
		VideoRef:  videoRef,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	// Re-check under the store lock: a concurrent creator wins.
	if e, ok := s.entries[id]; ok {
		s.mu.Unlock()
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.session, false
	}
	s.entries[id] = &sessionEntry{
		session: sess,
		context: make(domain.AnalysisContext),
	}
	s.mu.Unlock()

	if s.backing != nil {
		if err := s.backing.CreateSession(ctx, &sess); err != nil {
			s.log.Warn("storage_create_failed", map[string]interface{}{"session": id}, err)
		}
	}
	metrics.Global().RecordSessionCreated()
	s.log.Info("session_created", map[string]interface{}{"session": id, "video": videoRef})
	return sess, true
}

// Lookup returns the session for id without creating it.
func (s *Store) Lookup(ctx context.Context, id string) (domain.Session, bool) {
	e := s.entry(ctx, id)
	if e == nil {
		return domain.Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, true
}

// Append adds a message to the session's history. Append-only; ordering
// is the only guarantee.
func (s *Store) Append(ctx context.Context, id string, msg domain.Message) error {
	e := s.entry(ctx, id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	e.mu.Lock()
	e.history = append(e.history, msg)
	e.session.UpdatedAt = msg.Timestamp
	e.mu.Unlock()

	if s.backing != nil {
		if err := s.backing.AppendMessage(ctx, &msg); err != nil {
			s.log.Warn("storage_append_failed", map[string]interface{}{"session": id}, err)
		}
	}
	return nil
}

// MergeContext overwrites each key present in partial; absent keys are
// left untouched. The merge is atomic per call.
func (s *Store) MergeContext(ctx context.Context, id string, partial domain.AnalysisContext) error {
	if len(partial) == 0 {
		return nil
	}
	e := s.entry(ctx, id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	e.mu.Lock()
	for k, v := range partial {
		e.context[k] = v
	}
	e.mu.Unlock()

	if s.backing != nil {
		if err := s.backing.SaveContext(ctx, id, partial); err != nil {
			s.log.Warn("storage_context_failed", map[string]interface{}{"session": id}, err)
		}
	}
	return nil
}

// History returns a copy of the session's messages. limit > 0 returns
// the most recent messages, still in chronological order.
func (s *Store) History(ctx context.Context, id string, limit int) ([]domain.Message, error) {
	e := s.entry(ctx, id)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	history := e.history
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]domain.Message, len(history))
	copy(out, history)
	return out, nil
}

// Context returns a snapshot of the session's analysis context. The
// caller owns the copy; no lock is held after return.
func (s *Store) Context(ctx context.Context, id string) (domain.AnalysisContext, bool) {
	e := s.entry(ctx, id)
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.context.Clone(), true
}

// List returns known sessions, most recently updated first.
func (s *Store) List(ctx context.Context, limit int) []domain.Session {
	if s.backing != nil {
		if sessions, err := s.backing.ListSessions(ctx, limit); err == nil {
			out := make([]domain.Session, 0, len(sessions))
			for _, sess := range sessions {
				out = append(out, *sess)
			}
			return out
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Session, 0, len(s.entries))
	for _, e := range s.entries {
		e.mu.Lock()
		out = append(out, e.session)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
