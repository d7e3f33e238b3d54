package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/okabe/vidql/internal/domain"
)

// Storage persists sessions, messages, and context to sqlite so history
// survives process restarts. The in-memory Store stays authoritative
// for a running process; Storage is its write-through backing.
type Storage struct {
	db   *sql.DB
	path string
}

// Verify Storage implements domain.SessionStore
var _ domain.SessionStore = (*Storage)(nil)

// NewStorage opens (and migrates) the session database under dataDir.
func NewStorage(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vidql.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Storage{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		video_ref TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		artifacts_json TEXT,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, timestamp);

	CREATE TABLE IF NOT EXISTS context (
		session_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value_json TEXT NOT NULL,
		PRIMARY KEY (session_id, key),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Session operations

func (s *Storage) CreateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, video_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, sess.ID, sess.VideoRef, sess.CreatedAt, sess.UpdatedAt)
	return err
}

func (s *Storage) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var sess domain.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, video_ref, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.VideoRef, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Storage) ListSessions(ctx context.Context, limit int) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_ref, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var sess domain.Session
		if err := rows.Scan(&sess.ID, &sess.VideoRef, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// Message operations

func (s *Storage) AppendMessage(ctx context.Context, msg *domain.Message) error {
	var artifactsJSON []byte
	if len(msg.Artifacts) > 0 {
		var err error
		artifactsJSON, err = json.Marshal(msg.Artifacts)
		if err != nil {
			return fmt.Errorf("marshal artifacts: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, artifacts_json, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.SessionID, msg.Role, msg.Content, artifactsJSON, msg.Timestamp)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE sessions SET updated_at = ? WHERE id = ?
	`, msg.Timestamp, msg.SessionID)
	return err
}

func (s *Storage) GetMessages(ctx context.Context, sessionID string, limit int) ([]*domain.Message, error) {
	// limit > 0 selects the most recent messages, returned in
	// chronological order.
	query := `
		SELECT id, session_id, role, content, artifacts_json, timestamp
		FROM messages WHERE session_id = ? ORDER BY timestamp ASC, rowid ASC
	`
	args := []any{sessionID}
	if limit > 0 {
		query = `
			SELECT id, session_id, role, content, artifacts_json, timestamp FROM (
				SELECT id, session_id, role, content, artifacts_json, timestamp, rowid AS rid
				FROM messages WHERE session_id = ? ORDER BY timestamp DESC, rowid DESC LIMIT ?
			) ORDER BY timestamp ASC, rid ASC
		`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var msg domain.Message
		var artifactsJSON sql.NullString

		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &artifactsJSON, &msg.Timestamp); err != nil {
			return nil, err
		}
		if artifactsJSON.Valid && artifactsJSON.String != "" {
			if err := json.Unmarshal([]byte(artifactsJSON.String), &msg.Artifacts); err != nil {
				return nil, fmt.Errorf("unmarshal artifacts: %w", err)
			}
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// Context operations

func (s *Storage) SaveContext(ctx context.Context, sessionID string, kv domain.AnalysisContext) error {
	for key, value := range kv {
		valueJSON, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal context %s: %w", key, err)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO context (session_id, key, value_json) VALUES (?, ?, ?)
			ON CONFLICT(session_id, key) DO UPDATE SET value_json = excluded.value_json
		`, sessionID, string(key), valueJSON)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) LoadContext(ctx context.Context, sessionID string) (domain.AnalysisContext, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value_json FROM context WHERE session_id = ?
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(domain.AnalysisContext)
	for rows.Next() {
		var key, valueJSON string
		if err := rows.Scan(&key, &valueJSON); err != nil {
			return nil, err
		}
		var value any
		if err := json.Unmarshal([]byte(valueJSON), &value); err != nil {
			return nil, fmt.Errorf("unmarshal context %s: %w", key, err)
		}
		out[domain.ContextKey(key)] = value
	}
	return out, rows.Err()
}
