// Package checkpoint persists session snapshots to SQLite so a
// conversation can resume after a restart.
package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"deckster/pkg/logx"
	"deckster/pkg/session"
)

// ErrNotFound is returned when no checkpoint exists for a session.
var ErrNotFound = errors.New("no checkpoint found")

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	stage      TEXT NOT NULL,
	snapshot   BLOB NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON checkpoints(session_id, id);
`

// Store is a SQLite-backed checkpoint store. Open once at startup and
// inject it; SQLite supports a single writer, so the pool is capped at one
// connection.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (creating if necessary) the checkpoint database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping checkpoint database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize checkpoint schema: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	logger := logx.NewLogger("checkpoint")
	logger.Info("checkpoint store opened: %s", dbPath)
	return &Store{db: db, logger: logger}, nil
}

// Save writes a snapshot of the session at its current stage.
func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	snapshot, err := sess.MarshalSnapshot()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (session_id, stage, snapshot, created_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.CurrentStage.String(), snapshot, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint for session %s: %w", sess.ID, err)
	}

	s.logger.Debug("checkpointed session %s at %s", sess.ID, sess.CurrentStage)
	return nil
}

// LoadLatest restores the most recent snapshot for a session.
func (s *Store) LoadLatest(ctx context.Context, sessionID string) (*session.Session, error) {
	var snapshot []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM checkpoints WHERE session_id = ? ORDER BY id DESC LIMIT 1`,
		sessionID).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint for session %s: %w", sessionID, err)
	}

	return session.LoadSnapshot(snapshot)
}

// Entry describes one stored checkpoint.
type Entry struct {
	ID        int64
	Stage     string
	CreatedAt string
}

// History lists a session's checkpoints, oldest first.
func (s *Store) History(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stage, created_at FROM checkpoints WHERE session_id = ? ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Stage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("checkpoint row iteration failed: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint database: %w", err)
	}
	return nil
}
