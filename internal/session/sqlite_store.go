package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"healthify/internal/database"
	"healthify/internal/models"
)

// SQLiteStore persists sessions in a local SQLite file
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore expects db to be initialized
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Kind() string { return "sqlite" }

func (s *SQLiteStore) GetActive(ctx context.Context, userCtx string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_context, created_at, updated_at, duration, messages
		 FROM active_sessions WHERE user_context = ?`, userCtx)

	sess, err := scanSession(row.Scan, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess.IsActive = true
	return sess, nil
}

func (s *SQLiteStore) SaveActive(ctx context.Context, sess *models.Session) error {
	msgs, err := json.Marshal(sess.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO active_sessions (user_context, id, created_at, updated_at, duration, messages)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_context) DO UPDATE SET
		   id = excluded.id,
		   created_at = excluded.created_at,
		   updated_at = excluded.updated_at,
		   duration = excluded.duration,
		   messages = excluded.messages`,
		sess.UserContext, sess.ID, sess.CreatedAt.UnixNano(), sess.Timestamp.UnixNano(), sess.Duration, string(msgs))
	return err
}

func (s *SQLiteStore) DeleteActive(ctx context.Context, userCtx string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM active_sessions WHERE user_context = ?`, userCtx)
	return err
}

func (s *SQLiteStore) ListActive(ctx context.Context) ([]*models.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_context, created_at, updated_at, duration, messages
		 FROM active_sessions ORDER BY updated_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		sess, err := scanSession(rows.Scan, false)
		if err != nil {
			return nil, err
		}
		sess.IsActive = true
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, sess *models.Session) error {
	msgs, err := json.Marshal(sess.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	var archivedAt sql.NullInt64
	if sess.ArchivedAt != nil {
		archivedAt = sql.NullInt64{Int64: sess.ArchivedAt.UnixNano(), Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_history (id, user_context, created_at, updated_at, archived_at, duration, messages)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_context, id) DO UPDATE SET
		   updated_at = excluded.updated_at,
		   archived_at = excluded.archived_at,
		   duration = excluded.duration,
		   messages = excluded.messages`,
		sess.ID, sess.UserContext, sess.CreatedAt.UnixNano(), sess.Timestamp.UnixNano(), archivedAt, sess.Duration, string(msgs))
	return err
}

func (s *SQLiteStore) ListHistory(ctx context.Context, userCtx string) ([]*models.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_context, created_at, updated_at, duration, messages, archived_at
		 FROM session_history WHERE user_context = ? ORDER BY seq`, userCtx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.Session{}
	for rows.Next() {
		sess, err := scanSession(rows.Scan, true)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteHistory(ctx context.Context, userCtx, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_history WHERE user_context = ? AND id = ?`, userCtx, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) ClearHistory(ctx context.Context, userCtx string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_history WHERE user_context = ?`, userCtx)
	return err
}

func (s *SQLiteStore) Close(context.Context) error { return s.db.Close() }

func scanSession(scan func(dest ...any) error, archived bool) (*models.Session, error) {
	var (
		sess       models.Session
		createdAt  int64
		updatedAt  int64
		msgs       string
		archivedAt sql.NullInt64
	)
	dest := []any{&sess.ID, &sess.UserContext, &createdAt, &updatedAt, &sess.Duration, &msgs}
	if archived {
		dest = append(dest, &archivedAt)
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(msgs), &sess.Messages); err != nil {
		return nil, fmt.Errorf("%w: decode messages of %s: %v", ErrSessionState, sess.ID, err)
	}
	sess.CreatedAt = time.Unix(0, createdAt)
	sess.Timestamp = time.Unix(0, updatedAt)
	if archivedAt.Valid {
		t := time.Unix(0, archivedAt.Int64)
		sess.ArchivedAt = &t
	}
	return &sess, nil
}
