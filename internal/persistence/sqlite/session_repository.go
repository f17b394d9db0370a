package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/academy-timetable/internal/persistence"
	"github.com/example/academy-timetable/internal/timeclock"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewSessionRepository creates a new SQLite class session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const sessionColumns = `id, owner_id, name, weekday, start_time, end_time, color_tag, created_at, updated_at`

// ListSessions returns the owner's sessions, or every session for an empty ownerID.
func (r *SessionRepository) ListSessions(ctx context.Context, ownerID string) ([]persistence.ClassSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM class_sessions`
	var args []any
	if ownerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY weekday, start_time, id`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.ClassSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return sessions, nil
}

// CreateSession inserts a new session.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.ClassSession) error {
	if err := persistence.ValidateSession(session); err != nil {
		return err
	}
	return r.retry.WithRetry(ctx, func() error {
		_, err := insertSession(ctx, r.pool.DB(), session)
		return err
	})
}

// UpdateSession overwrites the mutable fields of an existing session.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.ClassSession) error {
	if err := persistence.ValidateSession(session); err != nil {
		return err
	}

	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.pool.DB().ExecContext(ctx, `
			UPDATE class_sessions
			SET name = ?, weekday = ?, start_time = ?, end_time = ?, color_tag = ?, updated_at = ?
			WHERE id = ? AND owner_id = ?`,
			session.Name,
			session.Weekday,
			timeclock.FormatClock(session.StartMinute),
			timeclock.FormatClock(session.EndMinute),
			session.ColorTag,
			formatTime(session.UpdatedAt),
			session.ID,
			session.OwnerID,
		)
		return execErr
	})
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeleteSession removes a session by ID.
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	var result sql.Result
	err := r.retry.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.pool.DB().ExecContext(ctx, `DELETE FROM class_sessions WHERE id = ?`, id)
		return execErr
	})
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ReplaceOwnerSessions swaps the owner's sessions for sessions atomically.
func (r *SessionRepository) ReplaceOwnerSessions(ctx context.Context, ownerID string, sessions []persistence.ClassSession) error {
	if ownerID == "" {
		return persistence.ErrConstraintViolation
	}
	for _, session := range sessions {
		if session.OwnerID != ownerID {
			return fmt.Errorf("%w: session %s belongs to %s", persistence.ErrConstraintViolation, session.ID, session.OwnerID)
		}
		if err := persistence.ValidateSession(session); err != nil {
			return err
		}
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM class_sessions WHERE owner_id = ?`, ownerID); err != nil {
				return err
			}
			for _, session := range sessions {
				if _, err := insertSession(ctx, tx, session); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSession(ctx context.Context, db execer, session persistence.ClassSession) (sql.Result, error) {
	return db.ExecContext(ctx, `
		INSERT INTO class_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.OwnerID,
		session.Name,
		session.Weekday,
		timeclock.FormatClock(session.StartMinute),
		timeclock.FormatClock(session.EndMinute),
		session.ColorTag,
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (persistence.ClassSession, error) {
	var (
		session              persistence.ClassSession
		start, end           string
		createdAt, updatedAt string
	)
	if err := row.Scan(&session.ID, &session.OwnerID, &session.Name, &session.Weekday, &start, &end, &session.ColorTag, &createdAt, &updatedAt); err != nil {
		return persistence.ClassSession{}, fmt.Errorf("sqlite: scan session: %w", err)
	}

	var err error
	if session.StartMinute, session.EndMinute, err = parseClockPair(start, end); err != nil {
		return persistence.ClassSession{}, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.ClassSession{}, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.ClassSession{}, err
	}
	return session, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
