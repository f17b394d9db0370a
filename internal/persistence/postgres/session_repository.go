package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/academy-timetable/internal/persistence"
	"github.com/example/academy-timetable/internal/timeclock"
)

// SessionRepository implements persistence.SessionRepository on PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL class session repository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const selectSessions = `
	SELECT id, owner_id, name, weekday, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
	       color_tag, created_at, updated_at
	FROM class_sessions`

// ListSessions returns the owner's sessions, or every session for an empty ownerID.
func (r *SessionRepository) ListSessions(ctx context.Context, ownerID string) ([]persistence.ClassSession, error) {
	query := selectSessions
	var args []any
	if ownerID != "" {
		query += ` WHERE owner_id = $1`
		args = append(args, ownerID)
	}
	query += ` ORDER BY weekday, start_time, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var sessions []persistence.ClassSession
	for rows.Next() {
		var (
			session    persistence.ClassSession
			start, end string
		)
		if err := rows.Scan(&session.ID, &session.OwnerID, &session.Name, &session.Weekday, &start, &end,
			&session.ColorTag, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan session: %w", err)
		}
		if session.StartMinute, session.EndMinute, err = parseClockPair(start, end); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return sessions, nil
}

// CreateSession inserts a new session.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.ClassSession) error {
	if err := persistence.ValidateSession(session); err != nil {
		return err
	}
	return mapError(insertSession(ctx, r.pool, session))
}

// UpdateSession overwrites the mutable fields of an existing session.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.ClassSession) error {
	if err := persistence.ValidateSession(session); err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE class_sessions
		SET name = $1, weekday = $2, start_time = $3::text::time, end_time = $4::text::time, color_tag = $5, updated_at = $6
		WHERE id = $7 AND owner_id = $8`,
		session.Name,
		session.Weekday,
		timeclock.FormatClock(session.StartMinute),
		timeclock.FormatClock(session.EndMinute),
		session.ColorTag,
		session.UpdatedAt,
		session.ID,
		session.OwnerID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(tag)
}

// DeleteSession removes a session by ID.
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM class_sessions WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(tag)
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

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM class_sessions WHERE owner_id = $1`, ownerID); err != nil {
			return err
		}
		for _, session := range sessions {
			if err := insertSession(ctx, tx, session); err != nil {
				return err
			}
		}
		return nil
	})
	return mapError(err)
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertSession(ctx context.Context, db execer, session persistence.ClassSession) error {
	_, err := db.Exec(ctx, `
		INSERT INTO class_sessions (id, owner_id, name, weekday, start_time, end_time, color_tag, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::text::time, $6::text::time, $7, $8, $9)`,
		session.ID,
		session.OwnerID,
		session.Name,
		session.Weekday,
		timeclock.FormatClock(session.StartMinute),
		timeclock.FormatClock(session.EndMinute),
		session.ColorTag,
		session.CreatedAt,
		session.UpdatedAt,
	)
	return err
}
