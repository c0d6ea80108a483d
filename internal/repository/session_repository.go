package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/repository/base"
)

type SessionRepository struct {
	*base.Repository
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{Repository: base.NewRepository(pool)}
}

func (r *SessionRepository) CreateSession(ctx context.Context, s *identity.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.ExecAffected(ctx, query, s.ID, s.UserID, s.ExpiresAt, s.Revoked, s.CreatedAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) SessionByID(ctx context.Context, id string) (*identity.Session, error) {
	query := `
		SELECT id::text, user_id::text, expires_at, revoked, created_at
		FROM sessions
		WHERE id = $1
	`

	var s identity.Session
	err := r.QueryRow(ctx, query, id).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.Revoked, &s.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// RevokeSession is idempotent; revoking an unknown session is not an error.
func (r *SessionRepository) RevokeSession(ctx context.Context, id string) error {
	if _, err := r.ExecAffected(ctx, `UPDATE sessions SET revoked = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// DeleteStaleSessions removes revoked sessions and those that expired before
// the given instant.
func (r *SessionRepository) DeleteStaleSessions(ctx context.Context, before time.Time) (int64, error) {
	n, err := r.ExecAffected(ctx, `DELETE FROM sessions WHERE revoked OR expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete stale sessions: %w", err)
	}
	return n, nil
}
