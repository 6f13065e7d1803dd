package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionService persists one resumable wizard session per user.
type SessionService interface {
	// GetActiveSession returns the user's session, or nil if none exists.
	GetActiveSession(ctx context.Context, userID int) (*WizardSession, error)

	// SaveSession upserts the session, overwriting any prior session for
	// the same user.
	SaveSession(ctx context.Context, session *WizardSession) error

	// ClearSession deletes the user's session. Idempotent.
	ClearSession(ctx context.Context, userID int) error
}

type sessionService struct {
	pool *pgxpool.Pool
}

// NewSessionService constructs a SessionService backed by PostgreSQL.
func NewSessionService(pool *pgxpool.Pool) SessionService {
	return &sessionService{pool: pool}
}

func (s *sessionService) GetActiveSession(ctx context.Context, userID int) (*WizardSession, error) {
	ws := &WizardSession{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, rack_id, level_ids, current_index, created_at, updated_at
		FROM wizard_sessions
		WHERE user_id = $1
	`, userID).Scan(&ws.ID, &ws.UserID, &ws.RackID, &ws.LevelIDs, &ws.CurrentIndex, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load wizard session for user %d: %w", userID, err)
	}
	return ws, nil
}

func (s *sessionService) SaveSession(ctx context.Context, session *WizardSession) error {
	if session.CurrentIndex < 0 {
		return fmt.Errorf("current index must not be negative, got %d", session.CurrentIndex)
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO wizard_sessions (user_id, rack_id, level_ids, current_index)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET rack_id = EXCLUDED.rack_id,
		    level_ids = EXCLUDED.level_ids,
		    current_index = EXCLUDED.current_index,
		    updated_at = now()
		RETURNING id, created_at, updated_at
	`, session.UserID, session.RackID, session.LevelIDs, session.CurrentIndex).Scan(
		&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save wizard session for user %d: %w", session.UserID, err)
	}
	return nil
}

func (s *sessionService) ClearSession(ctx context.Context, userID int) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM wizard_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear wizard session for user %d: %w", userID, err)
	}
	return nil
}
