package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"event_messaging_backend/internal/conversation"
)

// State is the persisted conversation row. There is exactly one per
// contractor; ActiveEventID is set only while the mode is routing or
// event_agent.
type State struct {
	ContractorID  uuid.UUID
	Mode          conversation.Mode
	ActiveEventID *uuid.UUID
	UpdatedAt     time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads the contractor's conversation state. A contractor with no row
// yet is idle, not an error.
func (r *Repository) Get(ctx context.Context, contractorID uuid.UUID) (*State, error) {
	query := `
		SELECT contractor_id, mode, active_event_id, updated_at
		FROM conversation_states
		WHERE contractor_id = $1`

	var s State
	err := r.pool.QueryRow(ctx, query, contractorID).Scan(
		&s.ContractorID, &s.Mode, &s.ActiveEventID, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &State{ContractorID: contractorID, Mode: conversation.ModeIdle}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts the single state row for the contractor.
func (r *Repository) Save(ctx context.Context, s *State) error {
	query := `
		INSERT INTO conversation_states (contractor_id, mode, active_event_id, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (contractor_id) DO UPDATE
		SET mode = EXCLUDED.mode,
		    active_event_id = EXCLUDED.active_event_id,
		    updated_at = NOW()`

	if _, err := r.pool.Exec(ctx, query, s.ContractorID, s.Mode, s.ActiveEventID); err != nil {
		return err
	}
	return nil
}
