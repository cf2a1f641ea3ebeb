package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/model"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/simulation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles simulation session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateSession inserts a new session and fills in its generated id.
func (r *SessionRepository) CreateSession(ctx context.Context, s *model.Session) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO sessions (user_id, exam_type_id, status, started_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		s.UserID, s.ExamTypeID, s.Status, s.StartedAt,
	).Scan(&s.ID)
}

// GetSession retrieves a session by id.
func (r *SessionRepository) GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	s := &model.Session{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, exam_type_id, status, started_at, completed_at
		 FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.ExamTypeID, &s.Status, &s.StartedAt, &s.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", simulation.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetInProgressSession returns the user's in_progress session, or nil
// when there is none.
func (r *SessionRepository) GetInProgressSession(ctx context.Context, userID uuid.UUID) (*model.Session, error) {
	s := &model.Session{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, exam_type_id, status, started_at, completed_at
		 FROM sessions
		 WHERE user_id = $1 AND status = $2
		 ORDER BY started_at DESC
		 LIMIT 1`,
		userID, model.SessionStatusInProgress,
	).Scan(&s.ID, &s.UserID, &s.ExamTypeID, &s.Status, &s.StartedAt, &s.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSession applies a partial update. Nil patch fields are skipped.
func (r *SessionRepository) UpdateSession(ctx context.Context, id uuid.UUID, patch simulation.SessionPatch) error {
	sets := ""
	args := []any{id}

	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets += fmt.Sprintf(", status = $%d", len(args))
	}
	if patch.CompletedAt != nil {
		args = append(args, *patch.CompletedAt)
		sets += fmt.Sprintf(", completed_at = $%d", len(args))
	}
	if sets == "" {
		return nil
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET updated_at = NOW()`+sets+` WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: session %s", simulation.ErrNotFound, id)
	}
	return nil
}
