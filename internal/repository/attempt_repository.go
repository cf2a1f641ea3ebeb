package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/model"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/simulation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository handles section attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// CreateSectionAttempts bulk-creates one pending attempt per section,
// in the given order, and returns them with generated ids.
func (r *AttemptRepository) CreateSectionAttempts(ctx context.Context, sessionID uuid.UUID, sectionIDs []uuid.UUID) ([]model.SectionAttempt, error) {
	attempts := make([]model.SectionAttempt, 0, len(sectionIDs))

	for _, sectionID := range sectionIDs {
		a := model.SectionAttempt{
			SessionID: sessionID,
			SectionID: sectionID,
			Status:    model.AttemptStatusPending,
		}
		err := r.pool.QueryRow(ctx,
			`INSERT INTO section_attempts (session_id, section_id, status, answers)
			 VALUES ($1, $2, $3, '{}'::jsonb)
			 RETURNING id`,
			sessionID, sectionID, a.Status,
		).Scan(&a.ID)
		if err != nil {
			return nil, fmt.Errorf("insert attempt for section %s: %w", sectionID, err)
		}
		attempts = append(attempts, a)
	}

	return attempts, nil
}

// GetSectionAttempts retrieves all attempts for a session, joined with
// their section sort order.
func (r *AttemptRepository) GetSectionAttempts(ctx context.Context, sessionID uuid.UUID) ([]model.SectionAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.session_id, a.section_id, a.status,
		        a.started_at, a.completed_at, a.time_spent_seconds,
		        a.score, a.answers
		 FROM section_attempts a
		 JOIN sections s ON a.section_id = s.id
		 WHERE a.session_id = $1
		 ORDER BY s.sort_order`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.SectionAttempt
	for rows.Next() {
		var a model.SectionAttempt
		var scoreRaw, answersRaw []byte
		if err := rows.Scan(
			&a.ID, &a.SessionID, &a.SectionID, &a.Status,
			&a.StartedAt, &a.CompletedAt, &a.TimeSpentSeconds,
			&scoreRaw, &answersRaw,
		); err != nil {
			return nil, err
		}

		if len(scoreRaw) > 0 {
			var score model.Score
			if err := json.Unmarshal(scoreRaw, &score); err != nil {
				return nil, fmt.Errorf("decode score for attempt %s: %w", a.ID, err)
			}
			a.Score = &score
		}
		if len(answersRaw) > 0 {
			if err := json.Unmarshal(answersRaw, &a.Answers); err != nil {
				return nil, fmt.Errorf("decode answers for attempt %s: %w", a.ID, err)
			}
		}

		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// UpdateSectionAttempt applies a partial update. Nil patch fields are
// skipped; a non-nil Answers map replaces the full answers blob.
func (r *AttemptRepository) UpdateSectionAttempt(ctx context.Context, id uuid.UUID, patch simulation.AttemptPatch) error {
	sets := ""
	args := []any{id}

	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets += fmt.Sprintf(", status = $%d", len(args))
	}
	if patch.StartedAt != nil {
		args = append(args, *patch.StartedAt)
		sets += fmt.Sprintf(", started_at = $%d", len(args))
	}
	if patch.CompletedAt != nil {
		args = append(args, *patch.CompletedAt)
		sets += fmt.Sprintf(", completed_at = $%d", len(args))
	}
	if patch.TimeSpentSeconds != nil {
		args = append(args, *patch.TimeSpentSeconds)
		sets += fmt.Sprintf(", time_spent_seconds = $%d", len(args))
	}
	if patch.Score != nil {
		raw, err := json.Marshal(patch.Score)
		if err != nil {
			return fmt.Errorf("encode score: %w", err)
		}
		args = append(args, raw)
		sets += fmt.Sprintf(", score = $%d", len(args))
	}
	if patch.Answers != nil {
		raw, err := json.Marshal(patch.Answers)
		if err != nil {
			return fmt.Errorf("encode answers: %w", err)
		}
		args = append(args, raw)
		sets += fmt.Sprintf(", answers = $%d", len(args))
	}
	if sets == "" {
		return nil
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE section_attempts SET updated_at = NOW()`+sets+` WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: section attempt %s", simulation.ErrNotFound, id)
	}
	return nil
}
