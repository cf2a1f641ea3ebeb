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

// ExamTypeRepository handles exam type catalog access.
type ExamTypeRepository struct {
	pool *pgxpool.Pool
}

// NewExamTypeRepository creates a new ExamTypeRepository.
func NewExamTypeRepository(pool *pgxpool.Pool) *ExamTypeRepository {
	return &ExamTypeRepository{pool: pool}
}

// GetExamType retrieves an exam type with its sections ordered by
// sort_order.
func (r *ExamTypeRepository) GetExamType(ctx context.Context, id uuid.UUID) (*model.ExamType, error) {
	e := &model.ExamType{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, code, name, total_duration_minutes
		 FROM exam_types WHERE id = $1`, id,
	).Scan(&e.ID, &e.Code, &e.Name, &e.TotalDurationMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: exam type %s", simulation.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	sections, err := r.listSections(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	e.Sections = sections
	return e, nil
}

// ListExamTypes retrieves the whole catalog, sections included.
func (r *ExamTypeRepository) ListExamTypes(ctx context.Context) ([]model.ExamType, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, name, total_duration_minutes
		 FROM exam_types ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var examTypes []model.ExamType
	for rows.Next() {
		var e model.ExamType
		if err := rows.Scan(&e.ID, &e.Code, &e.Name, &e.TotalDurationMinutes); err != nil {
			return nil, err
		}
		examTypes = append(examTypes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range examTypes {
		sections, err := r.listSections(ctx, examTypes[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list sections for %s: %w", examTypes[i].Code, err)
		}
		examTypes[i].Sections = sections
	}
	return examTypes, nil
}

func (r *ExamTypeRepository) listSections(ctx context.Context, examTypeID uuid.UUID) ([]model.Section, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_type_id, name, time_limit_minutes, question_count, sort_order
		 FROM sections
		 WHERE exam_type_id = $1
		 ORDER BY sort_order`, examTypeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []model.Section
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.ID, &s.ExamTypeID, &s.Name, &s.TimeLimitMinutes, &s.QuestionCount, &s.SortOrder); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}
