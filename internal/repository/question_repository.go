package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository is the question source backing the engine. The
// bank holds the fixed question set of each section; randomization
// shuffles presentation order within a section, never the selection, so
// answer maps keyed by question id stay valid across resumes.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// RandomizedQuestions returns all questions of an exam type, grouped by
// section in section order, shuffled within each section.
func (r *QuestionRepository) RandomizedQuestions(ctx context.Context, examTypeID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.section_id, q.text, q.options, q.correct_option,
		        COALESCE(q.explanation, ''), COALESCE(q.image_url, '')
		 FROM questions q
		 JOIN sections s ON q.section_id = s.id
		 WHERE s.exam_type_id = $1
		 ORDER BY s.sort_order, random()`, examTypeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var optionsRaw []byte
		if err := rows.Scan(&q.ID, &q.SectionID, &q.Text, &optionsRaw, &q.CorrectOption, &q.Explanation, &q.ImageURL); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(optionsRaw, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options for question %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CreateQuestion inserts a question into a section's bank. Used by the
// seeder.
func (r *QuestionRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	optionsRaw, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (section_id, text, options, correct_option, explanation, image_url)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		 RETURNING id`,
		q.SectionID, q.Text, optionsRaw, q.CorrectOption, q.Explanation, q.ImageURL,
	).Scan(&q.ID)
}
