package simulation

import (
	"context"
	"time"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/model"
	"github.com/google/uuid"
)

// AttemptPatch is a partial update of a section attempt. Nil fields are
// left untouched by the store. Answers, when non-nil, replaces the full
// answers blob (last-write-wins at blob granularity).
type AttemptPatch struct {
	Status           *model.AttemptStatus
	StartedAt        *time.Time
	CompletedAt      *time.Time
	TimeSpentSeconds *int
	Score            *model.Score
	Answers          map[uuid.UUID]string
}

// SessionPatch is a partial update of a session.
type SessionPatch struct {
	Status      *model.SessionStatus
	CompletedAt *time.Time
}

// Store is the durable session store the engine persists through.
// It is the system of record; no transactions are assumed across calls.
type Store interface {
	CreateSession(ctx context.Context, session *model.Session) error
	CreateSectionAttempts(ctx context.Context, sessionID uuid.UUID, sectionIDs []uuid.UUID) ([]model.SectionAttempt, error)
	UpdateSectionAttempt(ctx context.Context, id uuid.UUID, patch AttemptPatch) error
	UpdateSession(ctx context.Context, id uuid.UUID, patch SessionPatch) error
	GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error)
	GetInProgressSession(ctx context.Context, userID uuid.UUID) (*model.Session, error)
	GetSectionAttempts(ctx context.Context, sessionID uuid.UUID) ([]model.SectionAttempt, error)
}

// Catalog resolves exam type definitions.
type Catalog interface {
	GetExamType(ctx context.Context, id uuid.UUID) (*model.ExamType, error)
}

// QuestionSource returns the fixed, pre-partitioned question list for an
// exam type, already randomized, tagged by section id.
type QuestionSource interface {
	RandomizedQuestions(ctx context.Context, examTypeID uuid.UUID) ([]model.Question, error)
}

// AnswerCache is an optional fast-path cache for autosaved answers.
// Writes are best-effort; on resume, cached answers overlay the persisted
// blob since the cache may be fresher than the last durable write.
type AnswerCache interface {
	SaveAnswers(ctx context.Context, attemptID uuid.UUID, answers map[uuid.UUID]string) error
	LoadAnswers(ctx context.Context, attemptID uuid.UUID) (map[uuid.UUID]string, error)
	ClearAnswers(ctx context.Context, attemptID uuid.UUID) error
}
