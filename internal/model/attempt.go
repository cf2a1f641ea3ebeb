package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates section attempt states.
type AttemptStatus string

const (
	AttemptStatusPending    AttemptStatus = "pending"
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusCompleted  AttemptStatus = "completed"
)

// Score is the negative-marking result of one completed section.
// Raw may be negative; it is never floored at zero.
type Score struct {
	Raw            float64 `json:"raw"`
	TotalQuestions int     `json:"total_questions"`
	Correct        int     `json:"correct"`
	Incorrect      int     `json:"incorrect"`
	Unanswered     int     `json:"unanswered"`
	MaxScore       float64 `json:"max_score"`
}

// SectionAttempt is the per-section progress record within a session.
// One row exists per (session, section), created in bulk at session start.
// Attempts complete strictly in ascending section sort order, and at most
// one attempt per session is in_progress at any time.
type SectionAttempt struct {
	ID               uuid.UUID            `json:"id"`
	SessionID        uuid.UUID            `json:"session_id"`
	SectionID        uuid.UUID            `json:"section_id"`
	Status           AttemptStatus        `json:"status"`
	StartedAt        *time.Time           `json:"started_at,omitempty"`
	CompletedAt      *time.Time           `json:"completed_at,omitempty"`
	TimeSpentSeconds *int                 `json:"time_spent_seconds,omitempty"`
	Score            *Score               `json:"score,omitempty"`
	Answers          map[uuid.UUID]string `json:"answers,omitempty"`
}
