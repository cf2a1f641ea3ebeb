package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates simulation session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
)

// Session is one user's complete attempt at an exam type, spanning all
// of its sections. At most one session per user is in_progress at a time.
type Session struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	ExamTypeID  uuid.UUID     `json:"exam_type_id"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// StartSimulationRequest is the payload for starting a new simulation.
type StartSimulationRequest struct {
	ExamTypeID uuid.UUID `json:"exam_type_id" binding:"required"`
}

// RecordAnswerRequest is the payload for answering the active question.
type RecordAnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	OptionKey  string    `json:"option_key" binding:"required,max=10"`
}

// AbandonRequest is the payload for leaving a running simulation.
type AbandonRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=200"`
}
