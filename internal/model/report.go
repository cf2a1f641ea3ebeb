package model

import (
	"time"

	"github.com/google/uuid"
)

// SectionResult is the per-section line of a final report.
type SectionResult struct {
	SectionID        uuid.UUID `json:"section_id"`
	Name             string    `json:"name"`
	Score            Score     `json:"score"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
}

// QuestionReview is one row of the flattened per-question summary,
// built by joining each attempt's answer map against the question list.
type QuestionReview struct {
	QuestionID  uuid.UUID `json:"question_id"`
	SectionName string    `json:"section_name"`
	Text        string    `json:"text"`
	Answered    bool      `json:"answered"`
	ChosenKey   string    `json:"chosen_key,omitempty"`
	ChosenText  string    `json:"chosen_text,omitempty"`
	CorrectKey  string    `json:"correct_key"`
	CorrectText string    `json:"correct_text"`
	Correct     bool      `json:"correct"`
	Explanation string    `json:"explanation,omitempty"`
}

// FinalReport aggregates every completed section attempt of a session.
type FinalReport struct {
	SessionID    uuid.UUID        `json:"session_id"`
	ExamTypeCode string           `json:"exam_type_code"`
	ExamTypeName string           `json:"exam_type_name"`
	OverallScore float64          `json:"overall_score"`
	MaxScore     float64          `json:"max_score"`
	Sections     []SectionResult  `json:"sections"`
	Questions    []QuestionReview `json:"questions"`
	CompletedAt  time.Time        `json:"completed_at"`
}
