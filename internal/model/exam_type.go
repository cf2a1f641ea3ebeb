package model

import (
	"github.com/google/uuid"
)

// Section is a timed, ordered subdivision of an exam type
// (e.g. "Matematica", 50 minutes, 20 questions).
type Section struct {
	ID               uuid.UUID `json:"id"`
	ExamTypeID       uuid.UUID `json:"exam_type_id"`
	Name             string    `json:"name"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	QuestionCount    int       `json:"question_count"`
	SortOrder        int       `json:"sort_order"`
}

// ExamType is an immutable catalog entry describing one exam format
// (TOLC-I, TOLC-E, ...). Sections are ordered by SortOrder ascending.
type ExamType struct {
	ID                   uuid.UUID `json:"id"`
	Code                 string    `json:"code"`
	Name                 string    `json:"name"`
	TotalDurationMinutes int       `json:"total_duration_minutes"`
	Sections             []Section `json:"sections"`
}

// SectionByID returns the section with the given id, or nil.
func (e *ExamType) SectionByID(id uuid.UUID) *Section {
	for i := range e.Sections {
		if e.Sections[i].ID == id {
			return &e.Sections[i]
		}
	}
	return nil
}
