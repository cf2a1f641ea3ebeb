package model

import (
	"github.com/google/uuid"
)

// Question is a single multiple-choice question owned by the question bank.
// Options map option keys ("a", "b", ...) to their display text.
// Questions are immutable for the duration of a session.
type Question struct {
	ID            uuid.UUID         `json:"id"`
	SectionID     uuid.UUID         `json:"section_id"`
	Text          string            `json:"text"`
	Options       map[string]string `json:"options"`
	CorrectOption string            `json:"correct_option,omitempty"`
	Explanation   string            `json:"explanation,omitempty"`
	ImageURL      string            `json:"image_url,omitempty"`
}

// ForCandidate strips grading fields before the question is sent to the
// user taking the simulation.
func (q Question) ForCandidate() Question {
	q.CorrectOption = ""
	q.Explanation = ""
	return q
}
