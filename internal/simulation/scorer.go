package simulation

import (
	"github.com/Sufyane-M/UniTOLC-sub001/internal/model"
	"github.com/google/uuid"
)

// Negative marking per TOLC rules: +1 correct, -0.25 wrong, 0 blank.
const (
	pointsCorrect = 1.0
	penaltyWrong  = 0.25
)

// ScoreSection computes the score of one section from its question list
// and the submitted answer map. Pure function, no side effects.
// Raw = correct - 0.25*incorrect and may be negative.
func ScoreSection(questions []model.Question, answers map[uuid.UUID]string) model.Score {
	score := model.Score{
		TotalQuestions: len(questions),
		MaxScore:       float64(len(questions)) * pointsCorrect,
	}

	for _, q := range questions {
		chosen, ok := answers[q.ID]
		switch {
		case !ok || chosen == "":
			score.Unanswered++
		case chosen == q.CorrectOption:
			score.Correct++
		default:
			score.Incorrect++
		}
	}

	score.Raw = float64(score.Correct)*pointsCorrect - float64(score.Incorrect)*penaltyWrong
	return score
}
