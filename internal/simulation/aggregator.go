package simulation

import (
	"time"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/model"
	"github.com/google/uuid"
)

// BuildFinalReport combines every completed section attempt of a session
// into the final report: per-section breakdown, overall score and a
// flattened per-question review. Missing answers render as unanswered;
// sections with zero questions contribute an empty score line.
func BuildFinalReport(
	examType *model.ExamType,
	session *model.Session,
	attempts []model.SectionAttempt,
	questionsBySection map[uuid.UUID][]model.Question,
	completedAt time.Time,
) *model.FinalReport {
	report := &model.FinalReport{
		SessionID:    session.ID,
		ExamTypeCode: examType.Code,
		ExamTypeName: examType.Name,
		CompletedAt:  completedAt,
	}

	for _, section := range examType.Sections {
		attempt := attemptForSection(attempts, section.ID)
		if attempt == nil || attempt.Status != model.AttemptStatusCompleted {
			continue
		}

		result := model.SectionResult{
			SectionID: section.ID,
			Name:      section.Name,
		}
		if attempt.Score != nil {
			result.Score = *attempt.Score
		}
		if attempt.TimeSpentSeconds != nil {
			result.TimeSpentSeconds = *attempt.TimeSpentSeconds
		}

		report.OverallScore += result.Score.Raw
		report.MaxScore += result.Score.MaxScore
		report.Sections = append(report.Sections, result)

		for _, q := range questionsBySection[section.ID] {
			report.Questions = append(report.Questions, reviewQuestion(section.Name, q, attempt.Answers))
		}
	}

	return report
}

func reviewQuestion(sectionName string, q model.Question, answers map[uuid.UUID]string) model.QuestionReview {
	review := model.QuestionReview{
		QuestionID:  q.ID,
		SectionName: sectionName,
		Text:        q.Text,
		CorrectKey:  q.CorrectOption,
		CorrectText: q.Options[q.CorrectOption],
		Explanation: q.Explanation,
	}

	chosen, ok := answers[q.ID]
	if !ok || chosen == "" {
		return review
	}

	review.Answered = true
	review.ChosenKey = chosen
	review.ChosenText = q.Options[chosen]
	review.Correct = chosen == q.CorrectOption
	return review
}

func attemptForSection(attempts []model.SectionAttempt, sectionID uuid.UUID) *model.SectionAttempt {
	for i := range attempts {
		if attempts[i].SectionID == sectionID {
			return &attempts[i]
		}
	}
	return nil
}
