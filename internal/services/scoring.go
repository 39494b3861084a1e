package services

import (
	"math"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

type ScoreResult struct {
	Answers          []models.AttemptAnswer
	TotalScore       float64
	CorrectAnswers   int
	IncorrectAnswers int
	Unattempted      int
	Percentage       float64
}

// ScoreAttempt grades answers against the exam's questions. The result has one answer
// per question, in exam order; a question without an answer slot counts as unattempted.
func ScoreAttempt(questions []models.Question, answers []models.AttemptAnswer, totalMarks float64) ScoreResult {
	byQuestion := make(map[uint]models.AttemptAnswer, len(answers))
	for _, a := range answers {
		if _, seen := byQuestion[a.QuestionID]; !seen {
			byQuestion[a.QuestionID] = a
		}
	}

	result := ScoreResult{Answers: make([]models.AttemptAnswer, 0, len(questions))}
	for i := range questions {
		q := &questions[i]
		graded := models.AttemptAnswer{QuestionID: q.ID}
		if a, ok := byQuestion[q.ID]; ok && a.HasSelection() {
			graded.SelectedAnswer = a.SelectedAnswer
		}

		switch {
		case !graded.HasSelection():
			result.Unattempted++
		case *graded.SelectedAnswer == q.CorrectAnswer:
			graded.IsCorrect = true
			graded.MarksObtained = q.EffectiveMarks()
			result.TotalScore += graded.MarksObtained
			result.CorrectAnswers++
		default:
			result.IncorrectAnswers++
		}

		result.Answers = append(result.Answers, graded)
	}

	if totalMarks > 0 {
		result.Percentage = round2(result.TotalScore / totalMarks * 100)
	}
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
