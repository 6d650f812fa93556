package services

import (
	"github.com/examshield/exam-service/internal/models"
)

// ScoreResult is the outcome of grading one attempt.
type ScoreResult struct {
	Answers    []*models.AttemptAnswer
	TotalScore int
	IsPassed   bool
}

// ScoreAttempt grades the given answers against the answer-key questions.
// Pure and deterministic: identical input yields identical output, and the
// inputs are not mutated. Answers referencing unknown questions and questions
// never answered both score zero.
func ScoreAttempt(answers []*models.AttemptAnswer, questions []*models.Question, passingMarks int) ScoreResult {
	keyByID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		keyByID[q.ID] = q
	}

	graded := make([]*models.AttemptAnswer, len(answers))
	totalScore := 0
	for i, answer := range answers {
		out := *answer
		question, ok := keyByID[answer.QuestionID]
		if ok && question.CorrectAnswer == answer.SelectedAnswer {
			correct := true
			out.IsCorrect = &correct
			out.MarksObtained = question.Marks
			totalScore += question.Marks
		} else {
			incorrect := false
			out.IsCorrect = &incorrect
			out.MarksObtained = 0
		}
		graded[i] = &out
	}

	return ScoreResult{
		Answers:    graded,
		TotalScore: totalScore,
		IsPassed:   totalScore >= passingMarks, // equality passes
	}
}
