package services

import (
	"context"
	"testing"

	"github.com/examshield/exam-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"
)

func TestGetPublicQuestions_StripsAnswerKey(t *testing.T) {
	repo := NewMockRepository()
	svc := NewTestService(repo, nil, testLogger())
	ctx := context.Background()

	repo.TestRepo.On("GetByID", ctx, uint(7)).Return(activeTest(), nil)
	repo.QuestionRepo.On("GetByTest", ctx, uint(7)).Return([]*models.Question{
		{
			ID:     1,
			TestID: 7,
			Text:   "Which layer does TCP live at?",
			Options: datatypes.NewJSONSlice([]models.QuestionOption{
				{Label: "a", Text: "Transport"},
				{Label: "b", Text: "Network"},
			}),
			CorrectAnswer:  "a",
			Marks:          1,
			QuestionNumber: 1,
		},
	}, nil)

	questions, err := svc.GetPublicQuestions(ctx, 7)

	assert.NoError(t, err)
	assert.Len(t, questions, 1)
	assert.Equal(t, "Which layer does TCP live at?", questions[0].Text)
	assert.Len(t, questions[0].Options, 2)
}

func TestGetPublicQuestions_InactiveTestHidden(t *testing.T) {
	repo := NewMockRepository()
	svc := NewTestService(repo, nil, testLogger())
	ctx := context.Background()

	inactive := activeTest()
	inactive.IsActive = false
	repo.TestRepo.On("GetByID", ctx, uint(7)).Return(inactive, nil)

	_, err := svc.GetPublicQuestions(ctx, 7)

	assert.ErrorIs(t, err, ErrTestNotFound)
	repo.QuestionRepo.AssertNotCalled(t, "GetByTest", mock.Anything, mock.Anything)
}
