package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/examshield/exam-service/internal/ml"
	"github.com/examshield/exam-service/internal/models"
	"github.com/examshield/exam-service/internal/repositories"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockRepository is a mock implementation of the main Repository interface.
// WithTx executes the callback against the mock itself, so expectations set on
// the sub-repositories cover both direct and transactional access.
type MockRepository struct {
	mock.Mock
	TestRepo       *MockTestRepository
	QuestionRepo   *MockQuestionRepository
	AttemptRepo    *MockAttemptRepository
	ProctoringRepo *MockProctoringRepository
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		TestRepo:       new(MockTestRepository),
		QuestionRepo:   new(MockQuestionRepository),
		AttemptRepo:    new(MockAttemptRepository),
		ProctoringRepo: new(MockProctoringRepository),
	}
}

func (m *MockRepository) Test() repositories.TestRepository             { return m.TestRepo }
func (m *MockRepository) Question() repositories.QuestionRepository     { return m.QuestionRepo }
func (m *MockRepository) Attempt() repositories.AttemptRepository       { return m.AttemptRepo }
func (m *MockRepository) Proctoring() repositories.ProctoringRepository { return m.ProctoringRepo }

func (m *MockRepository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *MockRepository) AssertExpectations(t mock.TestingT) bool {
	ok := m.TestRepo.AssertExpectations(t)
	ok = m.QuestionRepo.AssertExpectations(t) && ok
	ok = m.AttemptRepo.AssertExpectations(t) && ok
	ok = m.ProctoringRepo.AssertExpectations(t) && ok
	return ok
}

type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Test), args.Error(1)
}

func (m *MockTestRepository) ListActive(ctx context.Context) ([]*models.Test, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Test), args.Error(1)
}

type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) GetByTest(ctx context.Context, testID uint) ([]*models.Question, error) {
	args := m.Called(ctx, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Question), args.Error(1)
}

type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *models.TestAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByID(ctx context.Context, id uint) (*models.TestAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.TestAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.TestAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) Update(ctx context.Context, attempt *models.TestAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) CountByUserAndTest(ctx context.Context, userID string, testID uint) (int64, error) {
	args := m.Called(ctx, userID, testID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttemptRepository) GetActiveAttempt(ctx context.Context, userID string, testID uint) (*models.TestAttempt, error) {
	args := m.Called(ctx, userID, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) UpsertAnswer(ctx context.Context, answer *models.AttemptAnswer) error {
	args := m.Called(ctx, answer)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetAnswers(ctx context.Context, attemptID uint) ([]*models.AttemptAnswer, error) {
	args := m.Called(ctx, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AttemptAnswer), args.Error(1)
}

func (m *MockAttemptRepository) SaveGradedAnswers(ctx context.Context, answers []*models.AttemptAnswer) error {
	args := m.Called(ctx, answers)
	return args.Error(0)
}

func (m *MockAttemptRepository) UpdateLiveness(ctx context.Context, id uint, clientRemaining int, seenAt time.Time) error {
	args := m.Called(ctx, id, clientRemaining, seenAt)
	return args.Error(0)
}

type MockProctoringRepository struct {
	mock.Mock
}

func (m *MockProctoringRepository) Create(ctx context.Context, event *models.ProctoringEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockProctoringRepository) GetByAttempt(ctx context.Context, attemptID uint, userID string) ([]*models.ProctoringEvent, error) {
	args := m.Called(ctx, attemptID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ProctoringEvent), args.Error(1)
}

func (m *MockProctoringRepository) GetByTest(ctx context.Context, testID uint) ([]*models.ProctoringEvent, error) {
	args := m.Called(ctx, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ProctoringEvent), args.Error(1)
}

func (m *MockProctoringRepository) GetStatsByTest(ctx context.Context, testID uint) ([]*repositories.UserViolationStats, error) {
	args := m.Called(ctx, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repositories.UserViolationStats), args.Error(1)
}

// MockInferenceClient is a mock implementation of the ml.Client interface.
type MockInferenceClient struct {
	mock.Mock
}

func (m *MockInferenceClient) CheckFrame(ctx context.Context, frame ml.Frame) (*ml.Result, error) {
	args := m.Called(ctx, frame)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ml.Result), args.Error(1)
}
