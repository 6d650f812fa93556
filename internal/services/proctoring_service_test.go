package services

import (
	"context"
	"testing"
	"time"

	"github.com/examshield/exam-service/internal/events"
	"github.com/examshield/exam-service/internal/ml"
	"github.com/examshield/exam-service/internal/models"
	"github.com/examshield/exam-service/internal/repositories"
	"github.com/examshield/exam-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newProctoringServiceForTest() (ProctoringService, *MockRepository, *MockInferenceClient, *events.MockEventPublisher) {
	repo := NewMockRepository()
	inference := new(MockInferenceClient)
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewProctoringService(repo, inference, publisher, testLogger(), utils.NewValidator())
	return svc, repo, inference, publisher
}

func ownedAttempt() *models.TestAttempt {
	return &models.TestAttempt{
		ID:        42,
		UserID:    "user-1",
		TestID:    7,
		Status:    models.AttemptInProgress,
		TimeLimit: 900,
		StartedAt: time.Now().Add(-1 * time.Minute),
	}
}

func TestLogEvent_DefaultsSeverityLow(t *testing.T) {
	svc, repo, _, _ := newProctoringServiceForTest()
	ctx := context.Background()

	repo.ProctoringRepo.On("Create", ctx, mock.MatchedBy(func(e *models.ProctoringEvent) bool {
		return e.EventType == models.EventTabSwitch &&
			e.Severity == models.SeverityLow &&
			e.CheatingScore == 0 &&
			e.UserID == "user-1"
	})).Return(nil)

	event, err := svc.LogEvent(ctx, &LogEventRequest{
		TestID:    7,
		AttemptID: 42,
		EventType: string(models.EventTabSwitch),
	}, "user-1")

	assert.NoError(t, err)
	assert.Equal(t, models.SeverityLow, event.Severity)
	repo.AssertExpectations(t)
}

func TestLogEvent_RejectsUnknownType(t *testing.T) {
	svc, repo, _, _ := newProctoringServiceForTest()

	_, err := svc.LogEvent(context.Background(), &LogEventRequest{
		TestID:    7,
		AttemptID: 42,
		EventType: "screenshot",
	}, "user-1")

	assert.Error(t, err)
	assert.True(t, IsValidation(err))
	repo.ProctoringRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProcessFrame_CriticalMobileDetection(t *testing.T) {
	svc, repo, inference, publisher := newProctoringServiceForTest()
	ctx := context.Background()

	repo.AttemptRepo.On("GetByID", ctx, uint(42)).Return(ownedAttempt(), nil)
	inference.On("CheckFrame", ctx, mock.AnythingOfType("ml.Frame")).Return(&ml.Result{
		CheatingScore:  85,
		MobileDetected: true,
	}, nil)
	repo.ProctoringRepo.On("Create", ctx, mock.MatchedBy(func(e *models.ProctoringEvent) bool {
		return e.EventType == models.EventMobileDetection &&
			e.Severity == models.SeverityCritical &&
			e.CheatingScore == 85 &&
			e.Description == "Mobile device detected during monitoring" &&
			len(e.InferenceResult) > 0
	})).Return(nil)

	result, err := svc.ProcessFrame(ctx, &FrameRequest{
		TestID:    7,
		AttemptID: 42,
		Frame:     ml.Frame{Filename: "frame.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}},
	}, "user-1")

	assert.NoError(t, err)
	assert.Equal(t, models.SeverityCritical, result.Severity)
	assert.Equal(t, models.EventMobileDetection, result.EventType)
	assert.Equal(t, 85.0, result.CheatingScore)

	published := publisher.GetPublishedEvents()
	assert.Len(t, published, 1)
	assert.Equal(t, events.EventProctoringAlert, published[0].Type)
	repo.AssertExpectations(t)
}

func TestProcessFrame_LowScoreFaceCheck(t *testing.T) {
	svc, repo, inference, publisher := newProctoringServiceForTest()
	ctx := context.Background()

	repo.AttemptRepo.On("GetByID", ctx, uint(42)).Return(ownedAttempt(), nil)
	inference.On("CheckFrame", ctx, mock.AnythingOfType("ml.Frame")).Return(&ml.Result{
		CheatingScore:  12,
		MobileDetected: false,
	}, nil)
	repo.ProctoringRepo.On("Create", ctx, mock.MatchedBy(func(e *models.ProctoringEvent) bool {
		return e.EventType == models.EventFaceDetection &&
			e.Severity == models.SeverityLow &&
			e.Description == "Face detection check"
	})).Return(nil)

	result, err := svc.ProcessFrame(ctx, &FrameRequest{
		TestID:    7,
		AttemptID: 42,
		Frame:     ml.Frame{Filename: "frame.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}},
	}, "user-1")

	assert.NoError(t, err)
	assert.Equal(t, models.SeverityLow, result.Severity)
	assert.Empty(t, publisher.GetPublishedEvents(), "low severity publishes no alert")
}

func TestProcessFrame_InferenceFailureStoresNothing(t *testing.T) {
	svc, repo, inference, _ := newProctoringServiceForTest()
	ctx := context.Background()

	repo.AttemptRepo.On("GetByID", ctx, uint(42)).Return(ownedAttempt(), nil)
	inference.On("CheckFrame", ctx, mock.AnythingOfType("ml.Frame")).Return(nil, ml.ErrUnavailable)

	_, err := svc.ProcessFrame(ctx, &FrameRequest{
		TestID:    7,
		AttemptID: 42,
		Frame:     ml.Frame{Filename: "frame.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}},
	}, "user-1")

	assert.ErrorIs(t, err, ErrInferenceUnavailable)
	repo.ProctoringRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProcessFrame_EmptyFrame(t *testing.T) {
	svc, repo, inference, _ := newProctoringServiceForTest()

	_, err := svc.ProcessFrame(context.Background(), &FrameRequest{
		TestID:    7,
		AttemptID: 42,
	}, "user-1")

	assert.ErrorIs(t, err, ErrEmptyFrame)
	repo.AttemptRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	inference.AssertNotCalled(t, "CheckFrame", mock.Anything, mock.Anything)
}

func TestProcessFrame_ForeignAttempt(t *testing.T) {
	svc, repo, inference, _ := newProctoringServiceForTest()
	ctx := context.Background()

	foreign := ownedAttempt()
	foreign.UserID = "someone-else"
	repo.AttemptRepo.On("GetByID", ctx, uint(42)).Return(foreign, nil)

	_, err := svc.ProcessFrame(ctx, &FrameRequest{
		TestID:    7,
		AttemptID: 42,
		Frame:     ml.Frame{Filename: "frame.jpg", ContentType: "image/jpeg", Data: []byte{0xff}},
	}, "user-1")

	var permErr *PermissionError
	assert.ErrorAs(t, err, &permErr)
	inference.AssertNotCalled(t, "CheckFrame", mock.Anything, mock.Anything)
}

func TestStatsByTest_PassesThroughRollup(t *testing.T) {
	svc, repo, _, _ := newProctoringServiceForTest()
	ctx := context.Background()

	stats := []*repositories.UserViolationStats{
		{UserID: "user-1", UserFullName: "First User", TotalViolations: 5, AvgCheatingScore: 64.2, CriticalCount: 1, HighCount: 2},
	}
	repo.ProctoringRepo.On("GetStatsByTest", ctx, uint(7)).Return(stats, nil)

	result, err := svc.StatsByTest(ctx, 7)

	assert.NoError(t, err)
	assert.Equal(t, stats, result)
}
