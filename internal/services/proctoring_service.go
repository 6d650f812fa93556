package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/examshield/exam-service/internal/events"
	"github.com/examshield/exam-service/internal/ml"
	"github.com/examshield/exam-service/internal/models"
	"github.com/examshield/exam-service/internal/repositories"
	"github.com/examshield/exam-service/internal/utils"
	"gorm.io/datatypes"
)

// ===== REQUEST / RESPONSE TYPES =====

type LogEventRequest struct {
	TestID         uint   `json:"test_id" validate:"required"`
	AttemptID      uint   `json:"attempt_id" validate:"required"`
	EventType      string `json:"event_type" validate:"required,proctoring_event_type"`
	Severity       string `json:"severity" validate:"omitempty,severity_level"`
	Description    string `json:"description" validate:"max=1000"`
	QuestionNumber int    `json:"question_number" validate:"min=0"`
}

type FrameRequest struct {
	TestID         uint
	AttemptID      uint
	QuestionNumber int
	Frame          ml.Frame
}

// FrameResult is the per-capture outcome returned to the monitoring client.
type FrameResult struct {
	CheatingScore float64                    `json:"cheating_score"`
	Severity      models.Severity            `json:"severity"`
	EventType     models.ProctoringEventType `json:"event_type"`
	Details       *ml.Result                 `json:"details"`
}

// ProctoringService is the append-only event log plus its read and rollup
// side: two producers (client-observed behavior and inference-derived
// classifications) write events, operators and participants read them.
type ProctoringService interface {
	LogEvent(ctx context.Context, req *LogEventRequest, userID string) (*models.ProctoringEvent, error)
	ProcessFrame(ctx context.Context, req *FrameRequest, userID string) (*FrameResult, error)
	ListByAttempt(ctx context.Context, attemptID uint, userID string) ([]*models.ProctoringEvent, error)
	ListByTest(ctx context.Context, testID uint) ([]*models.ProctoringEvent, error)
	StatsByTest(ctx context.Context, testID uint) ([]*repositories.UserViolationStats, error)
}

type proctoringService struct {
	repo      repositories.Repository
	inference ml.Client
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator
}

func NewProctoringService(
	repo repositories.Repository,
	inference ml.Client,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *utils.Validator,
) ProctoringService {
	return &proctoringService{
		repo:      repo,
		inference: inference,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// ===== PRODUCERS =====

// LogEvent is the behavioral producer: the client asserts what it observed
// (tab switch, window blur, ...). The cheating score stays at zero.
func (s *proctoringService) LogEvent(ctx context.Context, req *LogEventRequest, userID string) (*models.ProctoringEvent, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	severity := models.Severity(req.Severity)
	if severity == "" {
		severity = models.SeverityLow
	}

	event := &models.ProctoringEvent{
		UserID:         userID,
		TestID:         req.TestID,
		AttemptID:      req.AttemptID,
		EventType:      models.ProctoringEventType(req.EventType),
		Severity:       severity,
		Description:    req.Description,
		QuestionNumber: req.QuestionNumber,
		Timestamp:      time.Now(),
	}

	if err := s.repo.Proctoring().Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to store proctoring event: %w", err)
	}

	s.logger.Info("Proctoring event logged",
		"event_id", event.ID,
		"attempt_id", event.AttemptID,
		"event_type", event.EventType,
		"severity", event.Severity)

	s.alertIfSevere(ctx, event)
	return event, nil
}

// ProcessFrame is the inference producer: one captured frame goes to the
// external collaborator, the returned score is classified and persisted with
// the raw payload for audit. A collaborator failure degrades only this
// capture; the exam session is untouched and the next tick may retry.
func (s *proctoringService) ProcessFrame(ctx context.Context, req *FrameRequest, userID string) (*FrameResult, error) {
	if len(req.Frame.Data) == 0 {
		return nil, ErrEmptyFrame
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, req.AttemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, NewPermissionError(userID, req.AttemptID, "attempt", "proctor", "not owned by user")
	}

	// No lock is held across this network call; a slow collaborator delays
	// only this event's visibility, never the attempt state machine.
	result, err := s.inference.CheckFrame(ctx, req.Frame)
	if err != nil {
		s.logger.Warn("Frame analysis failed",
			"attempt_id", req.AttemptID,
			"error", err)
		return nil, fmt.Errorf("%w: %v", ErrInferenceUnavailable, err)
	}

	severity := SeverityForScore(result.CheatingScore)
	eventType := EventTypeForDetection(result.MobileDetected)
	description := result.Message
	if description == "" {
		if result.MobileDetected {
			description = "Mobile device detected during monitoring"
		} else {
			description = "Face detection check"
		}
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inference payload: %w", err)
	}

	event := &models.ProctoringEvent{
		UserID:          userID,
		TestID:          req.TestID,
		AttemptID:       req.AttemptID,
		EventType:       eventType,
		Severity:        severity,
		CheatingScore:   result.CheatingScore,
		InferenceResult: datatypes.JSON(raw),
		Description:     description,
		QuestionNumber:  req.QuestionNumber,
		Timestamp:       time.Now(),
	}

	if err := s.repo.Proctoring().Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to store proctoring event: %w", err)
	}

	s.logger.Info("Frame processed",
		"event_id", event.ID,
		"attempt_id", event.AttemptID,
		"cheating_score", event.CheatingScore,
		"severity", event.Severity,
		"event_type", event.EventType)

	s.alertIfSevere(ctx, event)

	return &FrameResult{
		CheatingScore: result.CheatingScore,
		Severity:      severity,
		EventType:     eventType,
		Details:       result,
	}, nil
}

// ===== READ OPERATIONS =====

func (s *proctoringService) ListByAttempt(ctx context.Context, attemptID uint, userID string) ([]*models.ProctoringEvent, error) {
	eventList, err := s.repo.Proctoring().GetByAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proctoring events: %w", err)
	}
	return eventList, nil
}

func (s *proctoringService) ListByTest(ctx context.Context, testID uint) ([]*models.ProctoringEvent, error) {
	eventList, err := s.repo.Proctoring().GetByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proctoring events: %w", err)
	}
	return eventList, nil
}

func (s *proctoringService) StatsByTest(ctx context.Context, testID uint) ([]*repositories.UserViolationStats, error) {
	stats, err := s.repo.Proctoring().GetStatsByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate proctoring stats: %w", err)
	}
	return stats, nil
}

// alertIfSevere publishes high and critical events for operator notification.
// Best-effort, like all event publishing.
func (s *proctoringService) alertIfSevere(ctx context.Context, event *models.ProctoringEvent) {
	if s.publisher == nil {
		return
	}
	if event.Severity != models.SeverityHigh && event.Severity != models.SeverityCritical {
		return
	}

	alert := events.NewExamEvent(events.EventProctoringAlert, events.ProctoringAlertEvent{
		EventID:       event.ID,
		AttemptID:     event.AttemptID,
		TestID:        event.TestID,
		UserID:        event.UserID,
		EventType:     event.EventType,
		Severity:      event.Severity,
		CheatingScore: event.CheatingScore,
	})
	if err := s.publisher.PublishExamEvent(ctx, alert); err != nil {
		s.logger.Error("Failed to publish proctoring alert",
			"event_id", event.ID,
			"error", err)
	}
}
