package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/examshield/exam-service/internal/events"
	"github.com/examshield/exam-service/internal/models"
	"github.com/examshield/exam-service/internal/repositories"
	"github.com/examshield/exam-service/internal/utils"
)

// ===== REQUEST / RESPONSE TYPES =====

type StartAttemptRequest struct {
	TestID uint `json:"test_id" validate:"required"`
}

type SaveAnswerRequest struct {
	QuestionID     uint   `json:"question_id" validate:"required"`
	SelectedAnswer string `json:"selected_answer" validate:"required,min=1,max=10"`
}

type UpdateTimeRequest struct {
	TimeRemaining int `json:"time_remaining" validate:"min=0"`
}

type AnswerResponse struct {
	QuestionID     uint                   `json:"question_id"`
	SelectedAnswer string                 `json:"selected_answer"`
	IsCorrect      *bool                  `json:"is_correct,omitempty"`
	MarksObtained  int                    `json:"marks_obtained"`
	Question       *models.PublicQuestion `json:"question,omitempty"`
}

type AttemptResponse struct {
	ID            uint                 `json:"id"`
	TestID        uint                 `json:"test_id"`
	UserID        string               `json:"user_id"`
	AttemptNumber int                  `json:"attempt_number"`
	Status        models.AttemptStatus `json:"status"`
	TimeRemaining int                  `json:"time_remaining"` // server-computed seconds
	TotalScore    int                  `json:"total_score"`
	IsPassed      bool                 `json:"is_passed"`
	StartedAt     time.Time            `json:"started_at"`
	SubmittedAt   *time.Time           `json:"submitted_at,omitempty"`
	Resumed       bool                 `json:"resumed,omitempty"`
	Answers       []AnswerResponse     `json:"answers"`
}

// AttemptService owns the attempt state machine: create/resume, answer upsert,
// liveness updates and the one-way submission transition.
type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, userID string) (*AttemptResponse, error)
	SaveAnswer(ctx context.Context, attemptID uint, req *SaveAnswerRequest, userID string) (*AttemptResponse, error)
	UpdateTime(ctx context.Context, attemptID uint, req *UpdateTimeRequest, userID string) (int, error)
	Submit(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error)
	GetByID(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error)
}

type attemptService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator
}

func NewAttemptService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *utils.Validator) AttemptService {
	return &attemptService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, userID string) (*AttemptResponse, error) {
	s.logger.Info("Starting test attempt",
		"test_id", req.TestID,
		"user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	test, err := s.repo.Test().GetByID(ctx, req.TestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if !test.IsActive {
		return nil, ErrTestNotFound
	}

	attempt, resumed, err := s.createOrResume(ctx, test, userID)
	if err != nil && repositories.IsDuplicateKeyError(err) {
		// A concurrent start won the attempt-number slot; one re-check settles
		// whether we resume its attempt or the limit is genuinely reached.
		attempt, resumed, err = s.createOrResume(ctx, test, userID)
	}
	if err != nil {
		return nil, err
	}

	if resumed {
		s.logger.Info("Resuming existing attempt", "attempt_id", attempt.ID)
	} else {
		s.logger.Info("Test attempt started",
			"attempt_id", attempt.ID,
			"attempt_number", attempt.AttemptNumber)
		s.publish(ctx, events.NewExamEvent(events.EventAttemptStarted, events.AttemptStartedEvent{
			AttemptID:     attempt.ID,
			TestID:        attempt.TestID,
			UserID:        attempt.UserID,
			AttemptNumber: attempt.AttemptNumber,
			TimeLimit:     attempt.TimeLimit,
		}))
	}

	response, err := s.buildDetailResponse(ctx, attempt.ID, userID)
	if err != nil {
		return nil, err
	}
	response.Resumed = resumed
	return response, nil
}

// createOrResume returns the user's in-progress attempt when one exists
// (idempotent resume), otherwise atomically claims the next attempt number.
// An expired attempt is not resumable: it is sealed as auto-submitted under
// the row lock and the caller falls through to the limit check, so a
// disconnected client's attempt cannot come back as a zombie.
func (s *attemptService) createOrResume(ctx context.Context, test *models.Test, userID string) (*models.TestAttempt, bool, error) {
	var attempt *models.TestAttempt
	var resumed bool
	var sealed *models.TestAttempt
	var limitReached bool

	err := s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		active, err := tx.Attempt().GetActiveAttempt(ctx, userID, test.ID)
		if err != nil {
			return fmt.Errorf("failed to check active attempt: %w", err)
		}
		if active != nil {
			if !active.IsExpired(time.Now()) {
				attempt, resumed = active, true
				return nil
			}
			locked, err := tx.Attempt().GetByIDForUpdate(ctx, active.ID)
			if err != nil {
				return fmt.Errorf("failed to lock expired attempt: %w", err)
			}
			if !locked.Status.IsTerminal() {
				if err := s.finalizeAttempt(ctx, tx, locked, models.AttemptAutoSubmitted); err != nil {
					return err
				}
				sealed = locked
			}
		}

		count, err := tx.Attempt().CountByUserAndTest(ctx, userID, test.ID)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		if count >= int64(test.AllowedAttempts) {
			// Flagged instead of returned so the seal above still commits.
			limitReached = true
			return nil
		}

		attempt = &models.TestAttempt{
			UserID:        userID,
			TestID:        test.ID,
			AttemptNumber: int(count) + 1,
			Status:        models.AttemptInProgress,
			TimeLimit:     test.Duration * 60,
			StartedAt:     time.Now(),
		}
		return tx.Attempt().Create(ctx, attempt)
	})
	if err != nil {
		return nil, false, err
	}
	if sealed != nil {
		s.logger.Info("Expired attempt auto-submitted on resume",
			"attempt_id", sealed.ID,
			"user_id", userID)
		s.publishAutoSubmitted(ctx, sealed)
	}
	if limitReached {
		return nil, false, ErrAttemptLimitExceeded
	}
	return attempt, resumed, nil
}

func (s *attemptService) SaveAnswer(ctx context.Context, attemptID uint, req *SaveAnswerRequest, userID string) (*AttemptResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var sealed *models.TestAttempt
	err := s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		attempt, expired, err := s.lockActiveAttempt(ctx, tx, attemptID, userID, "save_answer")
		if err != nil {
			return err
		}
		if expired {
			// Commit the auto-submission; the save itself is rejected below.
			sealed = attempt
			return nil
		}

		return tx.Attempt().UpsertAnswer(ctx, &models.AttemptAnswer{
			AttemptID:      attempt.ID,
			QuestionID:     req.QuestionID,
			SelectedAnswer: req.SelectedAnswer,
		})
	})
	if err != nil {
		return nil, err
	}
	if sealed != nil {
		s.publishAutoSubmitted(ctx, sealed)
		return nil, ErrAttemptTimeExpired
	}

	s.logger.Debug("Answer saved",
		"attempt_id", attemptID,
		"question_id", req.QuestionID)

	return s.buildDetailResponse(ctx, attemptID, userID)
}

// UpdateTime records the client-reported remaining time as a liveness hint
// only; the returned value is the server-computed remainder, which is the
// single source of truth for expiry.
func (s *attemptService) UpdateTime(ctx context.Context, attemptID uint, req *UpdateTimeRequest, userID string) (int, error) {
	if err := s.validator.Validate(req); err != nil {
		return 0, err
	}

	now := time.Now()
	var remaining int
	var sealed *models.TestAttempt
	err := s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		attempt, expired, err := s.lockActiveAttempt(ctx, tx, attemptID, userID, "update_time")
		if err != nil {
			return err
		}
		if expired {
			sealed = attempt
			return nil
		}

		remaining = attempt.TimeRemaining(now)
		return tx.Attempt().UpdateLiveness(ctx, attempt.ID, req.TimeRemaining, now)
	})
	if err != nil {
		return 0, err
	}
	if sealed != nil {
		s.publishAutoSubmitted(ctx, sealed)
		return 0, ErrAttemptTimeExpired
	}
	return remaining, nil
}

func (s *attemptService) Submit(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error) {
	s.logger.Info("Submitting test attempt",
		"attempt_id", attemptID,
		"user_id", userID)

	var submitted *models.TestAttempt
	err := s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		attempt, err := tx.Attempt().GetByIDForUpdate(ctx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}
		if attempt.UserID != userID {
			return NewPermissionError(userID, attemptID, "attempt", "submit", "not owned by user")
		}
		if attempt.Status.IsTerminal() {
			return ErrAttemptAlreadySubmitted
		}

		status := models.AttemptSubmitted
		if attempt.IsExpired(time.Now()) {
			status = models.AttemptAutoSubmitted
		}
		if err := s.finalizeAttempt(ctx, tx, attempt, status); err != nil {
			return err
		}
		submitted = attempt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Test attempt submitted",
		"attempt_id", submitted.ID,
		"total_score", submitted.TotalScore,
		"is_passed", submitted.IsPassed,
		"status", submitted.Status)

	eventType := events.EventAttemptSubmitted
	if submitted.Status == models.AttemptAutoSubmitted {
		eventType = events.EventAttemptAutoSubmitted
	}
	s.publish(ctx, events.NewExamEvent(eventType, events.AttemptSubmittedEvent{
		AttemptID:     submitted.ID,
		TestID:        submitted.TestID,
		UserID:        submitted.UserID,
		TotalScore:    submitted.TotalScore,
		IsPassed:      submitted.IsPassed,
		AutoSubmitted: submitted.Status == models.AttemptAutoSubmitted,
	}))

	return s.buildDetailResponse(ctx, attemptID, userID)
}

func (s *attemptService) GetByID(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error) {
	return s.buildDetailResponse(ctx, attemptID, userID)
}

// ===== HELPERS =====

// lockActiveAttempt row-locks the attempt and enforces ownership plus the
// in-progress precondition. An expired attempt is finalized as auto-submitted
// inside the caller's transaction and flagged so the caller can commit the
// seal while rejecting the mutation; a disconnected client's attempt is thus
// sealed the moment anything touches it.
func (s *attemptService) lockActiveAttempt(ctx context.Context, tx repositories.Repository, attemptID uint, userID, action string) (*models.TestAttempt, bool, error) {
	attempt, err := tx.Attempt().GetByIDForUpdate(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, false, ErrAttemptNotFound
		}
		return nil, false, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.UserID != userID {
		return nil, false, NewPermissionError(userID, attemptID, "attempt", action, "not owned by user")
	}
	if attempt.Status.IsTerminal() {
		return nil, false, ErrAttemptAlreadySubmitted
	}
	if attempt.IsExpired(time.Now()) {
		if err := s.finalizeAttempt(ctx, tx, attempt, models.AttemptAutoSubmitted); err != nil {
			return nil, false, err
		}
		s.logger.Info("Attempt auto-submitted on expiry",
			"attempt_id", attempt.ID,
			"action", action)
		return attempt, true, nil
	}
	return attempt, false, nil
}

// finalizeAttempt grades and seals the attempt. This is the linearization
// point of the state machine: it runs under the caller's row lock, and once
// the transaction commits every later mutation observes a terminal status.
func (s *attemptService) finalizeAttempt(ctx context.Context, tx repositories.Repository, attempt *models.TestAttempt, status models.AttemptStatus) error {
	questions, err := tx.Question().GetByTest(ctx, attempt.TestID)
	if err != nil {
		return fmt.Errorf("failed to load answer keys: %w", err)
	}
	for _, q := range questions {
		// Such a question can never be answered correctly; flag it for the
		// test author instead of failing the whole submission.
		if !q.HasValidAnswerKey() {
			s.logger.Warn("Question answer key matches no single option",
				"question_id", q.ID,
				"test_id", attempt.TestID)
		}
	}
	answers, err := tx.Attempt().GetAnswers(ctx, attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to load answers: %w", err)
	}
	test, err := tx.Test().GetByID(ctx, attempt.TestID)
	if err != nil {
		return fmt.Errorf("failed to load test: %w", err)
	}

	result := ScoreAttempt(answers, questions, test.PassingMarks)
	if err := tx.Attempt().SaveGradedAnswers(ctx, result.Answers); err != nil {
		return fmt.Errorf("failed to save graded answers: %w", err)
	}

	now := time.Now()
	attempt.Status = status
	attempt.SubmittedAt = &now
	attempt.TotalScore = result.TotalScore
	attempt.IsPassed = result.IsPassed
	if err := tx.Attempt().Update(ctx, attempt); err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	return nil
}

func (s *attemptService) buildDetailResponse(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, NewPermissionError(userID, attemptID, "attempt", "read", "not owned by user")
	}

	response := &AttemptResponse{
		ID:            attempt.ID,
		TestID:        attempt.TestID,
		UserID:        attempt.UserID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        attempt.Status,
		TotalScore:    attempt.TotalScore,
		IsPassed:      attempt.IsPassed,
		StartedAt:     attempt.StartedAt,
		SubmittedAt:   attempt.SubmittedAt,
		Answers:       make([]AnswerResponse, 0, len(attempt.Answers)),
	}
	if attempt.Status == models.AttemptInProgress {
		response.TimeRemaining = attempt.TimeRemaining(time.Now())
	}

	for _, answer := range attempt.Answers {
		entry := AnswerResponse{
			QuestionID:     answer.QuestionID,
			SelectedAnswer: answer.SelectedAnswer,
			IsCorrect:      answer.IsCorrect,
			MarksObtained:  answer.MarksObtained,
		}
		if answer.Question != nil {
			public := answer.Question.Public()
			entry.Question = &public
		}
		response.Answers = append(response.Answers, entry)
	}
	return response, nil
}

func (s *attemptService) publishAutoSubmitted(ctx context.Context, attempt *models.TestAttempt) {
	s.publish(ctx, events.NewExamEvent(events.EventAttemptAutoSubmitted, events.AttemptSubmittedEvent{
		AttemptID:     attempt.ID,
		TestID:        attempt.TestID,
		UserID:        attempt.UserID,
		TotalScore:    attempt.TotalScore,
		IsPassed:      attempt.IsPassed,
		AutoSubmitted: true,
	}))
}

// publish is best-effort: event delivery never fails an attempt operation.
func (s *attemptService) publish(ctx context.Context, event *events.ExamEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExamEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish exam event",
			"event_type", event.Type,
			"error", err)
	}
}
