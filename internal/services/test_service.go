package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/examshield/exam-service/internal/cache"
	"github.com/examshield/exam-service/internal/models"
	"github.com/examshield/exam-service/internal/repositories"
)

const publicQuestionsTTL = 5 * time.Minute

// TestService serves test metadata and the public (answer-key-free) question
// projection used while taking a test.
type TestService interface {
	ListActive(ctx context.Context) ([]*models.Test, error)
	GetByID(ctx context.Context, testID uint) (*models.Test, error)
	GetPublicQuestions(ctx context.Context, testID uint) ([]models.PublicQuestion, error)
}

type testService struct {
	repo   repositories.Repository
	cache  cache.CacheService
	logger *slog.Logger
}

func NewTestService(repo repositories.Repository, cacheService cache.CacheService, logger *slog.Logger) TestService {
	return &testService{
		repo:   repo,
		cache:  cacheService,
		logger: logger,
	}
}

func (s *testService) ListActive(ctx context.Context) ([]*models.Test, error) {
	tests, err := s.repo.Test().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, nil
}

func (s *testService) GetByID(ctx context.Context, testID uint) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

// GetPublicQuestions projects the answer key away at this boundary; only the
// scorer ever sees the internal shape. The projection is cached per test since
// every participant polls the same ordered set.
func (s *testService) GetPublicQuestions(ctx context.Context, testID uint) ([]models.PublicQuestion, error) {
	cacheKey := fmt.Sprintf("test:%d:questions:public", testID)

	var cached []models.PublicQuestion
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Question cache read failed", "test_id", testID, "error", err)
		}
	}

	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if !test.IsActive {
		return nil, ErrTestNotFound
	}

	questions, err := s.repo.Question().GetByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	public := make([]models.PublicQuestion, 0, len(questions))
	for _, q := range questions {
		public = append(public, q.Public())
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, public, publicQuestionsTTL); err != nil {
			s.logger.Warn("Question cache write failed", "test_id", testID, "error", err)
		}
	}
	return public, nil
}
