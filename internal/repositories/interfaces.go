package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/examshield/exam-service/internal/models"
	"gorm.io/gorm"
)

// Repository aggregates the per-model repositories. WithTx runs fn against a
// transactional copy of the aggregate; per-attempt mutations are serialized by
// combining it with AttemptRepository.GetByIDForUpdate.
type Repository interface {
	Test() TestRepository
	Question() QuestionRepository
	Attempt() AttemptRepository
	Proctoring() ProctoringRepository

	WithTx(ctx context.Context, fn func(Repository) error) error
}

type TestRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	ListActive(ctx context.Context) ([]*models.Test, error)
}

type QuestionRepository interface {
	// GetByTest returns the internal projection (with answer key), ordered by
	// question number. Callers serving test-takers must project with Public().
	GetByTest(ctx context.Context, testID uint) ([]*models.Question, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.TestAttempt) error
	GetByID(ctx context.Context, id uint) (*models.TestAttempt, error)
	// GetByIDForUpdate takes a row lock; only valid inside WithTx.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.TestAttempt, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.TestAttempt, error)
	Update(ctx context.Context, attempt *models.TestAttempt) error

	CountByUserAndTest(ctx context.Context, userID string, testID uint) (int64, error)
	GetActiveAttempt(ctx context.Context, userID string, testID uint) (*models.TestAttempt, error)

	UpsertAnswer(ctx context.Context, answer *models.AttemptAnswer) error
	GetAnswers(ctx context.Context, attemptID uint) ([]*models.AttemptAnswer, error)
	SaveGradedAnswers(ctx context.Context, answers []*models.AttemptAnswer) error

	UpdateLiveness(ctx context.Context, id uint, clientRemaining int, seenAt time.Time) error
}

type ProctoringRepository interface {
	Create(ctx context.Context, event *models.ProctoringEvent) error
	// GetByAttempt is scoped to the owning user; newest first.
	GetByAttempt(ctx context.Context, attemptID uint, userID string) ([]*models.ProctoringEvent, error)
	// GetByTest is the operator view across users, joined with identity fields;
	// newest first.
	GetByTest(ctx context.Context, testID uint) ([]*models.ProctoringEvent, error)
	GetStatsByTest(ctx context.Context, testID uint) ([]*UserViolationStats, error)
}

// UserViolationStats is the per-user rollup for one test. Users with no events
// for the test do not appear.
type UserViolationStats struct {
	UserID           string  `json:"user_id"`
	UserEmail        string  `json:"user_email"`
	UserFullName     string  `json:"user_full_name"`
	TotalViolations  int     `json:"total_violations"`
	AvgCheatingScore float64 `json:"avg_cheating_score"`
	CriticalCount    int     `json:"critical_count"`
	HighCount        int     `json:"high_count"`
}

// IsNotFoundError reports whether err is the storage layer's missing-record error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKeyError reports whether err is a unique-constraint violation,
// the signal that a concurrent writer won an attempt-number race.
func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
