package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/examshield/exam-service/internal/models"
	"github.com/examshield/exam-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.TestAttempt) error {
	// Deliberately no retry: a duplicate key here means a concurrent start won
	// the (user_id, test_id, attempt_number) slot and the caller must re-check.
	return a.db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDForUpdate(ctx context.Context, id uint) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.db.WithContext(ctx).
		Preload("Test").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("attempt_answers.question_id ASC")
		}).
		Preload("Answers.Question").
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, attempt *models.TestAttempt) error {
	return retryWrite(func() error {
		return a.db.WithContext(ctx).Save(attempt).Error
	})
}

func (a *AttemptPostgreSQL) CountByUserAndTest(ctx context.Context, userID string, testID uint) (int64, error) {
	var count int64
	if err := a.db.WithContext(ctx).
		Model(&models.TestAttempt{}).
		Where("user_id = ? AND test_id = ?", userID, testID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (a *AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, userID string, testID uint) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.db.WithContext(ctx).
		Where("user_id = ? AND test_id = ? AND status = ?", userID, testID, models.AttemptInProgress).
		First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) UpsertAnswer(ctx context.Context, answer *models.AttemptAnswer) error {
	// Idempotent per-question upsert: the (attempt_id, question_id) conflict
	// target guarantees exactly one row per question regardless of call order.
	return retryWrite(func() error {
		return a.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"selected_answer": answer.SelectedAnswer,
					"updated_at":      time.Now(),
				}),
			}).
			Create(answer).Error
	})
}

func (a *AttemptPostgreSQL) GetAnswers(ctx context.Context, attemptID uint) ([]*models.AttemptAnswer, error) {
	var answers []*models.AttemptAnswer
	if err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (a *AttemptPostgreSQL) SaveGradedAnswers(ctx context.Context, answers []*models.AttemptAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return retryWrite(func() error {
		for _, answer := range answers {
			if err := a.db.WithContext(ctx).
				Model(&models.AttemptAnswer{}).
				Where("id = ?", answer.ID).
				Updates(map[string]interface{}{
					"is_correct":     answer.IsCorrect,
					"marks_obtained": answer.MarksObtained,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (a *AttemptPostgreSQL) UpdateLiveness(ctx context.Context, id uint, clientRemaining int, seenAt time.Time) error {
	return retryWrite(func() error {
		return a.db.WithContext(ctx).
			Model(&models.TestAttempt{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"last_client_remaining": clientRemaining,
				"last_seen_at":          seenAt,
			}).Error
	})
}
