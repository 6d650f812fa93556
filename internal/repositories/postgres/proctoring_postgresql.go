package postgres

import (
	"context"

	"github.com/examshield/exam-service/internal/models"
	"github.com/examshield/exam-service/internal/repositories"
	"gorm.io/gorm"
)

type ProctoringPostgreSQL struct {
	db *gorm.DB
}

func NewProctoringPostgreSQL(db *gorm.DB) repositories.ProctoringRepository {
	return &ProctoringPostgreSQL{db: db}
}

func (p *ProctoringPostgreSQL) Create(ctx context.Context, event *models.ProctoringEvent) error {
	return retryWrite(func() error {
		return p.db.WithContext(ctx).Create(event).Error
	})
}

func (p *ProctoringPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint, userID string) ([]*models.ProctoringEvent, error) {
	var events []*models.ProctoringEvent
	if err := p.db.WithContext(ctx).
		Where("attempt_id = ? AND user_id = ?", attemptID, userID).
		Order("timestamp DESC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (p *ProctoringPostgreSQL) GetByTest(ctx context.Context, testID uint) ([]*models.ProctoringEvent, error) {
	var events []*models.ProctoringEvent
	if err := p.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Preload("User").
		Preload("Test").
		Order("timestamp DESC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (p *ProctoringPostgreSQL) GetStatsByTest(ctx context.Context, testID uint) ([]*repositories.UserViolationStats, error) {
	var stats []*repositories.UserViolationStats
	// Grouped rollup scoped strictly to the requested test. Users with no
	// events for this test produce no row.
	err := p.db.WithContext(ctx).
		Model(&models.ProctoringEvent{}).
		Select(`proctoring_events.user_id,
			users.email AS user_email,
			users.full_name AS user_full_name,
			COUNT(*) AS total_violations,
			AVG(proctoring_events.cheating_score) AS avg_cheating_score,
			COUNT(*) FILTER (WHERE proctoring_events.severity = ?) AS critical_count,
			COUNT(*) FILTER (WHERE proctoring_events.severity = ?) AS high_count`,
			models.SeverityCritical, models.SeverityHigh).
		Joins("LEFT JOIN users ON users.id = proctoring_events.user_id").
		Where("proctoring_events.test_id = ?", testID).
		Group("proctoring_events.user_id, users.email, users.full_name").
		Order("total_violations DESC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
