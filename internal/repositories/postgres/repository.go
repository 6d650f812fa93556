package postgres

import (
	"context"

	"github.com/examshield/exam-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db         *gorm.DB
	test       repositories.TestRepository
	question   repositories.QuestionRepository
	attempt    repositories.AttemptRepository
	proctoring repositories.ProctoringRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:         db,
		test:       NewTestPostgreSQL(db),
		question:   NewQuestionPostgreSQL(db),
		attempt:    NewAttemptPostgreSQL(db),
		proctoring: NewProctoringPostgreSQL(db),
	}
}

func (r *repository) Test() repositories.TestRepository             { return r.test }
func (r *repository) Question() repositories.QuestionRepository     { return r.question }
func (r *repository) Attempt() repositories.AttemptRepository       { return r.attempt }
func (r *repository) Proctoring() repositories.ProctoringRepository { return r.proctoring }

func (r *repository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// retryWrite retries a storage write once before surfacing the error, so a
// transient failure does not silently drop an attempt mutation or event.
func retryWrite(write func() error) error {
	err := write()
	if err == nil || repositories.IsDuplicateKeyError(err) {
		return err
	}
	return write()
}
