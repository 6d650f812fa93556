package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Test struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Title           string     `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description     *string    `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	Duration        int        `json:"duration" gorm:"not null" validate:"required,min=1,max=300"` // minutes
	TotalMarks      int        `json:"total_marks" gorm:"not null" validate:"min=1"`
	PassingMarks    int        `json:"passing_marks" gorm:"not null" validate:"min=0"`
	IsActive        bool       `json:"is_active" gorm:"default:true;index"`
	AllowedAttempts int        `json:"allowed_attempts" gorm:"default:1" validate:"min=1,max=10"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []Question    `json:"questions,omitempty" gorm:"foreignKey:TestID"`
	Attempts  []TestAttempt `json:"-" gorm:"foreignKey:TestID"`
}

func (Test) TableName() string {
	return "tests"
}

type QuestionOption struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question is the internal projection: it carries the answer key and must never
// be serialized toward a test-taker. Use Public() at the boundary instead.
type Question struct {
	ID             uint                                  `json:"id" gorm:"primaryKey"`
	TestID         uint                                  `json:"test_id" gorm:"not null;index"`
	Text           string                                `json:"text" gorm:"type:text;not null" validate:"required"`
	Options        datatypes.JSONSlice[QuestionOption]   `json:"options" gorm:"type:jsonb;not null" validate:"required,min=2"`
	CorrectAnswer  string                                `json:"correct_answer" gorm:"not null;size:10" validate:"required"`
	Marks          int                                   `json:"marks" gorm:"default:1" validate:"min=1"`
	QuestionNumber int                                   `json:"question_number" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// PublicQuestion is the projection served to test-takers during an attempt.
// It is a distinct shape, not a field-hiding flag, so the answer key cannot
// leak through serialization.
type PublicQuestion struct {
	ID             uint             `json:"id"`
	TestID         uint             `json:"test_id"`
	Text           string           `json:"text"`
	Options        []QuestionOption `json:"options"`
	Marks          int              `json:"marks"`
	QuestionNumber int              `json:"question_number"`
}

func (q *Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:             q.ID,
		TestID:         q.TestID,
		Text:           q.Text,
		Options:        []QuestionOption(q.Options),
		Marks:          q.Marks,
		QuestionNumber: q.QuestionNumber,
	}
}

// HasValidAnswerKey reports whether exactly one option label matches the
// stored correct answer.
func (q *Question) HasValidAnswerKey() bool {
	matches := 0
	for _, opt := range q.Options {
		if opt.Label == q.CorrectAnswer {
			matches++
		}
	}
	return matches == 1
}
