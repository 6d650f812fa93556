package models

import (
	"time"
)

type AttemptStatus string

const (
	AttemptInProgress    AttemptStatus = "in-progress"
	AttemptSubmitted     AttemptStatus = "submitted"
	AttemptAutoSubmitted AttemptStatus = "auto-submitted"
)

// IsTerminal reports whether the status permits no further mutation.
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptSubmitted || s == AttemptAutoSubmitted
}

// TestAttempt is one user's single take of one test. The unique index on
// (user_id, test_id, attempt_number) makes attempt creation an atomic
// conditional insert: concurrent starts collide instead of racing past the
// allowed-attempts limit.
type TestAttempt struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	UserID        string        `json:"user_id" gorm:"not null;size:255;index;uniqueIndex:idx_user_test_attempt"`
	TestID        uint          `json:"test_id" gorm:"not null;index;uniqueIndex:idx_user_test_attempt"`
	AttemptNumber int           `json:"attempt_number" gorm:"not null;uniqueIndex:idx_user_test_attempt"`
	Status        AttemptStatus `json:"status" gorm:"not null;default:in-progress;index"`

	// Server-authoritative timing: remaining time is derived from StartedAt and
	// TimeLimit, never from what the client reports.
	TimeLimit   int        `json:"time_limit" gorm:"not null"` // seconds
	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	SubmittedAt *time.Time `json:"submitted_at"`

	// Liveness hints pushed by the client (UI only, never trusted for grading)
	LastClientRemaining *int       `json:"last_client_remaining"`
	LastSeenAt          *time.Time `json:"last_seen_at"`

	// Grading results, write-once at submission
	TotalScore int  `json:"total_score"`
	IsPassed   bool `json:"is_passed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Test    Test            `json:"test,omitempty" gorm:"foreignKey:TestID"`
	User    User            `json:"-" gorm:"foreignKey:UserID"`
	Answers []AttemptAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
}

func (TestAttempt) TableName() string {
	return "test_attempts"
}

// ExpiresAt is the wall-clock deadline of the attempt.
func (a *TestAttempt) ExpiresAt() time.Time {
	return a.StartedAt.Add(time.Duration(a.TimeLimit) * time.Second)
}

// TimeRemaining computes the authoritative remaining seconds at the given
// instant, clamped at zero.
func (a *TestAttempt) TimeRemaining(now time.Time) int {
	remaining := int(a.ExpiresAt().Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpired reports whether the attempt's time limit has elapsed.
func (a *TestAttempt) IsExpired(now time.Time) bool {
	return now.After(a.ExpiresAt())
}

// AttemptAnswer is one selected answer within an attempt. The unique index on
// (attempt_id, question_id) backs the idempotent upsert: saving twice for the
// same question overwrites the selection in place.
type AttemptAnswer struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	AttemptID      uint   `json:"attempt_id" gorm:"not null;index;uniqueIndex:idx_attempt_question"`
	QuestionID     uint   `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	SelectedAnswer string `json:"selected_answer" gorm:"not null;size:10"`

	// Unset until submission; computed exclusively by the scorer.
	IsCorrect     *bool `json:"is_correct"`
	MarksObtained int   `json:"marks_obtained"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Question *Question `json:"-" gorm:"foreignKey:QuestionID"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
