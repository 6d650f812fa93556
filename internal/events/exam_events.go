package events

import (
	"time"

	"github.com/examshield/exam-service/internal/models"
)

// EventType represents the domain events this service publishes
type EventType string

const (
	EventAttemptStarted       EventType = "attempt.started"
	EventAttemptSubmitted     EventType = "attempt.submitted"
	EventAttemptAutoSubmitted EventType = "attempt.auto_submitted"
	EventProctoringAlert      EventType = "proctoring.alert"
)

// ExamEvent is the envelope for all published events
type ExamEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type AttemptStartedEvent struct {
	AttemptID     uint   `json:"attempt_id"`
	TestID        uint   `json:"test_id"`
	UserID        string `json:"user_id"`
	AttemptNumber int    `json:"attempt_number"`
	TimeLimit     int    `json:"time_limit"` // seconds
}

type AttemptSubmittedEvent struct {
	AttemptID     uint   `json:"attempt_id"`
	TestID        uint   `json:"test_id"`
	UserID        string `json:"user_id"`
	TotalScore    int    `json:"total_score"`
	IsPassed      bool   `json:"is_passed"`
	AutoSubmitted bool   `json:"auto_submitted"`
}

type ProctoringAlertEvent struct {
	EventID       uint                       `json:"event_id"`
	AttemptID     uint                       `json:"attempt_id"`
	TestID        uint                       `json:"test_id"`
	UserID        string                     `json:"user_id"`
	EventType     models.ProctoringEventType `json:"event_type"`
	Severity      models.Severity            `json:"severity"`
	CheatingScore float64                    `json:"cheating_score"`
}
