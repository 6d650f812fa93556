package models

import (
	"time"

	"gorm.io/datatypes"
)

type ProctoringEventType string

const (
	EventTabSwitch       ProctoringEventType = "tab-switch"
	EventWindowBlur      ProctoringEventType = "window-blur"
	EventFaceDetection   ProctoringEventType = "face-detection"
	EventMobileDetection ProctoringEventType = "mobile-detection"
	EventMultipleFaces   ProctoringEventType = "multiple-faces"
	EventNoFace          ProctoringEventType = "no-face"
	EventGazeAway        ProctoringEventType = "gaze-away"
	EventOther           ProctoringEventType = "other"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ProctoringEvent is an append-only record of a behavioral or
// inference-derived monitoring signal. It is created once and never mutated.
type ProctoringEvent struct {
	ID        uint                `json:"id" gorm:"primaryKey"`
	UserID    string              `json:"user_id" gorm:"not null;size:255;index"`
	TestID    uint                `json:"test_id" gorm:"not null;index"`
	AttemptID uint                `json:"attempt_id" gorm:"not null;index"`
	EventType ProctoringEventType `json:"event_type" gorm:"not null;index"`
	Severity  Severity            `json:"severity" gorm:"not null;default:low"`

	// 0-100; stays at 0 for purely behavioral events
	CheatingScore float64 `json:"cheating_score" gorm:"default:0"`

	// Raw inference payload, kept verbatim for audit
	InferenceResult datatypes.JSON `json:"inference_result,omitempty" gorm:"type:jsonb"`

	Description    string    `json:"description" gorm:"type:text"`
	QuestionNumber int       `json:"question_number"`
	Timestamp      time.Time `json:"timestamp" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`

	// Relations (operator views join identity/display fields)
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Test Test `json:"test,omitempty" gorm:"foreignKey:TestID"`
}

func (ProctoringEvent) TableName() string {
	return "proctoring_events"
}
