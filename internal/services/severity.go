package services

import (
	"github.com/examshield/exam-service/internal/models"
)

// SeverityForScore maps a 0-100 cheating score to a severity bucket.
// Monotonic non-decreasing in score.
func SeverityForScore(score float64) models.Severity {
	switch {
	case score >= 80:
		return models.SeverityCritical
	case score >= 60:
		return models.SeverityHigh
	case score >= 40:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// EventTypeForDetection picks the event category from the inference flags:
// mobile detection wins over the plain face-detection check.
func EventTypeForDetection(mobileDetected bool) models.ProctoringEventType {
	if mobileDetected {
		return models.EventMobileDetection
	}
	return models.EventFaceDetection
}
