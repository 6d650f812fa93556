package services

import (
	"testing"

	"github.com/examshield/exam-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSeverityForScore_Boundaries(t *testing.T) {
	tests := []struct {
		score    float64
		expected models.Severity
	}{
		{0, models.SeverityLow},
		{39, models.SeverityLow},
		{39.9, models.SeverityLow},
		{40, models.SeverityMedium},
		{59, models.SeverityMedium},
		{60, models.SeverityHigh},
		{79, models.SeverityHigh},
		{79.9, models.SeverityHigh},
		{80, models.SeverityCritical},
		{100, models.SeverityCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SeverityForScore(tt.score), "score %v", tt.score)
	}
}

func TestEventTypeForDetection(t *testing.T) {
	assert.Equal(t, models.EventMobileDetection, EventTypeForDetection(true))
	assert.Equal(t, models.EventFaceDetection, EventTypeForDetection(false))
}
