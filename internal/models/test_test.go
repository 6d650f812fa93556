package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestQuestionHasValidAnswerKey(t *testing.T) {
	question := func(correct string, labels ...string) *Question {
		options := make([]QuestionOption, 0, len(labels))
		for _, label := range labels {
			options = append(options, QuestionOption{Label: label, Text: "option " + label})
		}
		return &Question{
			CorrectAnswer: correct,
			Options:       datatypes.NewJSONSlice(options),
		}
	}

	assert.True(t, question("a", "a", "b", "c").HasValidAnswerKey())

	// Key matching no option label
	assert.False(t, question("z", "a", "b", "c").HasValidAnswerKey())

	// Duplicate option labels make the key ambiguous
	assert.False(t, question("a", "a", "a", "b").HasValidAnswerKey())

	// No options at all
	assert.False(t, question("a").HasValidAnswerKey())
}
