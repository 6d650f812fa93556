package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type samplePayload struct {
	EventType string  `validate:"required"`
	Score     float64 `validate:"min=0,max=100"`
}

func TestValidationErrors_Error(t *testing.T) {
	empty := ValidationErrors{}
	if empty.Error() != "validation failed" {
		t.Errorf("unexpected message for empty errors: %q", empty.Error())
	}

	single := ValidationErrors{{Field: "event_type", Message: "is required"}}
	if single.Error() != "validation failed: event_type is required" {
		t.Errorf("unexpected message for single error: %q", single.Error())
	}

	multi := ValidationErrors{
		{Field: "event_type", Message: "is required"},
		{Field: "score", Message: "must be at most 100"},
	}
	if multi.Error() != "validation failed: 2 field errors" {
		t.Errorf("unexpected message for multiple errors: %q", multi.Error())
	}
}

func TestToValidationErrors(t *testing.T) {
	v := validator.New()
	err := v.Struct(samplePayload{EventType: "", Score: 150})
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	errs := ToValidationErrors(err)
	if len(errs) != 2 {
		t.Fatalf("expected 2 validation errors, got %d", len(errs))
	}

	if errs[0].Message != "is required" {
		t.Errorf("expected required message, got %q", errs[0].Message)
	}
	if errs[1].Rule != "max" {
		t.Errorf("expected max rule, got %q", errs[1].Rule)
	}
}

func TestToValidationErrors_NonValidatorError(t *testing.T) {
	errs := ToValidationErrors(NewValidationError("field", "bad", nil))
	if len(errs) != 0 {
		t.Errorf("expected no conversion for non-validator error, got %d", len(errs))
	}
}
