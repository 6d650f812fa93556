package utils

import (
	"reflect"
	"strings"

	apperrors "github.com/examshield/exam-service/internal/errors"
	"github.com/examshield/exam-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps the struct validator with the service's custom rules.
type Validator struct {
	structValidator *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	RegisterCustomValidators(v)
	return &Validator{structValidator: v}
}

// Validate validates struct tags and returns translated field errors.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if translated := apperrors.ToValidationErrors(err); len(translated) > 0 {
			return translated
		}
		return err
	}
	return nil
}

// Custom validation functions

func ValidateProctoringEventType(fl validator.FieldLevel) bool {
	validTypes := []models.ProctoringEventType{
		models.EventTabSwitch,
		models.EventWindowBlur,
		models.EventFaceDetection,
		models.EventMobileDetection,
		models.EventMultipleFaces,
		models.EventNoFace,
		models.EventGazeAway,
		models.EventOther,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func ValidateSeverityLevel(fl validator.FieldLevel) bool {
	validLevels := []models.Severity{
		models.SeverityLow,
		models.SeverityMedium,
		models.SeverityHigh,
		models.SeverityCritical,
	}

	value := fl.Field().String()
	for _, validLevel := range validLevels {
		if string(validLevel) == value {
			return true
		}
	}
	return false
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("proctoring_event_type", ValidateProctoringEventType)
	validate.RegisterValidation("severity_level", ValidateSeverityLevel)

	// Use json tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
