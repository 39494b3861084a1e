package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes one rejected field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator is the struct validator shared by handlers and services
type Validator struct {
	business *BusinessValidator
}

func New() *Validator {
	return &Validator{business: NewBusinessValidator()}
}

// Validate returns nil or ValidationErrors
func (v *Validator) Validate(s interface{}) error {
	if errs := v.business.Validate(s); len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// ToValidationErrors converts go-playground errors into ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("must have at least %s characters", fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("must have at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("must have at most %s characters", fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("must have at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return "must be a valid email address"
	case "exam_category":
		return "must be SSC, Banking, or HSSC"
	case "exam_language":
		return "must be Hindi, English, or Both"
	case "difficulty_level":
		return "must be Easy, Medium, or Hard"
	case "option_label":
		return "must be A, B, C, or D"
	case "exam_duration":
		return "must be between 1 and 600 minutes"
	case "marks_range":
		return "must be between 0 and 100"
	case "exam_title":
		return "must be between 1 and 200 characters"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", fe.Tag())
	}
}
