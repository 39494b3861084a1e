package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	// report json names so clients see the field they sent
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateOptions checks that exactly one option exists per label A-D, in order
func (bv *BusinessValidator) ValidateOptions(field string, options []models.QuestionOption) ValidationErrors {
	var errors ValidationErrors

	if len(options) != len(models.OptionLabels) {
		return append(errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must contain exactly %d options", len(models.OptionLabels)),
			Value:   len(options),
			Rule:    "business_logic",
		})
	}

	for i, opt := range options {
		if opt.OptionLabel != models.OptionLabels[i] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s[%d].optionLabel", field, i),
				Message: fmt.Sprintf("must be %s", models.OptionLabels[i]),
				Value:   opt.OptionLabel,
				Rule:    "option_label",
			})
		}
		if strings.TrimSpace(opt.OptionText) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s[%d].optionText", field, i),
				Message: "is required",
				Rule:    "required",
			})
		}
	}

	return errors
}

// ValidateExamSelection checks that manual selection carries question ids
func (bv *BusinessValidator) ValidateExamSelection(selection string, questionIDs []uint) ValidationErrors {
	var errors ValidationErrors

	if selection != "auto" && len(questionIDs) == 0 {
		errors = append(errors, ValidationError{
			Field:   "questions",
			Message: "must contain at least one question for manual selection",
			Rule:    "business_logic",
		})
	}

	seen := make(map[uint]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		if _, dup := seen[id]; dup {
			errors = append(errors, ValidationError{
				Field:   "questions",
				Message: "must not contain duplicates",
				Value:   id,
				Rule:    "business_logic",
			})
			break
		}
		seen[id] = struct{}{}
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("exam_category", func(fl validator.FieldLevel) bool {
		category := models.ExamCategory(fl.Field().String())
		for _, c := range models.ExamCategories {
			if category == c {
				return true
			}
		}
		return false
	})

	bv.validate.RegisterValidation("exam_language", func(fl validator.FieldLevel) bool {
		switch models.Language(fl.Field().String()) {
		case models.LanguageHindi, models.LanguageEnglish, models.LanguageBoth:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		level := fl.Field().String()
		validLevels := []models.DifficultyLevel{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}
		for _, vl := range validLevels {
			if models.DifficultyLevel(level) == vl {
				return true
			}
		}
		return false
	})

	bv.validate.RegisterValidation("option_label", func(fl validator.FieldLevel) bool {
		return models.IsOptionLabel(fl.Field().String())
	})

	// Exam duration in minutes
	bv.validate.RegisterValidation("exam_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Int()
		return duration >= 1 && duration <= 600
	})

	bv.validate.RegisterValidation("marks_range", func(fl validator.FieldLevel) bool {
		marks := fl.Field().Float()
		return marks >= 0 && marks <= 100
	})

	bv.validate.RegisterValidation("exam_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})
}
