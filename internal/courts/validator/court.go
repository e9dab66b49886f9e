package validator

import (
	"courtbook/pkg/model"
	"courtbook/pkg/sanitizer"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

type CourtValidator struct {
	validate *validator.Validate
}

func NewCourtValidator() *CourtValidator {
	return &CourtValidator{
		validate: validator.New(),
	}
}

func (v *CourtValidator) Validate(court *model.Court) error {
	if err := v.validate.Struct(court); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	return v.validateBusinessRules(court.Features)
}

func (v *CourtValidator) ValidateUpdate(updates *model.CourtUpdate) error {
	if updates.Name == "" && updates.Category == "" && updates.HourlyPrice == nil &&
		updates.Features == nil && updates.Capacity == nil && updates.Description == nil {
		return ValidationErrors{{Field: "update", Message: "at least one field must be provided"}}
	}

	if err := v.validate.Struct(updates); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	if updates.Features != nil {
		return v.validateBusinessRules(*updates.Features)
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: messageFor(err),
		})
	}

	return validationErrors
}

func messageFor(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", err.Param())
	case "uuid4":
		return "must be a UUID"
	default:
		return fmt.Sprintf("failed %s validation", err.Tag())
	}
}

func (v *CourtValidator) validateBusinessRules(features []string) error {
	seen := make(map[string]bool, len(features))
	for _, f := range features {
		key := sanitizer.NormalizeNameForComparison(f)
		if seen[key] {
			return ValidationErrors{{Field: "Features", Message: fmt.Sprintf("duplicate feature %q", f)}}
		}
		seen[key] = true
	}
	return nil
}
