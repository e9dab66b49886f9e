package validator

import (
	"courtbook/pkg/logger"
	"courtbook/pkg/model"
	"errors"
	"fmt"
	"strings"
	"time"

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

type SlotValidator struct {
	validate *validator.Validate
}

func NewSlotValidator(log *logger.Logger) *SlotValidator {
	v := validator.New()

	if err := v.RegisterValidation("clock", validateClock); err != nil {
		log.Fatal("Failed to register 'clock' validator", "error", err)
	}

	return &SlotValidator{
		validate: v,
	}
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := time.Parse(model.ClockLayout, strings.TrimSpace(fl.Field().String()))
	return err == nil
}

func (v *SlotValidator) Validate(def *model.SlotDefinition) error {
	if err := v.validate.Struct(def); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	return v.validateBusinessRules(def)
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = "is required"
		case "min":
			message = fmt.Sprintf("must contain at least %s item(s)", err.Param())
		case "max":
			message = fmt.Sprintf("must contain at most %s item(s)", err.Param())
		case "datetime":
			message = "must be a date in YYYY-MM-DD format"
		case "clock":
			message = "must be a time in HH:MM 24-hour format"
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

// validateBusinessRules checks that every range ends after it starts and that
// the requested ranges do not overlap each other.
func (v *SlotValidator) validateBusinessRules(def *model.SlotDefinition) error {
	var errs ValidationErrors

	type span struct{ start, end time.Time }
	spans := make([]span, 0, len(def.Ranges))
	for i, rg := range def.Ranges {
		start, _ := time.Parse(model.ClockLayout, rg.Start)
		end, _ := time.Parse(model.ClockLayout, rg.End)
		if !start.Before(end) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("Ranges[%d]", i),
				Message: fmt.Sprintf("end %s must be after start %s", rg.End, rg.Start),
			})
			continue
		}
		for j, other := range spans {
			if start.Before(other.end) && end.After(other.start) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("Ranges[%d]", i),
					Message: fmt.Sprintf("overlaps Ranges[%d]", j),
				})
			}
		}
		spans = append(spans, span{start, end})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
