package validator

import (
	"courtbook/pkg/logger"
	"courtbook/pkg/model"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var referenceRegex = regexp.MustCompile(`^BKNG[0-9A-F]{8}$`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return v.Field + ": " + v.Message
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(msgs, "; "))
}

// BookingValidator checks a booking before it enters the ledger. Field names
// in errors are the JSON names clients see.
type BookingValidator struct {
	validate *validator.Validate
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation("booking_reference", func(fl validator.FieldLevel) bool {
		return referenceRegex.MatchString(fl.Field().String())
	}); err != nil {
		log.Fatal("Failed to register 'booking_reference' validator", "error", err)
	}

	return &BookingValidator{validate: v}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// Validate runs the struct tags and then the cross-field rules, reporting
// every violation at once.
func (v *BookingValidator) Validate(booking *model.Booking) error {
	var out ValidationErrors

	if err := v.validate.Struct(booking); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			out = append(out, ValidationError{Field: fe.Field(), Message: describe(fe)})
		}
	}
	out = append(out, lifecycleErrors(booking)...)

	if len(out) == 0 {
		return nil
	}
	return out
}

func lifecycleErrors(b *model.Booking) ValidationErrors {
	var out ValidationErrors
	add := func(field, msg string) {
		out = append(out, ValidationError{Field: field, Message: msg})
	}

	if !b.StartTime.IsZero() && !b.EndTime.After(b.StartTime) {
		add("end_time", "end_time must be after start_time")
	}
	if (b.Status == model.BookingCancelled) != (b.PaymentStatus == model.PaymentRefunded) {
		add("payment_status", fmt.Sprintf("payment_status %s does not match status %s", b.PaymentStatus, b.Status))
	}
	if !b.CancelledAt.IsZero() && b.Status != model.BookingCancelled {
		add("cancelled_at", "only cancelled bookings carry cancelled_at")
	}
	if !b.CompletedAt.IsZero() && b.Status != model.BookingCompleted {
		add("completed_at", "only completed bookings carry completed_at")
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "booking_reference":
		return fe.Field() + " must be BKNG followed by 8 upper-case hex characters"
	default:
		return fe.Error()
	}
}
