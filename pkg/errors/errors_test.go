package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("database connection failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if wrapped.Code != CodeInternal {
		t.Errorf("expected code %s, got %s", CodeInternal, wrapped.Code)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "resource not found",
			},
			expected: "NOT_FOUND: resource not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appErr.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	unwrapped := errors.Unwrap(appErr)
	if unwrapped != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestAppError_StatusCode(t *testing.T) {
	err := New(CodeNotFound, "not found", http.StatusNotFound)
	if err.StatusCode() != http.StatusNotFound {
		t.Errorf("StatusCode() = %d, want %d", err.StatusCode(), http.StatusNotFound)
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)
	details := map[string]any{
		"field": "hourly_price",
		"error": "must be positive",
	}

	err = err.WithDetails(details)

	if err.Details["field"] != "hourly_price" {
		t.Errorf("expected field 'hourly_price', got %v", err.Details["field"])
	}
	if err.Details["error"] != "must be positive" {
		t.Errorf("expected error 'must be positive', got %v", err.Details["error"])
	}
}

func TestGenericErrors(t *testing.T) {
	cause := errors.New("database error")

	tests := []struct {
		name    string
		err     *AppError
		code    string
		status  int
		message string
	}{
		{"not found", NotFound("Slot"), CodeNotFound, http.StatusNotFound, "Slot not found"},
		{"validation", Validation("validation failed", nil), CodeValidation, http.StatusUnprocessableEntity, "validation failed"},
		{"invalid input", InvalidInput("invalid request"), CodeInvalidInput, http.StatusBadRequest, "invalid request"},
		{"unauthorized", Unauthorized("missing identity"), CodeUnauthorized, http.StatusUnauthorized, "missing identity"},
		{"forbidden", Forbidden("access denied"), CodeForbidden, http.StatusForbidden, "access denied"},
		{"conflict", Conflict("already exists"), CodeConflict, http.StatusConflict, "already exists"},
		{"internal", Internal("internal error occurred", cause), CodeInternal, http.StatusInternalServerError, "internal error occurred"},
		{"timeout", Timeout("request timed out"), CodeTimeout, http.StatusGatewayTimeout, "request timed out"},
		{"unavailable", Unavailable("Payment Service"), CodeUnavailable, http.StatusServiceUnavailable, "Payment Service is temporarily unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code || tt.err.HTTPStatus != tt.status || tt.err.Message != tt.message {
				t.Errorf("got (%s, %d, %q), want (%s, %d, %q)",
					tt.err.Code, tt.err.HTTPStatus, tt.err.Message, tt.code, tt.status, tt.message)
			}
		})
	}

	if !errors.Is(Internal("x", cause), cause) {
		t.Error("Internal should wrap its cause")
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Booking", "12345")

	if err.Details["id"] != "12345" || err.Details["resource"] != "Booking" {
		t.Errorf("unexpected details %v", err.Details)
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NotFound("Court")
	regularErr := errors.New("regular error")

	if !IsAppError(appErr) {
		t.Errorf("IsAppError() should return true for AppError")
	}
	if IsAppError(regularErr) {
		t.Errorf("IsAppError() should return false for regular error")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Court")
	regularErr := errors.New("regular error")

	result := AsAppError(appErr)
	if result != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}

	result = AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	err := NotFoundWithID("Booking", "12345")
	json := err.ToJSON()

	if len(json) == 0 {
		t.Errorf("ToJSON() should return non-empty JSON")
	}

	// Basic check that it contains expected fields
	jsonStr := string(json)
	if !strings.Contains(jsonStr, "NOT_FOUND") {
		t.Errorf("ToJSON() should contain error code")
	}
	if !strings.Contains(jsonStr, "not found") {
		t.Errorf("ToJSON() should contain error message")
	}
}

func TestReservationErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		status     int
		messageHas string
	}{
		{"slot unavailable", SlotUnavailable("c1-2024-06-15-1800", "slot is held"), CodeSlotUnavailable, http.StatusConflict, "slot is held"},
		{"hold expired", HoldExpired("s1"), CodeHoldExpired, http.StatusGone, "expired"},
		{"payment declined", PaymentDeclined("s1", "card_declined"), CodePaymentDeclined, http.StatusPaymentRequired, "card_declined"},
		{"not cancellable", NotCancellable("b1", "cancelled"), CodeNotCancellable, http.StatusConflict, "booking is cancelled"},
		{"no takeover", NoWaitingListTakeover("b1", "s1"), CodeNoWaitingListTakeover, http.StatusConflict, "no one on the waiting list"},
		{"already queued", AlreadyQueued("s1", "u1"), CodeAlreadyQueued, http.StatusConflict, "already queued"},
		{"slot not full", SlotNotFull("s1"), CodeSlotNotFull, http.StatusConflict, "available"},
		{"invalid transition", InvalidTransition("Slot", "s1", "booked", "booked"), CodeInvalidTransition, http.StatusConflict, "from booked to booked"},
		{"concurrency conflict", ConcurrencyConflict("slot:s1"), CodeConcurrencyConflict, http.StatusConflict, "retry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.HTTPStatus != tt.status {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.status)
			}
			if !strings.Contains(tt.err.Message, tt.messageHas) {
				t.Errorf("Message = %q, want it to mention %q", tt.err.Message, tt.messageHas)
			}
		})
	}
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("cancel booking: %w", NoWaitingListTakeover("b1", "s1"))

	if !HasCode(wrapped, CodeNoWaitingListTakeover) {
		t.Errorf("HasCode() should see through wrapping")
	}
	if HasCode(wrapped, CodeNotCancellable) {
		t.Errorf("HasCode() should not match a different code")
	}
	if HasCode(errors.New("plain"), CodeInternal) {
		t.Errorf("HasCode() should be false for non-AppError")
	}
	if got := AsAppError(wrapped); got.Code != CodeNoWaitingListTakeover {
		t.Errorf("AsAppError() should unwrap to the AppError, got %s", got.Code)
	}
}
