package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"

	CodeSlotUnavailable       = "SLOT_UNAVAILABLE"
	CodeHoldExpired           = "HOLD_EXPIRED"
	CodePaymentDeclined       = "PAYMENT_DECLINED"
	CodeNotCancellable        = "NOT_CANCELLABLE"
	CodeNoWaitingListTakeover = "NO_WAITING_LIST_TAKEOVER"
	CodeAlreadyQueued         = "ALREADY_QUEUED"
	CodeSlotNotFull           = "SLOT_NOT_FULL"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeConcurrencyConflict   = "CONCURRENCY_CONFLICT"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	response := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
	data, _ := json.Marshal(response)
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func SlotUnavailable(slotID, reason string) *AppError {
	return &AppError{
		Code:       CodeSlotUnavailable,
		Message:    fmt.Sprintf("cannot hold slot: %s", reason),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"slot_id": slotID},
	}
}

func HoldExpired(slotID string) *AppError {
	return &AppError{
		Code:       CodeHoldExpired,
		Message:    "cannot confirm: the hold on this slot has expired",
		HTTPStatus: http.StatusGone,
		Details:    map[string]any{"slot_id": slotID},
	}
}

func PaymentDeclined(slotID, reason string) *AppError {
	msg := "cannot confirm: payment was declined"
	if reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, reason)
	}
	return &AppError{
		Code:       CodePaymentDeclined,
		Message:    msg,
		HTTPStatus: http.StatusPaymentRequired,
		Details:    map[string]any{"slot_id": slotID},
	}
}

func NotCancellable(bookingID, status string) *AppError {
	return &AppError{
		Code:       CodeNotCancellable,
		Message:    fmt.Sprintf("cannot cancel: booking is %s", status),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"booking_id": bookingID, "status": status},
	}
}

func NoWaitingListTakeover(bookingID, slotID string) *AppError {
	return &AppError{
		Code:       CodeNoWaitingListTakeover,
		Message:    "cannot cancel: no one on the waiting list can take this slot",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"booking_id": bookingID, "slot_id": slotID},
	}
}

func AlreadyQueued(slotID, userID string) *AppError {
	return &AppError{
		Code:       CodeAlreadyQueued,
		Message:    "cannot join waiting list: user is already queued for this slot",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"slot_id": slotID, "user_id": userID},
	}
}

func SlotNotFull(slotID string) *AppError {
	return &AppError{
		Code:       CodeSlotNotFull,
		Message:    "cannot join waiting list: slot is available to book",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"slot_id": slotID},
	}
}

func InvalidTransition(resource, id, from, to string) *AppError {
	return &AppError{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("%s cannot move from %s to %s", resource, from, to),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"resource": resource, "id": id, "from": from, "to": to},
	}
}

func ConcurrencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeConcurrencyConflict,
		Message:    "another request is working on this slot, please retry",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"key": key},
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
