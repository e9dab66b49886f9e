package handler

import (
	"context"
	"courtbook/internal/reservations/service"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/logger"
	"courtbook/pkg/middleware"
	"courtbook/pkg/model"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

type mockReservationService struct {
	service.ReservationService
	gotActor   model.Actor
	gotSlot    string
	gotToken   string
	gotPayment model.PaymentResult
	completed  bool
	err        error
}

func (m *mockReservationService) Hold(_ context.Context, actor model.Actor, slotID string) (*model.HoldToken, error) {
	m.gotActor, m.gotSlot = actor, slotID
	if m.err != nil {
		return nil, m.err
	}
	return &model.HoldToken{Token: "tok", SlotID: slotID, UserID: actor.UserID, Price: 4000}, nil
}

func (m *mockReservationService) Confirm(_ context.Context, actor model.Actor, slotID, token string, result model.PaymentResult) (*model.Booking, error) {
	m.gotActor, m.gotSlot, m.gotToken, m.gotPayment = actor, slotID, token, result
	if m.err != nil {
		return nil, m.err
	}
	return &model.Booking{ID: "b1", SlotID: slotID, UserID: actor.UserID}, nil
}

func (m *mockReservationService) Checkout(_ context.Context, actor model.Actor, slotID, token string) (*model.Booking, error) {
	m.gotActor, m.gotSlot, m.gotToken = actor, slotID, token
	if m.err != nil {
		return nil, m.err
	}
	return &model.Booking{ID: "b1", SlotID: slotID, UserID: actor.UserID}, nil
}

func (m *mockReservationService) Cancel(_ context.Context, actor model.Actor, bookingID string) (*service.CancelResult, error) {
	m.gotActor = actor
	if m.err != nil {
		return nil, m.err
	}
	return &service.CancelResult{
		Cancelled: &model.Booking{ID: bookingID, Status: model.BookingCancelled},
		Promoted:  &model.Booking{ID: "b2", UserID: "alice"},
		Entry:     &model.WaitingListEntry{ID: "w1", UserID: "alice"},
	}, nil
}

func (m *mockReservationService) Complete(_ context.Context, bookingID string) (*model.Booking, error) {
	m.completed = true
	return &model.Booking{ID: bookingID, Status: model.BookingCompleted}, nil
}

func newRouter(svc service.ReservationService) http.Handler {
	router := httprouter.New()
	NewReservationHandler(svc, logger.Discard()).RegisterRoutes(router)
	return middleware.Identity(logger.Discard())(router)
}

func post(h http.Handler, path, body, user, role string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		r.Header.Set(middleware.UserIDHeader, user)
	}
	if role != "" {
		r.Header.Set(middleware.UserRoleHeader, role)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHold(t *testing.T) {
	svc := &mockReservationService{}
	w := post(newRouter(svc), "/api/v1/slots/s1/hold", "", "bob", "")

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if svc.gotSlot != "s1" || svc.gotActor.UserID != "bob" {
		t.Errorf("unexpected call slot=%q actor=%+v", svc.gotSlot, svc.gotActor)
	}

	var body struct {
		Data model.HoldToken `json:"data"`
	}
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body.Data.Token != "tok" || body.Data.Price != 4000 {
		t.Errorf("unexpected response %+v", body.Data)
	}
}

func TestHold_ErrorsCarryCode(t *testing.T) {
	svc := &mockReservationService{err: apperrors.SlotUnavailable("s1", "slot is already held")}
	w := post(newRouter(svc), "/api/v1/slots/s1/hold", "", "bob", "")

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	var body map[string]any
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body["code"] != apperrors.CodeSlotUnavailable {
		t.Errorf("expected SLOT_UNAVAILABLE, got %v", body["code"])
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"success", `{"token":"tok","payment":{"success":true,"reference":"pay-1"}}`, http.StatusCreated},
		{"missing token", `{"payment":{"success":true}}`, http.StatusBadRequest},
		{"unknown field", `{"token":"tok","amount":5}`, http.StatusBadRequest},
		{"empty body", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockReservationService{}
			w := post(newRouter(svc), "/api/v1/slots/s1/confirm", tt.body, "ops", "admin")
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusCreated && (svc.gotToken != "tok" || !svc.gotPayment.Success || svc.gotPayment.Reference != "pay-1") {
				t.Errorf("unexpected confirm call token=%q payment=%+v", svc.gotToken, svc.gotPayment)
			}
		})
	}
}

func TestConfirm_PlayerCannotReportPayment(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"self-reported success", `{"token":"tok","payment":{"success":true,"reference":"fake"}}`},
		{"self-reported decline", `{"token":"tok","payment":{"success":false}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockReservationService{}
			w := post(newRouter(svc), "/api/v1/slots/s1/confirm", tt.body, "bob", "")
			if w.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
			}
			if svc.gotToken != "" || svc.gotSlot != "" {
				t.Errorf("service should not be reached, got slot=%q token=%q", svc.gotSlot, svc.gotToken)
			}
		})
	}
}

func TestCheckout_PaymentDeclined(t *testing.T) {
	svc := &mockReservationService{err: apperrors.PaymentDeclined("s1", "card expired")}
	w := post(newRouter(svc), "/api/v1/slots/s1/checkout", `{"token":"tok"}`, "bob", "")

	if w.Code != http.StatusPaymentRequired {
		t.Errorf("expected 402, got %d", w.Code)
	}
	if svc.gotToken != "tok" {
		t.Errorf("expected token to reach the service, got %q", svc.gotToken)
	}
}

func TestCancel(t *testing.T) {
	svc := &mockReservationService{}
	w := post(newRouter(svc), "/api/v1/bookings/b1/cancel", "", "bob", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Data service.CancelResult `json:"data"`
	}
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body.Data.Promoted == nil || body.Data.Promoted.UserID != "alice" {
		t.Errorf("unexpected cancel result %+v", body.Data)
	}

	svc = &mockReservationService{err: apperrors.NoWaitingListTakeover("b1", "s1")}
	w = post(newRouter(svc), "/api/v1/bookings/b1/cancel", "", "bob", "")
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), apperrors.CodeNoWaitingListTakeover) {
		t.Errorf("expected 409 NO_WAITING_LIST_TAKEOVER, got %d %s", w.Code, w.Body.String())
	}
}

func TestComplete_AdminOnly(t *testing.T) {
	svc := &mockReservationService{}
	if w := post(newRouter(svc), "/api/v1/bookings/b1/complete", "", "bob", ""); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a player, got %d", w.Code)
	}
	if svc.completed {
		t.Error("service should not be reached for a player")
	}

	if w := post(newRouter(svc), "/api/v1/bookings/b1/complete", "", "ops", "admin"); w.Code != http.StatusOK {
		t.Errorf("expected 200 for an admin, got %d", w.Code)
	}
}

func TestRequiresIdentity(t *testing.T) {
	w := post(newRouter(&mockReservationService{}), "/api/v1/slots/s1/hold", "", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without identity headers, got %d", w.Code)
	}
}
