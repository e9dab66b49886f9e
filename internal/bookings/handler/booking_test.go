package handler

import (
	"context"
	"courtbook/internal/bookings/service"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/logger"
	"courtbook/pkg/middleware"
	"courtbook/pkg/model"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

type mockBookingService struct {
	service.BookingService
	bookings    map[string]*model.Booking
	courtFilter model.BookingFilter
	courtCalled bool
	listedUser  string
}

func (m *mockBookingService) GetByID(_ context.Context, id string) (*model.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}
	return b, nil
}

func (m *mockBookingService) GetByReference(_ context.Context, reference string) (*model.Booking, error) {
	for _, b := range m.bookings {
		if b.Reference == reference {
			return b, nil
		}
	}
	return nil, apperrors.NotFound("Booking")
}

func (m *mockBookingService) ListByUser(_ context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	m.listedUser = userID
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockBookingService) ListByCourt(_ context.Context, courtID string, filter model.BookingFilter) ([]*model.Booking, error) {
	m.courtCalled = true
	m.courtFilter = filter
	return []*model.Booking{}, nil
}

func newRouter(svc service.BookingService) http.Handler {
	router := httprouter.New()
	NewBookingHandler(svc, time.UTC, logger.Discard()).RegisterRoutes(router)
	return middleware.Identity(logger.Discard())(router)
}

func send(h http.Handler, path, user, role string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.Header.Set(middleware.UserIDHeader, user)
	if role != "" {
		r.Header.Set(middleware.UserRoleHeader, role)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestGetByID_OwnerOrAdmin(t *testing.T) {
	svc := &mockBookingService{bookings: map[string]*model.Booking{
		"b1": {ID: "b1", UserID: "alice"},
	}}
	h := newRouter(svc)

	tests := []struct {
		name       string
		path       string
		user       string
		role       string
		wantStatus int
	}{
		{"owner", "/api/v1/bookings/b1", "alice", "", http.StatusOK},
		{"admin", "/api/v1/bookings/b1", "ops", "admin", http.StatusOK},
		{"other player", "/api/v1/bookings/b1", "bob", "", http.StatusForbidden},
		{"missing", "/api/v1/bookings/b9", "alice", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := send(h, tt.path, tt.user, tt.role); w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestListMine(t *testing.T) {
	svc := &mockBookingService{bookings: map[string]*model.Booking{
		"b1": {ID: "b1", UserID: "alice"},
		"b2": {ID: "b2", UserID: "bob"},
	}}

	w := send(newRouter(svc), "/api/v1/me/bookings?limit=5", "alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	if w := send(newRouter(svc), "/api/v1/me/bookings?offset=x", "alice", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad offset, got %d", w.Code)
	}
}

func TestListByCourt(t *testing.T) {
	t.Run("admin with inclusive to", func(t *testing.T) {
		svc := &mockBookingService{}
		w := send(newRouter(svc), "/api/v1/courts/c1/bookings?from=2026-03-01&to=2026-03-02", "ops", "admin")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		wantFrom := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		wantTo := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
		if rng := svc.courtFilter.Range; !rng.From.Equal(wantFrom) || !rng.To.Equal(wantTo) {
			t.Errorf("unexpected range %+v", rng)
		}
	})

	t.Run("status and when", func(t *testing.T) {
		svc := &mockBookingService{}
		w := send(newRouter(svc), "/api/v1/courts/c1/bookings?status=cancelled&when=past", "ops", "admin")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if svc.courtFilter.Status != model.BookingCancelled || svc.courtFilter.Period != model.PeriodPast {
			t.Errorf("unexpected filter %+v", svc.courtFilter)
		}
	})

	t.Run("player forbidden", func(t *testing.T) {
		svc := &mockBookingService{}
		if w := send(newRouter(svc), "/api/v1/courts/c1/bookings", "alice", ""); w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
		if svc.courtCalled {
			t.Error("service should not be reached")
		}
	})

	t.Run("bad date", func(t *testing.T) {
		if w := send(newRouter(&mockBookingService{}), "/api/v1/courts/c1/bookings?from=03-01", "ops", "admin"); w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestSearch(t *testing.T) {
	svc := &mockBookingService{bookings: map[string]*model.Booking{
		"b1": {ID: "b1", UserID: "alice", Reference: "BKNG0000000A"},
		"b2": {ID: "b2", UserID: "bob", Reference: "BKNG0000000B"},
	}}
	h := newRouter(svc)

	tests := []struct {
		name       string
		path       string
		user       string
		role       string
		wantStatus int
	}{
		{"own reference", "/api/v1/bookings?reference=BKNG0000000A", "alice", "", http.StatusOK},
		{"admin any reference", "/api/v1/bookings?reference=BKNG0000000B", "ops", "admin", http.StatusOK},
		{"someone else's reference", "/api/v1/bookings?reference=BKNG0000000B", "alice", "", http.StatusNotFound},
		{"unknown reference", "/api/v1/bookings?reference=BKNG0000000C", "ops", "admin", http.StatusNotFound},
		{"admin by user", "/api/v1/bookings?user_id=bob", "ops", "admin", http.StatusOK},
		{"self by user", "/api/v1/bookings?user_id=alice", "alice", "", http.StatusOK},
		{"player by other user", "/api/v1/bookings?user_id=bob", "alice", "", http.StatusForbidden},
		{"no criteria", "/api/v1/bookings", "ops", "admin", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := send(h, tt.path, tt.user, tt.role); w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}

	svc.listedUser = ""
	w := send(h, "/api/v1/bookings?reference=BKNG0000000A", "alice", "")
	var body struct {
		Data       []model.Booking `json:"data"`
		TotalCount int64           `json:"total_count"`
	}
	_ = json.NewDecoder(w.Body).Decode(&body)
	if len(body.Data) != 1 || body.Data[0].ID != "b1" {
		t.Errorf("expected booking b1, got %+v", body.Data)
	}
	if svc.listedUser != "" {
		t.Error("reference lookup should not list by user")
	}
}
