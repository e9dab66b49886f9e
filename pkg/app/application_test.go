package app

import (
	"bytes"
	"courtbook/pkg/client"
	"courtbook/pkg/config"
	"courtbook/pkg/logger"
	"courtbook/pkg/middleware"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestApp(t *testing.T) http.Handler {
	t.Helper()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cfg := &config.Config{
		StorageBackend:    config.StorageMemory,
		LockBackend:       config.LockMemory,
		Port:              "0",
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
		IdempotencyTTL:    time.Hour,
		MaxRequestSize:    1 << 20,
		ShutdownTimeout:   time.Second,
		HoldTTL:           10 * time.Minute,
		OperationTimeout:  2 * time.Second,
		LockTTL:           time.Minute,
		LockRetryAttempts: 50,
		LockRetryDelay:    time.Millisecond,
		SweepInterval:     time.Minute,
		SlotDuration:      time.Hour,
		SlotStartHours:    []int{18, 19},
		Location:          time.UTC,
		Now:               func() time.Time { return now },
		Log:               logger.Discard(),
		Client:            client.NewClient(),
	}

	a := NewApplication()
	a.SetApp(cfg)
	t.Cleanup(a.StopWorkers)
	return a.Handler()
}

type envelope struct {
	Data       json.RawMessage `json:"data"`
	TotalCount int64           `json:"total_count"`
	Code       string          `json:"code"`
}

func call(t *testing.T, h http.Handler, method, path, user, role string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(middleware.UserIDHeader, user)
		req.Header.Set(middleware.UserRoleHeader, role)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	_ = json.NewDecoder(w.Body).Decode(&env)
	return w.Code, env
}

func decode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("failed to decode data %s: %v", raw, err)
	}
}

func TestHealthBypassesIdentity(t *testing.T) {
	h := newTestApp(t)

	if code, _ := call(t, h, http.MethodGet, "/health", "", "", nil); code != http.StatusOK {
		t.Errorf("expected /health to answer 200, got %d", code)
	}
	if code, _ := call(t, h, http.MethodGet, "/ready", "", "", nil); code != http.StatusOK {
		t.Errorf("expected /ready to answer 200 without backends, got %d", code)
	}
	if code, _ := call(t, h, http.MethodGet, "/api/v1/courts", "", "", nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 without caller identity, got %d", code)
	}
}

func TestReservationFlow(t *testing.T) {
	h := newTestApp(t)

	code, env := call(t, h, http.MethodPost, "/api/v1/courts", "ops", "admin", map[string]any{
		"name":         "Court One",
		"category":     "Indoor",
		"hourly_price": 2000,
		"capacity":     4,
	})
	if code != http.StatusCreated {
		t.Fatalf("create court: expected 201, got %d (%s)", code, env.Code)
	}
	var court struct {
		ID string `json:"id"`
	}
	decode(t, env.Data, &court)

	code, env = call(t, h, http.MethodPost, "/api/v1/courts/"+court.ID+"/slots", "ops", "admin", map[string]any{
		"date":   "2026-03-02",
		"ranges": []map[string]string{{"start": "18:00", "end": "20:00"}},
	})
	if code != http.StatusCreated {
		t.Fatalf("define slots: expected 201, got %d (%s)", code, env.Code)
	}
	var slots []struct {
		ID    string `json:"id"`
		Price int64  `json:"price"`
	}
	decode(t, env.Data, &slots)
	if len(slots) != 1 || slots[0].Price != 4000 {
		t.Fatalf("unexpected slots %+v", slots)
	}
	slotID := slots[0].ID

	code, env = call(t, h, http.MethodPost, "/api/v1/slots/"+slotID+"/hold", "alice", "player", nil)
	if code != http.StatusCreated {
		t.Fatalf("hold: expected 201, got %d (%s)", code, env.Code)
	}
	var hold struct {
		Token string `json:"token"`
	}
	decode(t, env.Data, &hold)

	if code, env = call(t, h, http.MethodPost, "/api/v1/slots/"+slotID+"/hold", "carol", "player", nil); code != http.StatusConflict {
		t.Errorf("second hold: expected 409, got %d (%s)", code, env.Code)
	}

	code, env = call(t, h, http.MethodPost, "/api/v1/slots/"+slotID+"/checkout", "alice", "player", map[string]string{"token": hold.Token})
	if code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d (%s)", code, env.Code)
	}
	var booking struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
		Price  int64  `json:"price"`
		Status string `json:"status"`
	}
	decode(t, env.Data, &booking)
	if booking.UserID != "alice" || booking.Price != 4000 || booking.Status != "upcoming" {
		t.Fatalf("unexpected booking %+v", booking)
	}

	if code, env = call(t, h, http.MethodPost, "/api/v1/slots/"+slotID+"/waitlist", "bob", "player", nil); code != http.StatusCreated {
		t.Fatalf("join waitlist: expected 201, got %d (%s)", code, env.Code)
	}

	if code, _ = call(t, h, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", "bob", "player", nil); code != http.StatusForbidden {
		t.Errorf("cancel by stranger: expected 403, got %d", code)
	}

	code, env = call(t, h, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", "alice", "player", nil)
	if code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d (%s)", code, env.Code)
	}
	var result struct {
		Cancelled struct {
			Status string `json:"status"`
		} `json:"cancelled"`
		Promoted struct {
			UserID string `json:"user_id"`
			Price  int64  `json:"price"`
		} `json:"promoted"`
	}
	decode(t, env.Data, &result)
	if result.Cancelled.Status != "cancelled" {
		t.Errorf("expected cancelled booking, got %q", result.Cancelled.Status)
	}
	if result.Promoted.UserID != "bob" || result.Promoted.Price != 4000 {
		t.Errorf("expected bob promoted at 4000, got %+v", result.Promoted)
	}

	code, env = call(t, h, http.MethodGet, "/api/v1/me/bookings", "bob", "player", nil)
	if code != http.StatusOK || env.TotalCount != 1 {
		t.Errorf("expected bob to have 1 booking, got %d (status %d)", env.TotalCount, code)
	}

	code, env = call(t, h, http.MethodGet, "/api/v1/slots/"+slotID+"/waitlist", "bob", "player", nil)
	var queue []json.RawMessage
	if len(env.Data) > 0 {
		decode(t, env.Data, &queue)
	}
	if code != http.StatusOK || len(queue) != 0 {
		t.Errorf("expected empty queue after promotion, got %d entries (status %d)", len(queue), code)
	}
}
