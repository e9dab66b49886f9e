package middleware

import (
	"courtbook/pkg/logger"
	"courtbook/pkg/model"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func okHandler(counter *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if counter != nil {
			atomic.AddInt32(counter, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":"ok"}`))
	})
}

func TestIdentity(t *testing.T) {
	log := logger.Discard()

	var got model.Actor
	h := Identity(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		userID     string
		role       string
		wantStatus int
		wantRole   model.Role
	}{
		{"player default", "u-1", "", http.StatusOK, model.RolePlayer},
		{"admin", "u-2", "Admin", http.StatusOK, model.RoleAdmin},
		{"missing user", "", "player", http.StatusUnauthorized, ""},
		{"unknown role", "u-3", "owner", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = model.Actor{}
			r := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
			if tt.userID != "" {
				r.Header.Set(UserIDHeader, tt.userID)
			}
			if tt.role != "" {
				r.Header.Set(UserRoleHeader, tt.role)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == http.StatusOK && (got.UserID != tt.userID || got.Role != tt.wantRole) {
				t.Errorf("unexpected actor %+v", got)
			}
		})
	}
}

func TestUserRateLimiter_SlidingWindow(t *testing.T) {
	rl := &UserRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    2,
		window:   time.Minute,
		log:      logger.Discard(),
		stopCh:   make(chan struct{}),
	}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("user:a") || !rl.Allow("user:a") {
		t.Fatal("expected first two requests to pass")
	}
	if rl.Allow("user:a") {
		t.Error("expected third request inside window to be rejected")
	}
	if !rl.Allow("user:b") {
		t.Error("expected other user to be unaffected")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("user:a") {
		t.Error("expected request after window to pass")
	}
}

func TestUserRateLimit_KeysByActor(t *testing.T) {
	rl := NewUserRateLimiter(1, time.Minute, logger.Discard())
	defer rl.Stop()

	h := Identity(logger.Discard())(UserRateLimit(rl)(okHandler(nil)))

	send := func(user string) int {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/slots", nil)
		r.Header.Set(UserIDHeader, user)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	if code := send("alice"); code != http.StatusCreated {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := send("alice"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", code)
	}
	if code := send("bob"); code != http.StatusCreated {
		t.Errorf("expected bob to pass, got %d", code)
	}
}

func TestIdempotency_ReplaysPerUser(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	h := Identity(logger.Discard())(Idempotency(store, "")(okHandler(&calls)))

	send := func(user string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/slots/s1/hold", nil)
		r.Header.Set(UserIDHeader, user)
		r.Header.Set(IdempotencyHeader, "key-1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	first := send("alice")
	second := send("alice")
	if calls != 1 {
		t.Errorf("expected handler to run once for a repeated key, ran %d times", calls)
	}
	if second.Code != first.Code || second.Body.String() != first.Body.String() {
		t.Error("expected replayed response to match the original")
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("expected replay marker header")
	}

	send("bob")
	if calls != 2 {
		t.Errorf("expected another user's identical key to reach the handler, calls=%d", calls)
	}
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/b1/cancel", nil)
		r.Header.Set(IdempotencyHeader, "k")
		h.ServeHTTP(httptest.NewRecorder(), r)
	}
	if calls != 2 {
		t.Errorf("expected failed responses not to be cached, calls=%d", calls)
	}
}

func TestIdempotency_RejectsConcurrentRepeat(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	entered := make(chan struct{})
	release := make(chan struct{})
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
	}))

	newRequest := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/slots/s1/checkout", nil)
		r.Header.Set(UserIDHeader, "alice")
		r.Header.Set(IdempotencyHeader, "pay-1")
		return r
	}

	done := make(chan int)
	go func() {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, newRequest())
		done <- w.Code
	}()
	<-entered

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newRequest())
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 while the original is running, got %d", w.Code)
	}

	close(release)
	if code := <-done; code != http.StatusCreated {
		t.Fatalf("expected original to succeed, got %d", code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, newRequest())
	if w.Code != http.StatusCreated || w.Header().Get(ReplayedHeader) != "true" {
		t.Errorf("expected replay after completion, got %d replayed=%q", w.Code, w.Header().Get(ReplayedHeader))
	}
}

func TestRequestTimeout(t *testing.T) {
	h := RequestTimeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", w.Code)
	}
	var body map[string]any
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body["code"] != "TIMEOUT" {
		t.Errorf("expected TIMEOUT code, got %v", body["code"])
	}
}

func TestContentTypeValidation(t *testing.T) {
	h := ContentTypeValidation(logger.Discard())(okHandler(nil))

	tests := []struct {
		name        string
		body        string
		contentType string
		wantStatus  int
	}{
		{"json body", `{"a":1}`, "application/json; charset=utf-8", http.StatusCreated},
		{"upper-case json", `{"a":1}`, "Application/JSON", http.StatusCreated},
		{"text body", `a=1`, "text/plain", http.StatusUnsupportedMediaType},
		{"body without header", `{"a":1}`, "", http.StatusUnsupportedMediaType},
		{"empty body", "", "", http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/v1/courts", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Error("panic value leaked to client")
	}
}

func TestRequestLogging_PropagatesRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if seen != "req-123" || w.Header().Get(RequestIDHeader) != "req-123" {
		t.Errorf("expected incoming request id to be reused, got ctx=%q header=%q", seen, w.Header().Get(RequestIDHeader))
	}
}
