package middleware

import (
	"bytes"
	"context"
	apperrors "courtbook/pkg/errors"
	httputil "courtbook/pkg/http"
	"net/http"
	"sync"
	"time"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"
)

// IdempotencyStore remembers successful responses by key. Reserve and
// Release bracket a request so a retry that races the original is refused
// instead of holding or charging a slot twice.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool)
	Set(ctx context.Context, key string, response *CachedResponse)
	Reserve(ctx context.Context, key string) bool
	Release(ctx context.Context, key string)
	Stop()
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	responses map[string]*CachedResponse
	inFlight  map[string]struct{}
	ttl       time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		responses: make(map[string]*CachedResponse),
		inFlight:  make(map[string]struct{}),
		ttl:       ttl,
		stop:      make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

func (s *InMemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.responses[key]
	if !ok {
		return nil, false
	}
	if time.Since(cached.CreatedAt) > s.ttl {
		delete(s.responses, key)
		return nil, false
	}
	return cached, true
}

func (s *InMemoryIdempotencyStore) Set(_ context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now()
	s.mu.Lock()
	s.responses[key] = response
	s.mu.Unlock()
}

func (s *InMemoryIdempotencyStore) Reserve(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

func (s *InMemoryIdempotencyStore) evictLoop() {
	interval := s.ttl
	if interval <= 0 || interval > time.Hour {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, cached := range s.responses {
				if time.Since(cached.CreatedAt) > s.ttl {
					delete(s.responses, key)
				}
			}
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency replays the first successful response for a repeated
// Idempotency-Key. Keys are scoped to the caller, method and path so one
// user's key can never replay another user's booking. A repeat that arrives
// while the original is still running gets 409.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = IdempotencyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := idempotencyKey(r, headerName)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			if cached, ok := store.Get(ctx, key); ok {
				replay(w, cached)
				return
			}

			if !store.Reserve(ctx, key) {
				_ = httputil.WriteError(w, apperrors.Conflict("a request with this "+headerName+" is still in progress"))
				return
			}
			defer store.Release(context.WithoutCancel(ctx), key)

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status < 200 || rec.status >= 300 {
				return
			}
			store.Set(context.WithoutCancel(ctx), key, &CachedResponse{
				StatusCode: rec.status,
				Headers:    w.Header().Clone(),
				Body:       bytes.Clone(rec.body.Bytes()),
			})
		})
	}
}

// idempotencyKey is empty for reads and for requests without the header.
func idempotencyKey(r *http.Request, headerName string) string {
	key := r.Header.Get(headerName)
	if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return ""
	}

	userID := r.Header.Get(UserIDHeader)
	if actor, ok := ActorFromContext(r.Context()); ok {
		userID = actor.UserID
	}
	return userID + "|" + r.Method + "|" + r.URL.Path + "|" + key
}

func replay(w http.ResponseWriter, cached *CachedResponse) {
	for name, values := range cached.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
