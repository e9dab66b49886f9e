package middleware

import (
	"context"
	apperrors "courtbook/pkg/errors"
	httputil "courtbook/pkg/http"
	"net/http"
	"sync"
	"time"
)

// deadlineWriter drops everything the handler writes once the deadline
// response has gone out.
type deadlineWriter struct {
	http.ResponseWriter
	mu      sync.Mutex
	expired bool
	started bool
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.expired || dw.started {
		return
	}
	dw.started = true
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.expired {
		return 0, http.ErrHandlerTimeout
	}
	dw.started = true
	return dw.ResponseWriter.Write(b)
}

// expire answers 504 unless the handler already started its response.
func (dw *deadlineWriter) expire() {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	dw.expired = true
	if !dw.started {
		_ = httputil.WriteError(dw.ResponseWriter, apperrors.Timeout("request timed out"))
		dw.started = true
	}
}

// RequestTimeout bounds the whole request. Allocator operations carry their
// own shorter deadline inside it.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			dw := &deadlineWriter{ResponseWriter: w}
			finished := make(chan any, 1)
			go func() {
				var panicked any
				defer func() {
					if p := recover(); p != nil {
						panicked = p
					}
					finished <- panicked
				}()
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case p := <-finished:
				if p != nil {
					panic(p)
				}
			case <-ctx.Done():
				dw.expire()
			}
		})
	}
}
