package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/response"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/service"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "X-Idempotency-Replayed"

	maxIdempotencyKeyLen = 128
)

// Idempotency deduplicates retried mutating requests that carry an
// Idempotency-Key header. The key is optional; requests without one pass
// through untouched. With a key, the first request executes and its
// response is recorded, a retry with the same body replays that response,
// and a reuse of the key for a different body is rejected as a conflict.
type Idempotency struct {
	store service.IdempotencyStore
	ttl   time.Duration
}

func NewIdempotency(store service.IdempotencyStore, ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Idempotency{store: store, ttl: ttl}
}

func (i *Idempotency) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if i.store == nil || key == "" || isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "idempotency key too long", nil)
				return
			}

			fingerprint, err := requestFingerprint(r)
			if err != nil {
				response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "unreadable request body", nil)
				return
			}
			scope := r.Method + " " + r.URL.Path

			begin, err := i.store.Begin(r.Context(), scope, key, fingerprint, i.ttl)
			if err != nil {
				// the store being down must not block writes
				slog.Warn("idempotency store unavailable, executing request",
					"scope", scope, "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}

			switch begin.State {
			case service.IdempotencyStateReplay:
				writeReplay(w, begin.Cached)
				return
			case service.IdempotencyStateConflict:
				response.Error(w, r, http.StatusConflict, "CONFLICT", "idempotency key was used with a different request", nil)
				return
			case service.IdempotencyStateInProgress:
				response.Error(w, r, http.StatusConflict, "CONFLICT", "a request with this idempotency key is still in flight", nil)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// server errors stay retryable
			if rec.status < http.StatusInternalServerError {
				err := i.store.Complete(r.Context(), scope, key, fingerprint, service.CachedHTTPResponse{
					StatusCode:  rec.status,
					ContentType: rec.Header().Get("Content-Type"),
					Body:        rec.body.Bytes(),
				}, i.ttl)
				if err != nil {
					slog.Warn("failed to record idempotent response", "scope", scope, "error", err.Error())
				}
			}
		})
	}
}

func requestFingerprint(r *http.Request) (string, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return "", err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	sum := sha256.Sum256(append([]byte(r.Method+" "+r.URL.Path+"\n"), body...))
	return hex.EncodeToString(sum[:]), nil
}

func writeReplay(w http.ResponseWriter, cached *service.CachedHTTPResponse) {
	if cached == nil {
		w.Header().Set(IdempotencyReplayedHeader, "true")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if cached.ContentType != "" {
		w.Header().Set("Content-Type", cached.ContentType)
	}
	w.Header().Set(IdempotencyReplayedHeader, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}

// responseRecorder tees the downstream response into a buffer so it can be
// replayed later, while still streaming it to the client.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
