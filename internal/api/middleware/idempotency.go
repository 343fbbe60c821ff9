package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/tobiodua/bankcore/internal/api/problem"
	"github.com/tobiodua/bankcore/internal/idempotency"
	"github.com/tobiodua/bankcore/internal/observability"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

// IdempotencyMiddleware replays finalized responses for repeated
// Idempotency-Key headers and blocks concurrent duplicates. A nil store
// disables the middleware.
func IdempotencyMiddleware(store *idempotency.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(idempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				problem.Write(w, r, http.StatusBadRequest, problem.Type("invalid-request-body"), http.StatusText(http.StatusBadRequest), "unable to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			hash := requestHash(r.Method, r.URL.Path, body)

			ctx := r.Context()
			if rec, err := store.Lookup(ctx, key, hash); err == nil {
				observability.IncrementIdempotencyEvent("replayed")
				writeRecord(w, rec)
				return
			} else if handled := writeLookupFailure(w, r, store, key, hash, err); handled {
				return
			}

			ok, err := store.Reserve(ctx, key, hash)
			if err != nil {
				zap.L().Warn("idempotency reserve failed", zap.Error(err), zap.String("key", key))
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				// Lost the race to a concurrent request with the same key.
				rec, err := store.WaitForCompletion(ctx, key, hash)
				if err != nil {
					if handled := writeLookupFailure(w, r, store, key, hash, err); handled {
						return
					}
					problem.Write(w, r, http.StatusConflict, problem.Type("idempotency-key-in-progress"), http.StatusText(http.StatusConflict), "a request with this idempotency key is still in progress")
					return
				}
				observability.IncrementIdempotencyEvent("replayed")
				writeRecord(w, rec)
				return
			}

			buf := &responseBuffer{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(buf, r)

			if buf.status >= http.StatusInternalServerError {
				store.Release(ctx, key)
				return
			}
			if err := store.Finalize(ctx, key, hash, buf.status, buf.body.Bytes(), buf.Header().Get("Content-Type")); err != nil {
				zap.L().Warn("idempotency finalize failed", zap.Error(err), zap.String("key", key))
				return
			}
			observability.IncrementIdempotencyEvent("stored")
		})
	}
}

func writeLookupFailure(w http.ResponseWriter, r *http.Request, store *idempotency.Store, key, hash string, err error) bool {
	switch {
	case errors.Is(err, idempotency.ErrHashMismatch):
		observability.IncrementIdempotencyEvent("mismatch")
		problem.Write(w, r, http.StatusUnprocessableEntity, problem.Type("idempotency-key-reused"), http.StatusText(http.StatusUnprocessableEntity), "idempotency key was already used with a different request body")
		return true
	case errors.Is(err, idempotency.ErrNotFound):
		return false
	case errors.Is(err, idempotency.ErrInProgress):
		return false
	default:
		zap.L().Warn("idempotency lookup failed", zap.Error(err), zap.String("key", key))
		return false
	}
}

func writeRecord(w http.ResponseWriter, rec *idempotency.Record) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set("Idempotent-Replay", "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

func requestHash(method, path string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(method))
	sum.Write([]byte{0})
	sum.Write([]byte(path))
	sum.Write([]byte{0})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}

type responseBuffer struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (rb *responseBuffer) WriteHeader(code int) {
	if rb.wroteHeader {
		return
	}
	rb.wroteHeader = true
	rb.status = code
	rb.ResponseWriter.WriteHeader(code)
}

func (rb *responseBuffer) Write(b []byte) (int, error) {
	if !rb.wroteHeader {
		rb.WriteHeader(http.StatusOK)
	}
	rb.body.Write(b)
	return rb.ResponseWriter.Write(b)
}
