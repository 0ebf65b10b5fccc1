package webui

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storybook_backend/logging"
)

// requestIDHeader carries the correlation ID back to the client.
const requestIDHeader = "X-Request-ID"

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging tags each request with a UUID and logs method, path,
// status, and duration.
func withLogging(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set(requestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// withAuth rejects API requests that do not carry the configured
// password. The hash is computed once at startup; an empty hash disables
// auth entirely. Health checks and the UI shell stay open.
func withAuth(passwordHash []byte, next http.Handler) http.Handler {
	if len(passwordHash) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		supplied := r.Header.Get("X-Auth-Password")
		if supplied == "" {
			_, supplied, _ = r.BasicAuth()
		}
		if bcrypt.CompareHashAndPassword(passwordHash, []byte(supplied)) != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashPassword derives the bcrypt hash used by withAuth. Returns nil for
// an empty password, which disables auth.
func HashPassword(password string) ([]byte, error) {
	if password == "" {
		return nil, nil
	}
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}
