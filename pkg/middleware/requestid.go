package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/deskhive/deskhive/pkg/contextkeys"
	"github.com/deskhive/deskhive/pkg/observability"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns each request a UUID (or trusts an inbound one) and makes
// it available to handlers and the logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		ctx = observability.WithRequestID(ctx, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Logging emits one structured line per request.
func Logging(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.WithFields(map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   time.Since(start).String(),
				"request_id": contextkeys.RequestID(r.Context()),
			}).Info("request handled")
		})
	}
}

// Metrics records request counts and latency.
func Metrics(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			metrics.HTTPRequestsInFlight.Inc()
			next.ServeHTTP(rec, r)
			metrics.HTTPRequestsInFlight.Dec()

			metrics.RecordHTTPRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}
