package server

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ctxKey namespaces values this package stores on a request context so they
// can't collide with keys set by other packages.
type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	sessionKey   ctxKey = "session_id"

	// loggerContextKey stays a plain string (not ctxKey) because it predates
	// the typed-key convention and several tests stash a logger under the
	// literal "logger" key directly.
	loggerContextKey = "logger"
)

// RequestIDMiddleware stamps every request with a correlation ID — reusing
// an inbound X-Request-ID header when the caller already set one, minting a
// UUID otherwise — and attaches a logger pre-tagged with that ID so every
// log line downstream can be traced back to the request that caused it.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		logger := logrus.WithField("request_id", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = context.WithValue(ctx, loggerContextKey, logger)
		r = r.WithContext(ctx)

		logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"user_agent": r.UserAgent(),
			"remote_ip":  getClientIP(r),
		}).Debug("processing request")

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code a handler wrote so logging
// middleware downstream of it can report the outcome of a request.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs one structured line per completed request, using
// the request-scoped logger RequestIDMiddleware attached to the context.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		getLoggerFromContext(r.Context()).WithFields(logrus.Fields{
			"status_code": rec.status,
			"method":      r.Method,
			"path":        r.URL.Path,
		}).Info("request completed")
	})
}

// RecoveryMiddleware turns a panic inside next into a logged 500 response
// instead of taking the whole listener down.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				getLoggerFromContext(r.Context()).WithFields(logrus.Fields{
					"panic":  rec,
					"method": r.Method,
					"path":   r.URL.Path,
				}).Error("recovered from panic")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware echoes an allowed Origin back on every response and
// answers OPTIONS preflights directly, per allowedOrigins (a literal "*"
// matches any origin).
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (wildcard || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getLoggerFromContext returns the request-scoped logger RequestIDMiddleware
// attached, or the standard logger if none was ever attached (e.g. in a
// handler test that bypasses the middleware chain).
func getLoggerFromContext(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(loggerContextKey).(*logrus.Entry); ok {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// GetRequestID returns the correlation ID RequestIDMiddleware attached to
// ctx, or "" if the context never passed through that middleware.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetSessionID returns the gameId a handler stashed on ctx under sessionKey,
// or "" if none was set.
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}

// getClientIP resolves the IP a request should be attributed to for rate
// limiting and logging: X-Forwarded-For's first hop, then X-Real-IP, then
// the raw RemoteAddr with its port stripped.
func getClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := extractFirstIP(fwd); first != "" {
			return first
		}
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// extractFirstIP returns the first comma-separated, whitespace-trimmed
// address in an X-Forwarded-For value.
func extractFirstIP(ips string) string {
	first, _, _ := strings.Cut(ips, ",")
	return trimSpaces(first)
}

// trimSpaces strips leading and trailing ASCII spaces.
func trimSpaces(s string) string {
	return strings.Trim(s, " ")
}
