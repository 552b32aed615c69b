package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"friendnet/internal/auth"
	"friendnet/internal/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// identityCarrier lets handlers further down report who the caller was,
// since they see a derived request context.
type identityCarrier struct {
	identity *auth.Identity
}

type carrierKey struct{}

func withIdentityCarrier(ctx context.Context, c *identityCarrier) context.Context {
	return context.WithValue(ctx, carrierKey{}, c)
}

// recordIdentity hands the authenticated caller back to LoggingMiddleware.
func recordIdentity(ctx context.Context, id auth.Identity) {
	if c, ok := ctx.Value(carrierKey{}).(*identityCarrier); ok {
		c.identity = &id
	}
}

// LoggingMiddleware writes one access log line per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		carrier := &identityCarrier{}

		next.ServeHTTP(rec, r.WithContext(withIdentityCarrier(r.Context(), carrier)))

		fields := logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}
		if carrier.identity != nil {
			fields["user_id"] = carrier.identity.UserID
		}
		entry := logger.Log.WithFields(fields)
		switch {
		case rec.status >= 500:
			entry.Error("request completed")
		case rec.status >= 400:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	})
}
