package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"friendnet/internal/auth"
	"friendnet/internal/logger"
)

// Limiter counts hits against key and reports whether the hit is allowed.
// When it is not, retryAfter says how long until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RateLimitMiddleware throttles authenticated callers per scope. It must run
// after AuthMiddleware. A limiter error lets the request through.
func RateLimitMiddleware(next http.Handler, limiter Limiter, scope string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFrom(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := scope + ":" + strconv.FormatUint(uint64(identity.UserID), 10)
		allowed, retryAfter, err := limiter.Allow(r.Context(), key)
		if err != nil {
			logger.Log.WithError(err).WithFields(logrus.Fields{
				"scope":   scope,
				"user_id": identity.UserID,
			}).Warn("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeJSONError(w, "Request was throttled. Expected available in "+strconv.Itoa(seconds)+" seconds.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
