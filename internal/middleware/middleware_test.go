package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friendnet/internal/auth"
	"friendnet/internal/config"
)

func testIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer(config.AuthConfig{
		JWTSecretKey:    "middleware-secret",
		JWTIssuer:       "friendnet-test",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}, nil)
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(id.Username))
	})
}

func TestAuthMiddleware(t *testing.T) {
	issuer := testIssuer()
	pair, err := issuer.IssuePair(7, "alice")
	require.NoError(t, err)
	h := AuthMiddleware(echoIdentity(), issuer)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"access token", "Bearer " + pair.AccessToken, http.StatusOK},
		{"lowercase scheme", "bearer " + pair.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "alice", rec.Body.String())
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "false", body["success"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

type failingValidator struct{}

func (failingValidator) Validate(context.Context, string, auth.TokenType) (*auth.Claims, error) {
	return nil, errors.New("redis: connection refused")
}

func TestAuthMiddlewareInfrastructureError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/users/", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec := httptest.NewRecorder()
	AuthMiddleware(echoIdentity(), failingValidator{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis")
}

type countingLimiter struct {
	limit int
	hits  map[string]int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if l.err != nil {
		return false, 0, l.err
	}
	if l.hits == nil {
		l.hits = map[string]int{}
	}
	l.hits[key]++
	if l.hits[key] > l.limit {
		return false, 1500 * time.Millisecond, nil
	}
	return true, 0, nil
}

func withCaller(r *http.Request, userID uint) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{UserID: userID, Username: "u"}))
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := &countingLimiter{limit: 2}
	h := RateLimitMiddleware(echoIdentity(), limiter, "friend-request")

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withCaller(httptest.NewRequest(http.MethodPost, "/request-create/", nil), 1))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withCaller(httptest.NewRequest(http.MethodPost, "/request-create/", nil), 1))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, 3, limiter.hits["friend-request:1"])

	// other users have their own window
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withCaller(httptest.NewRequest(http.MethodPost, "/request-create/", nil), 2))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	h := RateLimitMiddleware(echoIdentity(), &countingLimiter{err: errors.New("down")}, "friend-request")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withCaller(httptest.NewRequest(http.MethodPost, "/request-create/", nil), 1))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoggingMiddlewareKeepsStatus(t *testing.T) {
	issuer := testIssuer()
	pair, err := issuer.IssuePair(3, "bob")
	require.NoError(t, err)

	h := LoggingMiddleware(AuthMiddleware(echoIdentity(), issuer))
	req := httptest.NewRequest(http.MethodGet, "/pending-friends/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pending-friends/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
