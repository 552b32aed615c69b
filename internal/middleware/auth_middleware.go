package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"friendnet/internal/auth"
	"friendnet/internal/logger"
)

// TokenValidator checks a bearer token and returns its claims.
type TokenValidator interface {
	Validate(ctx context.Context, tokenString string, want auth.TokenType) (*auth.Claims, error)
}

type errorBody struct {
	Success string `json:"success"`
	Message string `json:"message"`
}

// writeJSONError mirrors the API error body so rejections made here look the
// same as handler errors.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(errorBody{Success: "false", Message: message}); err != nil {
		logger.Log.WithError(err).Warn("failed to encode error response")
	}
}

// AuthMiddleware validates the access token in the Authorization header and
// stores the caller's auth.Identity in the request context.
func AuthMiddleware(next http.Handler, tokens TokenValidator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, "Authentication credentials were not provided.", http.StatusUnauthorized)
			return
		}

		headerParts := strings.Fields(authHeader)
		if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
			writeJSONError(w, "Authorization header must be 'Bearer <token>'.", http.StatusUnauthorized)
			return
		}

		claims, err := tokens.Validate(r.Context(), headerParts[1], auth.AccessToken)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrWrongTokenType) || errors.Is(err, auth.ErrTokenRevoked) {
				writeJSONError(w, "Token is invalid or expired", http.StatusUnauthorized)
				return
			}
			logger.Log.WithError(err).Error("token validation failed")
			writeJSONError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		identity := auth.Identity{
			UserID:   claims.UserID,
			Username: claims.Username,
			Claims:   claims,
		}
		recordIdentity(r.Context(), identity)
		ctx := auth.WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
