package apiserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"friendnet/internal/auth"
	"friendnet/internal/models"
	"friendnet/internal/services"
)

// AuthHandler serves signup, login and token endpoints.
type AuthHandler struct {
	AuthService services.AuthService
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{AuthService: authService}
}

// SignupRequest is the body of POST /signup/.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResponse confirms a new account.
type SignupResponse struct {
	Message string          `json:"message"`
	User    SignedUpUser `json:"user"`
}

// SignedUpUser is the public view of a freshly created account.
type SignedUpUser struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginRequest is the body of POST /login/.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /token/refresh/.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse carries the newly issued access token.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// LogoutRequest is the optional body of POST /logout/.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func newSignedUpUser(u *models.User) SignedUpUser {
	return SignedUpUser{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

// Signup handles POST /signup/.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Request body must be a JSON object.", http.StatusBadRequest)
		return
	}

	user, err := h.AuthService.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, SignupResponse{
		Message: "User registered successfully.",
		User:    newSignedUpUser(user),
	})
}

// Login handles POST /login/. A malformed payload is 401 and a failed
// credential check is 400, as existing clients expect.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSONError(w, services.ErrInvalidCredentials.Message, http.StatusUnauthorized)
		return
	}

	pair, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, pair)
}

// Refresh handles POST /token/refresh/.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeJSONError(w, services.ErrInvalidToken.Message, http.StatusUnauthorized)
		return
	}

	access, err := h.AuthService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, RefreshResponse{AccessToken: access})
}

// Logout handles POST /logout/. The body is optional; without a refresh
// token only the presented access token is revoked.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeJSONError(w, "Authentication credentials were not provided.", http.StatusUnauthorized)
		return
	}

	defer r.Body.Close()
	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, "Request body must be a JSON object.", http.StatusBadRequest)
		return
	}

	if err := h.AuthService.Logout(r.Context(), caller, req.RefreshToken); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, MessageResponse{Message: "Logged out."})
}
