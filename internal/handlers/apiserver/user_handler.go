package apiserver

import (
	"net/http"

	"friendnet/internal/services"
)

// UserHandler serves user lookups.
type UserHandler struct {
	userService services.UserService
}

// NewUserHandler creates a new UserHandler instance.
func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// SearchUsers handles GET /users/?search=keyword.
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.SearchUsers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, users)
}
