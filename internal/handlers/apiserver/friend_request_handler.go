package apiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"friendnet/internal/auth"
	"friendnet/internal/models"
	"friendnet/internal/services"
	"friendnet/internal/storage"
)

// FriendRequestHandler handles HTTP requests related to friend requests.
type FriendRequestHandler struct {
	friendService services.FriendRequestService
}

// NewFriendRequestHandler creates a new FriendRequestHandler.
func NewFriendRequestHandler(fs services.FriendRequestService) *FriendRequestHandler {
	return &FriendRequestHandler{friendService: fs}
}

// CreateFriendRequestPayload is the body of POST /request-create/.
type CreateFriendRequestPayload struct {
	Receiver json.Number `json:"receiver"`
}

// FriendRequestResponse is the wire form of a friend request record.
type FriendRequestResponse struct {
	ID        uint                       `json:"id"`
	Sender    uint                       `json:"sender"`
	Receiver  uint                       `json:"receiver"`
	Status    models.FriendRequestStatus `json:"status"`
	CreatedAt time.Time                  `json:"created_at"`
}

func newFriendRequestResponse(fr *models.FriendRequest) FriendRequestResponse {
	return FriendRequestResponse{
		ID:        fr.ID,
		Sender:    fr.SenderID,
		Receiver:  fr.ReceiverID,
		Status:    fr.Status,
		CreatedAt: fr.CreatedAt,
	}
}

func callerFrom(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	caller, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeJSONError(w, "Authentication credentials were not provided.", http.StatusUnauthorized)
	}
	return caller, ok
}

// CreateRequest handles POST /request-create/.
func (h *FriendRequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	defer r.Body.Close()
	var payload CreateFriendRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "Request body must be a JSON object.", http.StatusBadRequest)
		return
	}
	// {"receiver": 2} and {"receiver": "2"} are both accepted
	receiverID, err := storage.ParseID(payload.Receiver.String())
	if err != nil {
		writeJSONError(w, "receiver must be a user id.", http.StatusBadRequest)
		return
	}

	fr, err := h.friendService.CreateRequest(r.Context(), caller.UserID, receiverID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, newFriendRequestResponse(fr))
}

// AcceptRequest handles POST /request-accept/{id}/.
func (h *FriendRequestHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	h.answer(w, r, h.friendService.AcceptRequest)
}

// RejectRequest handles POST /request-reject/{id}/.
func (h *FriendRequestHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.answer(w, r, h.friendService.RejectRequest)
}

type answerFunc func(ctx context.Context, callerID, requestID uint) (*models.FriendRequest, error)

func (h *FriendRequestHandler) answer(w http.ResponseWriter, r *http.Request, do answerFunc) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	requestID, err := storage.ParseID(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, services.ErrFriendRequestNotFound)
		return
	}

	fr, err := do(r.Context(), caller.UserID, requestID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, newFriendRequestResponse(fr))
}

// ListPending handles GET /pending-friends/[?direction=sent|received].
func (h *FriendRequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.friendService.ListPending)
}

// ListAccepted handles GET /accepted-friends/[?direction=sent|received].
func (h *FriendRequestHandler) ListAccepted(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.friendService.ListAccepted)
}

type listFunc func(ctx context.Context, userID uint, dir services.Direction) ([]models.FriendRequestView, error)

func (h *FriendRequestHandler) list(w http.ResponseWriter, r *http.Request, do listFunc) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	dir, err := services.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	views, err := do(r.Context(), caller.UserID, dir)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, views)
}
