package apiserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"friendnet/internal/middleware"
)

// RouterDeps collects what NewRouter wires together. Limiter may be nil to
// disable throttling of request creation.
type RouterDeps struct {
	Auth           *AuthHandler
	Users          *UserHandler
	FriendRequests *FriendRequestHandler
	Tokens         middleware.TokenValidator
	Limiter        middleware.Limiter
}

// friendRequestRateScope keys the create throttle in the limiter.
const friendRequestRateScope = "friend-request"

// NewRouter builds the routing table of the API server.
func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.NotFoundHandler = middleware.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, "Not found.", http.StatusNotFound)
	}))
	r.MethodNotAllowedHandler = middleware.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, "Method not allowed.", http.StatusMethodNotAllowed)
	}))

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(h, deps.Tokens)
	}

	// public
	r.HandleFunc("/signup/", deps.Auth.Signup).Methods(http.MethodPost)
	r.HandleFunc("/login/", deps.Auth.Login).Methods(http.MethodPost)
	r.HandleFunc("/token/refresh/", deps.Auth.Refresh).Methods(http.MethodPost)

	// authenticated
	r.Handle("/logout/", authed(deps.Auth.Logout)).Methods(http.MethodPost)
	r.Handle("/users/", authed(deps.Users.SearchUsers)).Methods(http.MethodGet)

	var create http.Handler = http.HandlerFunc(deps.FriendRequests.CreateRequest)
	if deps.Limiter != nil {
		create = middleware.RateLimitMiddleware(create, deps.Limiter, friendRequestRateScope)
	}
	r.Handle("/request-create/", middleware.AuthMiddleware(create, deps.Tokens)).Methods(http.MethodPost)
	r.Handle("/request-accept/{id:[0-9]+}/", authed(deps.FriendRequests.AcceptRequest)).Methods(http.MethodPost)
	r.Handle("/request-reject/{id:[0-9]+}/", authed(deps.FriendRequests.RejectRequest)).Methods(http.MethodPost)
	r.Handle("/pending-friends/", authed(deps.FriendRequests.ListPending)).Methods(http.MethodGet)
	r.Handle("/accepted-friends/", authed(deps.FriendRequests.ListAccepted)).Methods(http.MethodGet)

	return r
}
