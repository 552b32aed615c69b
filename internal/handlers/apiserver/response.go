package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"friendnet/internal/logger"
	"friendnet/internal/services"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Success string            `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// MessageResponse carries a plain confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

const internalErrorMessage = "An error occurred. Please try again later."

// writeJSONResponse sends data as a JSON response.
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already out, nothing left to tell the client
			logger.Log.WithError(err).Warn("failed to encode JSON response")
		}
	}
}

// writeJSONError sends a JSON error body.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Success: "false", Message: message})
}

// statusFor maps a service error kind onto an HTTP status.
func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation, services.KindConflict:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err for the client. Classified errors carry
// their own message; anything else is logged and hidden behind a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.KindOf(err)
	if kind == services.KindInternal {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		writeJSONError(w, internalErrorMessage, http.StatusInternalServerError)
		return
	}

	body := ErrorResponse{Success: "false", Message: err.Error()}
	var se *services.Error
	if errors.As(err, &se) {
		body.Errors = se.Fields
	}
	writeJSONResponse(w, statusFor(kind), body)
}
