// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/handler/dto"
	"github.com/taskflow/taskflow/internal/middleware"
	"github.com/taskflow/taskflow/internal/service"
)

// Response messages shared by the handlers.
const (
	msgRunning         = "Task Manager API is running"
	msgServerError     = "Server Error"
	msgInvalidBody     = "Invalid request body"
	msgBodyTooLarge    = "Request body too large"
	msgNotFound        = "Resource not found"
	msgMethodNotAllow  = "Method not allowed"
	msgTaskDeleted     = "Task deleted successfully"
	msgInvalidTaskID   = "Invalid task ID format"
	msgUserExists      = "User already exists"
	msgBadCredentials  = "Invalid email or password"
	msgVersionConflict = "Task was modified by another request"
	msgTokenFailed     = "Not authorized, token failed"
)

// envelope is the response shape used by every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Handler serves the endpoints that have no dependencies.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello reports that the API is up.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: msgRunning})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, msgNotFound)
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllow)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeSuccess wraps data in a success envelope.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError writes a failure envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// decodeJSON reads a request body into dst. It reports whether decoding
// succeeded and writes the failure response otherwise.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		case errors.Is(err, dto.ErrInvalidDate):
			writeError(w, http.StatusBadRequest, dto.ErrInvalidDate.Error())
		default:
			writeError(w, http.StatusBadRequest, msgInvalidBody)
		}
		return false
	}
	return true
}

// handleServiceError maps service errors to HTTP responses. action names the
// attempted operation ("access", "update", "delete") and id is the task id
// from the path, when there is one.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, action, id string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrDuplicateIdentity):
		writeError(w, http.StatusBadRequest, msgUserExists)
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, msgBadCredentials)
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, msgTokenFailed)
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusUnauthorized, fmt.Sprintf("Not authorized to %s this task", action))
	case errors.Is(err, service.ErrInvalidTaskID):
		writeError(w, http.StatusNotFound, msgInvalidTaskID)
	case errors.Is(err, service.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Task not found with id %s", id))
	case errors.Is(err, service.ErrVersionConflict):
		writeError(w, http.StatusConflict, msgVersionConflict)
	default:
		logger.Error("request failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, msgServerError)
	}
}
