package handler

import (
	"log/slog"
	"net/http"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/handler/dto"
	"github.com/taskflow/taskflow/internal/service"
)

// AuthHandler handles registration, login and the current-user lookup.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "", "")
		return
	}

	writeSuccess(w, http.StatusCreated, dto.ToAuthResponse(result))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, h.logger, err, "", "")
		return
	}

	writeSuccess(w, http.StatusOK, dto.ToAuthResponse(result))
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, msgTokenFailed)
		return
	}
	writeSuccess(w, http.StatusOK, user)
}
