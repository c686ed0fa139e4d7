package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/middleware"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/service"
)

// AuthHandler handles account and session requests
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Success bool            `json:"success"`
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
}

// UserResponse is returned by validate and me.
type UserResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

func (h *AuthHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		WriteError(w, http.StatusBadRequest, clientMessage(err, service.ErrInvalidRequest), h.logger)
	case errors.Is(err, service.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "Email is already registered", h.logger)
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "Invalid email or password", h.logger)
	case errors.Is(err, service.ErrInvalidToken):
		WriteError(w, http.StatusBadRequest, "Reset token is invalid or expired", h.logger)
	default:
		h.logger.Error("auth operation failed", "op", op, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	user, session, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "register", err)
		return
	}

	WriteJSON(w, http.StatusCreated, SessionResponse{Success: true, User: user, Session: session}, h.logger)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	user, session, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "login", err)
		return
	}

	WriteJSON(w, http.StatusOK, SessionResponse{Success: true, User: user, Session: session}, h.logger)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
		h.writeServiceError(w, "logout", err)
		return
	}

	WriteMessage(w, http.StatusOK, "Logged out successfully", h.logger)
}

// Me handles GET /api/auth/me and GET /api/auth/validate
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Authentication required", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, UserResponse{Success: true, User: user}, h.logger)
}

// ForgotPassword handles POST /api/auth/forgot-password. The response is the
// same whether or not the address belongs to an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req); err != nil {
		h.writeServiceError(w, "forgot-password", err)
		return
	}

	WriteMessage(w, http.StatusOK, "If that email is registered, a reset link has been sent", h.logger)
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		h.writeServiceError(w, "reset-password", err)
		return
	}

	WriteMessage(w, http.StatusOK, "Password has been reset", h.logger)
}
