package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/blueskybroadcast/teams-api/internal/middleware"
	"github.com/blueskybroadcast/teams-api/internal/services/directory"
	"github.com/blueskybroadcast/teams-api/internal/services/oauth"
	"github.com/blueskybroadcast/teams-api/internal/services/session"
	"github.com/blueskybroadcast/teams-api/pkg/httpext"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthHandler serves the session lifecycle endpoints: login, refresh, logout
type AuthHandler struct {
	sessions  *session.Manager
	directory *directory.Service
	validate  *validator.Validate
}

func NewAuthHandler(sessions *session.Manager, dir *directory.Service) *AuthHandler {
	return &AuthHandler{
		sessions:  sessions,
		directory: dir,
		validate:  validator.New(),
	}
}

// Login issues a token pair for valid credentials.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpext.JsonErrorWithDetails(w, http.StatusBadRequest, httpext.ErrorResponse{
			Error:   "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	user, err := h.directory.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Credential check failed")
		httpext.JsonError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if user == nil {
		httpext.JsonError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	account, err := h.directory.AccountByID(r.Context(), user.AccountID)
	if err != nil {
		log.Error().Err(err).Str("account_id", user.AccountID).Msg("Account lookup failed")
		httpext.JsonError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	pair, err := h.sessions.Create(r.Context(), account, user, nil)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Session creation failed on login")
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	httpext.JsonResponse(w, http.StatusCreated, pair)
}

// Refresh rotates a token pair.
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.RefreshToken == "" {
		httpext.JsonError(w, "Refresh token required", http.StatusBadRequest)
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrUnauthorized) {
			httpext.JsonError(w, "Invalid refresh token", http.StatusUnauthorized)
			return
		}
		httpext.JsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	httpext.JsonResponse(w, http.StatusOK, pair)
}

// Logout destroys the session carried in the bearer header.
// DELETE /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tokenString := oauth.ExtractToken(r)
	if tokenString == "" {
		httpext.JsonError(w, "No token provided", http.StatusBadRequest)
		return
	}

	if err := h.sessions.Destroy(r.Context(), tokenString); err != nil {
		httpext.JsonError(w, "Invalid token", http.StatusUnprocessableEntity)
		return
	}

	httpext.JsonResponse(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// LogoutAll flushes every session in the caller's namespace, logging the
// identity out of all devices at once. On store backends without pattern
// deletion the flush degrades to a logged no-op.
// DELETE /api/v1/auth/logout_all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity := middleware.CurrentIdentity(r)
	if identity == nil {
		httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	namespace, err := identity.Namespace()
	if err != nil {
		httpext.JsonError(w, "Invalid token", http.StatusUnprocessableEntity)
		return
	}

	if err := h.sessions.DestroyNamespace(r.Context(), namespace); err != nil {
		log.Error().Err(err).Str("namespace", namespace).Msg("Namespace logout failed")
		httpext.JsonError(w, "Invalid token", http.StatusUnprocessableEntity)
		return
	}

	httpext.JsonResponse(w, http.StatusOK, map[string]string{"status": "logged out"})
}
