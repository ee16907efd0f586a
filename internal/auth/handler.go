package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/innsuite/innsuite/internal/access"
	"github.com/innsuite/innsuite/internal/platform/httpx"
	"github.com/innsuite/innsuite/internal/shared"
)

// AccessSessions is the part of access.Manager the auth flow drives.
type AccessSessions interface {
	SignIn(ctx context.Context, userID uuid.UUID, email string) *access.Decider
	SignOut(ctx context.Context, userID uuid.UUID) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	access         AccessSessions
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, accessSessions AccessSessions) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		access:         accessSessions,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.With(access.RequireIdentity).Get("/me", h.handleMe)
}

type loginResponse struct {
	Token     string         `json:"token"`
	CSRFToken string         `json:"csrf_token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Access    access.Summary `json:"access"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("authenticate", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
		h.logger.Error("renew session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(user.ID.String())
	sess.Set(shared.SessionEmailKey, user.Email)
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	d := h.access.SignIn(r.Context(), user.ID, user.Email)
	h.logger.Info("login", slog.String("user_id", user.ID.String()))
	httpx.JSON(w, http.StatusOK, loginResponse{
		Token:     sess.ID,
		CSRFToken: csrfToken,
		ExpiresAt: expiresAt,
		Access:    d.Summary(shared.AllPermissions()),
	})
}

// handleLogout flushes the identity's cached access data before the session
// itself is destroyed.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if userID, ok := shared.SessionUserID(r.Context()); ok {
		if err := h.access.SignOut(r.Context(), userID); err != nil {
			h.logger.Warn("flush access cache", slog.String("user_id", userID.String()), slog.Any("error", err))
		}
	}
	if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
		h.logger.Warn("remove session", slog.Any("error", err))
	}
	h.sessionManager.Destroy(sess)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	d := access.DeciderFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, d.Summary(shared.AllPermissions()))
}
