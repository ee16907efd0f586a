package users

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/innsuite/innsuite/internal/access"
	"github.com/innsuite/innsuite/internal/platform/httpx"
	"github.com/innsuite/innsuite/internal/shared"
)

// IdempotencyHeader optionally deduplicates create_user requests.
const IdempotencyHeader = "Idempotency-Key"

// Handler manages user management endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(access.RequireAny(shared.PermUsersView, shared.PermUsersEdit)).Get("/users", h.listUsers)
	r.With(access.Guard(shared.PermUsersEdit, access.ComponentUserManagement, nil)).
		Post("/functions/user-management", h.handleAction)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromRequest(r)
	users, pagination, err := h.service.ListUsers(r.Context(), access.DeciderFromContext(r.Context()), page, perPage)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if users == nil {
		users = []User{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users, "pagination": pagination})
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Action(w, nil, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Action(w, nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	actor := access.DeciderFromContext(r.Context())
	var (
		user User
		err  error
	)
	switch req.Action {
	case ActionCreateUser:
		user, err = h.service.Create(r.Context(), actor, CreateInput{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			RoleID:    req.RoleID,
		}, r.Header.Get(IdempotencyHeader))
	case ActionUpdateUser:
		user, err = h.service.Update(r.Context(), actor, UpdateInput{
			ID:        req.UserID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Password:  req.Password,
			RoleID:    req.RoleID,
			IsActive:  req.IsActive,
		})
	}
	if err != nil {
		if httpx.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("user action", slog.String("action", req.Action), slog.Any("error", err))
		}
		httpx.Action(w, nil, err)
		return
	}
	httpx.Action(w, user, nil)
}
