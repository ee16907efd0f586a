package roles

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

// Handler manages role management endpoints.
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

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(access.RequireAny(shared.PermRolesView, shared.PermRolesEdit))
		r.Get("/roles", h.listRoles)
		r.Get("/components", h.listComponents)
	})
	r.With(access.Guard(shared.PermRolesEdit, access.ComponentUserManagement, nil)).
		Post("/functions/role-management", h.handleAction)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context(), access.DeciderFromContext(r.Context()))
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if roles == nil {
		roles = []Role{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) listComponents(w http.ResponseWriter, r *http.Request) {
	components, err := h.service.ListComponents(r.Context())
	if err != nil {
		h.logger.Error("list components", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if components == nil {
		components = []access.Component{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"components": components})
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
	switch req.Action {
	case ActionCreate:
		role, err := h.service.Create(r.Context(), actor, CreateInput{
			Name:          req.Name,
			Description:   req.Description,
			HasFullAccess: req.HasFullAccess,
			ComponentIDs:  req.ComponentIDs,
		})
		h.respond(w, req.Action, role, err)
	case ActionUpdate:
		role, err := h.service.Update(r.Context(), actor, UpdateInput{
			ID:            req.RoleID,
			Name:          req.Name,
			Description:   req.Description,
			HasFullAccess: req.HasFullAccess,
			ComponentIDs:  req.ComponentIDs,
		})
		h.respond(w, req.Action, role, err)
	case ActionDelete:
		err := h.service.Delete(r.Context(), actor, req.RoleID)
		h.respond(w, req.Action, nil, err)
	}
}

func (h *Handler) respond(w http.ResponseWriter, action string, role any, err error) {
	if err != nil {
		if httpx.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("role action", slog.String("action", action), slog.Any("error", err))
		}
		httpx.Action(w, nil, err)
		return
	}
	httpx.Action(w, role, nil)
}
