package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/innsuite/innsuite/internal/access"
	"github.com/innsuite/innsuite/internal/platform/httpx"
	"github.com/innsuite/innsuite/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context, restaurantID uuid.UUID) ([]Role, error)
	GetRole(ctx context.Context, restaurantID, id uuid.UUID) (Role, error)
	CreateRole(ctx context.Context, rec record) (Role, error)
	UpdateRole(ctx context.Context, rec record) (Role, error)
	DeleteRole(ctx context.Context, restaurantID, id uuid.UUID) error
	ListComponents(ctx context.Context) ([]access.Component, error)
	ComponentsByID(ctx context.Context, ids []uuid.UUID) ([]access.Component, error)
}

// Invalidator propagates a tenant's access change to every process.
type Invalidator interface {
	InvalidateTenant(ctx context.Context, restaurantID uuid.UUID) error
}

// Service handles role business logic. Every rule is enforced here regardless
// of what the caller's UI allowed.
type Service struct {
	repo        RepositoryPort
	audit       shared.AuditRecorder
	invalidator Invalidator
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit shared.AuditRecorder, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, invalidator: invalidator, validate: validator.New(), logger: logger}
}

// ListRoles returns the tenant's roles, filtered for display to actor.
func (s *Service) ListRoles(ctx context.Context, actor *access.Decider) ([]Role, error) {
	tenant, err := tenantOf(actor)
	if err != nil {
		return nil, err
	}
	roles, err := s.repo.ListRoles(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return VisibleTo(roles, actor), nil
}

// ListComponents returns the component catalogue.
func (s *Service) ListComponents(ctx context.Context) ([]access.Component, error) {
	return s.repo.ListComponents(ctx)
}

// Create adds a custom role to the actor's tenant.
func (s *Service) Create(ctx context.Context, actor *access.Decider, in CreateInput) (Role, error) {
	tenant, err := tenantOf(actor)
	if err != nil {
		return Role{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return Role{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if in.HasFullAccess && !hasFullAccess(actor) {
		return Role{}, fmt.Errorf("%w: only full-access users may create full-access roles", httpx.ErrForbidden)
	}
	if err := s.checkGrants(ctx, actor, in.ComponentIDs, nil); err != nil {
		return Role{}, err
	}

	role, err := s.repo.CreateRole(ctx, record{
		RestaurantID:  tenant,
		Name:          in.Name,
		Description:   strings.TrimSpace(in.Description),
		HasFullAccess: in.HasFullAccess,
		ComponentIDs:  in.ComponentIDs,
	})
	if err != nil {
		return Role{}, err
	}
	s.afterMutation(ctx, actor, "role.create", role.ID, map[string]any{"name": role.Name, "has_full_access": role.HasFullAccess})
	return role, nil
}

// Update rewrites a role. System roles keep their name and full-access flag.
func (s *Service) Update(ctx context.Context, actor *access.Decider, in UpdateInput) (Role, error) {
	tenant, err := tenantOf(actor)
	if err != nil {
		return Role{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return Role{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	current, err := s.repo.GetRole(ctx, tenant, in.ID)
	if err != nil {
		return Role{}, err
	}
	if current.IsSystem {
		if !strings.EqualFold(current.Name, in.Name) {
			return Role{}, fmt.Errorf("%w: system roles cannot be renamed", httpx.ErrForbidden)
		}
		if current.HasFullAccess != in.HasFullAccess {
			return Role{}, fmt.Errorf("%w: full access of system roles is fixed", httpx.ErrForbidden)
		}
		in.Name = current.Name
	}
	if (current.HasFullAccess || in.HasFullAccess) && !hasFullAccess(actor) {
		return Role{}, fmt.Errorf("%w: only full-access users may edit full-access roles", httpx.ErrForbidden)
	}
	if err := s.checkGrants(ctx, actor, in.ComponentIDs, current.Components); err != nil {
		return Role{}, err
	}

	role, err := s.repo.UpdateRole(ctx, record{
		ID:            current.ID,
		RestaurantID:  tenant,
		Name:          in.Name,
		Description:   strings.TrimSpace(in.Description),
		HasFullAccess: in.HasFullAccess,
		ComponentIDs:  in.ComponentIDs,
	})
	if err != nil {
		return Role{}, err
	}
	s.afterMutation(ctx, actor, "role.update", role.ID, map[string]any{
		"name":          role.Name,
		"previous_name": current.Name,
		"components":    len(role.Components),
	})
	return role, nil
}

// Delete removes a deletable role.
func (s *Service) Delete(ctx context.Context, actor *access.Decider, id uuid.UUID) error {
	tenant, err := tenantOf(actor)
	if err != nil {
		return err
	}
	if id == uuid.Nil {
		return fmt.Errorf("%w: role_id required", httpx.ErrValidation)
	}
	current, err := s.repo.GetRole(ctx, tenant, id)
	if err != nil {
		return err
	}
	if current.IsSystem || !current.IsDeletable {
		return fmt.Errorf("%w: role %q cannot be deleted", httpx.ErrForbidden, current.Name)
	}
	if current.HasFullAccess && !hasFullAccess(actor) {
		return fmt.Errorf("%w: only full-access users may delete full-access roles", httpx.ErrForbidden)
	}
	if err := s.repo.DeleteRole(ctx, tenant, id); err != nil {
		return err
	}
	s.afterMutation(ctx, actor, "role.delete", id, map[string]any{"name": current.Name})
	return nil
}

// checkGrants rejects newly granted components the actor cannot use itself.
func (s *Service) checkGrants(ctx context.Context, actor *access.Decider, ids []uuid.UUID, existing []access.Component) error {
	if hasFullAccess(actor) || len(ids) == 0 {
		return nil
	}
	components, err := s.repo.ComponentsByID(ctx, ids)
	if err != nil {
		return err
	}
	held := make(map[uuid.UUID]struct{}, len(existing))
	for _, c := range existing {
		held[c.ID] = struct{}{}
	}
	for _, c := range components {
		if _, ok := held[c.ID]; ok {
			continue
		}
		if !actor.HasAccess(c.Name) {
			return fmt.Errorf("%w: cannot grant component %q", httpx.ErrForbidden, c.Name)
		}
	}
	return nil
}

// afterMutation records the audit trail and invalidates cached access for the
// tenant. Neither failure undoes the committed mutation.
func (s *Service) afterMutation(ctx context.Context, actor *access.Decider, action string, roleID uuid.UUID, meta map[string]any) {
	identity := actor.Identity()
	tenant := identity.TenantID()
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:      identity.ID,
			RestaurantID: tenant,
			Action:       action,
			Entity:       "role",
			EntityID:     roleID.String(),
			Meta:         meta,
		})
		if err != nil {
			s.logger.Warn("audit role mutation", slog.String("action", action), slog.Any("error", err))
		}
	}
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateTenant(ctx, tenant); err != nil {
			s.logger.Warn("invalidate tenant access", slog.String("restaurant_id", tenant.String()), slog.Any("error", err))
		}
	}
	s.logger.Info("role mutated", slog.String("action", action), slog.String("role_id", roleID.String()), slog.String("actor_id", identity.ID.String()))
}

func tenantOf(actor *access.Decider) (uuid.UUID, error) {
	identity := actor.Identity()
	if identity == nil {
		return uuid.Nil, httpx.ErrUnauthorized
	}
	tenant := identity.TenantID()
	if tenant == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %w", httpx.ErrForbidden, shared.ErrNoRestaurant)
	}
	return tenant, nil
}

func hasFullAccess(actor *access.Decider) bool {
	identity := actor.Identity()
	return identity != nil && identity.HasFullAccess
}
