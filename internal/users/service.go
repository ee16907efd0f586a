package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/innsuite/innsuite/internal/access"
	"github.com/innsuite/innsuite/internal/platform/httpx"
	"github.com/innsuite/innsuite/internal/shared"
)

const idempotencyModule = "user-management"

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, restaurantID uuid.UUID, limit, offset int) ([]User, int, error)
	GetUser(ctx context.Context, restaurantID, id uuid.UUID) (User, error)
	RoleByID(ctx context.Context, restaurantID, id uuid.UUID) (access.Role, error)
	CreateUser(ctx context.Context, rec createRecord) (User, error)
	UpdateUser(ctx context.Context, rec updateRecord) (User, error)
}

// Invalidator propagates a tenant's access change to every process.
type Invalidator interface {
	InvalidateTenant(ctx context.Context, restaurantID uuid.UUID) error
}

// ServiceConfig groups the collaborators of Service.
type ServiceConfig struct {
	Repo        RepositoryPort
	Audit       shared.AuditRecorder
	Idempotency shared.IdempotencyGuard
	Invalidator Invalidator
	Logger      *slog.Logger
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Service handles user business logic.
type Service struct {
	repo        RepositoryPort
	audit       shared.AuditRecorder
	idempotency shared.IdempotencyGuard
	invalidator Invalidator
	logger      *slog.Logger
	validate    *validator.Validate
	cost        int
}

// NewService builds Service instance.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		repo:        cfg.Repo,
		audit:       cfg.Audit,
		idempotency: cfg.Idempotency,
		invalidator: cfg.Invalidator,
		logger:      logger,
		validate:    validator.New(),
		cost:        cost,
	}
}

// ListUsers returns one page of the actor's tenant users.
func (s *Service) ListUsers(ctx context.Context, actor *access.Decider, page, perPage int) ([]User, shared.Pagination, error) {
	tenant, err := tenantOf(actor)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	p := shared.NewPagination(page, perPage, 0)
	users, total, err := s.repo.ListUsers(ctx, tenant, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// Create registers an account in the actor's tenant. A non-empty
// idempotencyKey makes retries of the same request fail with ErrDuplicate.
func (s *Service) Create(ctx context.Context, actor *access.Decider, in CreateInput, idempotencyKey string) (User, error) {
	tenant, err := tenantOf(actor)
	if err != nil {
		return User{}, err
	}
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := s.validate.Struct(in); err != nil {
		return User{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if err := s.checkRole(ctx, actor, tenant, in.RoleID); err != nil {
		return User{}, err
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return User{}, fmt.Errorf("%w: %v", httpx.ErrDuplicate, err)
			}
			return User{}, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		s.release(ctx, idempotencyKey)
		return User{}, err
	}
	user, err := s.repo.CreateUser(ctx, createRecord{
		RestaurantID: tenant,
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		RoleID:       in.RoleID,
	})
	if err != nil {
		s.release(ctx, idempotencyKey)
		return User{}, err
	}
	s.afterMutation(ctx, actor, "user.create", user.ID, map[string]any{"email": user.Email, "role_id": user.RoleID})
	return user, nil
}

// Update changes profile fields, role, activity or password of a tenant user.
func (s *Service) Update(ctx context.Context, actor *access.Decider, in UpdateInput) (User, error) {
	tenant, err := tenantOf(actor)
	if err != nil {
		return User{}, err
	}
	if err := s.validate.Struct(in); err != nil {
		return User{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	current, err := s.repo.GetUser(ctx, tenant, in.ID)
	if err != nil {
		return User{}, err
	}
	if current.RoleID != nil {
		if err := s.checkTarget(ctx, actor, tenant, *current.RoleID); err != nil {
			return User{}, err
		}
	}
	if in.RoleID != nil {
		if err := s.checkRole(ctx, actor, tenant, in.RoleID); err != nil {
			return User{}, err
		}
	}
	if in.IsActive != nil && !*in.IsActive && in.ID == actor.Identity().ID {
		return User{}, fmt.Errorf("%w: cannot deactivate your own account", httpx.ErrValidation)
	}

	rec := updateRecord{
		ID:           current.ID,
		RestaurantID: tenant,
		FirstName:    pick(strings.TrimSpace(in.FirstName), current.FirstName),
		LastName:     pick(strings.TrimSpace(in.LastName), current.LastName),
		RoleID:       current.RoleID,
		IsActive:     current.IsActive,
	}
	if in.RoleID != nil {
		rec.RoleID = in.RoleID
	}
	if in.IsActive != nil {
		rec.IsActive = *in.IsActive
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
		if err != nil {
			return User{}, err
		}
		rec.PasswordHash = string(hash)
	}

	user, err := s.repo.UpdateUser(ctx, rec)
	if err != nil {
		return User{}, err
	}
	s.afterMutation(ctx, actor, "user.update", user.ID, map[string]any{
		"role_id":          user.RoleID,
		"is_active":        user.IsActive,
		"password_changed": rec.PasswordHash != "",
	})
	return user, nil
}

// checkRole verifies the role belongs to the tenant and does not escalate the
// actor's own privileges.
func (s *Service) checkRole(ctx context.Context, actor *access.Decider, tenant uuid.UUID, roleID *uuid.UUID) error {
	if roleID == nil {
		return nil
	}
	role, err := s.repo.RoleByID(ctx, tenant, *roleID)
	if err != nil {
		return err
	}
	if hasFullAccess(actor) {
		return nil
	}
	if role.HasFullAccess {
		return fmt.Errorf("%w: only full-access users may assign role %q", httpx.ErrForbidden, role.Name)
	}
	return withinReach(actor, role)
}

// checkTarget rejects edits of an account whose current role the actor could
// not assign. A role that does not resolve within the tenant is out of reach.
func (s *Service) checkTarget(ctx context.Context, actor *access.Decider, tenant, roleID uuid.UUID) error {
	if hasFullAccess(actor) {
		return nil
	}
	role, err := s.repo.RoleByID(ctx, tenant, roleID)
	if errors.Is(err, httpx.ErrValidation) {
		return fmt.Errorf("%w: account role is outside this restaurant", httpx.ErrForbidden)
	}
	if err != nil {
		return err
	}
	if role.HasFullAccess {
		return fmt.Errorf("%w: only full-access users may modify full-access accounts", httpx.ErrForbidden)
	}
	return withinReach(actor, role)
}

// withinReach rejects a role carrying any component the actor cannot use.
func withinReach(actor *access.Decider, role access.Role) error {
	for _, c := range role.Components {
		if !actor.HasAccess(c.Name) {
			return fmt.Errorf("%w: role %q grants component %q", httpx.ErrForbidden, role.Name, c.Name)
		}
	}
	return nil
}

func (s *Service) release(ctx context.Context, key string) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Delete(ctx, key, idempotencyModule); err != nil {
		s.logger.Warn("release idempotency key", slog.Any("error", err))
	}
}

func (s *Service) afterMutation(ctx context.Context, actor *access.Decider, action string, userID uuid.UUID, meta map[string]any) {
	identity := actor.Identity()
	tenant := identity.TenantID()
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:      identity.ID,
			RestaurantID: tenant,
			Action:       action,
			Entity:       "user",
			EntityID:     userID.String(),
			Meta:         meta,
		})
		if err != nil {
			s.logger.Warn("audit user mutation", slog.String("action", action), slog.Any("error", err))
		}
	}
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateTenant(ctx, tenant); err != nil {
			s.logger.Warn("invalidate tenant access", slog.String("restaurant_id", tenant.String()), slog.Any("error", err))
		}
	}
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

func pick(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
