package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Resolver maps an identity id to its profile and effective role.
type Resolver struct {
	store Store
}

// NewResolver constructs a Resolver.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve loads the profile for userID, creating one with the default role
// when none exists. email seeds the auto-created profile.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, email string) (*Identity, error) {
	profile, err := r.store.GetProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		profile, err = r.store.CreateProfile(ctx, Profile{
			ID:       userID,
			Email:    email,
			Role:     DefaultRole,
			IsActive: true,
		})
	}
	if err != nil {
		return nil, err
	}
	return identityFromProfile(profile), nil
}

// identityFromProfile resolves the role name: custom role relation, then the
// free-text role name, then the legacy enum.
func identityFromProfile(p *Profile) *Identity {
	id := &Identity{
		ID:           p.ID,
		Email:        p.Email,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		RoleID:       p.RoleID,
		Role:         p.Role,
		RoleOverride: p.RoleName,
		RestaurantID: p.RestaurantID,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	switch {
	case p.RoleRecord != nil && p.RoleRecord.Name != "":
		id.RoleName = p.RoleRecord.Name
		id.IsSystemRole = p.RoleRecord.IsSystem
		id.HasFullAccess = p.RoleRecord.HasFullAccess
	case p.RoleName != "":
		id.RoleName = p.RoleName
	default:
		id.RoleName = p.Role
	}
	return id
}
