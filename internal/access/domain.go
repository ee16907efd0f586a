package access

import (
	"time"

	"github.com/google/uuid"
)

// DefaultRole is assigned to profiles created on first sign-in.
const DefaultRole = "staff"

// Identity is the signed-in actor together with its resolved role.
type Identity struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	RoleID        *uuid.UUID `json:"role_id,omitempty"`
	Role          string     `json:"role"`
	RoleOverride  string     `json:"role_override,omitempty"`
	RoleName      string     `json:"role_name"`
	IsSystemRole  bool       `json:"is_system_role"`
	HasFullAccess bool       `json:"has_full_access"`
	RestaurantID  *uuid.UUID `json:"restaurant_id,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TenantID returns the restaurant id or uuid.Nil for platform-level identities.
func (i *Identity) TenantID() uuid.UUID {
	if i == nil || i.RestaurantID == nil {
		return uuid.Nil
	}
	return *i.RestaurantID
}

// Role is a tenant scoped permission bundle.
type Role struct {
	ID            uuid.UUID   `json:"id"`
	RestaurantID  *uuid.UUID  `json:"restaurant_id,omitempty"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	IsSystem      bool        `json:"is_system"`
	IsDeletable   bool        `json:"is_deletable"`
	HasFullAccess bool        `json:"has_full_access"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Components    []Component `json:"components,omitempty"`
}

// Component is an independently licensable feature module.
type Component struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// Plan is a billing tier and the components it unlocks.
type Plan struct {
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	Interval   string   `json:"interval"`
	Components []string `json:"components"`
}

// Subscription ties a restaurant to its active plan.
type Subscription struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Status       string    `json:"status"`
	Plan         *Plan     `json:"plan,omitempty"`
}

// Profile is the stored profile row with its optional role relation.
type Profile struct {
	ID           uuid.UUID
	Email        string
	FirstName    string
	LastName     string
	Role         string
	RoleName     string
	RoleID       *uuid.UUID
	RestaurantID *uuid.UUID
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	RoleRecord   *Role
}
