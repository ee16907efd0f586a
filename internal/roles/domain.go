package roles

import (
	"github.com/google/uuid"

	"github.com/innsuite/innsuite/internal/access"
)

// Actions accepted by the role-management endpoint.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Role is the management view of a tenant role.
type Role = access.Role

// ActionRequest is the body of POST /functions/role-management.
type ActionRequest struct {
	Action        string      `json:"action" validate:"required,oneof=create update delete"`
	RoleID        uuid.UUID   `json:"role_id"`
	Name          string      `json:"name" validate:"max=64"`
	Description   string      `json:"description" validate:"max=255"`
	HasFullAccess bool        `json:"has_full_access"`
	ComponentIDs  []uuid.UUID `json:"component_ids"`
}

// CreateInput describes a new role.
type CreateInput struct {
	Name          string `validate:"required,max=64"`
	Description   string `validate:"max=255"`
	HasFullAccess bool
	ComponentIDs  []uuid.UUID
}

// UpdateInput replaces the editable attributes of a role.
type UpdateInput struct {
	ID            uuid.UUID `validate:"required"`
	Name          string    `validate:"required,max=64"`
	Description   string    `validate:"max=255"`
	HasFullAccess bool
	ComponentIDs  []uuid.UUID
}

// record is the row written by the repository.
type record struct {
	ID            uuid.UUID
	RestaurantID  uuid.UUID
	Name          string
	Description   string
	HasFullAccess bool
	ComponentIDs  []uuid.UUID
}
