package users

import (
	"time"

	"github.com/google/uuid"
)

// Actions accepted by the user-management endpoint.
const (
	ActionCreateUser = "create_user"
	ActionUpdateUser = "update_user"
)

// User represents a staff account of a restaurant.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	RoleID       *uuid.UUID `json:"role_id,omitempty"`
	RoleName     string     `json:"role_name"`
	RestaurantID uuid.UUID  `json:"restaurant_id"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ActionRequest is the body of POST /functions/user-management.
type ActionRequest struct {
	Action    string     `json:"action" validate:"required,oneof=create_user update_user"`
	UserID    uuid.UUID  `json:"user_id"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	RoleID    *uuid.UUID `json:"role_id"`
	IsActive  *bool      `json:"is_active"`
}

// CreateInput describes a new account.
type CreateInput struct {
	Email     string `validate:"required,email,max=254"`
	Password  string `validate:"required,min=8,max=72"`
	FirstName string `validate:"required,max=80"`
	LastName  string `validate:"max=80"`
	RoleID    *uuid.UUID
}

// UpdateInput changes an account. Nil or empty fields are left untouched.
type UpdateInput struct {
	ID        uuid.UUID `validate:"required"`
	FirstName string    `validate:"max=80"`
	LastName  string    `validate:"max=80"`
	Password  string    `validate:"omitempty,min=8,max=72"`
	RoleID    *uuid.UUID
	IsActive  *bool
}

// createRecord is the row pair written on creation.
type createRecord struct {
	RestaurantID uuid.UUID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	RoleID       *uuid.UUID
}

// updateRecord is the complete state written on update.
type updateRecord struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	FirstName    string
	LastName     string
	RoleID       *uuid.UUID
	IsActive     bool
	PasswordHash string
}
