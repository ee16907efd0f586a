package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innsuite/innsuite/internal/access"
	"github.com/innsuite/innsuite/internal/platform/db"
	"github.com/innsuite/innsuite/internal/platform/httpx"
)

const userColumns = `p.id, p.email, COALESCE(p.first_name, ''), COALESCE(p.last_name, ''), p.role_id,
	COALESCE(r.name, p.role_name, p.role::text, ''), p.restaurant_id, p.is_active, p.created_at, p.updated_at`

const userFrom = ` FROM profiles p LEFT JOIN roles r ON r.id = p.role_id`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns one page of a tenant's users and the total count.
func (r *Repository) ListUsers(ctx context.Context, restaurantID uuid.UUID, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE restaurant_id = $1`, restaurantID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+userFrom+`
WHERE p.restaurant_id = $1 ORDER BY p.last_name, p.first_name, p.email LIMIT $2 OFFSET $3`, restaurantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// GetUser loads a tenant user.
func (r *Repository) GetUser(ctx context.Context, restaurantID, id uuid.UUID) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+userFrom+` WHERE p.restaurant_id = $1 AND p.id = $2`, restaurantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user %s: %w", id, httpx.ErrNotFound)
	}
	return u, err
}

// RoleByID loads a tenant role and its components for assignment checks.
func (r *Repository) RoleByID(ctx context.Context, restaurantID, id uuid.UUID) (access.Role, error) {
	var (
		role       access.Role
		components []byte
	)
	err := r.pool.QueryRow(ctx, `SELECT r.id, r.name, r.is_system, r.has_full_access,
	COALESCE((SELECT jsonb_agg(jsonb_build_object('id', c.id, 'name', c.name, 'description', COALESCE(c.description, '')) ORDER BY c.name)
		FROM role_components rc JOIN components c ON c.id = rc.component_id
		WHERE rc.role_id = r.id), '[]'::jsonb)
	FROM roles r WHERE r.restaurant_id = $1 AND r.id = $2`, restaurantID, id).
		Scan(&role.ID, &role.Name, &role.IsSystem, &role.HasFullAccess, &components)
	if errors.Is(err, pgx.ErrNoRows) {
		return access.Role{}, fmt.Errorf("%w: unknown role", httpx.ErrValidation)
	}
	if err != nil {
		return access.Role{}, err
	}
	if err := json.Unmarshal(components, &role.Components); err != nil {
		return access.Role{}, fmt.Errorf("decode role components: %w", err)
	}
	return role, nil
}

// CreateUser inserts the credential row and the profile row together.
func (r *Repository) CreateUser(ctx context.Context, rec createRecord) (User, error) {
	var id uuid.UUID
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO users (email, password_hash, is_active) VALUES (lower($1), $2, true) RETURNING id`,
			rec.Email, rec.PasswordHash).Scan(&id)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
			}
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO profiles (id, email, first_name, last_name, role, role_id, restaurant_id, is_active)
VALUES ($1, lower($2), $3, $4, $5, $6, $7, true)`, id, rec.Email, rec.FirstName, rec.LastName, access.DefaultRole, rec.RoleID, rec.RestaurantID)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return r.GetUser(ctx, rec.RestaurantID, id)
}

// UpdateUser writes the profile and, when a new hash is given, the password.
func (r *Repository) UpdateUser(ctx context.Context, rec updateRecord) (User, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE profiles SET first_name = $3, last_name = $4, role_id = $5, is_active = $6, updated_at = NOW()
WHERE restaurant_id = $1 AND id = $2`, rec.RestaurantID, rec.ID, rec.FirstName, rec.LastName, rec.RoleID, rec.IsActive)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("user %s: %w", rec.ID, httpx.ErrNotFound)
		}
		if rec.PasswordHash != "" {
			if _, err := tx.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, rec.ID, rec.PasswordHash); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, rec.ID, rec.IsActive)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return r.GetUser(ctx, rec.RestaurantID, rec.ID)
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.RoleID, &u.RoleName, &u.RestaurantID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
