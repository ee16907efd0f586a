package roles

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

const roleColumns = `r.id, r.restaurant_id, r.name, COALESCE(r.description, ''), r.is_system, r.is_deletable,
	r.has_full_access, r.created_at, r.updated_at,
	COALESCE((SELECT jsonb_agg(jsonb_build_object('id', c.id, 'name', c.name, 'description', COALESCE(c.description, '')) ORDER BY c.name)
		FROM role_components rc JOIN components c ON c.id = rc.component_id
		WHERE rc.role_id = r.id), '[]'::jsonb)`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns every role of a tenant with its components.
func (r *Repository) ListRoles(ctx context.Context, restaurantID uuid.UUID) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.restaurant_id = $1 ORDER BY r.is_system DESC, r.name`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// GetRole loads a tenant role.
func (r *Repository) GetRole(ctx context.Context, restaurantID, id uuid.UUID) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.restaurant_id = $1 AND r.id = $2`, restaurantID, id)
	role, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, fmt.Errorf("role %s: %w", id, httpx.ErrNotFound)
	}
	return role, err
}

// CreateRole inserts a custom role and its component grants.
func (r *Repository) CreateRole(ctx context.Context, rec record) (Role, error) {
	var id uuid.UUID
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO roles (restaurant_id, name, description, is_system, is_deletable, has_full_access)
VALUES ($1, $2, $3, false, true, $4) RETURNING id`, rec.RestaurantID, rec.Name, rec.Description, rec.HasFullAccess).Scan(&id)
		if err != nil {
			return mapWriteError(err)
		}
		return replaceComponents(ctx, tx, id, rec.ComponentIDs)
	})
	if err != nil {
		return Role{}, err
	}
	return r.GetRole(ctx, rec.RestaurantID, id)
}

// UpdateRole rewrites a role and replaces its component grants.
func (r *Repository) UpdateRole(ctx context.Context, rec record) (Role, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE roles SET name = $3, description = $4, has_full_access = $5, updated_at = NOW()
WHERE restaurant_id = $1 AND id = $2`, rec.RestaurantID, rec.ID, rec.Name, rec.Description, rec.HasFullAccess)
		if err != nil {
			return mapWriteError(err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("role %s: %w", rec.ID, httpx.ErrNotFound)
		}
		return replaceComponents(ctx, tx, rec.ID, rec.ComponentIDs)
	})
	if err != nil {
		return Role{}, err
	}
	return r.GetRole(ctx, rec.RestaurantID, rec.ID)
}

// DeleteRole removes a role that no profile references.
func (r *Repository) DeleteRole(ctx context.Context, restaurantID, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var assigned int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE role_id = $1`, id).Scan(&assigned); err != nil {
			return err
		}
		if assigned > 0 {
			return fmt.Errorf("%w: role is assigned to %d users", httpx.ErrValidation, assigned)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_components WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE restaurant_id = $1 AND id = $2 AND is_deletable`, restaurantID, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("role %s: %w", id, httpx.ErrNotFound)
		}
		return nil
	})
}

// ListComponents returns the component catalogue.
func (r *Repository) ListComponents(ctx context.Context) ([]access.Component, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description, '') FROM components ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[access.Component])
}

// ComponentsByID resolves component ids; unknown ids are reported as a
// validation error.
func (r *Repository) ComponentsByID(ctx context.Context, ids []uuid.UUID) ([]access.Component, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description, '') FROM components WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[access.Component])
	if err != nil {
		return nil, err
	}
	if len(out) != len(uniqueIDs(ids)) {
		return nil, fmt.Errorf("%w: unknown component id", httpx.ErrValidation)
	}
	return out, nil
}

func replaceComponents(ctx context.Context, tx pgx.Tx, roleID uuid.UUID, componentIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM role_components WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	ids := uniqueIDs(componentIDs)
	if len(ids) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, componentID := range ids {
		batch.Queue(`INSERT INTO role_components (role_id, component_id) VALUES ($1, $2)`, roleID, componentID)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func scanRole(row pgx.Row) (Role, error) {
	var (
		role         Role
		restaurantID uuid.UUID
		components   []byte
	)
	if err := row.Scan(&role.ID, &restaurantID, &role.Name, &role.Description, &role.IsSystem, &role.IsDeletable,
		&role.HasFullAccess, &role.CreatedAt, &role.UpdatedAt, &components); err != nil {
		return Role{}, err
	}
	role.RestaurantID = &restaurantID
	if err := json.Unmarshal(components, &role.Components); err != nil {
		return Role{}, fmt.Errorf("decode role components: %w", err)
	}
	return role, nil
}

func mapWriteError(err error) error {
	if db.IsUniqueViolation(err, "") {
		return fmt.Errorf("%w: a role with this name already exists", httpx.ErrDuplicate)
	}
	return err
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
