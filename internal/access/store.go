package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads the rows the access core depends on. The core never writes
// roles, components or plans; the only write is profile auto-creation.
type Store interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	CreateProfile(ctx context.Context, p Profile) (*Profile, error)
	UserComponents(ctx context.Context, userID uuid.UUID) ([]string, error)
	UserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
	ActiveSubscription(ctx context.Context, restaurantID uuid.UUID) (*Subscription, error)
}

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL backed store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const profileColumns = `p.id, p.email, COALESCE(p.first_name, ''), COALESCE(p.last_name, ''),
	COALESCE(p.role, ''), COALESCE(p.role_name, ''), p.role_id, p.restaurant_id, p.is_active,
	p.created_at, p.updated_at,
	(SELECT to_jsonb(r) FROM roles r WHERE r.id = p.role_id)`

// GetProfile loads a profile joined with its role row.
func (s *PGStore) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles p WHERE p.id = $1`, userID)
	var (
		p       Profile
		roleRaw []byte
	)
	if err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Role, &p.RoleName, &p.RoleID,
		&p.RestaurantID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &roleRaw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("access: get profile: %w", err)
	}
	role, err := DecodeToOne[Role](roleRaw)
	if err != nil {
		return nil, err
	}
	p.RoleRecord = role
	return &p, nil
}

// CreateProfile inserts p unless another request created it first, then
// returns the stored row.
func (s *PGStore) CreateProfile(ctx context.Context, p Profile) (*Profile, error) {
	_, err := s.pool.Exec(ctx, `INSERT INTO profiles (id, email, first_name, last_name, role, restaurant_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Email, p.FirstName, p.LastName, p.Role, p.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("access: create profile: %w", err)
	}
	return s.GetProfile(ctx, p.ID)
}

// UserComponents calls get_user_components.
func (s *PGStore) UserComponents(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.collectNames(ctx, `SELECT * FROM get_user_components($1)`, userID)
}

// UserPermissions calls get_user_permissions.
func (s *PGStore) UserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.collectNames(ctx, `SELECT * FROM get_user_permissions($1)`, userID)
}

func (s *PGStore) collectNames(ctx context.Context, query string, userID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, classify(err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(err)
	}
	return names, nil
}

// ActiveSubscription returns the tenant's active subscription or nil when the
// tenant has none.
func (s *PGStore) ActiveSubscription(ctx context.Context, restaurantID uuid.UUID) (*Subscription, error) {
	row := s.pool.QueryRow(ctx, `SELECT s.id, s.restaurant_id, s.status,
			(SELECT jsonb_agg(to_jsonb(sp)) FROM subscription_plans sp WHERE sp.id = s.plan_id)
		FROM subscriptions s
		WHERE s.restaurant_id = $1 AND s.status = 'active'
		ORDER BY s.created_at DESC
		LIMIT 1`, restaurantID)
	var (
		sub     Subscription
		planRaw []byte
	)
	if err := row.Scan(&sub.ID, &sub.RestaurantID, &sub.Status, &planRaw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("access: active subscription: %w", err)
	}
	plan, err := DecodeToOne[Plan](planRaw)
	if err != nil {
		return nil, err
	}
	sub.Plan = plan
	return &sub, nil
}

// classify maps undefined-function errors to ErrCapabilityMissing.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42883" {
		return fmt.Errorf("%w: %s", ErrCapabilityMissing, pgErr.Message)
	}
	return err
}

var _ Store = (*PGStore)(nil)
