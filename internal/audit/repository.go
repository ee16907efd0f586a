package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const timelineQuery = `SELECT a.occurred_at, a.actor_id, COALESCE(p.email, ''), a.action, a.entity, a.entity_id, a.meta
FROM audit_logs a
LEFT JOIN profiles p ON p.id = a.actor_id
WHERE a.restaurant_id = $1
  AND ($2::timestamptz IS NULL OR a.occurred_at >= $2)
  AND ($3::timestamptz IS NULL OR a.occurred_at < $3::timestamptz + INTERVAL '1 day')
  AND ($4::text IS NULL OR p.email ILIKE '%' || $4 || '%')
  AND ($5::text IS NULL OR a.entity = $5)
  AND ($6::text IS NULL OR a.action = $6)
ORDER BY a.occurred_at DESC, a.id DESC`

// PGRepository membaca audit_logs dari PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository membuat repository audit.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// TimelineWindow mengembalikan satu halaman timeline.
func (r *PGRepository) TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	return r.query(ctx, timelineQuery+` OFFSET $7 LIMIT $8`, arg.RestaurantID, arg.FromAt, arg.ToAt,
		arg.Actor, arg.Entity, arg.Action, arg.OffsetRows, arg.LimitRows)
}

// TimelineAll mengembalikan seluruh timeline sesuai filter.
func (r *PGRepository) TimelineAll(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	return r.query(ctx, timelineQuery, arg.RestaurantID, arg.FromAt, arg.ToAt, arg.Actor, arg.Entity, arg.Action)
}

func (r *PGRepository) query(ctx context.Context, sql string, args ...any) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			out     TimelineRow
			at      pgtype.Timestamptz
			actorID pgtype.UUID
			meta    []byte
		)
		if err := row.Scan(&at, &actorID, &out.Actor, &out.Action, &out.Entity, &out.EntityID, &meta); err != nil {
			return out, err
		}
		if at.Valid {
			out.At = at.Time
		}
		if actorID.Valid {
			id := uuid.UUID(actorID.Bytes)
			out.ActorID = &id
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &out.Meta); err != nil {
				return out, err
			}
		}
		return out, nil
	})
}
