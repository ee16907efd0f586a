package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAccessInvalidate bumps the access cache version for a tenant.
	TaskAccessInvalidate = "access:invalidate"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ReasonMutation marks invalidations caused by role or user administration.
const ReasonMutation = "mutation"

// AccessInvalidatePayload names the tenant whose cached access must be dropped.
// A nil RestaurantID invalidates every tenant.
type AccessInvalidatePayload struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Reason       string    `json:"reason,omitempty"`
}

// IdempotencyCleanupPayload configures the retention window of the cleanup run.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAccessInvalidateTask constructs an Asynq task.
func NewAccessInvalidateTask(payload AccessInvalidatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccessInvalidate, data, asynq.MaxRetry(5)), nil
}

// NewIdempotencyCleanupTask constructs the periodic cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
