package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/innsuite/innsuite/internal/jobs"
)

// Bumper increments the shared access cache version and notifies listeners.
type Bumper interface {
	Bump(ctx context.Context, restaurantID uuid.UUID) error
}

// AccessInvalidateJob handles TaskAccessInvalidate tasks.
type AccessInvalidateJob struct {
	Cache   Bumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAccessInvalidateJob initialises the invalidation handler.
func NewAccessInvalidateJob(cache Bumper, logger *slog.Logger, metrics *jobmetrics.Metrics) *AccessInvalidateJob {
	return &AccessInvalidateJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle bumps the cache version for the payload tenant.
func (j *AccessInvalidateJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("access invalidate: handler not configured")
	}
	var payload AccessInvalidatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskAccessInvalidate)
	err := j.Cache.Bump(ctx, payload.RestaurantID)
	if err != nil {
		j.logger().Error("access invalidate failed",
			slog.String("restaurant_id", payload.RestaurantID.String()),
			slog.Any("error", err))
		return tracker.End(err)
	}
	j.Metrics.AddInvalidation(payload.Reason, scopeOf(payload.RestaurantID))
	j.logger().Info("access invalidated",
		slog.String("restaurant_id", payload.RestaurantID.String()),
		slog.String("reason", payload.Reason))
	return tracker.End(nil)
}

func (j *AccessInvalidateJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func scopeOf(restaurantID uuid.UUID) string {
	if restaurantID == uuid.Nil {
		return "all"
	}
	return "tenant"
}

// AccessInvalidator drops local access state immediately and fans the
// invalidation out to every process through the queue. When the queue is
// unreachable the cache is bumped inline.
type AccessInvalidator struct {
	client *Client
	cache  Bumper
	local  func(restaurantID uuid.UUID)
	logger *slog.Logger
}

// NewAccessInvalidator wires the invalidation path. client and local may be nil.
func NewAccessInvalidator(client *Client, cache Bumper, local func(uuid.UUID), logger *slog.Logger) *AccessInvalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessInvalidator{client: client, cache: cache, local: local, logger: logger}
}

// InvalidateTenant satisfies the administration services' invalidation port.
func (a *AccessInvalidator) InvalidateTenant(ctx context.Context, restaurantID uuid.UUID) error {
	if a.local != nil {
		a.local(restaurantID)
	}
	if a.client != nil {
		_, err := a.client.EnqueueAccessInvalidate(ctx, AccessInvalidatePayload{RestaurantID: restaurantID, Reason: ReasonMutation})
		if err == nil {
			return nil
		}
		a.logger.Warn("enqueue access invalidate, bumping inline", slog.Any("error", err))
	}
	if a.cache == nil {
		return nil
	}
	return a.cache.Bump(ctx, restaurantID)
}
