package access

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultSubscriptionCacheSize bounds the number of tenants kept in memory.
const DefaultSubscriptionCacheSize = 1024

// Subscriptions resolves the components licensed by a tenant's active plan.
// Results are cached per tenant until invalidated.
type Subscriptions struct {
	store  Store
	logger *slog.Logger
	cache  *lru.Cache[uuid.UUID, []string]
	group  singleflight.Group

	// epochs count invalidations per tenant and purges across all of them.
	// A load only populates the cache if no invalidation ran meanwhile.
	mu     sync.Mutex
	epochs map[uuid.UUID]uint64
	purges uint64
}

// NewSubscriptions constructs the filter with an LRU of size entries.
func NewSubscriptions(store Store, logger *slog.Logger, size int) (*Subscriptions, error) {
	if size <= 0 {
		size = DefaultSubscriptionCacheSize
	}
	cache, err := lru.New[uuid.UUID, []string](size)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriptions{store: store, logger: logger, cache: cache, epochs: make(map[uuid.UUID]uint64)}, nil
}

// Components returns the allowed component names. Missing subscriptions and
// fetch errors yield an empty list; errors are not cached.
func (s *Subscriptions) Components(ctx context.Context, restaurantID uuid.UUID) []string {
	if restaurantID == uuid.Nil {
		return nil
	}
	if cached, ok := s.cache.Get(restaurantID); ok {
		return cached
	}
	epoch := s.epoch(restaurantID)
	v, err, _ := s.group.Do(fmt.Sprintf("%s:%d", restaurantID, epoch), func() (any, error) {
		sub, err := s.store.ActiveSubscription(ctx, restaurantID)
		if err != nil {
			return nil, err
		}
		components := []string{}
		if sub != nil && sub.Plan != nil {
			components = append(components, sub.Plan.Components...)
		}
		s.mu.Lock()
		if s.epochs[restaurantID]+s.purges == epoch {
			s.cache.Add(restaurantID, components)
		}
		s.mu.Unlock()
		return components, nil
	})
	if err != nil {
		s.logger.Warn("subscription components", slog.String("restaurant_id", restaurantID.String()), slog.Any("error", err))
		return nil
	}
	return v.([]string)
}

// HasSubscriptionAccess reports whether component is licensed for the tenant.
func (s *Subscriptions) HasSubscriptionAccess(ctx context.Context, restaurantID uuid.UUID, component string) bool {
	return containsFold(s.Components(ctx, restaurantID), component)
}

// Invalidate drops the cached components for a tenant, including any load
// still in flight.
func (s *Subscriptions) Invalidate(restaurantID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epochs[restaurantID]++
	s.cache.Remove(restaurantID)
}

// Purge drops every cached tenant.
func (s *Subscriptions) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purges++
	s.cache.Purge()
}

func (s *Subscriptions) epoch(restaurantID uuid.UUID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epochs[restaurantID] + s.purges
}
