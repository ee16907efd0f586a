package access

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ManagerConfig groups the collaborators of a Manager.
type ManagerConfig struct {
	Store         Store
	Subscriptions *Subscriptions
	Cache         *Cache
	Logger        *slog.Logger
	Recorder      DecisionRecorder
	Breaker       BreakerConfig
	FetchTimeout  time.Duration
}

// Manager owns the authorization state of every signed-in identity. State
// only changes through SignIn, Refresh, SignOut and invalidation.
type Manager struct {
	resolver     *Resolver
	store        Store
	subs         *Subscriptions
	cache        *Cache
	agg          *Aggregator
	breaker      *gobreaker.CircuitBreaker[[]string]
	logger       *slog.Logger
	fetchTimeout time.Duration

	signins singleflight.Group

	mu      sync.Mutex
	nextGen uint64
	states  map[uuid.UUID]*state
}

// state is tagged with the generation of the sign-in that created it. Fetch
// results carrying another generation are dropped. ready closes once the
// identity is known or the sign-in ends.
type state struct {
	generation uint64
	grants     Grants
	settled    bool
	ready      chan struct{}
}

func (st *state) settle() {
	if !st.settled {
		st.settled = true
		close(st.ready)
	}
}

// NewManager constructs a Manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("access: store required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	subs := cfg.Subscriptions
	if subs == nil {
		var err error
		subs, err = NewSubscriptions(cfg.Store, logger, 0)
		if err != nil {
			return nil, err
		}
	}
	return &Manager{
		resolver:     NewResolver(cfg.Store),
		store:        cfg.Store,
		subs:         subs,
		cache:        cfg.Cache,
		agg:          DefaultAggregator(cfg.Recorder),
		breaker:      newPermissionBreaker(cfg.Breaker),
		logger:       logger,
		fetchTimeout: cfg.FetchTimeout,
		states:       make(map[uuid.UUID]*state),
	}, nil
}

// SignIn starts a new generation for userID, loads the profile, components,
// dynamic permissions and subscription concurrently and returns the resulting
// snapshot. Failed fetches are logged and leave their tier empty.
func (m *Manager) SignIn(ctx context.Context, userID uuid.UUID, email string) *Decider {
	st := m.begin(userID)
	m.load(ctx, userID, email, st.generation)
	return NewDecider(m.finish(userID, st), m.agg)
}

// Refresh drops cached results for userID and signs it in again.
func (m *Manager) Refresh(ctx context.Context, userID uuid.UUID, email string) *Decider {
	if err := m.cache.Flush(ctx, userID); err != nil {
		m.logger.Warn("access refresh flush", slog.String("user_id", userID.String()), slog.Any("error", err))
	}
	return m.SignIn(ctx, userID, email)
}

// SignOut flushes every cached result of userID, then clears its state. Any
// fetch still in flight for the old generation is discarded on arrival.
func (m *Manager) SignOut(ctx context.Context, userID uuid.UUID) error {
	err := m.cache.Flush(ctx, userID)

	m.mu.Lock()
	st, ok := m.states[userID]
	delete(m.states, userID)
	m.mu.Unlock()

	if ok && st.grants.Identity != nil {
		m.subs.Invalidate(st.grants.Identity.TenantID())
	}
	return err
}

// Decider returns the current snapshot for userID. A sign-in still in flight
// yields whatever has resolved so far once the identity is known; concurrent
// requests for an unknown identity share one sign-in.
func (m *Manager) Decider(ctx context.Context, userID uuid.UUID, email string) *Decider {
	for {
		m.mu.Lock()
		st, ok := m.states[userID]
		if !ok {
			m.mu.Unlock()
			break
		}
		if st.settled {
			d := NewDecider(st.grants, m.agg)
			m.mu.Unlock()
			return d
		}
		ready := st.ready
		m.mu.Unlock()
		select {
		case <-ready:
		case <-ctx.Done():
			return NewDecider(Grants{}, m.agg)
		}
	}
	v, _, _ := m.signins.Do(userID.String(), func() (any, error) {
		m.mu.Lock()
		if st, ok := m.states[userID]; ok && st.settled {
			d := NewDecider(st.grants, m.agg)
			m.mu.Unlock()
			return d, nil
		}
		m.mu.Unlock()
		return m.SignIn(context.WithoutCancel(ctx), userID, email), nil
	})
	return v.(*Decider)
}

// InvalidateTenant drops in-memory state of a tenant's identities. uuid.Nil
// drops everything.
func (m *Manager) InvalidateTenant(restaurantID uuid.UUID) {
	m.mu.Lock()
	for id, st := range m.states {
		if restaurantID == uuid.Nil || st.grants.Identity == nil || st.grants.Identity.TenantID() == restaurantID {
			delete(m.states, id)
		}
	}
	m.mu.Unlock()

	if restaurantID == uuid.Nil {
		m.subs.Purge()
		return
	}
	m.subs.Invalidate(restaurantID)
}

// Listen applies invalidations published by other processes until ctx ends.
func (m *Manager) Listen(ctx context.Context) error {
	return m.cache.ListenForInvalidation(ctx, m.InvalidateTenant)
}

func (m *Manager) begin(userID uuid.UUID) *state {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextGen++
	st := &state{generation: m.nextGen, ready: make(chan struct{})}
	m.states[userID] = st
	return st
}

// apply mutates the state of userID only while gen is still current.
func (m *Manager) apply(userID uuid.UUID, gen uint64, fn func(g *Grants)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[userID]
	if !ok || st.generation != gen {
		return false
	}
	fn(&st.grants)
	if st.grants.Identity != nil {
		st.settle()
	}
	return true
}

// finish returns the grants of gen. A generation whose identity could not be
// resolved is dropped so the next request retries.
func (m *Manager) finish(userID uuid.UUID, own *state) Grants {
	m.mu.Lock()
	defer m.mu.Unlock()
	own.settle()
	st, ok := m.states[userID]
	if !ok || st != own {
		return Grants{}
	}
	if st.grants.Identity == nil {
		delete(m.states, userID)
	}
	return st.grants
}

func (m *Manager) load(ctx context.Context, userID uuid.UUID, email string, gen uint64) {
	if m.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.fetchTimeout)
		defer cancel()
	}
	logger := m.logger.With(slog.String("user_id", userID.String()))

	var g errgroup.Group
	g.Go(func() error {
		var identity Identity
		err := m.cache.FetchJSON(ctx, userID, "identity", &identity, func(ctx context.Context) (any, error) {
			return m.resolver.Resolve(ctx, userID, email)
		})
		if err != nil {
			logger.Error("resolve identity", slog.Any("error", err))
			return nil
		}
		if !m.apply(userID, gen, func(gr *Grants) { gr.Identity = &identity }) {
			return nil
		}
		components := m.subs.Components(ctx, identity.TenantID())
		m.apply(userID, gen, func(gr *Grants) { gr.SubscriptionComponents = components })
		return nil
	})
	g.Go(func() error {
		var components []string
		err := m.cache.FetchJSON(ctx, userID, "components", &components, func(ctx context.Context) (any, error) {
			return m.store.UserComponents(ctx, userID)
		})
		if err != nil {
			logger.Warn("user components unavailable", slog.Any("error", err))
			return nil
		}
		m.apply(userID, gen, func(gr *Grants) { gr.Components = components })
		return nil
	})
	g.Go(func() error {
		var permissions []string
		err := m.cache.FetchJSON(ctx, userID, "permissions", &permissions, func(ctx context.Context) (any, error) {
			return m.breaker.Execute(func() ([]string, error) {
				return m.store.UserPermissions(ctx, userID)
			})
		})
		if err != nil {
			logger.Warn("dynamic permissions unavailable, using fallback tiers", slog.Any("error", err))
			return nil
		}
		m.apply(userID, gen, func(gr *Grants) {
			gr.Permissions = permissions
			gr.PermissionsLoaded = true
		})
		return nil
	})
	_ = g.Wait()
}
