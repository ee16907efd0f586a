package access

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type stubStore struct {
	mu           sync.Mutex
	profiles     map[uuid.UUID]*Profile
	components   map[uuid.UUID][]string
	permissions  map[uuid.UUID][]string
	permsErr     error
	componentErr error
	profileErr   error
	subs         map[uuid.UUID]*Subscription
	subErr       error

	permsEntered chan struct{}
	permsGate    chan struct{}
	subEntered   chan struct{}
	subGate      chan struct{}

	created   atomic.Int32
	subCalls  atomic.Int32
	permCalls atomic.Int32
}

func newStubStore() *stubStore {
	return &stubStore{
		profiles:    make(map[uuid.UUID]*Profile),
		components:  make(map[uuid.UUID][]string),
		permissions: make(map[uuid.UUID][]string),
		subs:        make(map[uuid.UUID]*Subscription),
	}
}

func (s *stubStore) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubStore) CreateProfile(ctx context.Context, p Profile) (*Profile, error) {
	s.created.Add(1)
	s.mu.Lock()
	s.profiles[p.ID] = &p
	s.mu.Unlock()
	return s.GetProfile(ctx, p.ID)
}

func (s *stubStore) UserComponents(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if s.componentErr != nil {
		return nil, s.componentErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.components[userID], nil
}

func (s *stubStore) UserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	s.permCalls.Add(1)
	if s.permsEntered != nil {
		s.permsEntered <- struct{}{}
	}
	if s.permsGate != nil {
		select {
		case <-s.permsGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.permsErr != nil {
		return nil, s.permsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	perms, ok := s.permissions[userID]
	if !ok {
		return nil, errors.New("no permissions configured")
	}
	return perms, nil
}

func (s *stubStore) ActiveSubscription(ctx context.Context, restaurantID uuid.UUID) (*Subscription, error) {
	s.subCalls.Add(1)
	s.mu.Lock()
	sub, err := s.subs[restaurantID], s.subErr
	s.mu.Unlock()
	if s.subEntered != nil {
		s.subEntered <- struct{}{}
	}
	if s.subGate != nil {
		<-s.subGate
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *stubStore) addProfile(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = &p
}
