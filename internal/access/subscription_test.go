package access

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionWithoutActivePlanDenies(t *testing.T) {
	store := newStubStore()
	subs, err := NewSubscriptions(store, nil, 0)
	require.NoError(t, err)

	tenant := uuid.New()
	assert.Empty(t, subs.Components(context.Background(), tenant))
	assert.False(t, subs.HasSubscriptionAccess(context.Background(), tenant, "Orders"))
}

func TestSubscriptionMatchesCaseInsensitively(t *testing.T) {
	store := newStubStore()
	tenant := uuid.New()
	store.subs[tenant] = &Subscription{Status: "active", Plan: &Plan{Name: "Pro", Components: []string{"Orders", "Reservations"}}}
	subs, err := NewSubscriptions(store, nil, 0)
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, subs.HasSubscriptionAccess(ctx, tenant, "orders"))
	assert.True(t, subs.HasSubscriptionAccess(ctx, tenant, "RESERVATIONS"))
	assert.False(t, subs.HasSubscriptionAccess(ctx, tenant, "Financial"))
	assert.EqualValues(t, 1, store.subCalls.Load(), "tenant components are loaded once")
}

func TestSubscriptionErrorsAreNotCached(t *testing.T) {
	store := newStubStore()
	tenant := uuid.New()
	store.subErr = errors.New("timeout")
	subs, err := NewSubscriptions(store, nil, 0)
	require.NoError(t, err)

	ctx := context.Background()
	assert.False(t, subs.HasSubscriptionAccess(ctx, tenant, "Orders"))

	store.subErr = nil
	store.subs[tenant] = &Subscription{Status: "active", Plan: &Plan{Components: []string{"Orders"}}}
	assert.True(t, subs.HasSubscriptionAccess(ctx, tenant, "Orders"))
	assert.EqualValues(t, 2, store.subCalls.Load())
}

func TestSubscriptionInvalidate(t *testing.T) {
	store := newStubStore()
	tenant := uuid.New()
	store.subs[tenant] = &Subscription{Status: "active", Plan: &Plan{Components: []string{"Orders"}}}
	subs, err := NewSubscriptions(store, nil, 0)
	require.NoError(t, err)

	ctx := context.Background()
	require.True(t, subs.HasSubscriptionAccess(ctx, tenant, "Orders"))

	store.subs[tenant] = &Subscription{Status: "active", Plan: &Plan{Components: []string{"Rooms"}}}
	assert.True(t, subs.HasSubscriptionAccess(ctx, tenant, "Orders"), "cached until invalidated")

	subs.Invalidate(tenant)
	assert.False(t, subs.HasSubscriptionAccess(ctx, tenant, "Orders"))
	assert.True(t, subs.HasSubscriptionAccess(ctx, tenant, "Rooms"))

	subs.Purge()
	assert.True(t, subs.HasSubscriptionAccess(ctx, tenant, "Rooms"))
	assert.EqualValues(t, 3, store.subCalls.Load())
}

func TestSubscriptionInvalidateDuringLoadIsKept(t *testing.T) {
	store := newStubStore()
	tenant := uuid.New()
	store.subs[tenant] = &Subscription{Status: "active", Plan: &Plan{Components: []string{"Orders"}}}
	store.subEntered = make(chan struct{}, 2)
	store.subGate = make(chan struct{})
	subs, err := NewSubscriptions(store, nil, 0)
	require.NoError(t, err)
	ctx := context.Background()

	done := make(chan []string, 1)
	go func() { done <- subs.Components(ctx, tenant) }()
	<-store.subEntered

	store.mu.Lock()
	store.subs[tenant] = &Subscription{Status: "active", Plan: &Plan{Components: []string{"Rooms"}}}
	store.mu.Unlock()
	subs.Invalidate(tenant)
	close(store.subGate)
	assert.Equal(t, []string{"Orders"}, <-done)

	assert.Equal(t, []string{"Rooms"}, subs.Components(ctx, tenant))
	assert.EqualValues(t, 2, store.subCalls.Load())
}

func TestSubscriptionWithoutTenant(t *testing.T) {
	store := newStubStore()
	subs, err := NewSubscriptions(store, nil, 0)
	require.NoError(t, err)

	assert.Nil(t, subs.Components(context.Background(), uuid.Nil))
	assert.Zero(t, store.subCalls.Load())
}
