package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innsuite/innsuite/internal/access"
	"github.com/innsuite/innsuite/internal/platform/httpx"
	"github.com/innsuite/innsuite/internal/shared"
)

type memoryRoleRepo struct {
	roles      map[uuid.UUID]Role
	components map[uuid.UUID]access.Component
}

func newMemoryRoleRepo() *memoryRoleRepo {
	repo := &memoryRoleRepo{roles: map[uuid.UUID]Role{}, components: map[uuid.UUID]access.Component{}}
	for _, name := range []string{"Orders", "Kitchen", "Financial", "User Management"} {
		c := access.Component{ID: uuid.New(), Name: name}
		repo.components[c.ID] = c
	}
	return repo
}

func (r *memoryRoleRepo) componentID(name string) uuid.UUID {
	for id, c := range r.components {
		if c.Name == name {
			return id
		}
	}
	return uuid.Nil
}

func (r *memoryRoleRepo) add(tenant uuid.UUID, role Role) Role {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	role.RestaurantID = &tenant
	r.roles[role.ID] = role
	return role
}

func (r *memoryRoleRepo) ListRoles(ctx context.Context, restaurantID uuid.UUID) ([]Role, error) {
	var out []Role
	for _, role := range r.roles {
		if *role.RestaurantID == restaurantID {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *memoryRoleRepo) GetRole(ctx context.Context, restaurantID, id uuid.UUID) (Role, error) {
	role, ok := r.roles[id]
	if !ok || *role.RestaurantID != restaurantID {
		return Role{}, httpx.ErrNotFound
	}
	return role, nil
}

func (r *memoryRoleRepo) write(rec record, id uuid.UUID) (Role, error) {
	for key, existing := range r.roles {
		if key != id && *existing.RestaurantID == rec.RestaurantID && strings.EqualFold(existing.Name, rec.Name) {
			return Role{}, httpx.ErrDuplicate
		}
	}
	role := r.roles[id]
	role.ID = id
	tenant := rec.RestaurantID
	role.RestaurantID = &tenant
	role.Name = rec.Name
	role.Description = rec.Description
	role.HasFullAccess = rec.HasFullAccess
	role.UpdatedAt = time.Now()
	role.Components = nil
	for _, cid := range rec.ComponentIDs {
		role.Components = append(role.Components, r.components[cid])
	}
	r.roles[id] = role
	return role, nil
}

func (r *memoryRoleRepo) CreateRole(ctx context.Context, rec record) (Role, error) {
	id := uuid.New()
	r.roles[id] = Role{IsDeletable: true}
	role, err := r.write(rec, id)
	if err != nil {
		delete(r.roles, id)
	}
	return role, err
}

func (r *memoryRoleRepo) UpdateRole(ctx context.Context, rec record) (Role, error) {
	return r.write(rec, rec.ID)
}

func (r *memoryRoleRepo) DeleteRole(ctx context.Context, restaurantID, id uuid.UUID) error {
	delete(r.roles, id)
	return nil
}

func (r *memoryRoleRepo) ListComponents(ctx context.Context) ([]access.Component, error) {
	var out []access.Component
	for _, c := range r.components {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryRoleRepo) ComponentsByID(ctx context.Context, ids []uuid.UUID) ([]access.Component, error) {
	var out []access.Component
	for _, id := range ids {
		c, ok := r.components[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown component id", httpx.ErrValidation)
		}
		out = append(out, c)
	}
	return out, nil
}

type recordingAudit struct{ logs []shared.AuditLog }

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type recordingInvalidator struct {
	tenants []uuid.UUID
	err     error
}

func (i *recordingInvalidator) InvalidateTenant(ctx context.Context, restaurantID uuid.UUID) error {
	i.tenants = append(i.tenants, restaurantID)
	return i.err
}

type serviceFixture struct {
	svc     *Service
	repo    *memoryRoleRepo
	audit   *recordingAudit
	inval   *recordingInvalidator
	tenant  uuid.UUID
	manager *access.Decider
	owner   *access.Decider
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{repo: newMemoryRoleRepo(), audit: &recordingAudit{}, inval: &recordingInvalidator{}, tenant: uuid.New()}
	f.svc = NewService(f.repo, f.audit, f.inval, nil)
	f.manager = actor(f.tenant, "manager", false, "Orders", "User Management")
	f.owner = actor(f.tenant, "owner", true)
	return f
}

func actor(tenant uuid.UUID, role string, fullAccess bool, components ...string) *access.Decider {
	return access.NewDecider(access.Grants{
		Identity: &access.Identity{
			ID:            uuid.New(),
			RoleName:      role,
			HasFullAccess: fullAccess,
			RestaurantID:  &tenant,
		},
		Components:             components,
		SubscriptionComponents: []string{"Orders", "Kitchen", "Financial", "User Management"},
	}, nil)
}

func TestCreateRequiresName(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.Create(context.Background(), f.manager, CreateInput{Name: "   "})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, f.audit.logs)
}

func TestCreateRejectsPrivilegeEscalation(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.manager, CreateInput{Name: "Supervisor", HasFullAccess: true})
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = f.svc.Create(ctx, f.manager, CreateInput{Name: "Bookkeeper", ComponentIDs: []uuid.UUID{f.repo.componentID("Financial")}})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Empty(t, f.repo.roles)
}

func TestCreateGrantsHeldComponents(t *testing.T) {
	f := newServiceFixture()

	role, err := f.svc.Create(context.Background(), f.manager, CreateInput{
		Name:         " Runner ",
		ComponentIDs: []uuid.UUID{f.repo.componentID("Orders")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Runner", role.Name)
	require.Len(t, role.Components, 1)
	assert.Equal(t, "Orders", role.Components[0].Name)

	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, "role.create", f.audit.logs[0].Action)
	assert.Equal(t, f.tenant, f.audit.logs[0].RestaurantID)
	assert.Equal(t, []uuid.UUID{f.tenant}, f.inval.tenants)
}

func TestFullAccessActorMayGrantAnything(t *testing.T) {
	f := newServiceFixture()

	role, err := f.svc.Create(context.Background(), f.owner, CreateInput{
		Name:          "Deputy",
		HasFullAccess: true,
		ComponentIDs:  []uuid.UUID{f.repo.componentID("Financial")},
	})
	require.NoError(t, err)
	assert.True(t, role.HasFullAccess)
}

func TestCreateDuplicateName(t *testing.T) {
	f := newServiceFixture()
	f.repo.add(f.tenant, Role{Name: "Host"})

	_, err := f.svc.Create(context.Background(), f.manager, CreateInput{Name: "host"})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestSystemRolesKeepNameAndFullAccess(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	system := f.repo.add(f.tenant, Role{Name: "Owner", IsSystem: true, HasFullAccess: true})

	_, err := f.svc.Update(ctx, f.owner, UpdateInput{ID: system.ID, Name: "Boss", HasFullAccess: true})
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = f.svc.Update(ctx, f.owner, UpdateInput{ID: system.ID, Name: "Owner", HasFullAccess: false})
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	updated, err := f.svc.Update(ctx, f.owner, UpdateInput{ID: system.ID, Name: "owner", Description: "Restaurant owner", HasFullAccess: true})
	require.NoError(t, err)
	assert.Equal(t, "Owner", updated.Name)
	assert.Equal(t, "Restaurant owner", updated.Description)
}

func TestUpdateFullAccessRoleRequiresFullAccess(t *testing.T) {
	f := newServiceFixture()
	role := f.repo.add(f.tenant, Role{Name: "Deputy", HasFullAccess: true, IsDeletable: true})

	_, err := f.svc.Update(context.Background(), f.manager, UpdateInput{ID: role.ID, Name: "Deputy", HasFullAccess: false})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestUpdateKeepsExistingGrantsActorLacks(t *testing.T) {
	f := newServiceFixture()
	financial := f.repo.componentID("Financial")
	role := f.repo.add(f.tenant, Role{Name: "Cashier", IsDeletable: true, Components: []access.Component{f.repo.components[financial]}})

	updated, err := f.svc.Update(context.Background(), f.manager, UpdateInput{
		ID:           role.ID,
		Name:         "Cashier",
		ComponentIDs: []uuid.UUID{financial, f.repo.componentID("Orders")},
	})
	require.NoError(t, err)
	assert.Len(t, updated.Components, 2)

	_, err = f.svc.Update(context.Background(), f.manager, UpdateInput{
		ID:           role.ID,
		Name:         "Cashier",
		ComponentIDs: []uuid.UUID{financial, f.repo.componentID("Kitchen")},
	})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestDeleteRules(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	locked := f.repo.add(f.tenant, Role{Name: "Chef", IsSystem: true})
	custom := f.repo.add(f.tenant, Role{Name: "Runner", IsDeletable: true})

	err := f.svc.Delete(ctx, f.owner, locked.ID)
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	err = f.svc.Delete(ctx, f.manager, uuid.Nil)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	require.NoError(t, f.svc.Delete(ctx, f.manager, custom.ID))
	assert.NotContains(t, f.repo.roles, custom.ID)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, "role.delete", f.audit.logs[0].Action)
}

func TestRolesAreTenantScoped(t *testing.T) {
	f := newServiceFixture()
	foreign := f.repo.add(uuid.New(), Role{Name: "Runner", IsDeletable: true})

	err := f.svc.Delete(context.Background(), f.manager, foreign.ID)
	assert.ErrorIs(t, err, httpx.ErrNotFound)

	roles, err := f.svc.ListRoles(context.Background(), f.manager)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestMutationsRequireIdentityAndTenant(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, nil, CreateInput{Name: "Runner"})
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)

	platform := access.NewDecider(access.Grants{Identity: &access.Identity{ID: uuid.New(), HasFullAccess: true}}, nil)
	_, err = f.svc.Create(ctx, platform, CreateInput{Name: "Runner"})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestInvalidationFailureDoesNotFailMutation(t *testing.T) {
	f := newServiceFixture()
	f.inval.err = errors.New("queue down")

	_, err := f.svc.Create(context.Background(), f.manager, CreateInput{Name: "Runner"})
	assert.NoError(t, err)
	assert.Len(t, f.inval.tenants, 1)
}
