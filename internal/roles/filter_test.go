package roles

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/innsuite/innsuite/internal/access"
)

func TestVisibleToHidesAdminRolesFromNonAdmins(t *testing.T) {
	tenant := uuid.New()
	roles := []Role{{Name: "Administrator"}, {Name: "Sub-Admin"}, {Name: "Waiter"}, {Name: "Chef"}}

	waiter := actor(tenant, "waiter", false)
	visible := VisibleTo(roles, waiter)
	assert.Equal(t, []Role{{Name: "Waiter"}, {Name: "Chef"}}, visible)

	assert.Len(t, VisibleTo(roles, actor(tenant, "Admin", false)), 4)
	assert.Len(t, VisibleTo(roles, actor(tenant, "owner", true)), 4)
}

func TestIsAdmin(t *testing.T) {
	tenant := uuid.New()
	assert.False(t, IsAdmin(nil))
	assert.False(t, IsAdmin(access.NewDecider(access.Grants{}, nil)))
	assert.True(t, IsAdmin(actor(tenant, "Restaurant Admin", false)))
	assert.False(t, IsAdmin(actor(tenant, "manager", false)))
}
