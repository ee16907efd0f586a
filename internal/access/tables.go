package access

import (
	"slices"

	"github.com/innsuite/innsuite/internal/shared"
)

// ComponentUserManagement licenses the role and user administration surfaces.
const ComponentUserManagement = "User Management"

// componentPermissions maps a licensable component name to the permissions it
// grants. Keys are compared case-insensitively.
var componentPermissions = map[string][]string{
	"Dashboard": {shared.PermDashboardView},
	"Orders": {
		shared.PermOrdersView, shared.PermOrdersCreate, shared.PermOrdersEdit, shared.PermOrdersDelete,
	},
	"Kitchen": {shared.PermKitchenView, shared.PermKitchenManage, shared.PermOrdersView},
	"POS":     {shared.PermPOSView, shared.PermPOSOperate, shared.PermOrdersCreate},
	"Menu":    {shared.PermMenuView, shared.PermMenuEdit},
	"Recipes": {shared.PermRecipesView, shared.PermRecipesEdit},
	"Inventory": {
		shared.PermInventoryView, shared.PermInventoryEdit,
	},
	"Staff":        {shared.PermStaffView, shared.PermStaffEdit},
	"Scheduling":   {shared.PermScheduleView, shared.PermScheduleEdit},
	"Rooms":        {shared.PermRoomsView, shared.PermRoomsEdit},
	"Reservations": {shared.PermReservationsView, shared.PermReservationsEdit, shared.PermGuestsCheckIn},
	"Housekeeping": {shared.PermHousekeepingView, shared.PermHousekeepingEdit},
	"Customers":    {shared.PermCustomersView, shared.PermCustomersEdit},
	"Loyalty":      {shared.PermLoyaltyView, shared.PermLoyaltyEdit},
	"Analytics":    {shared.PermAnalyticsView},
	"Financial": {
		shared.PermFinancialView, shared.PermFinancialEdit, shared.PermFinancialDelete,
	},
	"Settings":              {shared.PermSettingsView, shared.PermSettingsEdit},
	ComponentUserManagement: {shared.PermUsersView, shared.PermUsersEdit, shared.PermRolesView, shared.PermRolesEdit},
}

// rolePermissions is the last-resort table keyed by role name.
var rolePermissions = map[string][]string{
	"owner": shared.AllPermissions(),
	"admin": shared.AllPermissions(),
	"manager": {
		shared.PermDashboardView,
		shared.PermOrdersView, shared.PermOrdersCreate, shared.PermOrdersEdit, shared.PermOrdersDelete,
		shared.PermKitchenView, shared.PermKitchenManage,
		shared.PermPOSView, shared.PermPOSOperate,
		shared.PermMenuView, shared.PermMenuEdit,
		shared.PermRecipesView, shared.PermRecipesEdit,
		shared.PermInventoryView, shared.PermInventoryEdit,
		shared.PermStaffView, shared.PermStaffEdit,
		shared.PermScheduleView, shared.PermScheduleEdit,
		shared.PermReservationsView, shared.PermReservationsEdit, shared.PermGuestsCheckIn,
		shared.PermCustomersView, shared.PermCustomersEdit,
		shared.PermLoyaltyView,
		shared.PermAnalyticsView,
		shared.PermFinancialView,
		shared.PermUsersView, shared.PermRolesView,
	},
	"chef": {
		shared.PermDashboardView,
		shared.PermOrdersView,
		shared.PermKitchenView, shared.PermKitchenManage,
		shared.PermMenuView,
		shared.PermRecipesView, shared.PermRecipesEdit,
		shared.PermInventoryView,
	},
	"waiter": {
		shared.PermDashboardView,
		shared.PermOrdersView, shared.PermOrdersCreate, shared.PermOrdersEdit,
		shared.PermPOSView, shared.PermPOSOperate,
		shared.PermMenuView,
		shared.PermCustomersView,
	},
	"receptionist": {
		shared.PermDashboardView,
		shared.PermRoomsView,
		shared.PermReservationsView, shared.PermReservationsEdit, shared.PermGuestsCheckIn,
		shared.PermCustomersView, shared.PermCustomersEdit,
		shared.PermLoyaltyView,
	},
	"housekeeper": {
		shared.PermDashboardView,
		shared.PermRoomsView,
		shared.PermHousekeepingView, shared.PermHousekeepingEdit,
	},
	"staff": {
		shared.PermDashboardView,
		shared.PermOrdersView, shared.PermOrdersCreate,
		shared.PermMenuView,
		shared.PermScheduleView,
	},
	"viewer": {
		shared.PermDashboardView,
		shared.PermOrdersView,
		shared.PermMenuView,
		shared.PermInventoryView,
		shared.PermReservationsView,
	},
}

// ComponentNames lists every licensable component, sorted.
func ComponentNames() []string {
	names := make([]string, 0, len(componentPermissions))
	for name := range componentPermissions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ComponentPermissions returns the static permissions granted by a component.
func ComponentPermissions(component string) []string {
	want := fold(component)
	for name, perms := range componentPermissions {
		if fold(name) == want {
			return perms
		}
	}
	return nil
}

// RolePermissions returns the hardcoded permissions for a role name and whether
// the role is known.
func RolePermissions(role string) ([]string, bool) {
	want := fold(role)
	if want == "" {
		return nil, false
	}
	for name, perms := range rolePermissions {
		if fold(name) == want {
			return perms, true
		}
	}
	return nil, false
}
