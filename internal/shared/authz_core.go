package shared

// Permission strings follow the <domain>.<action> convention.
const (
	PermDashboardView = "dashboard.view"

	PermOrdersView   = "orders.view"
	PermOrdersCreate = "orders.create"
	PermOrdersEdit   = "orders.edit"
	PermOrdersDelete = "orders.delete"

	PermKitchenView   = "kitchen.view"
	PermKitchenManage = "kitchen.manage"

	PermPOSView    = "pos.view"
	PermPOSOperate = "pos.operate"

	PermMenuView    = "menu.view"
	PermMenuEdit    = "menu.edit"
	PermRecipesView = "recipes.view"
	PermRecipesEdit = "recipes.edit"

	PermInventoryView = "inventory.view"
	PermInventoryEdit = "inventory.edit"

	PermStaffView    = "staff.view"
	PermStaffEdit    = "staff.edit"
	PermScheduleView = "schedule.view"
	PermScheduleEdit = "schedule.edit"

	PermRoomsView        = "rooms.view"
	PermRoomsEdit        = "rooms.edit"
	PermReservationsView = "reservations.view"
	PermReservationsEdit = "reservations.edit"
	PermGuestsCheckIn    = "guests.checkin"
	PermHousekeepingView = "housekeeping.view"
	PermHousekeepingEdit = "housekeeping.edit"

	PermCustomersView = "customers.view"
	PermCustomersEdit = "customers.edit"
	PermLoyaltyView   = "loyalty.view"
	PermLoyaltyEdit   = "loyalty.edit"

	PermAnalyticsView   = "analytics.view"
	PermFinancialView   = "financial.view"
	PermFinancialEdit   = "financial.edit"
	PermFinancialDelete = "financial.delete"

	PermSettingsView = "settings.view"
	PermSettingsEdit = "settings.edit"

	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"
	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"
)

// CoreScopes lists the administration permissions.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
	}
}

// AllPermissions lists every permission known to the platform.
func AllPermissions() []string {
	perms := []string{
		PermDashboardView,
		PermOrdersView, PermOrdersCreate, PermOrdersEdit, PermOrdersDelete,
		PermKitchenView, PermKitchenManage,
		PermPOSView, PermPOSOperate,
		PermMenuView, PermMenuEdit, PermRecipesView, PermRecipesEdit,
		PermInventoryView, PermInventoryEdit,
		PermStaffView, PermStaffEdit, PermScheduleView, PermScheduleEdit,
		PermRoomsView, PermRoomsEdit, PermReservationsView, PermReservationsEdit, PermGuestsCheckIn,
		PermHousekeepingView, PermHousekeepingEdit,
		PermCustomersView, PermCustomersEdit, PermLoyaltyView, PermLoyaltyEdit,
		PermAnalyticsView, PermFinancialView, PermFinancialEdit, PermFinancialDelete,
		PermSettingsView, PermSettingsEdit,
	}
	return append(perms, CoreScopes()...)
}
