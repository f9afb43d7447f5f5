package rbac

import "strings"

// Role names supported by the shop. The first registered user
// becomes an admin; everyone else starts as viewer until promoted.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
	RoleViewer  = "viewer"
)

// Permission names. Handlers guard routes with these via RequireAny.
const (
	PermProductsView    = "products.view"
	PermProductsManage  = "products.manage"
	PermSalesView       = "sales.view"
	PermSalesCreate     = "sales.create"
	PermSalesManage     = "sales.manage"
	PermPurchasesView   = "purchases.view"
	PermPurchasesManage = "purchases.manage"
	PermInventoryView   = "inventory.view"
	PermInventoryAdjust = "inventory.adjust"
	PermCustomersView   = "customers.view"
	PermCustomersManage = "customers.manage"
	PermSuppliersManage = "suppliers.manage"
	PermDashboardView   = "dashboard.view"
	PermUsersManage     = "users.manage"
	PermBackupManage    = "backup.manage"
)

// rolePermissions is the static grant table. Roles are fixed for the
// shop, there is no per-role editing UI.
var rolePermissions = map[string][]string{
	RoleAdmin: {
		PermProductsView, PermProductsManage,
		PermSalesView, PermSalesCreate, PermSalesManage,
		PermPurchasesView, PermPurchasesManage,
		PermInventoryView, PermInventoryAdjust,
		PermCustomersView, PermCustomersManage,
		PermSuppliersManage,
		PermDashboardView,
		PermUsersManage,
		PermBackupManage,
	},
	RoleManager: {
		PermProductsView, PermProductsManage,
		PermSalesView, PermSalesCreate, PermSalesManage,
		PermPurchasesView, PermPurchasesManage,
		PermInventoryView, PermInventoryAdjust,
		PermCustomersView, PermCustomersManage,
		PermSuppliersManage,
		PermDashboardView,
	},
	RoleCashier: {
		PermProductsView,
		PermSalesView, PermSalesCreate,
		PermInventoryView,
		PermCustomersView, PermCustomersManage,
		PermDashboardView,
	},
	RoleViewer: {
		PermProductsView,
		PermSalesView,
		PermPurchasesView,
		PermInventoryView,
		PermCustomersView,
		PermDashboardView,
	},
}

// ValidRole reports whether name is one of the supported roles.
func ValidRole(name string) bool {
	_, ok := rolePermissions[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// PermissionsForRole returns the permissions granted to a role.
func PermissionsForRole(role string) []string {
	perms, ok := rolePermissions[strings.ToLower(strings.TrimSpace(role))]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// Roles lists the supported role names in privilege order.
func Roles() []string {
	return []string{RoleAdmin, RoleManager, RoleCashier, RoleViewer}
}
