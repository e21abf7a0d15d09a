package auth

// Permission keys understood by the evaluator. They are opaque strings; the
// hierarchy in the names is purely for humans.
const (
	PermIsAdmin = "main.is_admin"

	PermUsersCreate      = "users.create"
	PermUsersManageRoles = "users.manage_roles"

	PermRolesCreate = "roles.create"
	PermRolesView   = "roles.view"
	PermRolesEdit   = "roles.edit"
	PermRolesDelete = "roles.delete"

	PermProductsCreate = "products.create"
	PermProductsView   = "products.view"
	PermProductsEdit   = "products.edit"
	PermProductsDelete = "products.delete"
)

// AdminRoleName is the name given to the auto-created role id 0.
const AdminRoleName = "administrator"

// AdminRole returns the role record the store seeds for the first principal.
func AdminRole() *Role {
	return &Role{ID: AdminRoleID, Name: AdminRoleName, Permissions: []string{PermIsAdmin}}
}
