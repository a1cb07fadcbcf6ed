package auth

import (
	"sort"
	"strings"

	"certification/lib/models"
)

// Permission strings follow resource:action[:scope].
const (
	PermissionAll = "*"

	ReportsRead      = "reports:read"
	ReportsReadOwn   = "reports:read:own"
	ReportsCreate    = "reports:create"
	ReportsReview    = "reports:review"
	ReportsChecklist = "reports:checklist"

	OiasRead      = "oias:read"
	OiasReadOwn   = "oias:read:own"
	OiasCreate    = "oias:create"
	OiasRegister  = "oias:register"
	OiasUpdate    = "oias:update"
	OiasUpdateOwn = "oias:update:own"
	OiasReview    = "oias:review"

	InspectorsRead      = "inspectors:read"
	InspectorsReadOwn   = "inspectors:read:own"
	InspectorsCreate    = "inspectors:create"
	InspectorsUpdate    = "inspectors:update"
	InspectorsUpdateOwn = "inspectors:update:own"

	CompaniesRead   = "companies:read"
	CompaniesCreate = "companies:create"

	CatalogsRead = "catalogs:read"

	DashboardRead    = "dashboard:read"
	DashboardReadOwn = "dashboard:read:own"
)

var rolePermissions = map[models.Role][]string{
	models.RoleAdmin: {PermissionAll},
	models.RoleOia: {
		ReportsReadOwn, ReportsCreate,
		OiasReadOwn, OiasUpdateOwn,
		InspectorsReadOwn, InspectorsCreate, InspectorsUpdateOwn,
		CompaniesRead, CatalogsRead, DashboardReadOwn,
	},
	models.RoleInspector: {
		ReportsReadOwn, ReportsCreate, InspectorsReadOwn, CompaniesRead, CatalogsRead,
	},
	models.RoleStrategy: {
		ReportsRead, OiasRead, InspectorsRead, CompaniesRead, CatalogsRead, DashboardRead,
	},
	models.RoleSac: {
		ReportsRead, OiasRead, InspectorsRead, CompaniesRead, CatalogsRead,
	},
	models.RoleDataManager: {
		"reports:*", "companies:*", "catalogs:*", OiasRead, InspectorsRead, DashboardRead,
	},
	models.RoleCompanyManager: {
		"companies:*", ReportsRead, CatalogsRead,
	},
}

// HasPermission reports whether role grants permission. A nil or unknown role
// grants nothing. Matching tries the full wildcard, then the exact string, then
// the category wildcard.
func HasPermission(role *models.Role, permission string) bool {
	if role == nil {
		return false
	}
	granted, ok := rolePermissions[*role]
	if !ok {
		return false
	}

	category := permission
	if i := strings.Index(permission, ":"); i >= 0 {
		category = permission[:i]
	}
	categoryWildcard := category + ":*"

	for _, p := range granted {
		if p == PermissionAll {
			return true
		}
	}
	for _, p := range granted {
		if p == permission {
			return true
		}
	}
	for _, p := range granted {
		if p == categoryWildcard {
			return true
		}
	}
	return false
}

// Permissions returns a sorted copy of the permissions granted to role.
func Permissions(role *models.Role) []string {
	if role == nil {
		return []string{}
	}
	granted := append([]string{}, rolePermissions[*role]...)
	sort.Strings(granted)
	return granted
}
