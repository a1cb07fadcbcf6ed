package models

import "strings"

// Role is the permission role stored for a user.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleOia            Role = "oia"
	RoleInspector      Role = "inspector"
	RoleStrategy       Role = "strategy"
	RoleSac            Role = "sac"
	RoleDataManager    Role = "data_manager"
	RoleCompanyManager Role = "company_manager"
)

var roleNames = map[Role]string{
	RoleAdmin:          "Administrador",
	RoleOia:            "OIA",
	RoleInspector:      "Inspector",
	RoleStrategy:       "Estrategia",
	RoleSac:            "SAC",
	RoleDataManager:    "Gestor de datos",
	RoleCompanyManager: "Gestor de constructoras",
}

// ParseRole maps a stored role string to a known Role.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	_, ok := roleNames[role]
	return role, ok
}

// DisplayName returns the human readable role name, or the raw value when unknown.
func (r Role) DisplayName() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return string(r)
}
