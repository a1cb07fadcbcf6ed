package auth

import (
	"strings"

	"certification/lib/apperr"
	"certification/lib/models"
)

// Require succeeds when identity holds any of permissions.
func Require(identity *models.Identity, permissions ...string) error {
	if identity == nil {
		return apperr.Unauthenticated("no caller identity")
	}
	for _, p := range permissions {
		if HasPermission(identity.Role, p) {
			return nil
		}
	}
	return apperr.Forbidden("requires " + strings.Join(permissions, " or "))
}

// ScopeFor decides how far identity may act on resource. Holding
// "resource:action" is unrestricted; holding only "resource:action:own" limits
// the caller to its own OIA, which it must have.
func ScopeFor(identity *models.Identity, resource, action string) (models.AccessScope, error) {
	if identity == nil {
		return models.AccessScope{}, apperr.Unauthenticated("no caller identity")
	}
	full := resource + ":" + action
	if HasPermission(identity.Role, full) {
		return models.Unrestricted(), nil
	}
	if HasPermission(identity.Role, full+":own") {
		if identity.OiaID == nil {
			return models.AccessScope{}, apperr.Forbidden("caller is not linked to an OIA")
		}
		return models.OwnOia(*identity.OiaID), nil
	}
	return models.AccessScope{}, apperr.Forbidden("requires " + full)
}
