package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// RBAC authenticates the request and requires one of allowedRoles. The role
// check happens inside the authorizer so a rejected attempt is logged once.
func RBAC(authz ports.Authorizer, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	roles := make([]domain.Role, len(allowedRoles))
	copy(roles, allowedRoles)
	return authorize(authz, roles)
}

// AdminOnly is RBAC restricted to administrators.
func AdminOnly(authz ports.Authorizer) echo.MiddlewareFunc {
	return RBAC(authz, domain.RoleAdmin)
}
