package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-support/internal/domain"
)

// RequireCustomer ensures a customer is authenticated.
func RequireCustomer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeCustomer || principal.Customer == nil {
			return fiber.NewError(http.StatusForbidden, "customer required")
		}
		return c.Next()
	}
}

// RequireAdminRole ensures the admin principal has one of the allowed roles.
// With no roles listed any active admin passes.
func RequireAdminRole(allowed ...domain.AdminRole) fiber.Handler {
	allowedSet := make(map[domain.AdminRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeAdmin || principal.Admin == nil {
			return fiber.NewError(http.StatusForbidden, "admin role required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Admin.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
