package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/repository"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	Admin       *domain.Admin
	Customer    *domain.Customer
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens    *TokenManager
	admins    repository.AdminRepository
	customers repository.CustomerRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, admins repository.AdminRepository, customers repository.CustomerRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, admins: admins, customers: customers}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{SubjectType: claims.SubjectType}

	switch claims.SubjectType {
	case domain.SubjectTypeCustomer:
		customer, err := m.customers.GetByID(c.UserContext(), claims.Subject)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewUnauthorized("customer not found")
			}
			return apperrors.MapError(err)
		}
		principal.Customer = customer
	case domain.SubjectTypeAdmin:
		admin, err := m.admins.GetByID(c.UserContext(), claims.Subject)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewUnauthorized("admin not found")
			}
			return apperrors.MapError(err)
		}
		if !admin.Active {
			return apperrors.NewUnauthorized("admin account disabled")
		}
		principal.Admin = admin
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
