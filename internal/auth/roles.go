package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/credit-line-service/pkg/util/errorutil"
)

// RequireAdmin ensures the caller holds the admin capability.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Role != RoleAdmin {
			return apperrors.NewForbidden("admin capability required")
		}
		return c.Next()
	}
}
