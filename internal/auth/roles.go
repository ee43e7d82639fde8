package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

// RequireStaff ensures an authenticated, active staff principal.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Staff == nil {
			return apperrors.NewUnauthorized("staff authentication required")
		}
		return c.Next()
	}
}

// RequireSupervisor ensures the staff principal may approve, reassign and
// clear on behalf of the hotel.
func RequireSupervisor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Staff == nil {
			return apperrors.NewUnauthorized("staff authentication required")
		}
		if !principal.Staff.Role.IsSupervisor() {
			return apperrors.NewForbidden("supervisor role required")
		}
		return c.Next()
	}
}
