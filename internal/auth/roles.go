package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/backbone-auth/pkg/util/errorutil"
)

// RequireAuthenticated ensures a principal is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireFinalToken rejects interim tokens, which only allow role selection.
func RequireFinalToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Claims.IsFinal() {
			return apperrors.NewForbidden("role selection required")
		}
		return c.Next()
	}
}

// RequireRole ensures the principal holds one of the allowed roles as an
// effective role. An empty allow list admits any final token.
func RequireRole(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Claims.IsFinal() {
			return apperrors.NewForbidden("role selection required")
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		if !IsInAnyRole(principal.Claims, allowed...) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
