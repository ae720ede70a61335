package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ecowatcher/backend/internal/utils"
)

const claimsContextKey = "currentClaims"

// AuthMiddleware validates JWT tokens and loads the caller identity into context.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		claims, err := utils.ParseToken(secret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(claimsContextKey, claims)
		return c.Next()
	}
}

// RequireLevel rejects callers whose level is not listed.
func RequireLevel(levels ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := GetClaims(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}
		for _, l := range levels {
			if claims.Level == l {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "forbidden")
	}
}

// GetClaims extracts the authenticated identity from context.
func GetClaims(c *fiber.Ctx) (utils.Claims, bool) {
	claims, ok := c.Locals(claimsContextKey).(utils.Claims)
	return claims, ok
}
