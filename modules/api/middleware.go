package api

import (
	"strings"

	"github.com/example/shopping-list/domain/account"
	"github.com/example/shopping-list/modules/auth"
	"github.com/gofiber/fiber/v2"
)

const (
	// UserContextKey is the key used to store account claims in the Fiber context.
	UserContextKey = "user"
)

// AuthMiddleware validates the Bearer access token.
func AuthMiddleware(authPort auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header is required",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid authorization header format. Use: Bearer <token>",
			})
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Token is required",
			})
		}

		return authenticate(c, authPort, token)
	}
}

// WebSocketAuth validates the token passed as ?token= on the upgrade
// request, since browsers cannot set headers on WebSocket connections.
func WebSocketAuth(authPort auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "token query parameter is required",
			})
		}
		return authenticate(c, authPort, token)
	}
}

func authenticate(c *fiber.Ctx, authPort auth.AuthPort, token string) error {
	claims, err := authPort.ValidateToken(c.UserContext(), token)
	if err != nil {
		kind := auth.CodeOf(err)
		if kind == auth.CodeInternal {
			kind = "unauthorized"
		}
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   kind,
			Message: "Invalid or expired token",
		})
	}

	c.Locals(UserContextKey, claims)
	return c.Next()
}

// claimsFrom returns the claims stored by the auth middleware.
func claimsFrom(c *fiber.Ctx) (*account.Claims, bool) {
	claims, ok := c.Locals(UserContextKey).(*account.Claims)
	return claims, ok && claims != nil
}
