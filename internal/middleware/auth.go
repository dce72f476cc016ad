// Package middleware provides HTTP middleware components for the application.
package middleware

import (
	"strings"

	"fxwallet/internal/logger"
	"fxwallet/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware verifies the bearer token issued by the auth service and
// puts the verified user id and claims on the request context.
type AuthMiddleware struct {
	secret string
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	if secret == "" {
		panic("jwt secret is required")
	}
	return &AuthMiddleware{secret: secret}
}

func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return utils.Unauthorized(c, "missing authorization header")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return utils.Unauthorized(c, "invalid authorization format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims, err := utils.ParseToken(tokenString, m.secret)
	if err != nil {
		logger.Debugf("Token validation error: %v", err)
		return utils.Unauthorized(c, "invalid token")
	}

	c.Locals(utils.LocalClaims, claims)
	c.Locals(utils.LocalUserID, claims.UserID)

	return c.Next()
}
