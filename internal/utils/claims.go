package utils

import (
	"errors"

	"fxwallet/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the auth middleware.
const (
	LocalClaims = "claims"
	LocalUserID = "userID"
)

// GetUserClaims extracts the user claims from the Fiber context.
// It returns an error if the claims are missing or of an invalid type.
func GetUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	v := c.Locals(LocalClaims)
	if v == nil {
		return nil, errors.New("claims not found in context")
	}

	claims, ok := v.(*models.UserClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}

// GetUserID returns the verified user id placed in the context by the auth middleware.
func GetUserID(c *fiber.Ctx) (uint, error) {
	id, ok := c.Locals(LocalUserID).(uint)
	if !ok || id == 0 {
		return 0, errors.New("user id not found in context")
	}
	return id, nil
}
