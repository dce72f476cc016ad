package utils

import (
	apperrors "fxwallet/internal/errors"
	"fxwallet/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// Respond sends a JSON response with the specified status code.
func Respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// Success sends a successful JSON response.
func Success(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusOK, data)
}

// Created sends a JSON response with status 201.
func Created(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusCreated, data)
}

// Accepted sends a JSON response with status 202.
func Accepted(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusAccepted, data)
}

// BadRequest sends a JSON error response with status 400.
func BadRequest(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusBadRequest, fiber.Map{"error": message})
}

// ValidationFailed sends the field errors of a rejected body with status 400.
func ValidationFailed(c *fiber.Ctx, errs []string) error {
	return Respond(c, fiber.StatusBadRequest, fiber.Map{"error": "validation failed", "details": errs})
}

// Unauthorized sends a JSON error response with status 401.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusUnauthorized, fiber.Map{"error": message})
}

// InternalError sends a JSON error response with status 500.
func InternalError(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusInternalServerError, fiber.Map{"error": message})
}

// Error renders err. Domain errors keep their status and code; anything else
// is logged and reported as a 500.
func Error(c *fiber.Ctx, err error) error {
	de, ok := apperrors.As(err)
	if !ok {
		logger.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
		return InternalError(c, "internal server error")
	}

	body := fiber.Map{
		"error": de.Message,
		"code":  de.Code,
	}
	if de.Detail != "" {
		body["detail"] = de.Detail
	}
	if apperrors.Retryable(err) {
		body["retryable"] = true
	}
	return Respond(c, de.HTTPStatus(), body)
}
