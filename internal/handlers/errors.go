package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ecowatcher/backend/internal/lifecycle"
	"github.com/ecowatcher/backend/internal/middleware"
	"github.com/ecowatcher/backend/internal/services"
	"github.com/ecowatcher/backend/internal/utils"
)

var badRequest = []error{
	services.ErrInvalidInput,
	services.ErrNotEditable,
	services.ErrNotCompleted,
	services.ErrInsufficientPoints,
	lifecycle.ErrInvalidTransition,
	lifecycle.ErrUnknownStatus,
	lifecycle.ErrTrackRegression,
	lifecycle.ErrUnknownTrackStatus,
}

var conflict = []error{
	services.ErrEmailTaken,
	services.ErrStaleStatus,
	services.ErrTransactionClosed,
	services.ErrAlreadySettled,
}

// StatusFor maps an error returned by a handler onto an HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrAccountInactive):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return fiber.StatusBadRequest
		}
	}
	for _, target := range conflict {
		if errors.Is(err, target) {
			return fiber.StatusConflict
		}
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error as {"success": false, "error": ...}.
// Unexpected errors are logged and hidden behind a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusFor(err)
	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"request_id": c.Locals("requestid"),
		}).Error("request failed")
		msg = "internal server error"
	}
	return c.Status(code).JSON(fiber.Map{"success": false, "error": msg})
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func claimsOf(c *fiber.Ctx) (utils.Claims, error) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return utils.Claims{}, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return claims, nil
}
