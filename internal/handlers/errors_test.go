package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/ecowatcher/backend/internal/lifecycle"
	"github.com/ecowatcher/backend/internal/services"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fiber.NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
		{fmt.Errorf("pickup x: %w", services.ErrNotFound), fiber.StatusNotFound},
		{gorm.ErrRecordNotFound, fiber.StatusNotFound},
		{services.ErrForbidden, fiber.StatusForbidden},
		{services.ErrAccountInactive, fiber.StatusForbidden},
		{services.ErrInvalidCredentials, fiber.StatusUnauthorized},
		{lifecycle.CanTransition(lifecycle.StatusPending, lifecycle.StatusSelesai), fiber.StatusBadRequest},
		{lifecycle.CanAppendTrack(lifecycle.TrackArrived, lifecycle.TrackWillPickUp), fiber.StatusBadRequest},
		{services.ErrInsufficientPoints, fiber.StatusBadRequest},
		{fmt.Errorf("%w: bad", services.ErrInvalidInput), fiber.StatusBadRequest},
		{services.ErrStaleStatus, fiber.StatusConflict},
		{services.ErrEmailTaken, fiber.StatusConflict},
		{services.ErrTransactionClosed, fiber.StatusConflict},
		{services.ErrAlreadySettled, fiber.StatusConflict},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}
