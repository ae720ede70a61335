package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ecowatcher/backend/internal/services"
)

// PointHandler serves settlement and balance endpoints.
type PointHandler struct {
	pickups   *services.PickupService
	accounts  *services.AccountService
	exchanges *services.ExchangeService
}

// NewPointHandler constructs PointHandler.
func NewPointHandler(pickups *services.PickupService, accounts *services.AccountService, exchanges *services.ExchangeService) *PointHandler {
	return &PointHandler{pickups: pickups, accounts: accounts, exchanges: exchanges}
}

// CountUnverified returns how many exchanges are still Diajukan.
func (h *PointHandler) CountUnverified(c *fiber.Ctx) error {
	n, err := h.exchanges.CountUnverified(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"count": n}})
}

type settleRequest struct {
	PickupID string `json:"pickupId"`
}

// Settle credits a completed pickup once.
func (h *PointHandler) Settle(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}
	var req settleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	id, err := parseID(req.PickupID)
	if err != nil {
		return err
	}

	res, err := h.pickups.Settle(c.UserContext(), id, claims)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": res})
}

type creditRequest struct {
	PickupID string `json:"pickupId"`
	Point    int    `json:"point"`
}

// Credit adds a completed pickup's points to the caller's balance without
// flagging it. Kept for clients that credit and flag in two requests; prefer
// Settle.
func (h *PointHandler) Credit(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}
	var req creditRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	id, err := parseID(req.PickupID)
	if err != nil {
		return err
	}

	if err := h.pickups.CreditForPickup(c.UserContext(), id, claims, req.Point); err != nil {
		return err
	}
	user, err := h.accounts.Get(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}
