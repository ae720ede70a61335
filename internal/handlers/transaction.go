package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ecowatcher/backend/internal/services"
	"github.com/ecowatcher/backend/internal/utils"
)

// TransactionHandler serves voucher exchange (transaksi) endpoints.
type TransactionHandler struct {
	exchanges *services.ExchangeService
}

// NewTransactionHandler constructs TransactionHandler.
func NewTransactionHandler(exchanges *services.ExchangeService) *TransactionHandler {
	return &TransactionHandler{exchanges: exchanges}
}

// List returns every exchange for admins.
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	items, total, err := h.exchanges.List(c.UserContext(), services.TransactionFilter{
		Status: c.Query("status"),
		Offset: pg.Offset,
		Limit:  pg.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items, "pagination": pg.Meta(total)})
}

// ListMine returns the caller's exchanges.
func (h *TransactionHandler) ListMine(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}
	pg := utils.ParsePagination(c)
	items, total, err := h.exchanges.List(c.UserContext(), services.TransactionFilter{
		UserID: &claims.UserID,
		Status: c.Query("status"),
		Offset: pg.Offset,
		Limit:  pg.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items, "pagination": pg.Meta(total)})
}

// Submit requests cash for points.
func (h *TransactionHandler) Submit(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}
	var req services.ExchangeInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	trx, err := h.exchanges.Submit(c.UserContext(), claims.UserID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": trx})
}

// UpdateStatus completes an exchange.
func (h *TransactionHandler) UpdateStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	trx, err := h.exchanges.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": trx})
}
