package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ecowatcher/backend/internal/lifecycle"
	"github.com/ecowatcher/backend/internal/models"
	"github.com/ecowatcher/backend/internal/services"
	"github.com/ecowatcher/backend/internal/utils"
)

// PickupHandler serves penyetoran and track endpoints.
type PickupHandler struct {
	pickups *services.PickupService
}

// NewPickupHandler constructs PickupHandler.
func NewPickupHandler(pickups *services.PickupService) *PickupHandler {
	return &PickupHandler{pickups: pickups}
}

// ListPickups returns all pickups joined with their user.
func (h *PickupHandler) ListPickups(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	pickups, total, err := h.pickups.List(c.UserContext(), services.ListFilter{
		Status: lifecycle.Status(c.Query("status")),
		Offset: pg.Offset,
		Limit:  pg.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": pickups, "pagination": pg.Meta(total)})
}

// ListMine returns the caller's own pickups.
func (h *PickupHandler) ListMine(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c)
	pickups, total, err := h.pickups.List(c.UserContext(), services.ListFilter{
		Status: lifecycle.Status(c.Query("status")),
		UserID: &claims.UserID,
		Offset: pg.Offset,
		Limit:  pg.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": pickups, "pagination": pg.Meta(total)})
}

// Detail returns one pickup with items and track. Donors only see their own.
func (h *PickupHandler) Detail(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}
	id, err := parseID(c.Query("id"))
	if err != nil {
		return err
	}

	p, err := h.pickups.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	if claims.Level == models.LevelPenyumbang && p.UserID != claims.UserID {
		return services.ErrForbidden
	}
	return c.JSON(fiber.Map{"success": true, "data": p})
}

// Status returns the current status of a pickup, served from cache when warm.
func (h *PickupHandler) Status(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}
	id, err := parseID(c.Query("id"))
	if err != nil {
		return err
	}
	if err := h.pickups.Authorize(c.UserContext(), id, claims); err != nil {
		return err
	}

	snap, err := h.pickups.Status(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": snap})
}

type submitRequest struct {
	AddressID  string               `json:"addressId"`
	PickUpDate string               `json:"pickUpDate"`
	PickUpTime string               `json:"pickUpTime"`
	Items      []services.ItemInput `json:"items"`
	Photos     []string             `json:"photos"`
}

// Submit creates a new pickup request for the caller.
func (h *PickupHandler) Submit(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}

	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	addressID, err := parseID(req.AddressID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid addressId")
	}
	date, err := parseDate(req.PickUpDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid pickUpDate")
	}

	p, err := h.pickups.Submit(c.UserContext(), claims.UserID, services.SubmitInput{
		AddressID:  addressID,
		PickUpDate: date,
		PickUpTime: req.PickUpTime,
		Items:      req.Items,
		Photos:     req.Photos,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": p})
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

type updateStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// UpdateStatus moves a pickup one step through the status gate.
func (h *PickupHandler) UpdateStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Status == "" {
		return fiber.NewError(fiber.StatusBadRequest, "status is required")
	}
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	p, err := h.pickups.UpdateStatus(c.UserContext(), id, lifecycle.Status(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": p})
}

type updateQuantityRequest struct {
	ID       string `json:"id"`
	ItemID   string `json:"itemId"`
	Quantity *int   `json:"quantity"`
}

// UpdateQuantity records the weighed quantity of one item.
func (h *PickupHandler) UpdateQuantity(c *fiber.Ctx) error {
	var req updateQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Quantity == nil {
		return fiber.NewError(fiber.StatusBadRequest, "quantity is required")
	}
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}
	itemID, err := parseID(req.ItemID)
	if err != nil {
		return err
	}

	p, err := h.pickups.UpdateQuantity(c.UserContext(), id, itemID, *req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": p})
}

// Cancel cancels a Pending pickup.
func (h *PickupHandler) Cancel(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}
	var req idRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	p, err := h.pickups.Cancel(c.UserContext(), id, claims)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": p})
}

// Delete removes a pickup with its items and track.
func (h *PickupHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c.Query("id"))
	if err != nil {
		return err
	}
	if err := h.pickups.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"id": id}})
}

// MarkPointsAdded sets pointsAdded without crediting.
func (h *PickupHandler) MarkPointsAdded(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}
	var req idRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	if err := h.pickups.MarkPointsAdded(c.UserContext(), id, claims); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"id": id, "pointsAdded": true}})
}

// GetTrack returns the courier progress log of a pickup.
func (h *PickupHandler) GetTrack(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}
	id, err := parseID(c.Query("pickupId"))
	if err != nil {
		return err
	}
	if err := h.pickups.Authorize(c.UserContext(), id, claims); err != nil {
		return err
	}
	track, err := h.pickups.GetTrack(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": track})
}

type appendTrackRequest struct {
	PickupID string `json:"pickupId"`
	Status   string `json:"status"`
}

// AppendTrack adds the next courier sub-status.
func (h *PickupHandler) AppendTrack(c *fiber.Ctx) error {
	var req appendTrackRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Status == "" {
		return fiber.NewError(fiber.StatusBadRequest, "status is required")
	}
	id, err := parseID(req.PickupID)
	if err != nil {
		return err
	}

	track, err := h.pickups.AppendTrack(c.UserContext(), id, lifecycle.TrackStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": track})
}
