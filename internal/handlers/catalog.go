package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecowatcher/backend/internal/models"
	"github.com/ecowatcher/backend/internal/utils"
)

// CatalogHandler manages katalog items and pickup fees.
type CatalogHandler struct {
	db *gorm.DB
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

// ListItems returns catalog items, optionally filtered by category.
func (h *CatalogHandler) ListItems(c *fiber.Ctx) error {
	query := h.db.WithContext(c.UserContext()).Model(&models.CatalogItem{})
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var items []models.CatalogItem
	if err := query.Order("category asc, name asc").Find(&items).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": items})
}

type catalogItemRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required"`
	Points   int    `json:"points" validate:"gte=0"`
	Unit     string `json:"unit"`
	Image    string `json:"image" validate:"omitempty,url"`
}

func (r catalogItemRequest) validate() error {
	if err := utils.Validate(r); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// CreateItem persists a new catalog item.
func (h *CatalogHandler) CreateItem(c *fiber.Ctx) error {
	var req catalogItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	item := models.CatalogItem{
		Name:     req.Name,
		Category: req.Category,
		Points:   req.Points,
		Unit:     req.Unit,
		Image:    req.Image,
	}
	if err := h.db.WithContext(c.UserContext()).Create(&item).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

// UpdateItem replaces the fields of an existing catalog item. Pickups already
// submitted keep the points they copied.
func (h *CatalogHandler) UpdateItem(c *fiber.Ctx) error {
	var req catalogItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	id, err := parseID(req.ID)
	if err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	var item models.CatalogItem
	if err := h.db.WithContext(c.UserContext()).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "catalog item not found")
		}
		return err
	}

	if err := h.db.WithContext(c.UserContext()).Model(&item).Updates(map[string]interface{}{
		"name":       req.Name,
		"category":   req.Category,
		"points":     req.Points,
		"unit":       req.Unit,
		"image":      req.Image,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": item})
}

// DeleteItem removes a catalog item by ID.
func (h *CatalogHandler) DeleteItem(c *fiber.Ctx) error {
	id, err := parseID(c.Query("id"))
	if err != nil {
		return err
	}

	res := h.db.WithContext(c.UserContext()).Delete(&models.CatalogItem{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "catalog item not found")
	}

	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"id": id}})
}

// ListFees returns the pickup fee per kecamatan.
func (h *CatalogHandler) ListFees(c *fiber.Ctx) error {
	var fees []models.PickupFee
	if err := h.db.WithContext(c.UserContext()).Order("kecamatan asc").Find(&fees).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fees})
}

type feeRequest struct {
	Kecamatan string `json:"kecamatan" validate:"required"`
	Fee       int    `json:"fee" validate:"gte=0"`
}

// UpsertFee sets the pickup fee of a kecamatan. Existing pickups keep the
// fee they were submitted with.
func (h *CatalogHandler) UpsertFee(c *fiber.Ctx) error {
	var req feeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Kecamatan = strings.TrimSpace(req.Kecamatan)
	if err := utils.Validate(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	fee := models.PickupFee{Kecamatan: req.Kecamatan, Fee: req.Fee}
	err := h.db.WithContext(c.UserContext()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kecamatan"}},
		DoUpdates: clause.AssignmentColumns([]string{"fee", "updated_at"}),
	}).Create(&fee).Error
	if err != nil {
		return err
	}

	var stored models.PickupFee
	if err := h.db.WithContext(c.UserContext()).First(&stored, "kecamatan = ?", req.Kecamatan).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stored})
}
