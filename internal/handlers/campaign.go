package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ecowatcher/backend/internal/models"
	"github.com/ecowatcher/backend/internal/services"
	"github.com/ecowatcher/backend/internal/utils"
)

// CampaignHandler manages community clean-up campaigns.
type CampaignHandler struct {
	db *gorm.DB
}

// NewCampaignHandler constructs CampaignHandler.
func NewCampaignHandler(db *gorm.DB) *CampaignHandler {
	return &CampaignHandler{db: db}
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Campaign{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var items []models.Campaign
	if err := query.Order("start_date desc").Limit(pg.Limit).Offset(pg.Offset).Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items, "pagination": pg.Meta(total)})
}

type campaignRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Image       string    `json:"image" validate:"omitempty,url"`
	Location    string    `json:"location"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}
	var req campaignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validate(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	item := models.Campaign{
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		Location:    req.Location,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedBy:   claims.UserID,
	}
	if err := h.db.WithContext(c.UserContext()).Create(&item).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

func (h *CampaignHandler) UpdateCampaign(c *fiber.Ctx) error {
	item, err := h.editable(c)
	if err != nil {
		return err
	}
	var req campaignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.Validate(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	item.Title = req.Title
	item.Description = req.Description
	item.Image = req.Image
	item.Location = req.Location
	item.StartDate = req.StartDate
	item.EndDate = req.EndDate
	if err := h.db.WithContext(c.UserContext()).Save(item).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": item})
}

func (h *CampaignHandler) DeleteCampaign(c *fiber.Ctx) error {
	item, err := h.editable(c)
	if err != nil {
		return err
	}
	if err := h.db.WithContext(c.UserContext()).Delete(&models.Campaign{}, "id = ?", item.ID).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"id": item.ID}})
}

// editable loads the campaign in the path if the caller created it or is an admin.
func (h *CampaignHandler) editable(c *fiber.Ctx) (*models.Campaign, error) {
	claims, err := claimsOf(c)
	if err != nil {
		return nil, err
	}
	id, err := parseID(c.Params("id"))
	if err != nil {
		return nil, err
	}

	var item models.Campaign
	if err := h.db.WithContext(c.UserContext()).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "campaign not found")
		}
		return nil, err
	}
	if claims.Level != models.LevelAdmin && item.CreatedBy != claims.UserID {
		return nil, services.ErrForbidden
	}
	return &item, nil
}
