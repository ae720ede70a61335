package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ecowatcher/backend/internal/models"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

type groupCount struct {
	Name  string
	Total int64
}

func countBy(db *gorm.DB, model interface{}, column string) (map[string]int64, error) {
	var rows []groupCount
	if err := db.Model(model).
		Select(column + " as name, count(*) as total").
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Total
	}
	return out, nil
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())

	usersByLevel, err := countBy(db, &models.User{}, "level")
	if err != nil {
		return err
	}

	var unverifiedUsers int64
	if err := db.Model(&models.User{}).
		Where("level = ? AND status = ?", models.LevelPenyumbang, models.UserNonAktif).
		Count(&unverifiedUsers).Error; err != nil {
		return err
	}

	pickupsByStatus, err := countBy(db, &models.Pickup{}, "status")
	if err != nil {
		return err
	}

	var unverifiedTransactions int64
	if err := db.Model(&models.Transaction{}).
		Where("status = ?", models.TransactionDiajukan).
		Count(&unverifiedTransactions).Error; err != nil {
		return err
	}

	// Points currently held by donors
	var pointsInCirculation int64
	if err := db.Model(&models.User{}).
		Select("COALESCE(SUM(point), 0)").
		Scan(&pointsInCirculation).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"usersByLevel":           usersByLevel,
			"unverifiedUsers":        unverifiedUsers,
			"pickupsByStatus":        pickupsByStatus,
			"unverifiedTransactions": unverifiedTransactions,
			"pointsInCirculation":    pointsInCirculation,
		},
	})
}

// RecentPickups returns the five newest pickups for the dashboard.
func (h *AdminHandler) RecentPickups(c *fiber.Ctx) error {
	var pickups []models.Pickup
	if err := h.db.WithContext(c.UserContext()).
		Preload("Items").Preload("User").
		Order("created_at desc").
		Limit(5).
		Find(&pickups).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": pickups})
}
