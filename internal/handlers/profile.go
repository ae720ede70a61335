package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecowatcher/backend/internal/models"
	"github.com/ecowatcher/backend/internal/services"
)

// ProfileHandler manages the caller's own account and saved addresses.
type ProfileHandler struct {
	db       *gorm.DB
	accounts *services.AccountService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB, accounts *services.AccountService) *ProfileHandler {
	return &ProfileHandler{db: db, accounts: accounts}
}

// Me returns the authenticated user.
func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}

	user, err := h.accounts.Get(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}

type updateProfileRequest struct {
	Nama string `json:"nama"`
	NoHP string `json:"noHp"`
}

// UpdateProfile updates the caller's name and phone number.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Nama != "" {
		updates["nama"] = req.Nama
	}
	if req.NoHP != "" {
		updates["no_hp"] = req.NoHP
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}
	updates["updated_at"] = time.Now()

	if err := h.db.WithContext(c.UserContext()).Model(&models.User{}).
		Where("id = ?", claims.UserID).Updates(updates).Error; err != nil {
		return err
	}

	return h.Me(c)
}

// ListAddresses returns the caller's addresses, default first.
func (h *ProfileHandler) ListAddresses(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}

	var addresses []models.Address
	if err := h.db.WithContext(c.UserContext()).
		Where("user_id = ?", claims.UserID).
		Order("is_default desc, created_at asc").
		Find(&addresses).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": addresses})
}

type addressRequest struct {
	Label     *string `json:"label"`
	Detail    *string `json:"detail"`
	Kelurahan *string `json:"kelurahan"`
	Kecamatan *string `json:"kecamatan"`
	Kota      *string `json:"kota"`
	KodePos   *string `json:"kodepos"`
	IsDefault *bool   `json:"isDefault"`
}

func (r addressRequest) updates() map[string]interface{} {
	updates := map[string]interface{}{}
	set := func(col string, v *string) {
		if v != nil {
			updates[col] = *v
		}
	}
	set("label", r.Label)
	set("detail", r.Detail)
	set("kelurahan", r.Kelurahan)
	set("kecamatan", r.Kecamatan)
	set("kota", r.Kota)
	set("kode_pos", r.KodePos)
	if r.IsDefault != nil {
		updates["is_default"] = *r.IsDefault
	}
	return updates
}

// CreateAddress saves a new pickup address for the caller.
func (h *ProfileHandler) CreateAddress(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}

	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Detail == nil || *req.Detail == "" || req.Kecamatan == nil || *req.Kecamatan == "" {
		return fiber.NewError(fiber.StatusBadRequest, "detail and kecamatan are required")
	}

	var address models.Address
	req.fill(claims.UserID, &address)
	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&address).Error; err != nil {
			return err
		}
		if address.IsDefault {
			return clearOtherDefaults(tx, claims.UserID, address.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": address})
}

func (r addressRequest) fill(userID uuid.UUID, a *models.Address) {
	a.UserID = userID
	deref := func(v *string) string {
		if v == nil {
			return ""
		}
		return *v
	}
	a.Label = deref(r.Label)
	a.Detail = deref(r.Detail)
	a.Kelurahan = deref(r.Kelurahan)
	a.Kecamatan = deref(r.Kecamatan)
	a.Kota = deref(r.Kota)
	a.KodePos = deref(r.KodePos)
	a.IsDefault = r.IsDefault != nil && *r.IsDefault
}

// UpdateAddress updates one of the caller's addresses.
func (h *ProfileHandler) UpdateAddress(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}
	addrID, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}

	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	updates := req.updates()
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}
	updates["updated_at"] = time.Now()

	var address models.Address
	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Address{}).
			Where("id = ? AND user_id = ?", addrID, claims.UserID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "address not found")
		}
		if req.IsDefault != nil && *req.IsDefault {
			if err := clearOtherDefaults(tx, claims.UserID, addrID); err != nil {
				return err
			}
		}
		return tx.First(&address, "id = ?", addrID).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": address})
}

// DeleteAddress removes one of the caller's addresses. Pickups keep their
// address snapshot.
func (h *ProfileHandler) DeleteAddress(c *fiber.Ctx) error {
	claims, err := claimsOf(c)
	if err != nil {
		return err
	}
	addrID, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}

	res := h.db.WithContext(c.UserContext()).
		Where("id = ? AND user_id = ?", addrID, claims.UserID).
		Delete(&models.Address{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "address not found")
	}

	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"id": addrID}})
}

func clearOtherDefaults(tx *gorm.DB, userID, keep uuid.UUID) error {
	return tx.Model(&models.Address{}).
		Where("user_id = ? AND id <> ?", userID, keep).
		Update("is_default", false).Error
}
