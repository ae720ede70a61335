package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ecowatcher/backend/internal/events"
	"github.com/ecowatcher/backend/internal/lifecycle"
	"github.com/ecowatcher/backend/internal/models"
	"github.com/ecowatcher/backend/internal/utils"
)

// SettlementResult reports the outcome of a settlement request.
type SettlementResult struct {
	PickupID       uuid.UUID `json:"pickupId"`
	Total          int       `json:"total"`
	Credited       int       `json:"credited"`
	AlreadySettled bool      `json:"alreadySettled"`
}

// Settle credits the points of a completed pickup to its owner.
//
// The pointsAdded flag is flipped with a guarded update in the same
// transaction as the credit, so a repeated or concurrent call finds the flag
// already set and credits nothing.
func (s *PickupService) Settle(ctx context.Context, pickupID uuid.UUID, caller utils.Claims) (*SettlementResult, error) {
	result := &SettlementResult{PickupID: pickupID}
	var p models.Pickup

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&p, "id = ?", pickupID).Error; err != nil {
			return notFound("pickup", pickupID, err)
		}
		if caller.Level == models.LevelPenyumbang && p.UserID != caller.UserID {
			return ErrForbidden
		}
		if p.Status != lifecycle.StatusSelesai {
			return ErrNotCompleted
		}

		result.Total = lifecycle.SettlementTotal(p.SettlementLines(), p.PickUpFee)

		res := tx.Model(&models.Pickup{}).
			Where("id = ? AND points_added = ?", pickupID, false).
			Updates(map[string]interface{}{"points_added": true, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			result.AlreadySettled = true
			return nil
		}
		p.PointsAdded = true

		if result.Total <= 0 {
			return nil
		}
		if err := creditUser(tx, p.UserID, result.Total); err != nil {
			return err
		}
		result.Credited = result.Total
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadySettled {
		return result, nil
	}

	s.log.WithFields(logrus.Fields{
		"pickup_id": pickupID,
		"user_id":   p.UserID,
		"credited":  result.Credited,
	}).Info("pickup settled")
	s.cacheStatus(ctx, &p)
	s.events.Publish(ctx, events.EventPointsSettled, pickupID.String(), events.PointsSettledPayload{
		PickupID: pickupID.String(),
		UserID:   p.UserID.String(),
		Points:   result.Credited,
	})
	return result, nil
}

// CreditForPickup credits the settlement total of the caller's completed
// pickup without touching pointsAdded. It backs the older two-request client
// flow (credit, then MarkPointsAdded); points must equal the settlement total.
func (s *PickupService) CreditForPickup(ctx context.Context, pickupID uuid.UUID, caller utils.Claims, points int) error {
	if points <= 0 {
		return fmt.Errorf("%w: points must be positive", ErrInvalidInput)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Pickup
		if err := tx.Preload("Items").First(&p, "id = ?", pickupID).Error; err != nil {
			return notFound("pickup", pickupID, err)
		}
		if p.UserID != caller.UserID {
			return ErrForbidden
		}
		if p.Status != lifecycle.StatusSelesai {
			return ErrNotCompleted
		}
		if p.PointsAdded {
			return ErrAlreadySettled
		}
		if total := lifecycle.SettlementTotal(p.SettlementLines(), p.PickUpFee); points != total {
			return fmt.Errorf("%w: point must equal the pickup total %d", ErrInvalidInput, total)
		}
		return creditUser(tx, p.UserID, points)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"pickup_id": pickupID, "user_id": caller.UserID, "credited": points}).
		Info("pickup points credited")
	return nil
}

// MarkPointsAdded sets the flag on a completed pickup without crediting. It
// backs the older two-request client flow and is idempotent.
func (s *PickupService) MarkPointsAdded(ctx context.Context, pickupID uuid.UUID, caller utils.Claims) error {
	var p models.Pickup
	if err := s.db.WithContext(ctx).Select("id", "user_id", "status").First(&p, "id = ?", pickupID).Error; err != nil {
		return notFound("pickup", pickupID, err)
	}
	if caller.Level == models.LevelPenyumbang && p.UserID != caller.UserID {
		return ErrForbidden
	}

	res := s.db.WithContext(ctx).Model(&models.Pickup{}).
		Where("id = ? AND status = ?", pickupID, lifecycle.StatusSelesai).
		Update("points_added", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotCompleted
	}
	if err := s.cache.Delete(ctx, pickupID.String()); err != nil {
		s.log.WithError(err).Warn("status cache delete failed")
	}
	return nil
}

func creditUser(tx *gorm.DB, userID uuid.UUID, points int) error {
	res := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"point":             gorm.Expr("point + ?", points),
		"total_point_masuk": gorm.Expr("total_point_masuk + ?", points),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("user", userID, gorm.ErrRecordNotFound)
	}
	return nil
}
