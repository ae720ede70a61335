package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecowatcher/backend/internal/events"
	"github.com/ecowatcher/backend/internal/lifecycle"
	"github.com/ecowatcher/backend/internal/models"
)

// GetTrack returns the track log of a pickup with entries oldest first.
func (s *PickupService) GetTrack(ctx context.Context, pickupID uuid.UUID) (*models.Track, error) {
	var track models.Track
	err := s.db.WithContext(ctx).
		Preload("Statuses", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&track, "pickup_id = ?", pickupID).Error
	if err != nil {
		return nil, notFound("track for pickup", pickupID, err)
	}
	return &track, nil
}

// AppendTrack adds a courier sub-status. The new status must come strictly
// after the latest one in the fixed sequence.
func (s *PickupService) AppendTrack(ctx context.Context, pickupID uuid.UUID, status lifecycle.TrackStatus) (*models.Track, error) {
	var track models.Track
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Statuses", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
			First(&track, "pickup_id = ?", pickupID).Error; err != nil {
			return notFound("track for pickup", pickupID, err)
		}
		if err := lifecycle.CanAppendTrack(track.Latest(), status); err != nil {
			return err
		}

		entry := models.TrackEntry{TrackID: track.ID, Status: status, Timestamp: now}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append track: %w", err)
		}
		track.Statuses = append(track.Statuses, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.EventTrackAppended, pickupID.String(), events.TrackAppendedPayload{
		PickupID: pickupID.String(),
		Status:   string(status),
		At:       now,
	})
	return &track, nil
}
