package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ecowatcher/backend/internal/cache"
	"github.com/ecowatcher/backend/internal/events"
	"github.com/ecowatcher/backend/internal/lifecycle"
	"github.com/ecowatcher/backend/internal/logger"
	"github.com/ecowatcher/backend/internal/models"
	"github.com/ecowatcher/backend/internal/utils"
)

// PickupService owns the pickup lifecycle: submission, status gate, track
// log, quantity edits and point settlement.
type PickupService struct {
	db         *gorm.DB
	events     events.Publisher
	cache      cache.StatusCache
	notifier   Notifier
	defaultFee int
	log        *logrus.Entry
}

// PickupDeps bundles the optional collaborators of PickupService.
type PickupDeps struct {
	Events     events.Publisher
	Cache      cache.StatusCache
	Notifier   Notifier
	DefaultFee int
}

// NewPickupService constructs PickupService. Nil collaborators are replaced
// with no-op implementations.
func NewPickupService(db *gorm.DB, deps PickupDeps) *PickupService {
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Cache == nil {
		deps.Cache = cache.Noop{}
	}
	return &PickupService{
		db:         db,
		events:     deps.Events,
		cache:      deps.Cache,
		notifier:   deps.Notifier,
		defaultFee: deps.DefaultFee,
		log:        logger.WithComponent("pickup"),
	}
}

// ItemInput selects a catalog item and a declared quantity.
type ItemInput struct {
	ItemID   uuid.UUID `json:"itemId" validate:"required"`
	Quantity int       `json:"quantity" validate:"gte=1"`
}

// SubmitInput is a new pickup request.
type SubmitInput struct {
	AddressID  uuid.UUID   `json:"addressId" validate:"required"`
	PickUpDate time.Time   `json:"pickUpDate" validate:"required"`
	PickUpTime string      `json:"pickUpTime"`
	Items      []ItemInput `json:"items" validate:"required,min=1,dive"`
	Photos     []string    `json:"photos" validate:"dive,url"`
}

// Submit stores a new Pending pickup for userID.
func (s *PickupService) Submit(ctx context.Context, userID uuid.UUID, in SubmitInput) (*models.Pickup, error) {
	if err := utils.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	date := truncateDay(in.PickUpDate)
	var pickup models.Pickup
	var user models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return notFound("user", userID, err)
		}

		var address models.Address
		if err := tx.First(&address, "id = ? AND user_id = ?", in.AddressID, userID).Error; err != nil {
			return notFound("address", in.AddressID, err)
		}

		ids := make([]uuid.UUID, 0, len(in.Items))
		for _, it := range in.Items {
			ids = append(ids, it.ItemID)
		}
		var catalog []models.CatalogItem
		if err := tx.Where("id IN ?", ids).Find(&catalog).Error; err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.CatalogItem, len(catalog))
		for _, c := range catalog {
			byID[c.ID] = c
		}

		items := make([]models.PickupItem, 0, len(in.Items))
		for _, it := range in.Items {
			c, ok := byID[it.ItemID]
			if !ok {
				return fmt.Errorf("catalog item %s: %w", it.ItemID, ErrNotFound)
			}
			items = append(items, models.PickupItem{
				ItemID:   c.ID,
				Name:     c.Name,
				Type:     c.Category,
				Points:   c.Points,
				Quantity: it.Quantity,
				Image:    c.Image,
			})
		}

		fee, err := s.feeFor(tx, address.Kecamatan)
		if err != nil {
			return err
		}

		var scheduled int64
		if err := tx.Model(&models.Pickup{}).Where("pick_up_date = ?", date).Count(&scheduled).Error; err != nil {
			return err
		}

		addressID := address.ID
		pickup = models.Pickup{
			UserID:      userID,
			Items:       items,
			AddressID:   &addressID,
			Address:     address.Line(),
			Kecamatan:   address.Kecamatan,
			Photos:      in.Photos,
			Status:      lifecycle.StatusPending,
			QueueNumber: int(scheduled) + 1,
			PickUpDate:  date,
			PickUpTime:  in.PickUpTime,
			PickUpFee:   fee,
		}
		if pickup.Photos == nil {
			pickup.Photos = []string{}
		}
		return tx.Create(&pickup).Error
	})
	if err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, &pickup)
	s.events.Publish(ctx, events.EventPickupSubmitted, pickup.ID.String(), events.PickupSubmittedPayload{
		PickupID:    pickup.ID.String(),
		UserID:      userID.String(),
		QueueNumber: pickup.QueueNumber,
		PickUpDate:  pickup.PickUpDate,
		ItemCount:   len(pickup.Items),
	})
	if s.notifier != nil {
		go s.notifyNewPickup(pickup, user.Nama)
	}

	return &pickup, nil
}

func (s *PickupService) notifyNewPickup(p models.Pickup, userName string) {
	items := make([]PickupItemNotification, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, PickupItemNotification{Name: it.Name, Quantity: it.Quantity, Points: it.Points})
	}
	err := s.notifier.NotifyNewPickup(PickupNotification{
		PickupID:    p.ID.String(),
		QueueNumber: p.QueueNumber,
		UserName:    userName,
		Address:     p.Address,
		PickUpDate:  p.PickUpDate,
		PickUpTime:  p.PickUpTime,
		Items:       items,
	})
	if err != nil {
		s.log.WithError(err).WithField("pickup_id", p.ID).Warn("new pickup notification failed")
	}
}

func (s *PickupService) feeFor(tx *gorm.DB, kecamatan string) (int, error) {
	if kecamatan == "" {
		return s.defaultFee, nil
	}
	var fee models.PickupFee
	err := tx.Where("LOWER(kecamatan) = LOWER(?)", kecamatan).First(&fee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.defaultFee, nil
	}
	if err != nil {
		return 0, err
	}
	return fee.Fee, nil
}

// ListFilter narrows pickup listings.
type ListFilter struct {
	Status lifecycle.Status
	UserID *uuid.UUID
	Offset int
	Limit  int
}

// List returns pickups joined with their user, newest first.
func (s *PickupService) List(ctx context.Context, f ListFilter) ([]models.Pickup, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Pickup{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	var pickups []models.Pickup
	if err := query.Preload("Items").Preload("User").
		Order("created_at desc").
		Limit(f.Limit).Offset(f.Offset).
		Find(&pickups).Error; err != nil {
		return nil, 0, err
	}
	return pickups, total, nil
}

// Get loads one pickup with its items, user and track.
func (s *PickupService) Get(ctx context.Context, id uuid.UUID) (*models.Pickup, error) {
	var p models.Pickup
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Preload("Track").
		Preload("Track.Statuses", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, notFound("pickup", id, err)
	}
	return &p, nil
}

// Status returns the current status, from cache when available.
func (s *PickupService) Status(ctx context.Context, id uuid.UUID) (cache.StatusSnapshot, error) {
	if snap, err := s.cache.Get(ctx, id.String()); err == nil {
		return snap, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.WithError(err).Warn("status cache read failed")
	}

	var p models.Pickup
	if err := s.db.WithContext(ctx).Select("id", "status", "points_added", "updated_at").
		First(&p, "id = ?", id).Error; err != nil {
		return cache.StatusSnapshot{}, notFound("pickup", id, err)
	}
	s.cacheStatus(ctx, &p)
	return snapshotOf(&p), nil
}

// UpdateStatus moves a pickup through the gate. Entering Dijemput from
// Pending also opens the track log. The update is conditional on the status
// read, so two couriers racing cannot skip a step.
func (s *PickupService) UpdateStatus(ctx context.Context, id uuid.UUID, to lifecycle.Status) (*models.Pickup, error) {
	var p models.Pickup
	var from lifecycle.Status

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return notFound("pickup", id, err)
		}
		from = p.Status
		if err := lifecycle.CanTransition(from, to); err != nil {
			return err
		}

		res := tx.Model(&models.Pickup{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}
		p.Status = to

		if lifecycle.CreatesTrack(from, to) {
			track := models.Track{PickupID: p.ID, QueueNumber: p.QueueNumber}
			if err := tx.Create(&track).Error; err != nil {
				return fmt.Errorf("create track: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"pickup_id": id, "from": from, "to": to}).Info("pickup status changed")
	s.cacheStatus(ctx, &p)
	s.events.Publish(ctx, events.EventPickupStatusChanged, id.String(), events.PickupStatusChangedPayload{
		PickupID: id.String(),
		From:     string(from),
		To:       string(to),
	})
	return &p, nil
}

// Cancel moves a Pending pickup to Dibatalkan. Donors may cancel only their
// own pickups.
func (s *PickupService) Cancel(ctx context.Context, id uuid.UUID, caller utils.Claims) (*models.Pickup, error) {
	if err := s.Authorize(ctx, id, caller); err != nil {
		return nil, err
	}
	return s.UpdateStatus(ctx, id, lifecycle.StatusDibatalkan)
}

// UpdateQuantity sets the weighed quantity of one item. Only allowed while
// the pickup is Ditimbang.
func (s *PickupService) UpdateQuantity(ctx context.Context, pickupID, itemID uuid.UUID, quantity int) (*models.Pickup, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Pickup
		if err := tx.Select("id", "status").First(&p, "id = ?", pickupID).Error; err != nil {
			return notFound("pickup", pickupID, err)
		}
		if p.Status != lifecycle.StatusDitimbang {
			return ErrNotEditable
		}

		res := tx.Model(&models.PickupItem{}).
			Where("pickup_id = ? AND item_id = ?", pickupID, itemID).
			Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("item %s in pickup %s: %w", itemID, pickupID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, pickupID)
}

// Delete removes a pickup together with its items and track log.
func (s *PickupService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var track models.Track
		err := tx.Select("id").First(&track, "pickup_id = ?", id).Error
		switch {
		case err == nil:
			if err := tx.Where("track_id = ?", track.ID).Delete(&models.TrackEntry{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Track{}, "id = ?", track.ID).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := tx.Where("pickup_id = ?", id).Delete(&models.PickupItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Pickup{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("pickup %s: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, id.String()); err != nil {
		s.log.WithError(err).Warn("status cache delete failed")
	}
	return nil
}

// Authorize rejects a donor reaching for a pickup they do not own. Staff
// levels pass.
func (s *PickupService) Authorize(ctx context.Context, pickupID uuid.UUID, caller utils.Claims) error {
	if caller.Level != models.LevelPenyumbang {
		return nil
	}
	return s.ensureOwner(ctx, pickupID, caller.UserID)
}

func (s *PickupService) ensureOwner(ctx context.Context, pickupID, userID uuid.UUID) error {
	var p models.Pickup
	if err := s.db.WithContext(ctx).Select("id", "user_id").First(&p, "id = ?", pickupID).Error; err != nil {
		return notFound("pickup", pickupID, err)
	}
	if p.UserID != userID {
		return ErrForbidden
	}
	return nil
}

func (s *PickupService) cacheStatus(ctx context.Context, p *models.Pickup) {
	if err := s.cache.Set(ctx, p.ID.String(), snapshotOf(p)); err != nil {
		s.log.WithError(err).Warn("status cache write failed")
	}
}

func snapshotOf(p *models.Pickup) cache.StatusSnapshot {
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return cache.StatusSnapshot{Status: string(p.Status), PointsAdded: p.PointsAdded, UpdatedAt: updated}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func notFound(kind string, id uuid.UUID, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return err
}
