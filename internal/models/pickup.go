package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecowatcher/backend/internal/lifecycle"
)

// Pickup is a waste collection request (penyetoran).
type Pickup struct {
	BaseModel
	UserID      uuid.UUID        `gorm:"type:uuid;index" json:"userId"`
	User        *User            `json:"user,omitempty"`
	Items       []PickupItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	AddressID   *uuid.UUID       `gorm:"type:uuid" json:"addressId"`
	Address     string           `json:"address"`
	Kecamatan   string           `json:"kecamatan"`
	Photos      []string         `gorm:"serializer:json;type:text" json:"photos"`
	Status      lifecycle.Status `gorm:"index" json:"status"`
	QueueNumber int              `json:"queueNumber"`
	PickUpDate  time.Time        `gorm:"index" json:"pickUpDate"`
	PickUpTime  string           `json:"pickUpTime"`
	PickUpFee   int              `json:"pickUpFee"`
	PointsAdded bool             `json:"pointsAdded"`
	Track       *Track           `json:"track,omitempty"`
}

func (Pickup) TableName() string { return "penyetoran" }

// SettlementLines maps the items onto settlement arithmetic.
func (p Pickup) SettlementLines() []lifecycle.Line {
	lines := make([]lifecycle.Line, 0, len(p.Items))
	for _, it := range p.Items {
		lines = append(lines, lifecycle.Line{Points: it.Points, Quantity: it.Quantity})
	}
	return lines
}

// PickupItem is one catalog entry inside a pickup, with the weighed quantity.
type PickupItem struct {
	BaseModel
	PickupID uuid.UUID `gorm:"type:uuid;index" json:"-"`
	ItemID   uuid.UUID `gorm:"type:uuid" json:"itemId"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Points   int       `json:"points"`
	Quantity int       `json:"quantity"`
	Image    string    `json:"image"`
}

func (PickupItem) TableName() string { return "penyetoran_items" }

// Track is the courier progress log of one pickup.
type Track struct {
	BaseModel
	PickupID    uuid.UUID    `gorm:"type:uuid;uniqueIndex" json:"pickupId"`
	QueueNumber int          `json:"queueNumber"`
	Statuses    []TrackEntry `gorm:"constraint:OnDelete:CASCADE" json:"statuses"`
}

func (Track) TableName() string { return "track" }

// Latest returns the most recent sub-status, or "" for an empty log.
func (t Track) Latest() lifecycle.TrackStatus {
	if len(t.Statuses) == 0 {
		return ""
	}
	return t.Statuses[len(t.Statuses)-1].Status
}

// TrackEntry is an appended {status, timestamp} tuple.
type TrackEntry struct {
	ID        uint                  `gorm:"primaryKey" json:"-"`
	TrackID   uuid.UUID             `gorm:"type:uuid;index" json:"-"`
	Status    lifecycle.TrackStatus `json:"status"`
	Timestamp time.Time             `json:"timestamp"`
}

func (TrackEntry) TableName() string { return "track_statuses" }
