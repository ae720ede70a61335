package models

import (
	"time"

	"github.com/google/uuid"
)

// CatalogItem is a selectable waste type (katalog).
type CatalogItem struct {
	BaseModel
	Name     string `json:"name"`
	Category string `gorm:"index" json:"category"`
	Points   int    `json:"points"`
	Unit     string `json:"unit"`
	Image    string `json:"image"`
}

func (CatalogItem) TableName() string { return "katalog" }

// PickupFee is the pickup charge, in points, for one kecamatan.
type PickupFee struct {
	BaseModel
	Kecamatan string `gorm:"uniqueIndex" json:"kecamatan"`
	Fee       int    `json:"fee"`
}

func (PickupFee) TableName() string { return "biaya_penjemputan" }

// Campaign is a community clean-up event announced in the app.
type Campaign struct {
	BaseModel
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Location    string    `json:"location"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;index" json:"createdBy"`
}

func (Campaign) TableName() string { return "campaigns" }
