package models

import (
	"strings"

	"github.com/google/uuid"
)

// User levels.
const (
	LevelAdmin      = "admin"
	LevelKurir      = "kurir"
	LevelPenyumbang = "penyumbang"
)

// Account statuses. Penyumbang accounts start Non-Aktif until an admin verifies them.
const (
	UserAktif    = "Aktif"
	UserNonAktif = "Non-Aktif"
)

// User is any account: admin, courier or donor.
type User struct {
	BaseModel
	Nama             string    `json:"nama"`
	Email            string    `gorm:"uniqueIndex" json:"email"`
	NoHP             string    `json:"noHp"`
	PasswordHash     string    `json:"-"`
	Level            string    `gorm:"index" json:"level"`
	Status           string    `json:"status"`
	Point            int       `json:"point"`
	TotalPointMasuk  int       `gorm:"column:total_point_masuk" json:"totalpointmasuk"`
	TotalPointKeluar int       `gorm:"column:total_point_keluar" json:"totalpointkeluar"`
	Addresses        []Address `gorm:"constraint:OnDelete:CASCADE" json:"addresses,omitempty"`
}

func (User) TableName() string { return "users" }

// CanLogin reports whether the account may obtain a token.
func (u User) CanLogin() bool {
	return u.Level != LevelPenyumbang || u.Status == UserAktif
}

// Address is a saved pickup location (Alamat).
type Address struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"userId"`
	Label     string    `json:"label"`
	Detail    string    `json:"detail"`
	Kelurahan string    `json:"kelurahan"`
	Kecamatan string    `gorm:"index" json:"kecamatan"`
	Kota      string    `json:"kota"`
	KodePos   string    `json:"kodepos"`
	IsDefault bool      `json:"isDefault"`
}

func (Address) TableName() string { return "alamat" }

// Line renders the address as a single line for pickup snapshots.
func (a Address) Line() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Detail, a.Kelurahan, a.Kecamatan, a.Kota} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
