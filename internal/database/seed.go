package database

import (
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ecowatcher/backend/internal/models"
	"github.com/ecowatcher/backend/internal/utils"
)

// SeedAdmin creates the bootstrap admin account when no user holds email.
// An empty password disables seeding.
func SeedAdmin(conn *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	var existing models.User
	err := conn.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		Nama:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Level:        models.LevelAdmin,
		Status:       models.UserAktif,
	}
	if err := conn.Create(&admin).Error; err != nil {
		return err
	}

	logrus.WithField("email", email).Info("seeded admin account")
	return nil
}
