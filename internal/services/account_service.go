package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ecowatcher/backend/internal/logger"
	"github.com/ecowatcher/backend/internal/models"
	"github.com/ecowatcher/backend/internal/utils"
)

// AccountService manages users: registration, login, couriers, verification
// and point balance.
type AccountService struct {
	db        *gorm.DB
	jwtSecret string
	tokenTTL  time.Duration
	mailer    AccountMailer
	log       *logrus.Entry
}

// NewAccountService constructs AccountService.
func NewAccountService(db *gorm.DB, jwtSecret string, tokenTTL time.Duration) *AccountService {
	return &AccountService{
		db:        db,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       logger.WithComponent("account"),
	}
}

// SetMailer enables verification emails.
func (s *AccountService) SetMailer(m AccountMailer) {
	s.mailer = m
}

// RegisterInput creates a donor or courier account.
type RegisterInput struct {
	Nama     string `json:"nama" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	NoHP     string `json:"noHp"`
	Password string `json:"password" validate:"required,min=6"`
}

// Register creates a penyumbang account awaiting admin verification.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in, models.LevelPenyumbang, models.UserNonAktif)
}

// AddCourier creates an active kurir account.
func (s *AccountService) AddCourier(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in, models.LevelKurir, models.UserAktif)
}

func (s *AccountService) create(ctx context.Context, in RegisterInput, level, status string) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := utils.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var existing models.User
	err := s.db.WithContext(ctx).Select("id").Where("email = ?", in.Email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Nama:         in.Nama,
		Email:        in.Email,
		NoHP:         in.NoHP,
		PasswordHash: hash,
		Level:        level,
		Status:       status,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "level": level}).Info("account created")
	return &user, nil
}

// Login checks credentials and returns the user with a signed token.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	if !user.CanLogin() {
		return nil, "", ErrAccountInactive
	}

	token, err := utils.GenerateToken(s.jwtSecret, user.ID, user.Level, s.tokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}
	return &user, token, nil
}

// Get returns a user by id.
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound("user", id, err)
	}
	return &user, nil
}

// UserFilter narrows user listings.
type UserFilter struct {
	Level  string
	Status string
	Search string
	Offset int
	Limit  int
}

// ListUsers returns non-admin users.
func (s *AccountService) ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).Where("level <> ?", models.LevelAdmin)
	if f.Level != "" {
		query = query.Where("level = ?", f.Level)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where("LOWER(nama) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	var users []models.User
	if err := query.Order("created_at desc").Limit(f.Limit).Offset(f.Offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Verify activates an account. Only the status field changes, so repeating
// the call is harmless.
func (s *AccountService) Verify(ctx context.Context, id uuid.UUID) (*models.User, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("status", models.UserAktif)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	s.log.WithField("user_id", id).Info("account verified")

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.mailer != nil && before.Status != models.UserAktif {
		go func(u models.User) {
			if err := s.mailer.NotifyVerified(u); err != nil {
				s.log.WithError(err).WithField("user_id", u.ID).Warn("verification mail failed")
			}
		}(*user)
	}
	return user, nil
}
