package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ecowatcher/backend/internal/events"
	"github.com/ecowatcher/backend/internal/logger"
	"github.com/ecowatcher/backend/internal/models"
	"github.com/ecowatcher/backend/internal/utils"
)

// ExchangeService handles point-for-cash voucher exchanges (tukar poin).
type ExchangeService struct {
	db       *gorm.DB
	events   events.Publisher
	notifier Notifier
	log      *logrus.Entry
}

// NewExchangeService constructs ExchangeService.
func NewExchangeService(db *gorm.DB, publisher events.Publisher, notifier Notifier) *ExchangeService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ExchangeService{
		db:       db,
		events:   publisher,
		notifier: notifier,
		log:      logger.WithComponent("exchange"),
	}
}

// ExchangeInput is a voucher exchange request.
type ExchangeInput struct {
	Nominal       int64  `json:"nominal" validate:"gt=0"`
	PointUsed     int    `json:"pointUsed" validate:"gt=0"`
	BankName      string `json:"bankName" validate:"required"`
	AccountNumber string `json:"accountNumber" validate:"required,numeric"`
	AccountHolder string `json:"accountHolder" validate:"required"`
}

// Submit debits pointUsed from the user and records a Diajukan transaction.
// The debit is conditional on the balance, so the balance never goes negative.
func (s *ExchangeService) Submit(ctx context.Context, userID uuid.UUID, in ExchangeInput) (*models.Transaction, error) {
	if err := utils.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var trx models.Transaction
	var user models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "nama").First(&user, "id = ?", userID).Error; err != nil {
			return notFound("user", userID, err)
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND point >= ?", userID, in.PointUsed).
			Updates(map[string]interface{}{
				"point":              gorm.Expr("point - ?", in.PointUsed),
				"total_point_keluar": gorm.Expr("total_point_keluar + ?", in.PointUsed),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientPoints
		}

		trx = models.Transaction{
			UserID:        userID,
			Nominal:       in.Nominal,
			PointUsed:     in.PointUsed,
			Status:        models.TransactionDiajukan,
			BankName:      in.BankName,
			AccountNumber: in.AccountNumber,
			AccountHolder: in.AccountHolder,
		}
		return tx.Create(&trx).Error
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.EventExchangeSubmitted, userID.String(), events.ExchangeSubmittedPayload{
		TransactionID: trx.ID.String(),
		UserID:        userID.String(),
		Nominal:       trx.Nominal,
		PointUsed:     trx.PointUsed,
	})
	if s.notifier != nil {
		go func(n ExchangeNotification) {
			if err := s.notifier.NotifyExchangeRequest(n); err != nil {
				s.log.WithError(err).WithField("transaction_id", n.TransactionID).Warn("exchange notification failed")
			}
		}(ExchangeNotification{
			TransactionID: trx.ID.String(),
			UserName:      user.Nama,
			Nominal:       trx.Nominal,
			PointUsed:     trx.PointUsed,
			BankName:      trx.BankName,
		})
	}

	return &trx, nil
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	UserID *uuid.UUID
	Status string
	Offset int
	Limit  int
}

// List returns transactions with their users, newest first.
func (s *ExchangeService) List(ctx context.Context, f TransactionFilter) ([]models.Transaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{})
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	var items []models.Transaction
	if err := query.Preload("User").Order("created_at desc").
		Limit(f.Limit).Offset(f.Offset).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CountUnverified returns how many exchanges await an admin.
func (s *ExchangeService) CountUnverified(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("status = ?", models.TransactionDiajukan).Count(&n).Error
	return n, err
}

// UpdateStatus completes a pending exchange. Diajukan -> Selesai is the only
// accepted move.
func (s *ExchangeService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Transaction, error) {
	if status != models.TransactionSelesai {
		return nil, fmt.Errorf("%w: status must be %s", ErrInvalidInput, models.TransactionSelesai)
	}

	var trx models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&trx, "id = ?", id).Error; err != nil {
			return notFound("transaction", id, err)
		}
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", id, models.TransactionDiajukan).
			Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTransactionClosed
		}
		trx.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &trx, nil
}
