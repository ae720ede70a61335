package models

import "github.com/google/uuid"

// Voucher exchange statuses.
const (
	TransactionDiajukan = "Diajukan"
	TransactionSelesai  = "Selesai"
)

// Transaction is a points-for-cash voucher exchange (tukar poin).
type Transaction struct {
	BaseModel
	UserID        uuid.UUID `gorm:"type:uuid;index" json:"userId"`
	User          *User     `json:"user,omitempty"`
	Nominal       int64     `json:"nominal"`
	PointUsed     int       `json:"pointUsed"`
	Status        string    `gorm:"index" json:"status"`
	BankName      string    `json:"bankName"`
	AccountNumber string    `json:"accountNumber"`
	AccountHolder string    `json:"accountHolder"`
}

func (Transaction) TableName() string { return "transactions" }
