package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BalanceType selects which of the user's two balance pools a transaction
// touches. BalanceNone is for informational records with no balance effect.
type BalanceType string

const (
	BalanceTask      BalanceType = "task"
	BalanceAffiliate BalanceType = "affiliate"
	BalanceNone      BalanceType = "none"
)

// Column maps the balance type to its users table column. Only the two real
// pools have a column; callers must not ask for BalanceNone.
func (bt BalanceType) Column() (string, error) {
	switch bt {
	case BalanceTask:
		return "task_balance", nil
	case BalanceAffiliate:
		return "affiliate_balance", nil
	default:
		return "", fmt.Errorf("balance type %q has no balance column", bt)
	}
}

// TransactionKind classifies ledger entries
type TransactionKind string

const (
	KindTaskEarning     TransactionKind = "task_earning"
	KindReferral        TransactionKind = "referral"
	KindWithdrawal      TransactionKind = "withdrawal"
	KindPackagePurchase TransactionKind = "package_purchase"
	KindWelcomeBonus    TransactionKind = "welcome_bonus"
)

// TransactionStatus is the settlement state of a ledger entry
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is an append-only ledger record. Amount, kind and user are
// immutable once written; only status and description may change afterwards
// (withdrawal pending -> completed/failed).
type Transaction struct {
	ID          uint              `gorm:"primaryKey" json:"-"`
	PublicID    uuid.UUID         `gorm:"type:uuid;uniqueIndex" json:"id"`
	UserID      uint              `gorm:"not null;index" json:"user_id"`
	User        *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Kind        TransactionKind   `gorm:"size:50;not null;index" json:"type"`
	Amount      decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	BalanceType BalanceType       `gorm:"size:20;not null" json:"balance_type"`
	Description string            `gorm:"type:text" json:"description"`
	Status      TransactionStatus `gorm:"size:20;default:pending;index" json:"status"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.PublicID == uuid.Nil {
		t.PublicID = uuid.New()
	}
	return nil
}
