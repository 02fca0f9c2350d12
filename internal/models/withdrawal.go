package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawalStatus is the payout state of a withdrawal request.
// pending -> approved -> paid, or pending -> rejected. paid and rejected
// are terminal.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalPaid     WithdrawalStatus = "paid"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// Terminal reports whether the status can no longer change
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalPaid || s == WithdrawalRejected
}

// Withdrawal is a user request to pay out part of a balance to a bank
// account. The gross amount is debited at creation; NetAmount (after the
// processing fee) is what gets transferred on settlement.
type Withdrawal struct {
	ID                   uint             `gorm:"primaryKey" json:"-"`
	PublicID             uuid.UUID        `gorm:"type:uuid;uniqueIndex" json:"id"`
	UserID               uint             `gorm:"not null;index" json:"user_id"`
	User                 *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount               decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"amount"`
	NetAmount            decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"net_amount"`
	BalanceType          BalanceType      `gorm:"size:20;not null" json:"balance_type"`
	BankName             string           `gorm:"size:100;not null" json:"bank_name"`
	AccountNumber        string           `gorm:"size:20;not null" json:"account_number"`
	AccountName          string           `gorm:"size:100;not null" json:"account_name"`
	Status               WithdrawalStatus `gorm:"size:20;default:pending;index" json:"status"`
	TransactionID        uint             `gorm:"not null" json:"transaction_id"`
	Transaction          *Transaction     `gorm:"foreignKey:TransactionID" json:"transaction,omitempty"`
	ExternalRecipientRef string           `gorm:"size:100" json:"external_recipient_ref,omitempty"`
	ExternalTransferRef  string           `gorm:"size:100" json:"external_transfer_ref,omitempty"`
	AdminNotes           string           `gorm:"type:text" json:"admin_notes,omitempty"`
	ProcessedBy          *uint            `json:"processed_by,omitempty"`
	ProcessedAt          *time.Time       `json:"processed_at,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// TableName specifies the table name for Withdrawal model
func (Withdrawal) TableName() string {
	return "withdrawals"
}

func (w *Withdrawal) BeforeCreate(tx *gorm.DB) error {
	if w.PublicID == uuid.Nil {
		w.PublicID = uuid.New()
	}
	return nil
}

// WithdrawalPortal gates creation of new withdrawal requests. A new row is
// inserted on every toggle; the latest row wins.
type WithdrawalPortal struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	IsOpen    bool       `gorm:"default:false" json:"is_open"`
	OpenUntil *time.Time `json:"open_until,omitempty"`
	Notes     string     `gorm:"type:text" json:"notes"`
	UpdatedBy *uint      `json:"updated_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// TableName specifies the table name for WithdrawalPortal model
func (WithdrawalPortal) TableName() string {
	return "withdrawal_portal"
}
