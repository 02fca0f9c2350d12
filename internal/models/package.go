package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus is the settlement state of a package purchase
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Terminal reports whether the status can no longer change
func (s PaymentStatus) Terminal() bool {
	return s == PaymentSuccess || s == PaymentFailed
}

// Package is a tier purchase record. It transitions pending -> success|failed
// exactly once; reconciliation after a terminal state is a no-op.
type Package struct {
	ID                uint            `gorm:"primaryKey" json:"-"`
	PublicID          uuid.UUID       `gorm:"type:uuid;uniqueIndex" json:"id"`
	UserID            uint            `gorm:"not null;index" json:"user_id"`
	User              *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PackageType       PackageTier     `gorm:"size:20;not null" json:"package_type"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentReference  string          `gorm:"size:100;uniqueIndex;not null" json:"payment_reference"`
	ExternalReference string          `gorm:"size:100;uniqueIndex" json:"external_reference"`
	PaymentStatus     PaymentStatus   `gorm:"size:20;default:pending;index" json:"payment_status"`
	VerifiedAt        *time.Time      `json:"verified_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Package model
func (Package) TableName() string {
	return "packages"
}

func (p *Package) BeforeCreate(tx *gorm.DB) error {
	if p.PublicID == uuid.Nil {
		p.PublicID = uuid.New()
	}
	return nil
}
