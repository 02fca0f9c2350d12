package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Referral records a commission paid to a referrer for a referred user's
// first successful package purchase. The unique index on ReferredID is what
// makes commission crediting idempotent per referred user.
type Referral struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ReferrerID       uint            `gorm:"not null;index" json:"referrer_id"`
	Referrer         *User           `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"`
	ReferredID       uint            `gorm:"not null;uniqueIndex" json:"referred_id"`
	Referred         *User           `gorm:"foreignKey:ReferredID" json:"referred,omitempty"`
	PackageType      PackageTier     `gorm:"size:20;not null" json:"package_type"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"commission_amount"`
	Status           string          `gorm:"size:20;default:completed" json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TableName specifies the table name for Referral model
func (Referral) TableName() string {
	return "referrals"
}
