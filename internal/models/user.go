package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PackageTier is the package a user has purchased
type PackageTier string

const (
	TierNone   PackageTier = "none"
	TierKnight PackageTier = "knight"
	TierElite  PackageTier = "elite"
)

// Valid reports whether the tier is one of the purchasable packages
func (t PackageTier) Valid() bool {
	return t == TierKnight || t == TierElite
}

// User represents a platform member
type User struct {
	ID                  uint            `gorm:"primaryKey" json:"-"`
	PublicID            uuid.UUID       `gorm:"type:uuid;uniqueIndex" json:"id"`
	Username            string          `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email               string          `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone               string          `gorm:"size:20;not null" json:"phone"`
	PasswordHash        string          `gorm:"size:255;not null" json:"-"`
	PackageType         PackageTier     `gorm:"size:20;default:none" json:"package_type"`
	TaskBalance         decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"task_balance"`
	AffiliateBalance    decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"affiliate_balance"`
	WelcomeBonusClaimed bool            `gorm:"default:false" json:"welcome_bonus_claimed"`
	ReferrerID          *uint           `gorm:"index" json:"referrer_id,omitempty"`
	Referrer            *User           `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"`
	IsAdmin             bool            `gorm:"default:false" json:"is_admin"`
	IsBlocked           bool            `gorm:"default:false" json:"is_blocked"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.PublicID == uuid.Nil {
		u.PublicID = uuid.New()
	}
	return nil
}

// Balance returns the named balance pool
func (u *User) Balance(bt BalanceType) decimal.Decimal {
	if bt == BalanceAffiliate {
		return u.AffiliateBalance
	}
	return u.TaskBalance
}
