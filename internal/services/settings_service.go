package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nulex/internal/models"
)

// SettingsProvider supplies the tunable amounts the ledger-facing services
// depend on. It is injected at construction so tests can swap in fixed
// values.
type SettingsProvider interface {
	// PackagePrice returns the configured price for a tier; it fails when
	// the tier is unknown or no price row exists.
	PackagePrice(tier models.PackageTier) (decimal.Decimal, error)
	// WelcomeBonus is the one-time affiliate credit on first activation.
	WelcomeBonus() decimal.Decimal
	// CommissionFor is the flat referral commission by referrer and
	// referred tier; zero means no commission.
	CommissionFor(referrer, referred models.PackageTier) decimal.Decimal
	// MinWithdrawal is the minimum withdrawal amount per balance pool.
	MinWithdrawal(bt models.BalanceType) decimal.Decimal
	// WithdrawalFeePercent is the processing fee percentage.
	WithdrawalFeePercent() decimal.Decimal
}

// Hardcoded fallbacks used when a system_settings row is absent
var (
	defaultWelcomeBonus           = decimal.NewFromInt(1000)
	defaultKnightCommission       = decimal.NewFromInt(1500)
	defaultEliteCommission        = decimal.NewFromInt(3500)
	defaultAffiliateMinWithdrawal = decimal.NewFromInt(1000)
	defaultTaskMinWithdrawal      = decimal.NewFromInt(15000)
	defaultWithdrawalFeePercent   = decimal.NewFromFloat(1.5)
)

// SettingsService reads system_settings at call time; values are never
// cached so admin updates take effect immediately.
type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

func (s *SettingsService) lookup(key string) (string, bool) {
	var setting models.SystemSetting
	err := s.db.Where("setting_key = ?", key).First(&setting).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Settings lookup failed for %s: %v", key, err)
		}
		return "", false
	}
	return setting.SettingValue, true
}

func (s *SettingsService) decimalSetting(key string, fallback decimal.Decimal) decimal.Decimal {
	raw, ok := s.lookup(key)
	if !ok {
		return fallback
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		log.Printf("Settings: invalid decimal for %s: %q", key, raw)
		return fallback
	}
	return value
}

// PackagePrice has no fallback: selling a tier without a configured price
// is a configuration error, not a default.
func (s *SettingsService) PackagePrice(tier models.PackageTier) (decimal.Decimal, error) {
	if !tier.Valid() {
		return decimal.Zero, ErrInvalidPackageType
	}

	raw, ok := s.lookup(fmt.Sprintf("%s_package_price", tier))
	if !ok {
		return decimal.Zero, ErrPriceNotConfigured
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid price %q", ErrPriceNotConfigured, raw)
	}
	return price, nil
}

func (s *SettingsService) WelcomeBonus() decimal.Decimal {
	return s.decimalSetting("welcome_bonus_amount", defaultWelcomeBonus)
}

func (s *SettingsService) CommissionFor(referrer, referred models.PackageTier) decimal.Decimal {
	switch referrer {
	case models.TierElite:
		if referred == models.TierElite {
			return s.decimalSetting("elite_referral_commission", defaultEliteCommission)
		}
		return s.decimalSetting("knight_referral_commission", defaultKnightCommission)
	case models.TierKnight:
		return s.decimalSetting("knight_referral_commission", defaultKnightCommission)
	default:
		return decimal.Zero
	}
}

func (s *SettingsService) MinWithdrawal(bt models.BalanceType) decimal.Decimal {
	if bt == models.BalanceAffiliate {
		return s.decimalSetting("affiliate_min_withdrawal", defaultAffiliateMinWithdrawal)
	}
	return s.decimalSetting("task_min_withdrawal", defaultTaskMinWithdrawal)
}

func (s *SettingsService) WithdrawalFeePercent() decimal.Decimal {
	return s.decimalSetting("withdrawal_processing_fee", defaultWithdrawalFeePercent)
}

// GetAll returns every settings row for the admin surface
func (s *SettingsService) GetAll() ([]models.SystemSetting, error) {
	var settings []models.SystemSetting
	if err := s.db.Order("setting_key").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// Update upserts a settings row and records the change in the audit log
func (s *SettingsService) Update(key, value, description string, adminID uint) (*models.SystemSetting, error) {
	var setting models.SystemSetting

	err := s.db.Transaction(func(tx *gorm.DB) error {
		old := models.JSONB{}

		result := tx.Where("setting_key = ?", key).First(&setting)
		if result.Error != nil {
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return result.Error
			}
			setting = models.SystemSetting{SettingKey: key}
		} else {
			old["setting_value"] = setting.SettingValue
		}

		setting.SettingValue = value
		if description != "" {
			setting.Description = description
		}

		if err := tx.Save(&setting).Error; err != nil {
			return fmt.Errorf("failed to save setting: %w", err)
		}

		return logAdminAction(tx, adminID, "UPDATE_SETTING", "system_settings", setting.ID,
			old, models.JSONB{"setting_key": key, "setting_value": value})
	})

	if err != nil {
		return nil, err
	}
	return &setting, nil
}
