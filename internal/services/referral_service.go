package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nulex/internal/models"
)

// ReferralService disburses referral commissions when a referred user's
// package purchase is confirmed.
type ReferralService struct {
	db       *gorm.DB
	ledger   *LedgerService
	settings SettingsProvider
}

func NewReferralService(db *gorm.DB, ledger *LedgerService, settings SettingsProvider) *ReferralService {
	return &ReferralService{
		db:       db,
		ledger:   ledger,
		settings: settings,
	}
}

// ProcessPackageActivation credits the buyer's referrer, if any, inside tx.
// A user earns at most one referral commission ever (unique referred_id), so
// replaying the same activation event is a no-op. Referrers without a
// package earn nothing.
func (s *ReferralService) ProcessPackageActivation(tx *gorm.DB, buyer *models.User, tier models.PackageTier) error {
	if buyer.ReferrerID == nil {
		return nil
	}

	// Retry of the same activation: the referral row already exists.
	var existing models.Referral
	err := tx.Where("referred_id = ?", buyer.ID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var referrer models.User
	if err := tx.First(&referrer, "id = ?", *buyer.ReferrerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	commission := s.settings.CommissionFor(referrer.PackageType, tier)
	if commission.IsZero() {
		return nil
	}

	description := fmt.Sprintf("Referral commission for %s", buyer.Username)
	_, _, err = s.ledger.PostTransaction(tx, referrer.ID, models.KindReferral,
		commission, models.BalanceAffiliate, description, models.TransactionCompleted)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Blocked referrers forfeit the commission; the buyer's
			// activation must still go through.
			log.Printf("Referral: skipping commission for blocked referrer %d", referrer.ID)
			return nil
		}
		return err
	}

	referral := models.Referral{
		ReferrerID:       referrer.ID,
		ReferredID:       buyer.ID,
		PackageType:      tier,
		CommissionAmount: commission,
		Status:           "completed",
	}

	if err := tx.Create(&referral).Error; err != nil {
		return fmt.Errorf("failed to create referral: %w", err)
	}

	log.Printf("Referral commission %s credited to user %d for referred user %d",
		commission, referrer.ID, buyer.ID)
	return nil
}

// ReferralStats aggregates a user's referral earnings
type ReferralStats struct {
	TotalReferrals  int64           `json:"total_referrals"`
	TotalCommission decimal.Decimal `json:"total_commission"`
}

// GetReferralStats returns referral statistics for a user
func (s *ReferralService) GetReferralStats(userID uint) (*ReferralStats, error) {
	stats := &ReferralStats{TotalCommission: decimal.Zero}

	if err := s.db.Model(&models.Referral{}).Where("referrer_id = ?", userID).
		Count(&stats.TotalReferrals).Error; err != nil {
		return nil, err
	}

	var total decimal.NullDecimal
	row := s.db.Model(&models.Referral{}).Where("referrer_id = ?", userID).
		Select("SUM(commission_amount)").Row()
	if err := row.Scan(&total); err == nil && total.Valid {
		stats.TotalCommission = total.Decimal
	}

	return stats, nil
}

// GetUserReferrals returns all referrals made by a user
func (s *ReferralService) GetUserReferrals(userID uint) ([]models.Referral, error) {
	var referrals []models.Referral
	if err := s.db.Where("referrer_id = ?", userID).
		Preload("Referred").Order("created_at DESC").Find(&referrals).Error; err != nil {
		return nil, err
	}
	return referrals, nil
}
