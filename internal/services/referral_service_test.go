package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nulex/internal/models"
)

func activate(t *testing.T, db *gorm.DB, svc *ReferralService, buyer *models.User, tier models.PackageTier) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.ProcessPackageActivation(tx, buyer, tier)
	})
	if err != nil {
		t.Fatalf("ProcessPackageActivation failed: %v", err)
	}
}

func TestCommissionMatrix(t *testing.T) {
	cases := []struct {
		name     string
		referrer models.PackageTier
		referred models.PackageTier
		want     int64
	}{
		{"elite refers elite", models.TierElite, models.TierElite, 3500},
		{"elite refers knight", models.TierElite, models.TierKnight, 1500},
		{"knight refers elite", models.TierKnight, models.TierElite, 1500},
		{"knight refers knight", models.TierKnight, models.TierKnight, 1500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := setupTestDB(t)
			ledger := NewLedgerService(db)
			svc := NewReferralService(db, ledger, newFixedSettings())

			referrer := createTestUser(t, db, "referrer")
			db.Model(referrer).Update("package_type", tc.referrer)
			buyer := createTestUser(t, db, "buyer")
			db.Model(buyer).Update("referrer_id", referrer.ID)
			buyer.ReferrerID = &referrer.ID

			activate(t, db, svc, buyer, tc.referred)

			var fresh models.User
			db.First(&fresh, referrer.ID)
			if !fresh.AffiliateBalance.Equal(decimal.NewFromInt(tc.want)) {
				t.Errorf("expected commission %d, got %s", tc.want, fresh.AffiliateBalance)
			}
		})
	}
}

func TestNoCommissionForPackagelessReferrer(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewReferralService(db, ledger, newFixedSettings())

	referrer := createTestUser(t, db, "referrer")
	buyer := createTestUser(t, db, "buyer")
	db.Model(buyer).Update("referrer_id", referrer.ID)
	buyer.ReferrerID = &referrer.ID

	activate(t, db, svc, buyer, models.TierKnight)

	var fresh models.User
	db.First(&fresh, referrer.ID)
	if !fresh.AffiliateBalance.IsZero() {
		t.Errorf("referrer without a package must earn nothing, got %s", fresh.AffiliateBalance)
	}

	var count int64
	db.Model(&models.Referral{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no referral row, got %d", count)
	}
}

func TestCommissionPaidOncePerReferredUser(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewReferralService(db, ledger, newFixedSettings())

	referrer := createTestUser(t, db, "referrer")
	db.Model(referrer).Update("package_type", models.TierElite)
	buyer := createTestUser(t, db, "buyer")
	db.Model(buyer).Update("referrer_id", referrer.ID)
	buyer.ReferrerID = &referrer.ID

	activate(t, db, svc, buyer, models.TierKnight)
	// The buyer later upgrades; no second commission
	activate(t, db, svc, buyer, models.TierElite)

	var fresh models.User
	db.First(&fresh, referrer.ID)
	if !fresh.AffiliateBalance.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected a single 1500 commission, got %s", fresh.AffiliateBalance)
	}
}

func TestBlockedReferrerDoesNotFailActivation(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewReferralService(db, ledger, newFixedSettings())

	referrer := createTestUser(t, db, "referrer")
	db.Model(referrer).Updates(map[string]interface{}{
		"package_type": models.TierElite,
		"is_blocked":   true,
	})
	buyer := createTestUser(t, db, "buyer")
	db.Model(buyer).Update("referrer_id", referrer.ID)
	buyer.ReferrerID = &referrer.ID

	// Must not error: the buyer's activation takes priority
	activate(t, db, svc, buyer, models.TierKnight)

	var fresh models.User
	db.First(&fresh, referrer.ID)
	if !fresh.AffiliateBalance.IsZero() {
		t.Errorf("blocked referrer must not be paid, got %s", fresh.AffiliateBalance)
	}
}

func TestGetReferralStats(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewReferralService(db, ledger, newFixedSettings())

	referrer := createTestUser(t, db, "referrer")
	db.Model(referrer).Update("package_type", models.TierElite)

	for i, tier := range []models.PackageTier{models.TierKnight, models.TierElite} {
		buyer := createTestUser(t, db, "buyer"+string(rune('a'+i)))
		db.Model(buyer).Update("referrer_id", referrer.ID)
		buyer.ReferrerID = &referrer.ID
		activate(t, db, svc, buyer, tier)
	}

	stats, err := svc.GetReferralStats(referrer.ID)
	if err != nil {
		t.Fatalf("GetReferralStats failed: %v", err)
	}
	if stats.TotalReferrals != 2 {
		t.Errorf("expected 2 referrals, got %d", stats.TotalReferrals)
	}
	// 1500 + 3500
	if !stats.TotalCommission.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected total commission 5000, got %s", stats.TotalCommission)
	}

	empty, err := svc.GetReferralStats(999)
	if err != nil {
		t.Fatalf("GetReferralStats failed: %v", err)
	}
	if empty.TotalReferrals != 0 || !empty.TotalCommission.IsZero() {
		t.Errorf("expected empty stats, got %+v", empty)
	}
}
