package services

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nulex/internal/models"
)

func TestGetProfile(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	referrals := NewReferralService(db, ledger, newFixedSettings())
	svc := NewUserService(db, referrals, "http://localhost:3000")

	user := createTestUser(t, db, "member")

	profile, err := svc.GetProfile(user.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.User.Username != "member" {
		t.Errorf("unexpected user %s", profile.User.Username)
	}
	if !strings.HasSuffix(profile.ReferralLink, "/register?ref=member") {
		t.Errorf("unexpected referral link %s", profile.ReferralLink)
	}
	if profile.Referrals.TotalReferrals != 0 {
		t.Errorf("expected no referrals, got %d", profile.Referrals.TotalReferrals)
	}
}

func TestGetTransactionsFilteredByKind(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	referrals := NewReferralService(db, ledger, newFixedSettings())
	svc := NewUserService(db, referrals, "http://localhost:3000")

	user := createTestUser(t, db, "member")

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, kind := range []models.TransactionKind{
			models.KindTaskEarning, models.KindTaskEarning, models.KindReferral,
		} {
			bt := models.BalanceTask
			if kind == models.KindReferral {
				bt = models.BalanceAffiliate
			}
			_, _, err := ledger.PostTransaction(tx, user.ID, kind,
				decimal.NewFromInt(100), bt, "seed", models.TransactionCompleted)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	all, total, err := svc.GetTransactions(user.ID, "", 1, 10)
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("expected 3 transactions, got total=%d len=%d", total, len(all))
	}

	earnings, total, err := svc.GetTransactions(user.ID, models.KindTaskEarning, 1, 10)
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if total != 2 || len(earnings) != 2 {
		t.Errorf("expected 2 task earnings, got total=%d len=%d", total, len(earnings))
	}
}
