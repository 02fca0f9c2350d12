package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nulex/internal/models"
)

func TestPostTransactionCreditAndDebit(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "alice")

	err := db.Transaction(func(tx *gorm.DB) error {
		_, balance, err := ledger.PostTransaction(tx, user.ID, models.KindTaskEarning,
			decimal.NewFromInt(500), models.BalanceTask, "earning", models.TransactionCompleted)
		if err != nil {
			return err
		}
		if !balance.Equal(decimal.NewFromInt(500)) {
			t.Errorf("expected balance 500, got %s", balance)
		}

		_, balance, err = ledger.PostTransaction(tx, user.ID, models.KindWithdrawal,
			decimal.NewFromInt(-200), models.BalanceTask, "debit", models.TransactionPending)
		if err != nil {
			return err
		}
		if !balance.Equal(decimal.NewFromInt(300)) {
			t.Errorf("expected balance 300, got %s", balance)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("PostTransaction failed: %v", err)
	}

	var fresh models.User
	db.First(&fresh, user.ID)
	if !fresh.TaskBalance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected persisted task balance 300, got %s", fresh.TaskBalance)
	}

	var count int64
	db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 transaction rows, got %d", count)
	}
}

func TestPostTransactionInsufficientFunds(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "bob")

	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, err := ledger.PostTransaction(tx, user.ID, models.KindWithdrawal,
			decimal.NewFromInt(-100), models.BalanceAffiliate, "overdraw", models.TransactionPending)
		return err
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// The rollback must leave no transaction row behind
	var count int64
	db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Errorf("expected 0 transaction rows after rollback, got %d", count)
	}
}

func TestPostTransactionBlockedUser(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "carol")
	db.Model(user).Update("is_blocked", true)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, err := ledger.PostTransaction(tx, user.ID, models.KindTaskEarning,
			decimal.NewFromInt(100), models.BalanceTask, "earning", models.TransactionCompleted)
		return err
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for blocked user, got %v", err)
	}
}

func TestPostTransactionNoneBalance(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "dave")

	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, err := ledger.PostTransaction(tx, user.ID, models.KindPackagePurchase,
			decimal.NewFromInt(4500), models.BalanceNone, "purchase", models.TransactionCompleted)
		return err
	})
	if err != nil {
		t.Fatalf("PostTransaction failed: %v", err)
	}

	var fresh models.User
	db.First(&fresh, user.ID)
	if !fresh.TaskBalance.IsZero() || !fresh.AffiliateBalance.IsZero() {
		t.Errorf("none-balance posting must not touch balances, got task=%s affiliate=%s",
			fresh.TaskBalance, fresh.AffiliateBalance)
	}

	var trx models.Transaction
	if err := db.Where("user_id = ?", user.ID).First(&trx).Error; err != nil {
		t.Fatalf("expected a transaction row: %v", err)
	}
	if trx.BalanceType != models.BalanceNone {
		t.Errorf("expected balance type none, got %s", trx.BalanceType)
	}
}

func TestUpdateTransactionStatus(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	user := createTestUser(t, db, "erin")

	var trxID uint
	err := db.Transaction(func(tx *gorm.DB) error {
		trx, _, err := ledger.PostTransaction(tx, user.ID, models.KindTaskEarning,
			decimal.NewFromInt(100), models.BalanceTask, "earning", models.TransactionPending)
		if err != nil {
			return err
		}
		trxID = trx.ID
		return nil
	})
	if err != nil {
		t.Fatalf("PostTransaction failed: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return ledger.UpdateTransactionStatus(tx, trxID, models.TransactionFailed, "rejected")
	})
	if err != nil {
		t.Fatalf("UpdateTransactionStatus failed: %v", err)
	}

	var trx models.Transaction
	db.First(&trx, trxID)
	if trx.Status != models.TransactionFailed {
		t.Errorf("expected status failed, got %s", trx.Status)
	}
	if trx.Description != "earning - rejected" {
		t.Errorf("expected annotated description, got %q", trx.Description)
	}
	if !trx.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("amount must be immutable, got %s", trx.Amount)
	}
}
