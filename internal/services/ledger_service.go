package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nulex/internal/models"
)

// LedgerService is the single entry point for balance mutations. Every
// change to a user's task or affiliate balance goes through PostTransaction,
// which pairs the mutation with exactly one transaction record inside the
// caller's database transaction.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// lockForUpdate adds SELECT ... FOR UPDATE to the query on postgres.
// SQLite (used by the service tests) serializes writers with a database-level
// lock and rejects the FOR UPDATE syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// PostTransaction applies amount (which may be negative) to the user's
// balance of the given type and records a transaction row, all within tx.
// The user row is locked first so concurrent postings for the same user
// serialize. A posting that would drive the balance negative fails with
// ErrInsufficientFunds. BalanceNone postings record the transaction without
// touching any balance.
func (s *LedgerService) PostTransaction(
	tx *gorm.DB,
	userID uint,
	kind models.TransactionKind,
	amount decimal.Decimal,
	balanceType models.BalanceType,
	description string,
	status models.TransactionStatus,
) (*models.Transaction, decimal.Decimal, error) {

	var user models.User
	if err := lockForUpdate(tx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, decimal.Zero, ErrUserNotFound
		}
		return nil, decimal.Zero, err
	}

	if user.IsBlocked {
		return nil, decimal.Zero, ErrUserNotFound
	}

	newBalance := decimal.Zero

	if balanceType != models.BalanceNone {
		column, err := balanceType.Column()
		if err != nil {
			return nil, decimal.Zero, err
		}

		newBalance = user.Balance(balanceType).Add(amount)
		if newBalance.IsNegative() {
			return nil, decimal.Zero, ErrInsufficientFunds
		}

		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update(column, newBalance).Error; err != nil {
			return nil, decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
		}
	}

	trx := models.Transaction{
		UserID:      user.ID,
		Kind:        kind,
		Amount:      amount,
		BalanceType: balanceType,
		Description: description,
		Status:      status,
	}

	if err := tx.Create(&trx).Error; err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to record transaction: %w", err)
	}

	return &trx, newBalance, nil
}

// UpdateTransactionStatus flips a ledger row's status, optionally appending
// to its description. Amount, kind and user are immutable.
func (s *LedgerService) UpdateTransactionStatus(
	tx *gorm.DB,
	transactionID uint,
	status models.TransactionStatus,
	note string,
) error {
	var trx models.Transaction
	if err := tx.First(&trx, "id = ?", transactionID).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{"status": status}
	if note != "" {
		updates["description"] = trx.Description + " - " + note
	}

	return tx.Model(&trx).Updates(updates).Error
}
