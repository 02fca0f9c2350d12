package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nulex/internal/korapay"
	"nulex/internal/models"
	"nulex/internal/utils"
)

var oneHundred = decimal.NewFromInt(100)

// WithdrawalService runs the payout pipeline: request creation (gross debit
// held pending), admin review (approve or reject with refund), and
// settlement of approved requests through the payment processor.
type WithdrawalService struct {
	db       *gorm.DB
	gateway  PaymentGateway
	ledger   *LedgerService
	settings SettingsProvider
}

func NewWithdrawalService(db *gorm.DB, gateway PaymentGateway, ledger *LedgerService, settings SettingsProvider) *WithdrawalService {
	return &WithdrawalService{db: db, gateway: gateway, ledger: ledger, settings: settings}
}

// WithdrawalRequest is what a user submits to ask for a payout
type WithdrawalRequest struct {
	Amount        decimal.Decimal    `json:"amount" binding:"required"`
	BalanceType   models.BalanceType `json:"balance_type" binding:"required"`
	BankName      string             `json:"bank_name" binding:"required"`
	BankCode      string             `json:"bank_code"`
	AccountNumber string             `json:"account_number" binding:"required"`
	AccountName   string             `json:"account_name" binding:"required"`
}

// PortalStatus returns the current gate state. No portal row means closed.
// An open_until in the past also means closed.
func (s *WithdrawalService) PortalStatus() (*models.WithdrawalPortal, bool, error) {
	return s.portalStatus(s.db)
}

func (s *WithdrawalService) portalStatus(tx *gorm.DB) (*models.WithdrawalPortal, bool, error) {
	var portal models.WithdrawalPortal
	err := tx.Order("id DESC").First(&portal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	open := portal.IsOpen
	if open && portal.OpenUntil != nil && time.Now().After(*portal.OpenUntil) {
		open = false
	}
	return &portal, open, nil
}

// UpdatePortal inserts a new portal row (latest row wins) and audits it
func (s *WithdrawalService) UpdatePortal(isOpen bool, openUntil *time.Time, notes string, adminID uint) (*models.WithdrawalPortal, error) {
	portal := models.WithdrawalPortal{
		IsOpen:    isOpen,
		OpenUntil: openUntil,
		Notes:     notes,
		UpdatedBy: &adminID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&portal).Error; err != nil {
			return err
		}
		return logAdminAction(tx, adminID, "UPDATE_WITHDRAWAL_PORTAL", "withdrawal_portal", portal.ID,
			nil, models.JSONB{"is_open": isOpen, "notes": notes})
	})

	if err != nil {
		return nil, err
	}
	return &portal, nil
}

// Create opens a withdrawal request. The portal gate, the minimum check and
// the gross debit all happen inside one transaction, so a request either
// exists with its funds held or does not exist at all.
func (s *WithdrawalService) Create(userID uint, req WithdrawalRequest) (*models.Withdrawal, error) {
	if req.BalanceType != models.BalanceTask && req.BalanceType != models.BalanceAffiliate {
		return nil, ErrInvalidBalanceType
	}
	if req.Amount.Sign() <= 0 {
		return nil, ErrBelowMinimum
	}

	var withdrawal models.Withdrawal

	err := s.db.Transaction(func(tx *gorm.DB) error {
		_, open, err := s.portalStatus(tx)
		if err != nil {
			return err
		}
		if !open {
			return ErrPortalClosed
		}

		minimum := s.settings.MinWithdrawal(req.BalanceType)
		if req.Amount.LessThan(minimum) {
			return ErrBelowMinimum
		}

		fee := req.Amount.Mul(s.settings.WithdrawalFeePercent()).Div(oneHundred)
		netAmount := req.Amount.Sub(fee).Round(2)

		trx, _, err := s.ledger.PostTransaction(tx, userID, models.KindWithdrawal,
			req.Amount.Neg(), req.BalanceType,
			fmt.Sprintf("Withdrawal to %s %s", req.BankName, req.AccountNumber),
			models.TransactionPending)
		if err != nil {
			return err
		}

		withdrawal = models.Withdrawal{
			UserID:        userID,
			Amount:        req.Amount,
			NetAmount:     netAmount,
			BalanceType:   req.BalanceType,
			BankName:      req.BankName,
			AccountNumber: req.AccountNumber,
			AccountName:   req.AccountName,
			Status:        models.WithdrawalPending,
			TransactionID: trx.ID,
		}
		return tx.Create(&withdrawal).Error
	})

	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// UpdateStatus applies an admin decision. Only pending requests move;
// approval holds the funds for settlement, rejection refunds the gross
// amount and marks the original debit failed. Rejection requires notes so
// the user learns why.
func (s *WithdrawalService) UpdateStatus(withdrawalID uuid.UUID, status models.WithdrawalStatus, adminID uint, notes string) (*models.Withdrawal, error) {
	if status != models.WithdrawalApproved && status != models.WithdrawalRejected {
		return nil, ErrInvalidTransition
	}
	if status == models.WithdrawalRejected && notes == "" {
		return nil, ErrNotesRequired
	}

	var withdrawal models.Withdrawal

	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := lockForUpdate(tx).Where("public_id = ?", withdrawalID).First(&withdrawal).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWithdrawalNotFound
			}
			return err
		}

		if withdrawal.Status.Terminal() {
			return ErrTerminalState
		}
		if withdrawal.Status != models.WithdrawalPending {
			return ErrInvalidTransition
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":       status,
			"processed_by": adminID,
			"processed_at": now,
		}
		if notes != "" {
			updates["admin_notes"] = notes
		}

		if status == models.WithdrawalRejected {
			_, _, err := s.ledger.PostTransaction(tx, withdrawal.UserID, models.KindWithdrawal,
				withdrawal.Amount, withdrawal.BalanceType,
				"Withdrawal refund: "+notes, models.TransactionCompleted)
			if err != nil {
				return err
			}
			if err := s.ledger.UpdateTransactionStatus(tx, withdrawal.TransactionID,
				models.TransactionFailed, "rejected"); err != nil {
				return err
			}
		} else {
			if err := s.ledger.UpdateTransactionStatus(tx, withdrawal.TransactionID,
				models.TransactionCompleted, ""); err != nil {
				return err
			}
		}

		if err := tx.Model(&withdrawal).Updates(updates).Error; err != nil {
			return err
		}
		withdrawal.Status = status

		return logAdminAction(tx, adminID, "REVIEW_WITHDRAWAL", "withdrawals", withdrawal.ID,
			models.JSONB{"status": string(models.WithdrawalPending)},
			models.JSONB{"status": string(status), "notes": notes})
	})

	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// Settle pays out an approved withdrawal through the processor. The
// recipient code is persisted as soon as it is created, so a crash between
// recipient registration and transfer does not lose it. A failed transfer
// leaves the withdrawal approved for retry.
func (s *WithdrawalService) Settle(ctx context.Context, withdrawalID uuid.UUID, bankCode string, adminID uint) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := s.db.Where("public_id = ?", withdrawalID).First(&withdrawal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}

	if withdrawal.Status != models.WithdrawalApproved {
		return nil, ErrNotApproved
	}

	recipientRef := withdrawal.ExternalRecipientRef
	if recipientRef == "" {
		recipientRef, err = s.gateway.CreateTransferRecipient(ctx, korapay.RecipientRequest{
			Name:          withdrawal.AccountName,
			AccountNumber: withdrawal.AccountNumber,
			BankCode:      bankCode,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
		}

		if err := s.db.Model(&withdrawal).
			Update("external_recipient_ref", recipientRef).Error; err != nil {
			return nil, err
		}
		withdrawal.ExternalRecipientRef = recipientRef
	}

	transferRef, err := utils.NewReference("TRF")
	if err != nil {
		return nil, err
	}

	transferCode, err := s.gateway.InitiateTransfer(ctx, korapay.TransferRequest{
		Amount:        withdrawal.NetAmount,
		Reference:     transferRef,
		RecipientCode: recipientRef,
		Reason:        "Balance withdrawal",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var current models.Withdrawal
		if err := lockForUpdate(tx).First(&current, "id = ?", withdrawal.ID).Error; err != nil {
			return err
		}
		// Rechecked under lock: a concurrent rejection must not be
		// overwritten after the money already moved.
		if current.Status != models.WithdrawalApproved {
			return ErrNotApproved
		}

		now := time.Now()
		if err := tx.Model(&current).Updates(map[string]interface{}{
			"status":                models.WithdrawalPaid,
			"external_transfer_ref": transferCode,
			"processed_by":          adminID,
			"processed_at":          now,
		}).Error; err != nil {
			return err
		}

		withdrawal = current
		withdrawal.Status = models.WithdrawalPaid
		withdrawal.ExternalTransferRef = transferCode

		return logAdminAction(tx, adminID, "SETTLE_WITHDRAWAL", "withdrawals", withdrawal.ID,
			models.JSONB{"status": string(models.WithdrawalApproved)},
			models.JSONB{"status": string(models.WithdrawalPaid), "transfer_ref": transferCode})
	})

	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// VerifyBankAccount resolves an account through the processor so the user
// can confirm the holder's name before requesting a payout.
func (s *WithdrawalService) VerifyBankAccount(ctx context.Context, accountNumber, bankCode string) (*korapay.BankAccount, error) {
	return s.gateway.ValidateBankAccount(ctx, accountNumber, bankCode)
}

// GetUserWithdrawals returns a user's withdrawal history, newest first
func (s *WithdrawalService) GetUserWithdrawals(userID uint) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&withdrawals).Error
	return withdrawals, err
}

// ListWithdrawals returns withdrawals for the admin surface, optionally
// filtered by status.
func (s *WithdrawalService) ListWithdrawals(status models.WithdrawalStatus, page, limit int) ([]models.Withdrawal, int64, error) {
	query := s.db.Model(&models.Withdrawal{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var withdrawals []models.Withdrawal
	if err := query.Preload("User").
		Order("created_at ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&withdrawals).Error; err != nil {
		return nil, 0, err
	}

	return withdrawals, total, nil
}
