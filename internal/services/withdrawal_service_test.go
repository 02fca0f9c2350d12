package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nulex/internal/models"
)

func newWithdrawalTestEnv(t *testing.T) (*gorm.DB, *WithdrawalService, *LedgerService, *stubGateway) {
	db := setupTestDB(t)
	gateway := &stubGateway{}
	ledger := NewLedgerService(db)
	svc := NewWithdrawalService(db, gateway, ledger, newFixedSettings())
	return db, svc, ledger, gateway
}

func fundUser(t *testing.T, db *gorm.DB, ledger *LedgerService, userID uint, bt models.BalanceType, amount int64) {
	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, err := ledger.PostTransaction(tx, userID, models.KindTaskEarning,
			decimal.NewFromInt(amount), bt, "seed", models.TransactionCompleted)
		return err
	})
	if err != nil {
		t.Fatalf("failed to fund user: %v", err)
	}
}

func openPortal(t *testing.T, svc *WithdrawalService, adminID uint) {
	if _, err := svc.UpdatePortal(true, nil, "", adminID); err != nil {
		t.Fatalf("failed to open portal: %v", err)
	}
}

func standardRequest(amount int64, bt models.BalanceType) WithdrawalRequest {
	return WithdrawalRequest{
		Amount:        decimal.NewFromInt(amount),
		BalanceType:   bt,
		BankName:      "GTBank",
		AccountNumber: "0123456789",
		AccountName:   "Test Account",
	}
}

func TestCreateWithdrawalPortalClosed(t *testing.T) {
	db, svc, ledger, _ := newWithdrawalTestEnv(t)
	user := createTestUser(t, db, "saver")
	fundUser(t, db, ledger, user.ID, models.BalanceTask, 20000)

	// No portal row at all means closed
	_, err := svc.Create(user.ID, standardRequest(15000, models.BalanceTask))
	if !errors.Is(err, ErrPortalClosed) {
		t.Fatalf("expected ErrPortalClosed, got %v", err)
	}

	// An expired open window also means closed
	admin := createTestUser(t, db, "admin")
	past := time.Now().Add(-time.Hour)
	if _, err := svc.UpdatePortal(true, &past, "", admin.ID); err != nil {
		t.Fatalf("UpdatePortal failed: %v", err)
	}
	_, err = svc.Create(user.ID, standardRequest(15000, models.BalanceTask))
	if !errors.Is(err, ErrPortalClosed) {
		t.Fatalf("expected ErrPortalClosed for expired window, got %v", err)
	}
}

func TestCreateWithdrawalBelowMinimum(t *testing.T) {
	db, svc, ledger, _ := newWithdrawalTestEnv(t)
	user := createTestUser(t, db, "saver")
	admin := createTestUser(t, db, "admin")
	fundUser(t, db, ledger, user.ID, models.BalanceTask, 20000)
	openPortal(t, svc, admin.ID)

	_, err := svc.Create(user.ID, standardRequest(14999, models.BalanceTask))
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}

	// Affiliate pool has its own, lower minimum
	fundUser(t, db, ledger, user.ID, models.BalanceAffiliate, 2000)
	if _, err := svc.Create(user.ID, standardRequest(1000, models.BalanceAffiliate)); err != nil {
		t.Fatalf("affiliate withdrawal at minimum should pass, got %v", err)
	}
}

func TestCreateWithdrawalFeeAndHold(t *testing.T) {
	db, svc, ledger, _ := newWithdrawalTestEnv(t)
	user := createTestUser(t, db, "saver")
	admin := createTestUser(t, db, "admin")
	fundUser(t, db, ledger, user.ID, models.BalanceTask, 20000)
	openPortal(t, svc, admin.ID)

	withdrawal, err := svc.Create(user.ID, standardRequest(10000, models.BalanceAffiliate))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds on empty pool, got %v", err)
	}

	withdrawal, err = svc.Create(user.ID, standardRequest(15000, models.BalanceTask))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// 1.5% of 15000 is 225, net 14775
	if !withdrawal.NetAmount.Equal(mustDecimal(t, "14775")) {
		t.Errorf("expected net amount 14775, got %s", withdrawal.NetAmount)
	}
	if withdrawal.Status != models.WithdrawalPending {
		t.Errorf("expected pending status, got %s", withdrawal.Status)
	}

	// The gross amount is held immediately
	var fresh models.User
	db.First(&fresh, user.ID)
	if !fresh.TaskBalance.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected task balance 5000 after hold, got %s", fresh.TaskBalance)
	}

	var trx models.Transaction
	db.First(&trx, withdrawal.TransactionID)
	if trx.Status != models.TransactionPending {
		t.Errorf("expected pending debit transaction, got %s", trx.Status)
	}
	if !trx.Amount.Equal(decimal.NewFromInt(-15000)) {
		t.Errorf("expected debit of -15000, got %s", trx.Amount)
	}
}

func TestWithdrawalNetAmountRounding(t *testing.T) {
	db, svc, ledger, _ := newWithdrawalTestEnv(t)
	user := createTestUser(t, db, "saver")
	admin := createTestUser(t, db, "admin")
	fundUser(t, db, ledger, user.ID, models.BalanceAffiliate, 10000)
	openPortal(t, svc, admin.ID)

	withdrawal, err := svc.Create(user.ID, standardRequest(10000, models.BalanceAffiliate))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !withdrawal.NetAmount.Equal(mustDecimal(t, "9850")) {
		t.Errorf("expected net amount 9850 for 10000 at 1.5%%, got %s", withdrawal.NetAmount)
	}
}

func TestRejectWithdrawalRefunds(t *testing.T) {
	db, svc, ledger, _ := newWithdrawalTestEnv(t)
	user := createTestUser(t, db, "saver")
	admin := createTestUser(t, db, "admin")
	fundUser(t, db, ledger, user.ID, models.BalanceAffiliate, 10000)
	openPortal(t, svc, admin.ID)

	withdrawal, err := svc.Create(user.ID, standardRequest(10000, models.BalanceAffiliate))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Rejection without notes is refused
	_, err = svc.UpdateStatus(withdrawal.PublicID, models.WithdrawalRejected, admin.ID, "")
	if !errors.Is(err, ErrNotesRequired) {
		t.Fatalf("expected ErrNotesRequired, got %v", err)
	}

	rejected, err := svc.UpdateStatus(withdrawal.PublicID, models.WithdrawalRejected, admin.ID, "account name mismatch")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if rejected.Status != models.WithdrawalRejected {
		t.Errorf("expected rejected status, got %s", rejected.Status)
	}

	// The full gross amount comes back
	var fresh models.User
	db.First(&fresh, user.ID)
	if !fresh.AffiliateBalance.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("expected balance restored to 10000, got %s", fresh.AffiliateBalance)
	}

	// The original debit is marked failed
	var trx models.Transaction
	db.First(&trx, withdrawal.TransactionID)
	if trx.Status != models.TransactionFailed {
		t.Errorf("expected original debit failed, got %s", trx.Status)
	}

	// A terminal withdrawal cannot move again
	_, err = svc.UpdateStatus(withdrawal.PublicID, models.WithdrawalApproved, admin.ID, "")
	if !errors.Is(err, ErrTerminalState) {
		t.Fatalf("expected ErrTerminalState, got %v", err)
	}
}

func TestApproveAndSettleWithdrawal(t *testing.T) {
	db, svc, ledger, gateway := newWithdrawalTestEnv(t)
	user := createTestUser(t, db, "saver")
	admin := createTestUser(t, db, "admin")
	fundUser(t, db, ledger, user.ID, models.BalanceTask, 20000)
	openPortal(t, svc, admin.ID)

	withdrawal, err := svc.Create(user.ID, standardRequest(15000, models.BalanceTask))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Settlement before approval is refused
	_, err = svc.Settle(context.Background(), withdrawal.PublicID, "058", admin.ID)
	if !errors.Is(err, ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved, got %v", err)
	}

	approved, err := svc.UpdateStatus(withdrawal.PublicID, models.WithdrawalApproved, admin.ID, "")
	if err != nil {
		t.Fatalf("approval failed: %v", err)
	}
	if approved.Status != models.WithdrawalApproved {
		t.Errorf("expected approved status, got %s", approved.Status)
	}

	var trx models.Transaction
	db.First(&trx, withdrawal.TransactionID)
	if trx.Status != models.TransactionCompleted {
		t.Errorf("approval should complete the debit, got %s", trx.Status)
	}

	paid, err := svc.Settle(context.Background(), withdrawal.PublicID, "058", admin.ID)
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if paid.Status != models.WithdrawalPaid {
		t.Errorf("expected paid status, got %s", paid.Status)
	}
	if paid.ExternalRecipientRef == "" || paid.ExternalTransferRef == "" {
		t.Error("expected processor references to be recorded")
	}
	if gateway.transfers != 1 {
		t.Errorf("expected 1 transfer, got %d", gateway.transfers)
	}

	// Balance stays debited
	var fresh models.User
	db.First(&fresh, user.ID)
	if !fresh.TaskBalance.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected task balance 5000 after payout, got %s", fresh.TaskBalance)
	}

	// Settling again is refused
	_, err = svc.Settle(context.Background(), withdrawal.PublicID, "058", admin.ID)
	if !errors.Is(err, ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved on repeat settle, got %v", err)
	}
}

func TestSettleTransferFailureLeavesApproved(t *testing.T) {
	db, svc, ledger, gateway := newWithdrawalTestEnv(t)
	user := createTestUser(t, db, "saver")
	admin := createTestUser(t, db, "admin")
	fundUser(t, db, ledger, user.ID, models.BalanceTask, 20000)
	openPortal(t, svc, admin.ID)

	withdrawal, err := svc.Create(user.ID, standardRequest(15000, models.BalanceTask))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.UpdateStatus(withdrawal.PublicID, models.WithdrawalApproved, admin.ID, ""); err != nil {
		t.Fatalf("approval failed: %v", err)
	}

	gateway.transferErr = errors.New("processor timeout")
	_, err = svc.Settle(context.Background(), withdrawal.PublicID, "058", admin.ID)
	if !errors.Is(err, ErrSettlementFailed) {
		t.Fatalf("expected ErrSettlementFailed, got %v", err)
	}

	// The withdrawal stays approved, the recipient code is kept for retry
	var fresh models.Withdrawal
	db.First(&fresh, withdrawal.ID)
	if fresh.Status != models.WithdrawalApproved {
		t.Errorf("expected approved status after failed transfer, got %s", fresh.Status)
	}
	if fresh.ExternalRecipientRef == "" {
		t.Error("expected recipient code persisted for retry")
	}

	// Retry succeeds without registering a second recipient
	gateway.transferErr = nil
	paid, err := svc.Settle(context.Background(), withdrawal.PublicID, "058", admin.ID)
	if err != nil {
		t.Fatalf("retry Settle failed: %v", err)
	}
	if paid.Status != models.WithdrawalPaid {
		t.Errorf("expected paid status, got %s", paid.Status)
	}
	if gateway.recipients != 1 {
		t.Errorf("expected 1 recipient registration, got %d", gateway.recipients)
	}
}

func TestPortalLatestRowWins(t *testing.T) {
	db, svc, _, _ := newWithdrawalTestEnv(t)
	admin := createTestUser(t, db, "admin")

	if _, err := svc.UpdatePortal(true, nil, "open for the weekend", admin.ID); err != nil {
		t.Fatalf("UpdatePortal failed: %v", err)
	}
	_, open, err := svc.PortalStatus()
	if err != nil || !open {
		t.Fatalf("expected portal open, got open=%v err=%v", open, err)
	}

	if _, err := svc.UpdatePortal(false, nil, "closed again", admin.ID); err != nil {
		t.Fatalf("UpdatePortal failed: %v", err)
	}
	portal, open, err := svc.PortalStatus()
	if err != nil || open {
		t.Fatalf("expected portal closed, got open=%v err=%v", open, err)
	}
	if portal.Notes != "closed again" {
		t.Errorf("expected latest row's notes, got %q", portal.Notes)
	}
}
