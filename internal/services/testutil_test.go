package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nulex/internal/korapay"
	"nulex/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.SystemSetting{},
		&models.Task{},
		&models.UserTask{},
		&models.Package{},
		&models.Referral{},
		&models.Withdrawal{},
		&models.WithdrawalPortal{},
		&models.AdminLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	// Shared in-memory DB persists across connections; start clean
	for _, table := range []string{
		"admin_logs", "withdrawal_portal", "withdrawals", "referrals",
		"packages", "user_tasks", "tasks", "system_settings", "transactions", "users",
	} {
		db.Exec("DELETE FROM " + table)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		Phone:        "08012345678",
		PasswordHash: "x",
		PackageType:  models.TierNone,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return &user
}

// fixedSettings is a SettingsProvider with deterministic values
type fixedSettings struct {
	prices map[models.PackageTier]decimal.Decimal
}

func newFixedSettings() *fixedSettings {
	return &fixedSettings{
		prices: map[models.PackageTier]decimal.Decimal{
			models.TierKnight: decimal.NewFromInt(4500),
			models.TierElite:  decimal.NewFromInt(7500),
		},
	}
}

func (f *fixedSettings) PackagePrice(tier models.PackageTier) (decimal.Decimal, error) {
	price, ok := f.prices[tier]
	if !ok {
		return decimal.Zero, ErrPriceNotConfigured
	}
	return price, nil
}

func (f *fixedSettings) WelcomeBonus() decimal.Decimal {
	return decimal.NewFromInt(1000)
}

func (f *fixedSettings) CommissionFor(referrer, referred models.PackageTier) decimal.Decimal {
	switch referrer {
	case models.TierElite:
		if referred == models.TierElite {
			return decimal.NewFromInt(3500)
		}
		return decimal.NewFromInt(1500)
	case models.TierKnight:
		return decimal.NewFromInt(1500)
	default:
		return decimal.Zero
	}
}

func (f *fixedSettings) MinWithdrawal(bt models.BalanceType) decimal.Decimal {
	if bt == models.BalanceAffiliate {
		return decimal.NewFromInt(1000)
	}
	return decimal.NewFromInt(15000)
}

func (f *fixedSettings) WithdrawalFeePercent() decimal.Decimal {
	return decimal.NewFromFloat(1.5)
}

// stubGateway is a PaymentGateway whose calls are canned
type stubGateway struct {
	chargeStatus  string
	chargeErr     error
	transferErr   error
	charges       int
	transfers     int
	recipients    int
	lastReference string
}

func (g *stubGateway) CreateCharge(ctx context.Context, req korapay.ChargeRequest) (*korapay.Charge, error) {
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	g.charges++
	g.lastReference = req.Reference
	return &korapay.Charge{
		Reference:   "ext-" + req.Reference,
		CheckoutURL: "https://checkout.example.com/" + req.Reference,
		Status:      "processing",
	}, nil
}

func (g *stubGateway) GetCharge(ctx context.Context, reference string) (*korapay.Charge, error) {
	status := g.chargeStatus
	if status == "" {
		status = "success"
	}
	return &korapay.Charge{Reference: reference, Status: status}, nil
}

func (g *stubGateway) ValidateBankAccount(ctx context.Context, accountNumber, bankCode string) (*korapay.BankAccount, error) {
	return &korapay.BankAccount{
		AccountName:   "Test Account",
		AccountNumber: accountNumber,
		BankName:      "Test Bank",
	}, nil
}

func (g *stubGateway) CreateTransferRecipient(ctx context.Context, req korapay.RecipientRequest) (string, error) {
	g.recipients++
	return fmt.Sprintf("RCP-%d", g.recipients), nil
}

func (g *stubGateway) InitiateTransfer(ctx context.Context, req korapay.TransferRequest) (string, error) {
	if g.transferErr != nil {
		return "", g.transferErr
	}
	g.transfers++
	return fmt.Sprintf("TRF-CODE-%d", g.transfers), nil
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}
