package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"nulex/internal/korapay"
	"nulex/internal/models"
	"nulex/internal/utils"
)

// PaymentGateway is the slice of the payment processor the services use.
// *korapay.Client satisfies it; tests substitute a stub.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, req korapay.ChargeRequest) (*korapay.Charge, error)
	GetCharge(ctx context.Context, reference string) (*korapay.Charge, error)
	ValidateBankAccount(ctx context.Context, accountNumber, bankCode string) (*korapay.BankAccount, error)
	CreateTransferRecipient(ctx context.Context, req korapay.RecipientRequest) (string, error)
	InitiateTransfer(ctx context.Context, req korapay.TransferRequest) (string, error)
}

// PaymentService handles package purchases: charge creation, settlement
// reconciliation, and the activation cascade (tier, welcome bonus, referral
// commission).
type PaymentService struct {
	db        *gorm.DB
	gateway   PaymentGateway
	ledger    *LedgerService
	referrals *ReferralService
	settings  SettingsProvider

	callbackURL string
	redirectURL string
}

func NewPaymentService(db *gorm.DB, gateway PaymentGateway, ledger *LedgerService,
	referrals *ReferralService, settings SettingsProvider, callbackURL, redirectURL string) *PaymentService {
	return &PaymentService{
		db:          db,
		gateway:     gateway,
		ledger:      ledger,
		referrals:   referrals,
		settings:    settings,
		callbackURL: callbackURL,
		redirectURL: redirectURL,
	}
}

// InitializePackage creates a pending purchase and a hosted checkout charge
// for it. The charge amount is read from settings at call time.
func (s *PaymentService) InitializePackage(ctx context.Context, userID uint, tier models.PackageTier) (*models.Package, string, error) {
	if !tier.Valid() {
		return nil, "", ErrInvalidPackageType
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", err
	}
	if user.IsBlocked {
		return nil, "", ErrUserNotFound
	}

	price, err := s.settings.PackagePrice(tier)
	if err != nil {
		return nil, "", err
	}

	reference, err := utils.NewReference("PKG")
	if err != nil {
		return nil, "", err
	}

	charge, err := s.gateway.CreateCharge(ctx, korapay.ChargeRequest{
		Amount:    price,
		Reference: reference,
		Customer: korapay.Customer{
			Name:  user.Username,
			Email: user.Email,
		},
		Metadata: map[string]string{
			"user_id":      fmt.Sprintf("%d", user.ID),
			"package_type": string(tier),
		},
		NotificationURL: s.callbackURL,
		RedirectURL:     s.redirectURL,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrPaymentInitFailed, err)
	}

	pkg := models.Package{
		UserID:            user.ID,
		PackageType:       tier,
		Amount:            price,
		PaymentReference:  reference,
		ExternalReference: charge.Reference,
		PaymentStatus:     models.PaymentPending,
	}
	if err := s.db.Create(&pkg).Error; err != nil {
		return nil, "", err
	}

	return &pkg, charge.CheckoutURL, nil
}

// Reconcile applies an observed processor outcome to a pending purchase.
// It is idempotent: a purchase already in a terminal state is returned
// unchanged, so duplicate webhooks and verify calls cannot double-activate.
func (s *PaymentService) Reconcile(reference string, observed models.PaymentStatus) (*models.Package, error) {
	if !observed.Terminal() {
		return nil, fmt.Errorf("cannot reconcile to non-terminal status %q", observed)
	}

	var pkg models.Package

	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := lockForUpdate(tx).
			Where("payment_reference = ?", reference).
			First(&pkg).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}

		if pkg.PaymentStatus.Terminal() {
			return nil
		}

		now := time.Now()
		updates := map[string]interface{}{
			"payment_status": observed,
		}
		if observed == models.PaymentSuccess {
			updates["verified_at"] = now
		}
		if err := tx.Model(&pkg).Updates(updates).Error; err != nil {
			return err
		}
		pkg.PaymentStatus = observed

		if observed != models.PaymentSuccess {
			return nil
		}

		return s.applyActivation(tx, &pkg)
	})

	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// applyActivation runs the success cascade inside the reconciliation
// transaction: tier assignment, one-time welcome bonus, purchase record on
// the ledger, and the referral commission.
func (s *PaymentService) applyActivation(tx *gorm.DB, pkg *models.Package) error {
	var user models.User
	if err := lockForUpdate(tx).First(&user, "id = ?", pkg.UserID).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{
		"package_type": pkg.PackageType,
	}

	if !user.WelcomeBonusClaimed {
		bonus := s.settings.WelcomeBonus()
		if bonus.Sign() > 0 {
			_, _, err := s.ledger.PostTransaction(tx, user.ID, models.KindWelcomeBonus,
				bonus, models.BalanceAffiliate, "Welcome bonus", models.TransactionCompleted)
			if err != nil {
				return err
			}
		}
		updates["welcome_bonus_claimed"] = true
	}

	if err := tx.Model(&user).Updates(updates).Error; err != nil {
		return err
	}
	user.PackageType = pkg.PackageType

	// Purchase is money paid out of band, not from a balance pool
	_, _, err := s.ledger.PostTransaction(tx, user.ID, models.KindPackagePurchase,
		pkg.Amount, models.BalanceNone,
		fmt.Sprintf("%s package purchase", pkg.PackageType), models.TransactionCompleted)
	if err != nil {
		return err
	}

	return s.referrals.ProcessPackageActivation(tx, &user, pkg.PackageType)
}

// VerifyPayment asks the processor for the charge's current status and
// reconciles the purchase accordingly. Pending charges are left untouched.
func (s *PaymentService) VerifyPayment(ctx context.Context, reference string) (*models.Package, error) {
	charge, err := s.gateway.GetCharge(ctx, reference)
	if err != nil {
		return nil, err
	}

	switch charge.Status {
	case "success":
		return s.Reconcile(reference, models.PaymentSuccess)
	case "failed", "expired":
		return s.Reconcile(reference, models.PaymentFailed)
	default:
		var pkg models.Package
		err := s.db.Where("payment_reference = ?", reference).First(&pkg).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPaymentNotFound
			}
			return nil, err
		}
		return &pkg, nil
	}
}

// WebhookEvent is the shape of a Korapay webhook payload
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// HandleWebhook routes a verified webhook event to reconciliation. Unknown
// events are acknowledged without action so the processor stops retrying.
func (s *PaymentService) HandleWebhook(event WebhookEvent) error {
	switch event.Event {
	case "charge.success":
		_, err := s.Reconcile(event.Data.Reference, models.PaymentSuccess)
		if errors.Is(err, ErrPaymentNotFound) {
			log.Printf("Webhook for unknown reference %s", event.Data.Reference)
			return nil
		}
		return err
	case "charge.failed":
		_, err := s.Reconcile(event.Data.Reference, models.PaymentFailed)
		if errors.Is(err, ErrPaymentNotFound) {
			log.Printf("Webhook for unknown reference %s", event.Data.Reference)
			return nil
		}
		return err
	default:
		log.Printf("Ignoring webhook event %s", event.Event)
		return nil
	}
}

// GetUserPackages returns a user's purchase history, newest first
func (s *PaymentService) GetUserPackages(userID uint) ([]models.Package, error) {
	var packages []models.Package
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&packages).Error
	return packages, err
}

// GetPackage fetches one purchase by public ID, scoped to its owner
func (s *PaymentService) GetPackage(publicID uuid.UUID, userID uint) (*models.Package, error) {
	var pkg models.Package
	err := s.db.Where("public_id = ? AND user_id = ?", publicID, userID).First(&pkg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &pkg, nil
}
