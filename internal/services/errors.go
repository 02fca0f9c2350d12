package services

import "errors"

// Sentinel errors returned by the service layer. Handlers map these to HTTP
// statuses; anything else is treated as an internal error.
var (
	// Ledger
	ErrUserNotFound      = errors.New("user not found or blocked")
	ErrInsufficientFunds = errors.New("insufficient balance")

	// Task lifecycle
	ErrTaskNotFound       = errors.New("task not found or inactive")
	ErrTaskFull           = errors.New("task has reached maximum completions")
	ErrAlreadyStarted     = errors.New("task already started")
	ErrNotStarted         = errors.New("task has not been started")
	ErrAlreadySubmitted   = errors.New("task already submitted")
	ErrScreenshotRequired = errors.New("screenshot is required for this task")
	ErrAnswerRequired     = errors.New("answer is required for this task")
	ErrNotReviewable      = errors.New("task is not awaiting review")

	// Package settlement
	ErrInvalidPackageType = errors.New("invalid package type")
	ErrPriceNotConfigured = errors.New("package price not configured")
	ErrPaymentNotFound    = errors.New("payment not found")

	// Withdrawals
	ErrInvalidBalanceType  = errors.New("invalid balance type")
	ErrPortalClosed        = errors.New("withdrawal portal is currently closed")
	ErrBelowMinimum        = errors.New("amount is below the minimum withdrawal")
	ErrWithdrawalNotFound  = errors.New("withdrawal not found")
	ErrTerminalState       = errors.New("withdrawal is already finalized")
	ErrInvalidTransition   = errors.New("invalid withdrawal status transition")
	ErrNotesRequired       = errors.New("admin notes are required for rejection")
	ErrNotApproved         = errors.New("withdrawal is not approved")
	ErrSettlementFailed    = errors.New("settlement failed")
	ErrPaymentInitFailed   = errors.New("payment initialization failed")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrUserAlreadyExists   = errors.New("username or email already registered")
	ErrRegistrationInvalid = errors.New("invalid registration data")
)
