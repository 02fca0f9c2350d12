package korapay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.korapay.com/merchant/api/v1"

// APIError carries the processor's own message so callers can surface it
// verbatim for diagnosis.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("korapay: %s (status %d)", e.Message, e.StatusCode)
}

// Client talks to the Korapay merchant API
type Client struct {
	httpClient    *http.Client
	secretKey     string
	webhookSecret string
	baseURL       string
}

// NewClient creates a Korapay API client. baseURL falls back to the
// production endpoint when empty.
func NewClient(secretKey, webhookSecret, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
	}
}

// ChargeRequest is the payload for creating a hosted checkout charge
type ChargeRequest struct {
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency"`
	Reference       string            `json:"reference"`
	Customer        Customer          `json:"customer"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	NotificationURL string            `json:"notification_url,omitempty"`
	RedirectURL     string            `json:"redirect_url,omitempty"`
}

// Customer identifies the paying user
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Charge is the processor's view of a payment
type Charge struct {
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
	AccessCode  string `json:"access_code"`
	Status      string `json:"status"`
}

// BankAccount is the result of account validation
type BankAccount struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
}

// RecipientRequest describes a transfer recipient to register
type RecipientRequest struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
}

// TransferRequest initiates a payout to a registered recipient
type TransferRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference"`
	RecipientCode string          `json:"recipient"`
	Reason        string          `json:"reason,omitempty"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// CreateCharge creates a hosted checkout charge and returns its checkout URL
// and the processor-side reference.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if req.Currency == "" {
		req.Currency = "NGN"
	}

	var charge Charge
	if err := c.do(ctx, http.MethodPost, "/charges", req, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// GetCharge fetches the current status of a charge by its reference
func (c *Client) GetCharge(ctx context.Context, reference string) (*Charge, error) {
	var charge Charge
	if err := c.do(ctx, http.MethodGet, "/charges/"+reference, nil, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// ValidateBankAccount resolves an account number and bank code to the
// account holder's name.
func (c *Client) ValidateBankAccount(ctx context.Context, accountNumber, bankCode string) (*BankAccount, error) {
	body := map[string]string{
		"account_number": accountNumber,
		"bank_code":      bankCode,
	}

	var account BankAccount
	if err := c.do(ctx, http.MethodPost, "/bank_accounts/validate", body, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateTransferRecipient registers a bank account as a payout recipient
// and returns its recipient code.
func (c *Client) CreateTransferRecipient(ctx context.Context, req RecipientRequest) (string, error) {
	body := map[string]string{
		"type":           "nuban",
		"name":           req.Name,
		"account_number": req.AccountNumber,
		"bank_code":      req.BankCode,
		"currency":       "NGN",
	}

	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.do(ctx, http.MethodPost, "/transfer_recipients", body, &data); err != nil {
		return "", err
	}
	return data.RecipientCode, nil
}

// InitiateTransfer starts a payout from the merchant balance and returns
// the transfer code.
func (c *Client) InitiateTransfer(ctx context.Context, req TransferRequest) (string, error) {
	body := map[string]interface{}{
		"source":    "balance",
		"amount":    req.Amount,
		"currency":  "NGN",
		"reference": req.Reference,
		"recipient": req.RecipientCode,
		"reason":    req.Reason,
	}

	var data struct {
		TransferCode string `json:"transfer_code"`
	}
	if err := c.do(ctx, http.MethodPost, "/transfers", body, &data); err != nil {
		return "", err
	}
	return data.TransferCode, nil
}

// VerifyWebhookSignature checks the X-Korapay-Signature header against an
// HMAC-SHA256 of the raw request body. Returns false when no webhook secret
// is configured: unverifiable payloads must not be trusted.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.webhookSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("korapay request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 400 || !envelope.Status {
		message := envelope.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
	}

	return nil
}
