package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"nulex/internal/auth"
	"nulex/internal/korapay"
	"nulex/internal/models"
	"nulex/internal/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	korapayClient  *korapay.Client
}

func NewPaymentHandler(paymentService *services.PaymentService, korapayClient *korapay.Client) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, korapayClient: korapayClient}
}

// InitializePackage creates a pending purchase and returns the checkout URL
func (h *PaymentHandler) InitializePackage(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		PackageType models.PackageTier `json:"package_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pkg, checkoutURL, err := h.paymentService.InitializePackage(c.Request.Context(), userID, req.PackageType)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"package":      pkg,
			"checkout_url": checkoutURL,
		},
	})
}

// VerifyPayment polls the processor for a charge and reconciles the purchase
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reference required"})
		return
	}

	pkg, err := h.paymentService.VerifyPayment(c.Request.Context(), reference)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    pkg,
	})
}

// Webhook receives processor callbacks. The raw body is read before parsing
// so the signature covers exactly the bytes the processor sent.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	signature := c.GetHeader("X-Korapay-Signature")
	if !h.korapayClient.VerifyWebhookSignature(body, signature) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	var event services.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	if err := h.paymentService.HandleWebhook(event); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetMyPackages returns the current user's purchase history
func (h *PaymentHandler) GetMyPackages(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	packages, err := h.paymentService.GetUserPackages(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    packages,
		"count":   len(packages),
	})
}
