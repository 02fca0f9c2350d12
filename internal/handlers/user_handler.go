package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nulex/internal/auth"
	"nulex/internal/models"
	"nulex/internal/services"
)

type UserHandler struct {
	userService     *services.UserService
	referralService *services.ReferralService
}

func NewUserHandler(userService *services.UserService, referralService *services.ReferralService) *UserHandler {
	return &UserHandler{userService: userService, referralService: referralService}
}

// GetProfile returns the current user's profile and referral standing
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	profile, err := h.userService.GetProfile(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    profile,
	})
}

// GetTransactions returns the current user's ledger history
func (h *UserHandler) GetTransactions(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, limit := pagination(c)
	kind := models.TransactionKind(c.Query("type"))

	transactions, total, err := h.userService.GetTransactions(userID, kind, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    transactions,
		"total":   total,
		"page":    page,
	})
}

// GetReferrals returns the users the current user has referred
func (h *UserHandler) GetReferrals(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	referrals, err := h.referralService.GetUserReferrals(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    referrals,
		"count":   len(referrals),
	})
}
