package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"nulex/internal/services"
)

// statusFor maps service sentinel errors to HTTP statuses. Unrecognized
// errors become 500 with a generic message so internals do not leak.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrWithdrawalNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrTaskFull),
		errors.Is(err, services.ErrAlreadyStarted),
		errors.Is(err, services.ErrNotStarted),
		errors.Is(err, services.ErrAlreadySubmitted),
		errors.Is(err, services.ErrTerminalState),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrNotApproved),
		errors.Is(err, services.ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, services.ErrScreenshotRequired),
		errors.Is(err, services.ErrAnswerRequired),
		errors.Is(err, services.ErrNotReviewable),
		errors.Is(err, services.ErrInvalidPackageType),
		errors.Is(err, services.ErrInvalidBalanceType),
		errors.Is(err, services.ErrBelowMinimum),
		errors.Is(err, services.ErrNotesRequired),
		errors.Is(err, services.ErrRegistrationInvalid):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrPortalClosed):
		return http.StatusForbidden
	case errors.Is(err, services.ErrPriceNotConfigured),
		errors.Is(err, services.ErrPaymentInitFailed),
		errors.Is(err, services.ErrSettlementFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("Internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// pagination reads page/limit query params with sane bounds
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
