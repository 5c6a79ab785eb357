package api

import (
	"errors"
	"net/http"

	"payout_system/internal/ledger"
	"payout_system/internal/service"

	"github.com/gin-gonic/gin"
)

// respondError maps service and ledger errors onto HTTP status codes.
// Validation failures carry their specific message so the client can correct
// the input; internal and ambiguous failures get a generic message so no
// provider or store detail leaks out.
func respondError(c *gin.Context, err error) {
	var ve *service.ValidationError
	var pr *service.ProviderRejectedError

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": ve.Msg})
	case errors.Is(err, ledger.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Insufficient funds"})
	case errors.Is(err, ledger.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid amount"})
	case errors.As(err, &pr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Withdrawal rejected by payout provider"})
	case errors.Is(err, service.ErrDuplicateRequest):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Duplicate withdrawal request"})
	case errors.Is(err, service.ErrInvalidReferralCode):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid referral code"})
	case errors.Is(err, ledger.ErrSelfReferral):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "You cannot use your own referral code"})
	case errors.Is(err, ledger.ErrAlreadyClaimed):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Referral reward already claimed"})
	case errors.Is(err, ledger.ErrReferrerNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid referral code"})
	case errors.Is(err, ledger.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Account not found"})
	case errors.Is(err, ledger.ErrConflict):
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Please retry the request"})
	case errors.Is(err, service.ErrTransport):
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Payout provider unavailable, please retry later"})
	case errors.Is(err, service.ErrReconciliation):
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Withdrawal state uncertain, support has been notified"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal error"})
	}
}
