package api

import (
	"net/http" // HTTP status codes

	"payout_system/internal/service" // Orchestrators

	"github.com/gin-gonic/gin" // Gin web framework
)

// ValidateAddressRequest is the validate-payout-address request body
type ValidateAddressRequest struct {
	Address string `json:"address" binding:"required"` // FaucetPay address (email)
}

// ValidatePayoutAddressHandler checks the address with FaucetPay and binds it
// to the authenticated account on success.
func ValidatePayoutAddressHandler(withdrawals *service.Withdrawal) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req ValidateAddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Address is required"})
			return
		}
		hash, err := withdrawals.ValidateAddress(c.Request.Context(), userID.(uint), req.Address)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "providerUserHash": hash})
	}
}
