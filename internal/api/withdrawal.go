package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"payout_system/internal/service" // Orchestrators
	"payout_system/internal/utils"   // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// WithdrawalRequest is the request-withdrawal request body. Amount is a
// decimal string in major currency units, e.g. "0.0004".
type WithdrawalRequest struct {
	Address string `json:"address" binding:"required"` // Destination FaucetPay address
	Amount  string `json:"amount" binding:"required"`  // Decimal amount in major units
}

// RequestWithdrawalHandler runs the withdrawal flow for the authenticated
// user. A client may pass an Idempotency-Key header so a retry after an
// ambiguous failure cannot double-send.
func RequestWithdrawalHandler(withdrawals *service.Withdrawal, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req WithdrawalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Address and amount are required"})
			return
		}

		idemKey := c.GetHeader("Idempotency-Key")
		result, err := withdrawals.Withdraw(c.Request.Context(), userID.(uint), req.Address, req.Amount, idemKey)
		if err != nil {
			respondError(c, err)
			return
		}

		// Invalidate wallet and transaction history cache after the mutation
		if rdb != nil {
			invalidateUserCaches(context.Background(), rdb, userID.(uint))
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"payoutId": result.PayoutID,
			"balance":  result.Balance,
		})
	}
}

// invalidateUserCaches drops the cached wallet view and the first pages of the
// cached transaction history for a user after a balance mutation.
func invalidateUserCaches(ctx context.Context, rdb *redis.Client, userID uint) {
	userKey := "wallet:user:" + strconv.Itoa(int(userID))
	txPrefix := "txhistory:user:" + strconv.Itoa(int(userID))
	_ = utils.DeleteCache(ctx, rdb, userKey)
	for i := 1; i <= 5; i++ {
		_ = utils.DeleteCache(ctx, rdb, txPrefix+":page:"+strconv.Itoa(i)+":size:20")
	}
}
