package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes

	"payout_system/internal/service" // Orchestrators

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// ApplyReferralRequest is the apply-referral-code request body
type ApplyReferralRequest struct {
	ReferralCode string `json:"referralCode" binding:"required"` // Code being redeemed
}

// ApplyReferralCodeHandler redeems a referral code for the authenticated user.
func ApplyReferralCodeHandler(referrals *service.Referral, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req ApplyReferralRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Referral code is required"})
			return
		}

		reward, err := referrals.Apply(c.Request.Context(), userID.(uint), req.ReferralCode)
		if err != nil {
			respondError(c, err)
			return
		}

		// Both accounts gained balance; drop the redeemer's cached views. The
		// referrer's cache expires on its own TTL.
		if rdb != nil {
			invalidateUserCaches(context.Background(), rdb, userID.(uint))
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "rewardAmount": reward})
	}
}
