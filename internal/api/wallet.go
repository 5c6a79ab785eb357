package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"payout_system/internal/domain" // Importing domain models
	"payout_system/internal/money"  // Minor-unit conversion for display
	"payout_system/internal/utils"  // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// WalletView is the cached wallet response payload
type WalletView struct {
	Balance            int64  `json:"balance"`              // Balance in minor units
	BalanceDecimal     string `json:"balance_decimal"`      // Balance in major units for display
	PayoutAddress      string `json:"payout_address"`       // Bound FaucetPay address, empty if none
	ReferralCode       string `json:"referral_code"`        // Code this user can hand out
	ReferralClaimed    bool   `json:"referral_claimed"`     // Whether this user already redeemed a code
	ReferredUsersCount int64  `json:"referred_users_count"` // Successful referrals originated
}

// GetWalletHandler returns balance and payout state for the authenticated user
func GetWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()
		cacheKey := "wallet:user:" + strconv.Itoa(int(userID.(uint)))
		var view WalletView
		found, err := utils.GetCache(ctx, rdb, cacheKey, &view)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"wallet": view, "cached": true})
			return
		}
		var user domain.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		view = WalletView{
			Balance:            user.Balance,
			BalanceDecimal:     money.FromMinorUnits(user.Balance),
			PayoutAddress:      user.PayoutAddress,
			ReferralCode:       user.ReferralCode,
			ReferralClaimed:    user.ReferralClaimed,
			ReferredUsersCount: user.ReferredUsersCount,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, view, 60*time.Second) // Cache the wallet for 60 seconds
		c.JSON(http.StatusOK, gin.H{"wallet": view, "cached": false})
	}
}

// GetTransactionHistoryHandler returns the paginated withdrawal history for
// the authenticated user
func GetTransactionHistoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		page := 1      // Default page
		pageSize := 20 // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v
			}
		}
		if ps := c.Query("page_size"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v
			}
		}
		offset := (page - 1) * pageSize
		cacheKey := "txhistory:user:" + strconv.Itoa(int(userID.(uint))) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		ctx := context.Background()
		var cached struct {
			Transactions []domain.Transaction `json:"transactions"`
			Page         int                  `json:"page"`
			PageSize     int                  `json:"page_size"`
			Total        int64                `json:"total"`
			TotalPages   int                  `json:"total_pages"`
		}
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions,
				"page":         cached.Page,
				"page_size":    cached.PageSize,
				"total":        cached.Total,
				"total_pages":  cached.TotalPages,
				"cached":       true,
			})
			return
		}
		var total int64
		if err := db.Model(&domain.Transaction{}).
			Where("user_id = ?", userID).
			Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}
		var transactions []domain.Transaction
		if err := db.Where("user_id = ?", userID).
			Order("created_at desc").
			Offset(offset).
			Limit(pageSize).
			Find(&transactions).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := gin.H{
			"transactions": transactions,
			"page":         page,
			"page_size":    pageSize,
			"total":        total,
			"total_pages":  totalPages,
			"cached":       false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second) // Cache the result for 60 seconds
		c.JSON(http.StatusOK, resp)
	}
}
