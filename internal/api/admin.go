package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time durations

	"payout_system/internal/domain" // Importing domain models
	"payout_system/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID                 uint   `json:"id"`
	Username           string `json:"username"`
	Role               string `json:"role"`
	Balance            int64  `json:"balance"`
	PayoutAddress      string `json:"payout_address"`
	ReferralCode       string `json:"referral_code"`
	ReferredUsersCount int64  `json:"referred_users_count"`
}

// ListUsersHandler returns all users with their balance and referral state
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		cacheKey := "admin:users:page=" + c.DefaultQuery("page", "1") + ":size=" + c.DefaultQuery("page_size", "20")
		var cached struct {
			Users      []UserAdminResponse `json:"users"`
			Page       int                 `json:"page"`
			PageSize   int                 `json:"page_size"`
			Total      int64               `json:"total"`
			TotalPages int                 `json:"total_pages"`
		}
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,
				"page":        cached.Page,
				"page_size":   cached.PageSize,
				"total":       cached.Total,
				"total_pages": cached.TotalPages,
				"cached":      true,
			})
			return
		}
		page := 1      // Default page number
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
		var total int64
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
			return
		}
		var users []domain.User
		if err := db.Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := make([]UserAdminResponse, len(users))
		for i, u := range users {
			resp[i] = UserAdminResponse{
				ID:                 u.ID,
				Username:           u.Username,
				Role:               u.Role,
				Balance:            u.Balance,
				PayoutAddress:      u.PayoutAddress,
				ReferralCode:       u.ReferralCode,
				ReferredUsersCount: u.ReferredUsersCount,
			}
		}
		respData := gin.H{
			"users":       resp,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
			"cached":      false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData)
	}
}

// ListTransactionsHandler returns all withdrawal records, with optional
// filtering by user, type, status or date. Filtering on
// type=withdrawal_reconciliation_error is the operator surface for the
// payouts that need out-of-band reconciliation.
func ListTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		var keyParts []string
		for _, k := range []string{"user_id", "type", "status", "from", "to", "page", "page_size"} {
			keyParts = append(keyParts, k+"="+c.DefaultQuery(k, ""))
		}
		cacheKey := "admin:txs:" + strings.Join(keyParts, ":")
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
		page := 1      // Default page number
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
		query := db.Model(&domain.Transaction{})
		if userID := c.Query("user_id"); userID != "" {
			query = query.Where("user_id = ?", userID)
		}
		if txType := c.Query("type"); txType != "" {
			query = query.Where("type = ?", txType)
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if from := c.Query("from"); from != "" {
			query = query.Where("created_at >= ?", from)
		}
		if to := c.Query("to"); to != "" {
			query = query.Where("created_at <= ?", to)
		}
		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}
		var txs []domain.Transaction
		if err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&txs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize
		respData := gin.H{
			"transactions": txs,
			"page":         page,
			"page_size":    pageSize,
			"total":        total,
			"total_pages":  totalPages,
			"cached":       false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData)
	}
}
