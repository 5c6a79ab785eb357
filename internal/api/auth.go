package api

import (
	"net/http"                      // HTTP status codes
	"payout_system/internal/domain" // Importing domain models
	"payout_system/internal/utils"  // Utility functions
	"regexp"                        // Regular expressions
	"strings"                       // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Request and Response structs
type RegisterRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Request struct for login
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

// isValidUsername checks if the username contains only alphabetic characters
func isValidUsername(username string) bool {
	matched, _ := regexp.MatchString(`^[A-Za-z]+$`, username)
	return matched
}

// isValidPassword checks if the password length is between 8 and 15 characters
func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 15
}

// RegisterHandler provisions a new account with a zero balance and a freshly
// assigned referral code.
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if !isValidUsername(req.Username) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be alphabetic only"})
			return
		}
		if !isValidPassword(req.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8-15 characters"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		// The unique index on referral_code catches generator collisions, so
		// creation is retried a few times with a fresh code.
		var user domain.User
		for attempt := 0; attempt < 3; attempt++ {
			code, err := utils.GenerateReferralCode()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
				return
			}
			user = domain.User{
				Username:     strings.ToLower(req.Username),
				Password:     string(hash),
				ReferralCode: code,
			}
			err = db.Create(&user).Error
			if err == nil {
				break
			}
			var existing domain.User
			if db.Where("username = ?", user.Username).First(&existing).Error == nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
				return
			}
			if attempt == 2 {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
				return
			}
		}
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "referral_code": user.ReferralCode})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var user domain.User
		if err := db.Where("username = ?", strings.ToLower(req.Username)).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		token, err := utils.GenerateJWT(user.ID, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}
