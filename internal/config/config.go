package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration.
//
// Fee, minimum and reward amounts are injected here rather than hard-coded so
// the core logic can be exercised with arbitrary values in tests and retuned
// without recompiling.
type Config struct {
	AppPort    string // Application port
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment

	FaucetPayAPIKey  string        // FaucetPay API key
	FaucetPayBaseURL string        // FaucetPay API base URL
	Currency         string        // Payout currency code, e.g. LTC
	ProviderTimeout  time.Duration // Timeout for outbound FaucetPay calls

	WithdrawalFee  int64 // Fixed fee per withdrawal, minor units
	MinWithdrawal  int64 // Minimum withdrawal amount, minor units
	ReferrerReward int64 // Reward credited to a referral code's owner, minor units
	ReferredReward int64 // Reward credited to the user redeeming a code, minor units
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:    os.Getenv("APP_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBName:     os.Getenv("DB_NAME"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		RedisPass:  os.Getenv("REDIS_PASS"),
		RedisDB:    redisDB,
		IsProd:     os.Getenv("IS_PROD") == "true",

		FaucetPayAPIKey:  os.Getenv("FAUCETPAY_API_KEY"),
		FaucetPayBaseURL: getEnv("FAUCETPAY_BASE_URL", "https://faucetpay.io"),
		Currency:         getEnv("PAYOUT_CURRENCY", "LTC"),
		ProviderTimeout:  getDurationEnv("PROVIDER_TIMEOUT", 10*time.Second),

		WithdrawalFee:  getInt64Env("WITHDRAWAL_FEE", 1000),
		MinWithdrawal:  getInt64Env("MIN_WITHDRAWAL", 10000),
		ReferrerReward: getInt64Env("REFERRER_REWARD", 5000),
		ReferredReward: getInt64Env("REFERRED_REWARD", 2500),
	}
}

// getEnv returns the environment variable value or a default
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getInt64Env returns an integer environment variable value or a default
func getInt64Env(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// getDurationEnv returns a duration environment variable value or a default
func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
