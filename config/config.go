package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port               string
	Environment        string
	WriteRatePerMinute int

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Waitlist configuration
	PromotionInterval time.Duration
	PositionCacheTTL  time.Duration
	WaitlistLockTTL   time.Duration

	// Payment configuration
	PaymentTimeout       time.Duration
	PaymentSweepInterval time.Duration
	BillingProvider      string
	BillingBaseURL       string
	BillingMerchantID    string
	BillingClientID      string
	BillingClientSecret  string
	BillingHMACKey       string
	BillingCallbackHash  string

	// Gateway-side PubNub subscription (separate account from member
	// notifications)
	BillingPNSubKey    string
	BillingPNSubSecret string
	BillingPNUUID      string
	BillingPNCipherKey string

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:               getEnv("PORT", "8090"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		WriteRatePerMinute: getEnvAsInt("WRITE_RATE_PER_MINUTE", 30),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Waitlist
		PromotionInterval: getEnvAsDuration("PROMOTION_INTERVAL", "15s"),
		PositionCacheTTL:  getEnvAsDuration("POSITION_CACHE_TTL", "30m"),
		WaitlistLockTTL:   getEnvAsDuration("WAITLIST_LOCK_TTL", "10s"),

		// Payments
		PaymentTimeout:       getEnvAsDuration("PAYMENT_TIMEOUT", "10m"),
		PaymentSweepInterval: getEnvAsDuration("PAYMENT_SWEEP_INTERVAL", "1m"),
		BillingProvider:      getEnv("BILLING_PROVIDER", "dev"),
		BillingBaseURL:       getEnv("BILLING_BASE_URL", ""),
		BillingMerchantID:    getEnv("BILLING_MERCHANT_ID", ""),
		BillingClientID:      getEnv("BILLING_CLIENT_ID", ""),
		BillingClientSecret:  getEnv("BILLING_CLIENT_SECRET", ""),
		BillingHMACKey:       getEnv("BILLING_HMAC_KEY", ""),
		BillingCallbackHash:  getEnv("BILLING_CALLBACK_HASH", ""),

		// Gateway PubNub
		BillingPNSubKey:    getEnv("BILLING_PN_SUBSCRIBE_KEY", ""),
		BillingPNSubSecret: getEnv("BILLING_PN_SECRET_KEY", ""),
		BillingPNUUID:      getEnv("BILLING_PN_UUID", ""),
		BillingPNCipherKey: getEnv("BILLING_PN_CIPHER_KEY", ""),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
