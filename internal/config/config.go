package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	LogLevel  string
	LogFormat string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	DynamoTables DynamoTables

	// SNSTopicARNPrefix is prepended to the derived tenant channel name to
	// form the broadcast topic ARN.
	SNSTopicARNPrefix string

	// S3ReportBucket receives the archived summary of each scheduled run.
	S3ReportBucket string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	// ScanSchedule is a cron spec evaluated in ScanTimezone.
	ScanSchedule string
	ScanTimezone string

	// HorizonDays is the forward near-expiry window.
	HorizonDays int
	// FanoutConcurrency bounds how many tenants are dispatched in parallel.
	FanoutConcurrency int

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Products      string
	DeviceTokens  string
	Notifications string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		DynamoTables: DynamoTables{
			Products:      getEnv("DYNAMO_TABLE_PRODUCTS", "products"),
			DeviceTokens:  getEnv("DYNAMO_TABLE_DEVICE_TOKENS", "device_tokens"),
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
		},

		SNSTopicARNPrefix: getEnv("SNS_TOPIC_ARN_PREFIX", ""),
		S3ReportBucket:    getEnv("S3_REPORT_BUCKET", "expiry-scan-reports"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,

		ScanSchedule: getEnv("SCAN_SCHEDULE", "0 9 * * *"),
		ScanTimezone: getEnv("SCAN_TIMEZONE", "Asia/Jakarta"),

		HorizonDays:       getEnvInt("EXPIRY_HORIZON_DAYS", 7),
		FanoutConcurrency: getEnvInt("FANOUT_CONCURRENCY", 8),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
