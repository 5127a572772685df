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

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	DynamoTables DynamoTables
	S3BucketName string

	JWTPublicKeyPath string

	SyncCodeTTL time.Duration

	GeminiAPIKey string
	GeminiModel  string

	WabaWorkerURL string
	FrontendURL   string

	SNSRegion      string
	SMSEnabled     bool
	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users        string
	SyncCodes    string
	Directory    string
	Transactions string
	Events       string
	Files        string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		DynamoTables: DynamoTables{
			Users:        getEnv("DYNAMO_TABLE_USERS", "users"),
			SyncCodes:    getEnv("DYNAMO_TABLE_SYNC_CODES", "sync_codes"),
			Directory:    getEnv("DYNAMO_TABLE_DIRECTORY", "directory"),
			Transactions: getEnv("DYNAMO_TABLE_TRANSACTIONS", "transactions"),
			Events:       getEnv("DYNAMO_TABLE_EVENTS", "events"),
			Files:        getEnv("DYNAMO_TABLE_FILES", "files"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "fintrack-files"),

		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),

		SyncCodeTTL: time.Duration(getEnvInt("SYNC_CODE_TTL_SECONDS", 300)) * time.Second,

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		WabaWorkerURL: getEnv("WABA_WORKER_URL", ""),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:5173"),

		SNSRegion:      getEnv("SNS_REGION", "us-east-1"),
		SMSEnabled:     getEnvBool("SMS_ENABLED", false),
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

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
