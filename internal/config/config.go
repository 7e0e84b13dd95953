package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"vilatur/internal/model"
)

type Config struct {
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	ServerPort string

	JWTSecret         string
	AccessTokenMaxAge int

	SessionSecret string
	SessionMaxAge int
	CookieSecure  bool

	MaxImageBytes     int64
	MinPasswordLength int

	SearchFallbackToAll bool

	RedisURL          string
	DirectoryCacheTTL time.Duration
	CleanupWorkers    int

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	S3Endpoint        string

	LogLevel     string
	LogEncoding  string
	OTLPEndpoint string
	Environment  string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      os.Getenv("DB_HOST"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      os.Getenv("DB_USER"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      os.Getenv("DB_NAME"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),

		ServerPort: getEnv("SERVER_PORT", "8080"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		AccessTokenMaxAge: getEnvInt("ACCESS_TOKEN_MAX_AGE", 900),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionMaxAge: getEnvInt("SESSION_MAX_AGE", 7*24*3600),
		CookieSecure:  getEnvBool("COOKIE_SECURE", false),

		MaxImageBytes:     int64(getEnvInt("MAX_IMAGE_BYTES", model.DefaultMaxImageBytes)),
		MinPasswordLength: getEnvInt("MIN_PASSWORD_LENGTH", 8),

		SearchFallbackToAll: getEnvBool("SEARCH_FALLBACK_TO_ALL", true),

		RedisURL:          os.Getenv("REDIS_URL"),
		DirectoryCacheTTL: time.Duration(getEnvInt("DIRECTORY_CACHE_TTL", 60)) * time.Second,
		CleanupWorkers:    getEnvInt("CLEANUP_WORKERS", 1),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),

		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogEncoding:  getEnv("LOG_ENCODING", "json"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Environment:  getEnv("APP_ENV", "development"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = cfg.JWTSecret
	}

	return cfg, nil
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the DB_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// ObjectStorageConfigured reports whether all R2 credentials are present.
func (c *Config) ObjectStorageConfigured() bool {
	return c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != "" &&
		(c.R2AccountID != "" || c.S3Endpoint != "")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
