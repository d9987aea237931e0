package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported record store drivers.
const (
	RecordStorePostgres = "postgres"
	RecordStoreMongo    = "mongo"
	RecordStoreMemory   = "memory"
)

// Supported object store drivers.
const (
	ObjectStoreMinIO = "minio"
	ObjectStoreS3    = "s3"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	ConnectTimeoutSec  int
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	TimeoutSec int
}

// MinIOConfig holds object storage settings for MinIO.
// PublicURL is the externally resolvable base used to build object URLs;
// when empty it is derived from Endpoint and UseSSL.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// S3Config holds settings for AWS S3 (or any S3 endpoint reachable via the AWS SDK).
type S3Config struct {
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	PublicURL    string
	UsePathStyle bool
}

// RedisConfig holds the connection used by the distributed rate limiter.
// An empty Addr selects the in-memory limiter.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig controls POST /upload throttling. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS       float64
	Burst     int
	WindowSec int
}

// ImageConfig tunes QR rendering and re-encoding of composited images.
type ImageConfig struct {
	QRRenderSize int
	JPEGQuality  int
	// MaxPixels bounds width*height of accepted uploads.
	MaxPixels int64
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost          string
	Port             string
	Timezone         string
	LogLevel         string
	VerifyBaseURL    string
	MaxUploadBytes   int
	StageTimeoutSec  int
	CleanupOrphans   bool
	CORSAllowOrigins string
	RecordStore      string
	ObjectStore      string
	Database         DatabaseConfig
	Mongo            MongoConfig
	MinIO            MinIOConfig
	S3               S3Config
	Redis            RedisConfig
	RateLimit        RateLimitConfig
	Image            ImageConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:          getEnv("APP_HOST", "localhost:8080"),
		Port:             getEnv("PORT", "8080"),
		Timezone:         getEnv("APP_TIMEZONE", "UTC"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		VerifyBaseURL:    getEnv("VERIFY_BASE_URL", ""),
		MaxUploadBytes:   getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024),
		StageTimeoutSec:  getEnvInt("STAGE_TIMEOUT_SEC", 30),
		CleanupOrphans:   getEnvBool("CLEANUP_ORPHANS", false),
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		RecordStore:      strings.ToLower(getEnv("RECORD_STORE", RecordStorePostgres)),
		ObjectStore:      strings.ToLower(getEnv("OBJECT_STORE", ObjectStoreMinIO)),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnectTimeoutSec:  getEnvInt("DB_CONNECT_TIMEOUT_SEC", 5),
		},
		Mongo: MongoConfig{
			URI:        getEnv("MONGODB_URI", ""),
			Database:   getEnv("MONGODB_DATABASE", "qrverify"),
			Collection: getEnv("MONGODB_COLLECTION", "documents"),
			TimeoutSec: getEnvInt("MONGODB_TIMEOUT_SEC", 10),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
		},
		S3: S3Config{
			Region:       getEnv("S3_REGION", "us-east-1"),
			Bucket:       getEnv("S3_BUCKET", ""),
			AccessKey:    getEnv("S3_ACCESS_KEY", ""),
			SecretKey:    getEnv("S3_SECRET_KEY", ""),
			BaseEndpoint: getEnv("S3_BASE_ENDPOINT", ""),
			PublicURL:    getEnv("S3_PUBLIC_URL", ""),
			UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			RPS:       getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst:     getEnvInt("RATE_LIMIT_BURST", 10),
			WindowSec: getEnvInt("RATE_LIMIT_WINDOW_SEC", 1),
		},
		Image: ImageConfig{
			QRRenderSize: getEnvInt("QR_RENDER_SIZE", 256),
			JPEGQuality:  getEnvInt("JPEG_QUALITY", 90),
			MaxPixels:    int64(getEnvInt("IMAGE_MAX_PIXELS", 268402689)),
		},
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.VerifyBaseURL) == "" {
		return fmt.Errorf("VERIFY_BASE_URL is required")
	}
	switch c.RecordStore {
	case RecordStorePostgres, RecordStoreMongo, RecordStoreMemory:
	default:
		return fmt.Errorf("unsupported RECORD_STORE %q", c.RecordStore)
	}
	switch c.ObjectStore {
	case ObjectStoreMinIO, ObjectStoreS3:
	default:
		return fmt.Errorf("unsupported OBJECT_STORE %q", c.ObjectStore)
	}
	if c.Image.JPEGQuality < 1 || c.Image.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be within 1..100, got %d", c.Image.JPEGQuality)
	}
	if c.Image.MaxPixels <= 0 {
		return fmt.Errorf("IMAGE_MAX_PIXELS must be positive, got %d", c.Image.MaxPixels)
	}
	return nil
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StageTimeout is the deadline applied to each remote pipeline stage.
func (c *AppConfig) StageTimeout() time.Duration {
	return time.Duration(c.StageTimeoutSec) * time.Second
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
