package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Blob      BlobConfig
}

type ServerConfig struct {
	Port               string
	CORSAllowedOrigins string
	SeedAmenities      bool
}

type DatabaseConfig struct {
	Backend  string // postgres | memory
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Backend      string // redis | database | memory
	AdPostLimit  int64
	AdPostWindow time.Duration
}

type BlobConfig struct {
	Backend   string // s3 | local
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
	MediaRoot string
	MediaURL  string
}

func Load() *Config {
	godotenv.Load() // a missing .env is fine

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "3000"),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			SeedAmenities:      getEnvBool("SEED_AMENITIES", true),
		},
		Database: DatabaseConfig{
			Backend:  getEnv("STORAGE_BACKEND", "postgres"),
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "ijara"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
			TTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Backend:      getEnv("RATE_LIMIT_BACKEND", ""),
			AdPostLimit:  int64(getEnvInt("AD_POST_RATE", 10)),
			AdPostWindow: getEnvDuration("AD_POST_WINDOW", 24*time.Hour),
		},
		Blob: BlobConfig{
			Backend:   getEnv("BLOB_BACKEND", "local"),
			Bucket:    getEnv("S3_BUCKET", ""),
			Region:    getEnv("S3_REGION", "auto"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			PublicURL: getEnv("S3_PUBLIC_URL", ""),
			MediaRoot: getEnv("MEDIA_ROOT", "./tmp/uploads"),
			MediaURL:  getEnv("MEDIA_URL", "/media"),
		},
	}

	if cfg.RateLimit.Backend == "" {
		switch {
		case cfg.Redis.Addr != "":
			cfg.RateLimit.Backend = "redis"
		case cfg.Database.Backend == "memory":
			cfg.RateLimit.Backend = "memory"
		default:
			cfg.RateLimit.Backend = "database"
		}
	}
	return cfg
}

// DSN returns DATABASE_URL when set, otherwise a DSN built from the DB_* parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(getEnv(key, ""))); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
