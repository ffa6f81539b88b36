package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Generation providers accepted by GENERATION_PROVIDER.
const (
	ProviderMock   = "mock"
	ProviderGemini = "gemini"
	ProviderQwen   = "qwen"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageFilesystem = "filesystem"
	StorageS3         = "s3"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	AppURL      string
	DatabaseURL string
	DBMaxConns  int
	JWTSecret   string
	JWTTTL      time.Duration

	StorageDriver   string
	StoragePath     string
	StorageBaseURL  string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string
	MaxUploadBytes  int64

	GenerationProvider string
	GenerationTimeout  time.Duration
	GeminiAPIKey       string
	GeminiImageModel   string
	GeminiTextModel    string
	QwenAPIKey         string
	QwenBaseURL        string
	QwenModel          string
	CaptionProvider    string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RateLimitSweep time.Duration

	GeoIPDBPath        string
	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        port,
		AppURL:      strings.TrimRight(getEnv("APP_URL", "http://localhost:"+port), "/"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTTTL:      time.Hour * time.Duration(getEnvInt("JWT_TTL_HOURS", 24*7)),

		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", StorageFilesystem)),
		StoragePath:     getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:  strings.TrimRight(getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"), "/"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3PublicBaseURL: strings.TrimRight(os.Getenv("S3_PUBLIC_BASE_URL"), "/"),
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,

		GenerationProvider: strings.ToLower(getEnv("GENERATION_PROVIDER", ProviderMock)),
		GenerationTimeout:  time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 90)),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiImageModel:   getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiTextModel:    getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		QwenAPIKey:         os.Getenv("QWEN_API_KEY"),
		QwenBaseURL:        getEnv("QWEN_BASE_URL", "https://dashscope-intl.aliyuncs.com"),
		QwenModel:          getEnv("QWEN_MODEL", "qwen-image-edit"),
		CaptionProvider:    strings.ToLower(getEnv("CAPTION_PROVIDER", "static")),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RateLimitSweep: time.Second * time.Duration(getEnvInt("RATE_LIMIT_SWEEP_SECONDS", 60)),

		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.GenerationProvider {
	case ProviderMock, ProviderGemini, ProviderQwen:
	default:
		return nil, fmt.Errorf("unknown GENERATION_PROVIDER %q", cfg.GenerationProvider)
	}

	switch cfg.StorageDriver {
	case StorageFilesystem:
	case StorageS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for the s3 storage driver")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.DBMaxConns <= 0 {
		cfg.DBMaxConns = 10
	}

	if cfg.GenerationTimeout <= 0 {
		return nil, fmt.Errorf("GENERATION_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
