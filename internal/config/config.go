// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Identity Provider
	IdentityWebhookSecret string

	// Blob Storage
	BlobRoot          string
	BlobSigningSecret string
	BlobURLTTL        time.Duration

	// Email
	EmailAPIURL       string
	EmailAPIKey       string
	EmailFrom         string
	WelcomeTemplateID string

	// Engagement
	MaxRating float64

	// Rate Limit
	RateLimitGeneral    int
	RateLimitEngagement int

	// Worker
	ReconcileInterval time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.IdentityWebhookSecret = os.Getenv("IDENTITY_WEBHOOK_SECRET")
	if cfg.IdentityWebhookSecret == "" {
		missing = append(missing, "IDENTITY_WEBHOOK_SECRET")
	}

	cfg.BlobSigningSecret = os.Getenv("BLOB_SIGNING_SECRET")
	if cfg.BlobSigningSecret == "" {
		missing = append(missing, "BLOB_SIGNING_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.BlobRoot = getEnvString("BLOB_ROOT", "/var/lib/pocketnewz/blobs")
	cfg.BlobURLTTL = getEnvDuration("BLOB_URL_TTL", 15*time.Minute)
	cfg.EmailAPIURL = getEnvString("EMAIL_API_URL", "")
	cfg.EmailAPIKey = getEnvString("EMAIL_API_KEY", "")
	cfg.EmailFrom = getEnvString("EMAIL_FROM", "noreply@pocketnewz.app")
	cfg.WelcomeTemplateID = getEnvString("WELCOME_TEMPLATE_ID", "welcome-newzer")
	cfg.MaxRating = getEnvFloat("MAX_RATING", 5)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitEngagement = getEnvInt("RATE_LIMIT_ENGAGEMENT", 60)
	cfg.ReconcileInterval = getEnvDuration("RECONCILE_INTERVAL", 24*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
