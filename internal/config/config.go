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
	SessionSecret string        // JWT署名鍵（HS256）
	SessionMaxAge time.Duration // セッショントークンの有効期間
	VisitorMaxAge time.Duration // 匿名ビジターCookieの有効期間

	// OTP
	OTPExpiry time.Duration // ワンタイムコードの有効期間

	// Email（Elastic Email HTTP API）
	EmailAPIKey string
	EmailFrom   string

	// Google OAuth（未設定の場合は外部IdPログインを無効化）
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Rate Limit
	AuthRateLimit   int           // 認証系エンドポイントの固定ウィンドウ上限（回/ウィンドウ）
	AuthRateWindow  time.Duration // 認証系エンドポイントのウィンドウ長
	ResetRateWindow time.Duration // パスワード再設定のウィンドウ長
	RateLimitAPI    int           // 認証済みAPIの上限（回/分）

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

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvDuration("SESSION_MAX_AGE", 7*24*time.Hour)
	cfg.VisitorMaxAge = getEnvDuration("VISITOR_MAX_AGE", 365*24*time.Hour)
	cfg.OTPExpiry = getEnvDuration("OTP_EXPIRY", 10*time.Minute)
	cfg.EmailAPIKey = getEnvString("EMAIL_API_KEY", "")
	cfg.EmailFrom = getEnvString("EMAIL_FROM", "noreply@netfrix.example")
	cfg.GoogleClientID = getEnvString("GOOGLE_CLIENT_ID", "")
	cfg.GoogleClientSecret = getEnvString("GOOGLE_CLIENT_SECRET", "")
	cfg.GoogleRedirectURL = getEnvString("GOOGLE_REDIRECT_URL", cfg.BaseURL+"/auth/google/callback")
	cfg.AuthRateLimit = getEnvInt("AUTH_RATE_LIMIT", 5)
	cfg.AuthRateWindow = getEnvDuration("AUTH_RATE_WINDOW", time.Minute)
	cfg.ResetRateWindow = getEnvDuration("RESET_RATE_WINDOW", 10*time.Minute)
	cfg.RateLimitAPI = getEnvInt("RATE_LIMIT_API", 120)
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
