package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Article Store (MongoDB)
	MongoURI                string
	MongoDatabase           string
	MongoArticlesCollection string

	// LinkedIn OAuth
	LinkedInClientID           string
	LinkedInClientSecret       string
	LinkedInRedirectURL        string // サインイン用コールバック
	LinkedInConnectRedirectURL string // アカウント連携用コールバック

	// 生成AI
	GeminiAPIKey string
	GeminiModel  string

	// 認証トークン
	TokenSecret string
	TokenMaxAge time.Duration

	// 外部API呼び出し
	OutboundTimeout time.Duration

	// Rate Limit（req/min/キー）
	RateLimitGeneral  int
	RateLimitGenerate int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあればベストエフォートで読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envはローカル開発用。存在しなくてもエラーにしない。
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.MongoURI = os.Getenv("MONGODB_URI")
	if cfg.MongoURI == "" {
		missing = append(missing, "MONGODB_URI")
	}

	cfg.LinkedInClientID = os.Getenv("LINKEDIN_CLIENT_ID")
	if cfg.LinkedInClientID == "" {
		missing = append(missing, "LINKEDIN_CLIENT_ID")
	}

	cfg.LinkedInClientSecret = os.Getenv("LINKEDIN_CLIENT_SECRET")
	if cfg.LinkedInClientSecret == "" {
		missing = append(missing, "LINKEDIN_CLIENT_SECRET")
	}

	cfg.LinkedInRedirectURL = os.Getenv("LINKEDIN_REDIRECT_URL")
	if cfg.LinkedInRedirectURL == "" {
		missing = append(missing, "LINKEDIN_REDIRECT_URL")
	}

	cfg.LinkedInConnectRedirectURL = os.Getenv("LINKEDIN_CONNECT_REDIRECT_URL")
	if cfg.LinkedInConnectRedirectURL == "" {
		missing = append(missing, "LINKEDIN_CONNECT_REDIRECT_URL")
	}

	cfg.TokenSecret = os.Getenv("TOKEN_SECRET")
	if cfg.TokenSecret == "" {
		missing = append(missing, "TOKEN_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// GEMINI_API_KEYは起動時必須にしない。
	// 未設定の場合は生成系エンドポイントがリクエスト時に設定エラーを返す。
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	// Optional fields with defaults
	cfg.MongoDatabase = getEnvString("MONGODB_DATABASE", "agentic_ai_db")
	cfg.MongoArticlesCollection = getEnvString("MONGODB_ARTICLES_COLLECTION", "articles")
	cfg.GeminiModel = getEnvString("GEMINI_MODEL", "gemini-2.5-flash")
	cfg.TokenMaxAge = getEnvDuration("TOKEN_MAX_AGE", 24*time.Hour)
	cfg.OutboundTimeout = getEnvDuration("OUTBOUND_TIMEOUT", 15*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitGenerate = getEnvInt("RATE_LIMIT_GENERATE", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

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
