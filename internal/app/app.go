// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/postdeck/internal/article"
	"github.com/hitoshi/postdeck/internal/articlestore"
	"github.com/hitoshi/postdeck/internal/auth"
	"github.com/hitoshi/postdeck/internal/config"
	"github.com/hitoshi/postdeck/internal/database"
	"github.com/hitoshi/postdeck/internal/draft"
	"github.com/hitoshi/postdeck/internal/genai"
	"github.com/hitoshi/postdeck/internal/handler"
	"github.com/hitoshi/postdeck/internal/linkedin"
	"github.com/hitoshi/postdeck/internal/logger"
	"github.com/hitoshi/postdeck/internal/metrics"
	"github.com/hitoshi/postdeck/internal/middleware"
	"github.com/hitoshi/postdeck/internal/publish"
	"github.com/hitoshi/postdeck/internal/repository"
	"github.com/hitoshi/postdeck/internal/security"
	"github.com/hitoshi/postdeck/internal/token"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. 記事ストア（MongoDB）
	// 接続は初回アクセス時に確立されるため、ここではハンドルの生成のみ。
	articleStore := articlestore.NewMongoStore(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoArticlesCollection)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := articleStore.Close(ctx); err != nil {
			slog.Warn("failed to close article store", slog.String("error", err.Error()))
		}
	}()

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	draftRepo := repository.NewPostgresDraftRepo(db)

	// 4. メトリクスコレクタの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. 外部APIクライアントの初期化
	outboundClient := &http.Client{Timeout: cfg.OutboundTimeout}

	oauthProvider := auth.NewLinkedInOAuthProvider(auth.LinkedInOAuthConfig{
		ClientID:     cfg.LinkedInClientID,
		ClientSecret: cfg.LinkedInClientSecret,
	}, outboundClient)

	linkedinClient := linkedin.NewClient(outboundClient, slog.Default())
	geminiClient := genai.NewGeminiClient(outboundClient, slog.Default(), cfg.GeminiAPIKey, cfg.GeminiModel)

	if !geminiClient.Configured() {
		slog.Warn("GEMINI_API_KEY is not set; generation endpoints will return configuration errors")
	}

	// 6. ドメインサービスの初期化
	tokenManager := token.NewManager(cfg.TokenSecret, cfg.TokenMaxAge)
	sanitizer := security.NewContentSanitizer()

	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, tokenManager, collector,
		auth.ServiceConfig{
			SignInRedirectURI:  cfg.LinkedInRedirectURL,
			ConnectRedirectURI: cfg.LinkedInConnectRedirectURL,
		},
	)

	articleService := article.NewService(articleStore, geminiClient, sanitizer, collector)

	hub := draft.NewHub()
	draftService := draft.NewService(draftRepo, hub)

	publishService := publish.NewService(userRepo, draftRepo, linkedinClient, hub, collector)

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのレート値はreq/min単位なのでreq/secに変換する
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.GenerateRate = rate.Limit(float64(cfg.RateLimitGenerate) / 60.0)
	rateLimiterCfg.GenerateBurst = cfg.RateLimitGenerate

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		TokenVerifier:     tokenManager,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		HealthChecker:     db,

		AuthService:    authService,
		ArticleService: articleService,
		DraftService:   draftService,
		PublishService: publishService,

		MetricsHandler: metrics.Handler(registry),
	})

	// リカバリとアクセスログはルーター全体を包む
	var root http.Handler = router
	root = middleware.NewLoggingMiddleware(slog.Default(), collector)(root)
	root = middleware.NewRecoveryMiddleware()(root)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
