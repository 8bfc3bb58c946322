package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/postdeck/internal/middleware"
)

// HealthChecker はヘルスチェック時のDB疎通確認インターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ヘルスチェック
	HealthChecker HealthChecker

	// サービス
	AuthService    AuthServiceInterface
	ArticleService ArticleServiceInterface
	DraftService   DraftServiceInterface
	PublishService PublishServiceInterface

	// メトリクス公開用ハンドラー
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → AuthMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// サインイン・記事閲覧・AI生成のルートは認証チェーンの外に配置する。
// AI生成ルートには接続元IP単位のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	articleHandler := NewArticleHandler(deps.ArticleService)
	draftHandler := NewDraftHandler(deps.DraftService)
	publishHandler := NewPublishHandler(deps.PublishService)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", newHealthCheck(deps.HealthChecker))

	// Prometheusスクレイプ
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// サインイン
	r.Post("/linkedinAuth", authHandler.SignIn)

	// 記事閲覧とAI生成
	r.Route("/api/articles", func(r chi.Router) {
		r.Get("/", articleHandler.ListArticles)
		r.Get("/{id}", articleHandler.GetArticle)

		// AI生成（接続元IP単位のレート制限を追加）
		r.With(deps.RateLimiter.GenerateMiddleware()).Post("/summarize", articleHandler.Summarize)
		r.With(deps.RateLimiter.GenerateMiddleware()).Post("/generate-post", articleHandler.GeneratePost)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// LinkedIn連携
		r.Post("/saveLinkedInTokens", authHandler.Connect)
		r.Get("/auth/linkedin/status", authHandler.ConnectionStatus)

		// 公開
		r.Post("/publishPost", publishHandler.PublishPost)

		// 下書き管理
		r.Route("/api/drafts", func(r chi.Router) {
			r.Get("/", draftHandler.ListDrafts)
			r.Post("/", draftHandler.CreateDraft)
			r.Get("/stream", draftHandler.StreamDrafts)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", draftHandler.GetDraft)
				r.Put("/", draftHandler.UpdateDraft)
				r.Delete("/", draftHandler.DeleteDraft)
			})
		})
	})

	return r
}

// newHealthCheck は死活監視用のエンドポイントを返す。
// DB疎通が取れない場合は503を返す。
// GET /health
func newHealthCheck(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
