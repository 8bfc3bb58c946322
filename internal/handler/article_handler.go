package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/postdeck/internal/model"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	// ListArticles は最新の記事一覧を返す。
	ListArticles(ctx context.Context) ([]*model.Article, error)
	// GetArticle は指定IDの記事を返す。
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	// Summarize はテキストの要約を生成する。
	Summarize(ctx context.Context, text string) (string, error)
	// GeneratePost は記事本文からLinkedIn投稿文を生成する。
	GeneratePost(ctx context.Context, text string) (string, error)
}

// ArticleHandler は記事のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// articleResponse は記事のAPIレスポンス。
type articleResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Source    string    `json:"source"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// generateTextRequest は要約・投稿文生成リクエストのボディ。
type generateTextRequest struct {
	Text string `json:"text"`
}

func toArticleResponse(a *model.Article) articleResponse {
	return articleResponse{
		ID:        a.ID,
		Title:     a.Title,
		URL:       a.URL,
		Source:    a.Source,
		Content:   a.Content,
		CreatedAt: a.CreatedAt,
	}
}

// ListArticles は記事一覧を返す。
// GET /api/articles
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.service.ListArticles(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		items = append(items, toArticleResponse(a))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"articles": items,
	})
}

// GetArticle は記事詳細を返す。
// GET /api/articles/:id
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "id")

	a, err := h.service.GetArticle(r.Context(), articleID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"article": toArticleResponse(a),
	})
}

// Summarize はテキストの要約を生成する。
// POST /api/articles/summarize
func (h *ArticleHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req generateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	summary, err := h.service.Summarize(r.Context(), req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"summary": summary,
	})
}

// GeneratePost は記事本文からLinkedIn投稿文を生成する。
// POST /api/articles/generate-post
func (h *ArticleHandler) GeneratePost(w http.ResponseWriter, r *http.Request) {
	var req generateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	post, err := h.service.GeneratePost(r.Context(), req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"post":    post,
	})
}
