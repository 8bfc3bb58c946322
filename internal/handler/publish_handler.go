package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/postdeck/internal/middleware"
	"github.com/hitoshi/postdeck/internal/model"
	"github.com/hitoshi/postdeck/internal/publish"
)

// PublishServiceInterface は公開ハンドラーが必要とするサービスインターフェース。
type PublishServiceInterface interface {
	// Publish は本文をLinkedInへ公開する。
	Publish(ctx context.Context, userID string, req publish.Request) (*publish.Result, error)
}

// PublishHandler はLinkedIn公開のHTTPハンドラー。
type PublishHandler struct {
	service PublishServiceInterface
}

// NewPublishHandler はPublishHandlerを生成する。
func NewPublishHandler(service PublishServiceInterface) *PublishHandler {
	return &PublishHandler{service: service}
}

// publishRequest は公開リクエストのボディ。
// draft_idが空の場合は本文から新しい下書きを作成してから公開する。
type publishRequest struct {
	Content string `json:"content"`
	DraftID string `json:"draft_id"`
}

// PublishPost はLinkedInへの公開を処理する。
// POST /publishPost
func (h *PublishHandler) PublishPost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	result, err := h.service.Publish(r.Context(), userID, publish.Request{
		Content: req.Content,
		DraftID: req.DraftID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"id":      result.LinkedInPostID,
		"draft":   toDraftResponse(result.Draft),
	})
}
