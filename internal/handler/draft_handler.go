package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/postdeck/internal/middleware"
	"github.com/hitoshi/postdeck/internal/model"
)

// DraftServiceInterface は下書きハンドラーが必要とするサービスインターフェース。
type DraftServiceInterface interface {
	// Create は新しい下書きを作成する。
	Create(ctx context.Context, userID, content string) (*model.Draft, error)
	// List はユーザーの下書き一覧を作成日時の降順で返す。
	List(ctx context.Context, userID string) ([]*model.Draft, error)
	// Get は指定IDの下書きを返す。
	Get(ctx context.Context, userID, draftID string) (*model.Draft, error)
	// UpdateContent は下書きの本文を更新する。
	UpdateContent(ctx context.Context, userID, draftID, content string) (*model.Draft, error)
	// Delete は下書きを削除する。
	Delete(ctx context.Context, userID, draftID string) error
	// Subscribe は下書き変更通知を購読する。
	Subscribe(userID string) (<-chan struct{}, func())
}

// DraftHandler は下書き管理のHTTPハンドラー。
type DraftHandler struct {
	service DraftServiceInterface

	// heartbeatInterval はSSE接続維持のためのコメント送信間隔。
	heartbeatInterval time.Duration
}

// NewDraftHandler はDraftHandlerを生成する。
func NewDraftHandler(service DraftServiceInterface) *DraftHandler {
	return &DraftHandler{
		service:           service,
		heartbeatInterval: 30 * time.Second,
	}
}

// draftContentRequest は下書き作成・更新リクエストのボディ。
type draftContentRequest struct {
	Content string `json:"content"`
}

// draftResponse は下書きのAPIレスポンス。
type draftResponse struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	Status         string     `json:"status"`
	LinkedInPostID string     `json:"linkedin_post_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
}

func toDraftResponse(d *model.Draft) draftResponse {
	return draftResponse{
		ID:             d.ID,
		Content:        d.Content,
		Status:         string(d.Status),
		LinkedInPostID: d.LinkedInPostID,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		PublishedAt:    d.PublishedAt,
	}
}

// CreateDraft は下書き作成を処理する。
// POST /api/drafts
func (h *DraftHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req draftContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	d, err := h.service.Create(r.Context(), userID, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDraftResponse(d))
}

// ListDrafts は下書き一覧を返す。
// GET /api/drafts
func (h *DraftHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	drafts, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]draftResponse, 0, len(drafts))
	for _, d := range drafts {
		items = append(items, toDraftResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": items})
}

// GetDraft は下書き詳細を返す。
// GET /api/drafts/:id
func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	d, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDraftResponse(d))
}

// UpdateDraft は下書きの本文更新を処理する。
// PUT /api/drafts/:id
func (h *DraftHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req draftContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	d, err := h.service.UpdateContent(r.Context(), userID, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDraftResponse(d))
}

// DeleteDraft は下書き削除を処理する。
// DELETE /api/drafts/:id
func (h *DraftHandler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StreamDrafts は下書きの変更をServer-Sent Eventsで配信する。
// 接続時と変更のたびに`drafts`イベントを送信し、クライアントは一覧を再取得せずに
// 最新の状態を描画できる。
// GET /api/drafts/stream
func (h *DraftHandler) StreamDrafts(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "STREAMING_UNSUPPORTED",
			Message:  "ストリーミングに対応していません。",
			Category: "system",
			Action:   "通常のAPIで下書き一覧を取得してください。",
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	changes, cancel := h.service.Subscribe(userID)
	defer cancel()

	// 接続直後に現在の一覧を送信
	if err := h.sendDraftsEvent(w, r.Context(), userID); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-changes:
			if err := h.sendDraftsEvent(w, r.Context(), userID); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			// 接続維持のためのコメント行
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// sendDraftsEvent は現在の下書き一覧をSSEイベントとして書き込む。
func (h *DraftHandler) sendDraftsEvent(w http.ResponseWriter, ctx context.Context, userID string) error {
	drafts, err := h.service.List(ctx, userID)
	if err != nil {
		return err
	}

	items := make([]draftResponse, 0, len(drafts))
	for _, d := range drafts {
		items = append(items, toDraftResponse(d))
	}

	data, err := json.Marshal(map[string]any{"drafts": items})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: drafts\ndata: %s\n\n", data)
	return err
}
