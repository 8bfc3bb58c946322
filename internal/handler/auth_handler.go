package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/postdeck/internal/auth"
	"github.com/hitoshi/postdeck/internal/middleware"
	"github.com/hitoshi/postdeck/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// SignIn は認可コードでサインインし、セッショントークンを発行する。
	SignIn(ctx context.Context, code string) (*auth.SignInResult, error)
	// Connect は認可コードを投稿用アクセストークンに交換して保存する。
	Connect(ctx context.Context, userID, code string) error
	// ConnectionStatus はLinkedIn連携状態を返す。
	ConnectionStatus(ctx context.Context, userID string) (*model.LinkedInAccount, error)
}

// AuthHandler は認証・連携のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// authCodeRequest は認可コードを受け取るリクエストのボディ。
type authCodeRequest struct {
	Code string `json:"code"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	PictureURL string `json:"picture_url,omitempty"`
}

// signInResponse はサインイン成功時のレスポンス。
type signInResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// connectionStatusResponse は連携状態のレスポンス。
type connectionStatusResponse struct {
	Connected   bool       `json:"connected"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}

// SignIn はLinkedInサインインを処理する。
// POST /linkedinAuth
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req authCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.Code == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingAuthCodeError())
		return
	}

	result, err := h.service.SignIn(r.Context(), req.Code)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, signInResponse{
		Token: result.SessionToken,
		User: userResponse{
			ID:         result.User.ID,
			Email:      result.User.Email,
			Name:       result.User.Name,
			PictureURL: result.User.PictureURL,
		},
	})
}

// Connect は投稿用アクセストークンの取得・保存を処理する。
// POST /saveLinkedInTokens
func (h *AuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req authCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.Code == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingAuthCodeError())
		return
	}

	if err := h.service.Connect(r.Context(), userID, req.Code); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ConnectionStatus はLinkedIn連携状態を返す。
// GET /auth/linkedin/status
func (h *AuthHandler) ConnectionStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	account, err := h.service.ConnectionStatus(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := connectionStatusResponse{Connected: account.Connected()}
	if resp.Connected {
		resp.ConnectedAt = &account.ConnectedAt
	}
	writeJSON(w, http.StatusOK, resp)
}
