// Package linkedin はLinkedIn REST APIによる投稿機能を提供する。
// プロフィール取得（/v2/me）とUGC投稿作成（/v2/ugcPosts）を含む。
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// defaultAPIBaseURL はLinkedIn REST APIのベースURL。
	defaultAPIBaseURL = "https://api.linkedin.com"
	// restliProtocolVersion はugcPostsが要求するRest.liプロトコルバージョン。
	restliProtocolVersion = "2.0.0"
)

// ErrUnauthorized はアクセストークンが失効・無効な場合のエラー。
// 呼び出し元は再連携を案内する。
var ErrUnauthorized = fmt.Errorf("linkedin access token is invalid or expired")

// Client はLinkedIn REST APIのクライアント。
// 投稿はユーザーごとのアクセストークンを都度受け取って実行する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    defaultAPIBaseURL,
	}
}

// SetBaseURL はAPIベースURLを差し替える（テスト用）。
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// meResponse は/v2/meのレスポンス。
type meResponse struct {
	ID string `json:"id"`
}

// GetMemberID はアクセストークンの持ち主のLinkedInメンバーIDを取得する。
func (c *Client) GetMemberID(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/me", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("LinkedInプロフィールAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("failed to fetch linkedin profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("LinkedInプロフィールAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("linkedin profile API returned status %d: %s", resp.StatusCode, string(body))
	}

	var me meResponse
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return "", fmt.Errorf("failed to parse profile response: %w", err)
	}
	if me.ID == "" {
		return "", fmt.Errorf("profile response has no id")
	}

	return me.ID, nil
}

// ugcPostRequest は/v2/ugcPostsのリクエストボディ。
type ugcPostRequest struct {
	Author          string          `json:"author"`
	LifecycleState  string          `json:"lifecycleState"`
	SpecificContent specificContent `json:"specificContent"`
	Visibility      visibility      `json:"visibility"`
}

type specificContent struct {
	ShareContent shareContent `json:"com.linkedin.ugc.ShareContent"`
}

type shareContent struct {
	ShareCommentary    shareCommentary `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
}

type shareCommentary struct {
	Text string `json:"text"`
}

type visibility struct {
	MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
}

// ugcPostResponse は/v2/ugcPostsのレスポンス。
type ugcPostResponse struct {
	ID string `json:"id"`
}

// CreatePost は指定メンバーとして公開テキスト投稿を作成し、投稿IDを返す。
func (c *Client) CreatePost(ctx context.Context, accessToken, memberID, text string) (string, error) {
	payload := ugcPostRequest{
		Author:         fmt.Sprintf("urn:li:person:%s", memberID),
		LifecycleState: "PUBLISHED",
		SpecificContent: specificContent{
			ShareContent: shareContent{
				ShareCommentary:    shareCommentary{Text: text},
				ShareMediaCategory: "NONE",
			},
		},
		Visibility: visibility{MemberNetworkVisibility: "PUBLIC"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal post request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create post request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", restliProtocolVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("LinkedIn投稿APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("failed to create linkedin post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", ErrUnauthorized
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error("LinkedIn投稿APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("linkedin post API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var post ugcPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return "", fmt.Errorf("failed to parse post response: %w", err)
	}

	return post.ID, nil
}
