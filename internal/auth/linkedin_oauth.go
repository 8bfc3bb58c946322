// Package auth はLinkedIn OAuthによるサインインと連携処理を提供する。
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTokenURL    = "https://www.linkedin.com/oauth/v2/accessToken"
	defaultUserInfoURL = "https://api.linkedin.com/v2/userinfo"
)

// LinkedInOAuthConfig はLinkedIn OAuthプロバイダの設定。
type LinkedInOAuthConfig struct {
	ClientID     string
	ClientSecret string

	// TokenURL / UserInfoURL はテスト用に差し替え可能。
	// 空の場合はLinkedInの本番エンドポイントを使用する。
	TokenURL    string
	UserInfoURL string
}

// LinkedInUserInfo はLinkedInのuserinfoエンドポイントから取得するプロフィール。
type LinkedInUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// LinkedInOAuthProvider はLinkedInの認可コードフローを実行する。
type LinkedInOAuthProvider struct {
	config     LinkedInOAuthConfig
	httpClient *http.Client
}

// NewLinkedInOAuthProvider はLinkedInOAuthProviderを生成する。
// httpClientがnilの場合はタイムアウト付きのデフォルトクライアントを使用する。
func NewLinkedInOAuthProvider(config LinkedInOAuthConfig, httpClient *http.Client) *LinkedInOAuthProvider {
	if config.TokenURL == "" {
		config.TokenURL = defaultTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultUserInfoURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &LinkedInOAuthProvider{
		config:     config,
		httpClient: httpClient,
	}
}

// tokenResponse はLinkedInのトークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeCode は認可コードをアクセストークンに交換する。
func (p *LinkedInOAuthProvider) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", p.config.ClientID)
	form.Set("client_secret", p.config.ClientSecret)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}

	return token.AccessToken, nil
}

// FetchUserInfo はアクセストークンでLinkedInのプロフィールを取得する。
func (p *LinkedInOAuthProvider) FetchUserInfo(ctx context.Context, accessToken string) (*LinkedInUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("userinfo endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var info LinkedInUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo response: %w", err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("userinfo response has no sub")
	}

	return &info, nil
}
