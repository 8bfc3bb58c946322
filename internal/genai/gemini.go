// Package genai はGemini APIによるテキスト生成を提供する。
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// defaultBaseURL はGemini APIのベースURL。
const defaultBaseURL = "https://generativelanguage.googleapis.com"

// ErrNotConfigured はAPIキーが未設定の場合のエラー。
var ErrNotConfigured = fmt.Errorf("gemini API key is not configured")

// UpstreamError はGemini APIのエラー応答。上流のメッセージを保持する。
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gemini API returned status %d: %s", e.StatusCode, e.Message)
}

// GeminiClient はGemini generateContentエンドポイントのクライアント。
type GeminiClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	model      string
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewGeminiClient はGeminiClientの新しいインスタンスを生成する。
// apiKeyが空の場合でも生成は成功し、呼び出し時にErrNotConfiguredを返す。
func NewGeminiClient(httpClient *http.Client, logger *slog.Logger, apiKey, model string) *GeminiClient {
	return &GeminiClient{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
	}
}

// SetBaseURL はAPIベースURLを差し替える（テスト用）。
func (c *GeminiClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Configured はAPIキーが設定されているかを返す。
func (c *GeminiClient) Configured() bool {
	return c.apiKey != ""
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateText はプロンプトを送信し、最初の候補のテキストを返す。
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	payload := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gemini APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("failed to call gemini API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}

	var result generateContentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := "unknown error"
		if result.Error != nil && result.Error.Message != "" {
			message = result.Error.Message
		}
		c.logger.Error("Gemini APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: message}
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response has no candidates")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}
