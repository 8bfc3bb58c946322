// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, linkedin, article, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeMissingAuthCode    = "MISSING_AUTH_CODE"
	ErrCodeEmptyContent       = "EMPTY_CONTENT"
	ErrCodeNotConnected       = "LINKEDIN_NOT_CONNECTED"
	ErrCodeReconnectRequired  = "LINKEDIN_RECONNECT_REQUIRED"
	ErrCodePublishInFlight    = "PUBLISH_IN_FLIGHT"
	ErrCodeDraftNotFound      = "DRAFT_NOT_FOUND"
	ErrCodeDraftPublished     = "DRAFT_ALREADY_PUBLISHED"
	ErrCodeArticleNotFound    = "ARTICLE_NOT_FOUND"
	ErrCodeInvalidArticleID   = "INVALID_ARTICLE_ID"
	ErrCodeTextTooShort       = "TEXT_TOO_SHORT"
	ErrCodeGenerationFailed   = "GENERATION_FAILED"
	ErrCodeGenAINotConfigured = "GENAI_NOT_CONFIGURED"
)

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewMissingAuthCodeError は認可コード未指定エラーを生成する。
func NewMissingAuthCodeError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingAuthCode,
		Message:  "認可コードが指定されていません。",
		Category: "validation",
		Action:   "LinkedInの認可画面からやり直してください。",
	}
}

// NewEmptyContentError は本文未指定エラーを生成する。
func NewEmptyContentError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyContent,
		Message:  "投稿本文が空です。",
		Category: "validation",
		Action:   "本文を入力してください。",
	}
}

// NewNotConnectedError はLinkedIn未連携エラーを生成する。
func NewNotConnectedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotConnected,
		Message:  "LinkedInアカウントが連携されていません。",
		Category: "linkedin",
		Action:   "先にLinkedInアカウントを連携してください。",
	}
}

// NewReconnectRequiredError は保存済みトークンが失効している場合のエラーを生成する。
func NewReconnectRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeReconnectRequired,
		Message:  "LinkedInの認証情報が失効しています。",
		Category: "linkedin",
		Action:   "LinkedInアカウントを再連携してください。",
	}
}

// NewPublishInFlightError は同一下書きへの公開処理が進行中の場合のエラーを生成する。
func NewPublishInFlightError(draftID string) *APIError {
	return &APIError{
		Code:     ErrCodePublishInFlight,
		Message:  fmt.Sprintf("この下書きは現在公開処理中です: %s", draftID),
		Category: "linkedin",
		Action:   "処理の完了を待ってから下書きの状態を確認してください。",
	}
}

// NewDraftNotFoundError は下書き未検出エラーを生成する。
func NewDraftNotFoundError(draftID string) *APIError {
	return &APIError{
		Code:     ErrCodeDraftNotFound,
		Message:  fmt.Sprintf("指定された下書きが見つかりません: %s", draftID),
		Category: "validation",
		Action:   "下書きIDを確認してください。",
	}
}

// NewDraftPublishedError は公開済み下書きの編集エラーを生成する。
func NewDraftPublishedError() *APIError {
	return &APIError{
		Code:     ErrCodeDraftPublished,
		Message:  "公開済みの下書きは編集できません。",
		Category: "validation",
		Action:   "新しい下書きを作成してください。",
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", articleID),
		Category: "article",
		Action:   "記事IDを確認してください。",
	}
}

// NewInvalidArticleIDError は記事ID形式不正エラーを生成する。
func NewInvalidArticleIDError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidArticleID,
		Message:  fmt.Sprintf("記事IDの形式が不正です: %s", articleID),
		Category: "validation",
		Action:   "記事一覧から取得したIDを指定してください。",
	}
}

// NewTextTooShortError はAI生成対象テキストが短すぎる場合のエラーを生成する。
func NewTextTooShortError(minChars int) *APIError {
	return &APIError{
		Code:     ErrCodeTextTooShort,
		Message:  fmt.Sprintf("テキストが短すぎます（最低%d文字）。", minChars),
		Category: "validation",
		Action:   "より長い本文を指定してください。",
	}
}

// NewGenAINotConfiguredError は生成AIのAPIキー未設定エラーを生成する。
func NewGenAINotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeGenAINotConfigured,
		Message:  "生成AIのAPIキーが設定されていません。",
		Category: "system",
		Action:   "サーバー管理者に連絡してください。",
	}
}

// NewGenerationFailedError は生成AI呼び出し失敗エラーを生成する。
// upstreamMessageが空でない場合はそのまま返す（上流のエラーメッセージを透過する）。
func NewGenerationFailedError(upstreamMessage string) *APIError {
	msg := upstreamMessage
	if msg == "" {
		msg = "テキストの生成に失敗しました。"
	}
	return &APIError{
		Code:     ErrCodeGenerationFailed,
		Message:  msg,
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
