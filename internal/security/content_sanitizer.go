// Package security はコンテンツのサニタイズ処理を提供する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer は外部由来のコンテンツをサニタイズする。
type ContentSanitizer struct {
	ugcPolicy    *bluemonday.Policy
	strictPolicy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
func NewContentSanitizer() *ContentSanitizer {
	return &ContentSanitizer{
		ugcPolicy:    bluemonday.UGCPolicy(),
		strictPolicy: bluemonday.StrictPolicy(),
	}
}

// SanitizeHTML はユーザーに表示する記事本文から危険なHTMLを除去する。
// 基本的なマークアップ（リンク、見出し等）は残す。
func (s *ContentSanitizer) SanitizeHTML(content string) string {
	return s.ugcPolicy.Sanitize(content)
}

// StripHTML はAIへ渡すテキストからすべてのHTMLタグを除去する。
func (s *ContentSanitizer) StripHTML(content string) string {
	return strings.TrimSpace(s.strictPolicy.Sanitize(content))
}
