// Package article は記事の取得とAIによる要約・投稿文生成を提供する。
package article

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/postdeck/internal/articlestore"
	"github.com/hitoshi/postdeck/internal/genai"
	"github.com/hitoshi/postdeck/internal/metrics"
	"github.com/hitoshi/postdeck/internal/model"
	"github.com/hitoshi/postdeck/internal/security"
)

// minTextLength は要約・生成の入力テキストの最小文字数。
// これ未満のテキストは外部APIを呼ばずに拒否する。
const minTextLength = 100

// generatePostPrompt は投稿文生成のプロンプトテンプレート。
const generatePostPrompt = `Write a LinkedIn-style post based on the following article content.

Guidelines:
- Professional tone
- Strong hook in first line
- 2-4 short paragraphs
- Add insights or key takeaways
- Add 3-5 relevant hashtags at the end
- No emojis unless essential

CONTENT:
%s
`

// Store は記事ストアのインターフェース。
type Store interface {
	ListRecent(ctx context.Context) ([]*model.Article, error)
	FindByID(ctx context.Context, id string) (*model.Article, error)
}

// TextGenerator はAIテキスト生成のインターフェース。
type TextGenerator interface {
	Configured() bool
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Service は記事に関するビジネスロジックを提供する。
type Service struct {
	store     Store
	generator TextGenerator
	sanitizer *security.ContentSanitizer
	metrics   metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(store Store, generator TextGenerator, sanitizer *security.ContentSanitizer, collector metrics.MetricsCollector) *Service {
	return &Service{
		store:     store,
		generator: generator,
		sanitizer: sanitizer,
		metrics:   collector,
	}
}

// ListArticles は最新の記事一覧を返す。本文はサニタイズ済み。
func (s *Service) ListArticles(ctx context.Context) ([]*model.Article, error) {
	articles, err := s.store.ListRecent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	for _, a := range articles {
		a.Content = s.sanitizer.SanitizeHTML(a.Content)
	}
	return articles, nil
}

// GetArticle は指定IDの記事を返す。本文はサニタイズ済み。
// IDが不正な場合・記事が存在しない場合はAPIErrorを返す。
func (s *Service) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	a, err := s.store.FindByID(ctx, id)
	if errors.Is(err, articlestore.ErrInvalidArticleID) {
		return nil, model.NewInvalidArticleIDError(id)
	}
	if errors.Is(err, articlestore.ErrArticleNotFound) {
		return nil, model.NewArticleNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	a.Content = s.sanitizer.SanitizeHTML(a.Content)
	return a, nil
}

// Summarize はテキストの要約を生成する。
// 100文字未満のテキストは外部APIを呼ばずに拒否する。
func (s *Service) Summarize(ctx context.Context, text string) (string, error) {
	plain := s.sanitizer.StripHTML(text)
	if len([]rune(plain)) < minTextLength {
		return "", model.NewTextTooShortError(minTextLength)
	}
	return s.generate(ctx, plain)
}

// GeneratePost は記事本文からLinkedIn投稿文を生成する。
// 100文字未満のテキストは外部APIを呼ばずに拒否する。
func (s *Service) GeneratePost(ctx context.Context, text string) (string, error) {
	plain := s.sanitizer.StripHTML(text)
	if len([]rune(plain)) < minTextLength {
		return "", model.NewTextTooShortError(minTextLength)
	}
	return s.generate(ctx, fmt.Sprintf(generatePostPrompt, plain))
}

// generate は生成を実行し、メトリクスを記録する。
// 上流エラーのメッセージは呼び出し元に伝播する。
func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	if !s.generator.Configured() {
		return "", model.NewGenAINotConfiguredError()
	}

	start := time.Now()
	result, err := s.generator.GenerateText(ctx, prompt)
	s.metrics.RecordGenerationLatency(time.Since(start))

	if err != nil {
		s.metrics.RecordGenerationFailure()
		slog.Error("text generation failed", slog.String("error", err.Error()))

		var upstream *genai.UpstreamError
		if errors.As(err, &upstream) {
			return "", model.NewGenerationFailedError(upstream.Message)
		}
		return "", model.NewGenerationFailedError("")
	}

	s.metrics.RecordGenerationSuccess()
	return result, nil
}
