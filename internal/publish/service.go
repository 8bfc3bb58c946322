// Package publish は下書きのLinkedInへの公開フローを提供する。
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/postdeck/internal/draft"
	"github.com/hitoshi/postdeck/internal/linkedin"
	"github.com/hitoshi/postdeck/internal/metrics"
	"github.com/hitoshi/postdeck/internal/model"
	"github.com/hitoshi/postdeck/internal/repository"
)

// Publisher はLinkedIn投稿クライアントのインターフェース。
type Publisher interface {
	GetMemberID(ctx context.Context, accessToken string) (string, error)
	CreatePost(ctx context.Context, accessToken, memberID, text string) (string, error)
}

// Request は公開リクエスト。
// DraftIDが空の場合は本文から新しい下書きを作成してから公開する。
type Request struct {
	Content string
	DraftID string
}

// Result は公開成功時の結果。
type Result struct {
	Draft          *model.Draft
	LinkedInPostID string
}

// Service は公開フローのビジネスロジックを提供する。
//
// 公開は必ず「下書きの保存」→「LinkedInへの投稿」→「公開済みへの遷移」の
// 順で実行される。投稿が失敗しても下書きは失われず、draft状態のまま残る。
type Service struct {
	userRepo  repository.UserRepository
	draftRepo repository.DraftRepository
	publisher Publisher
	hub       *draft.Hub
	metrics   metrics.MetricsCollector
	locks     *keyedLock
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	draftRepo repository.DraftRepository,
	publisher Publisher,
	hub *draft.Hub,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		userRepo:  userRepo,
		draftRepo: draftRepo,
		publisher: publisher,
		hub:       hub,
		metrics:   collector,
		locks:     newKeyedLock(),
	}
}

// Publish は本文をLinkedInへ公開する。
//
// 処理順序:
//  1. 本文と連携状態を検証する（どちらも外部APIを呼ぶ前に拒否する）
//  2. 下書きを保存する（新規またはリクエスト本文への更新）
//  3. LinkedInのメンバーIDを取得する
//  4. LinkedInへ投稿する
//  5. 下書きをpublishedへ遷移させる
//
// 手順3以降の失敗では下書きがdraft状態のまま残り、再試行できる。
func (s *Service) Publish(ctx context.Context, userID string, req Request) (*Result, error) {
	// 1. 検証。外部APIを呼ぶ前にすべて拒否する。
	if strings.TrimSpace(req.Content) == "" {
		s.metrics.RecordPublishFailure("empty_content")
		return nil, model.NewEmptyContentError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", userID)
	}
	if !user.LinkedIn.Connected() {
		s.metrics.RecordPublishFailure("not_connected")
		return nil, model.NewNotConnectedError()
	}

	// 2. 下書きを保存する。
	target, err := s.prepareDraft(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	// 同一下書きへの公開処理は同時に1つだけ。
	if !s.locks.tryAcquire(target.ID) {
		s.metrics.RecordPublishFailure("in_flight")
		return nil, model.NewPublishInFlightError(target.ID)
	}
	defer s.locks.release(target.ID)

	// 3. メンバーIDを取得する。
	memberID, err := s.publisher.GetMemberID(ctx, user.LinkedIn.AccessToken)
	if err != nil {
		return nil, s.publishError(err, "profile")
	}

	// 4. LinkedInへ投稿する。
	postID, err := s.publisher.CreatePost(ctx, user.LinkedIn.AccessToken, memberID, target.Content)
	if err != nil {
		return nil, s.publishError(err, "post")
	}

	// 5. 公開済みへ遷移させる。
	publishedAt := time.Now()
	transitioned, err := s.draftRepo.MarkPublished(ctx, target.ID, postID, publishedAt)
	if err != nil {
		// 投稿自体は成功しているため、投稿IDを添えてエラーを返す。
		slog.Error("draft transition failed after successful post",
			slog.String("draft_id", target.ID),
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("post %s was created but draft update failed: %w", postID, err)
	}
	if !transitioned {
		return nil, model.NewDraftPublishedError()
	}

	target.Status = model.DraftStatusPublished
	target.LinkedInPostID = postID
	target.PublishedAt = &publishedAt

	s.metrics.RecordPublishSuccess()
	s.hub.Notify(userID)
	slog.Info("draft published to linkedin",
		slog.String("user_id", userID),
		slog.String("draft_id", target.ID),
		slog.String("post_id", postID),
	)

	return &Result{Draft: target, LinkedInPostID: postID}, nil
}

// prepareDraft は公開対象の下書きを保存して返す。
// DraftID指定時は所有者チェックと公開済みチェックを行い、本文を更新する。
// 未指定時はリクエスト本文から新しい下書きを作成する。
func (s *Service) prepareDraft(ctx context.Context, userID string, req Request) (*model.Draft, error) {
	if req.DraftID == "" {
		target := &model.Draft{
			ID:        uuid.New().String(),
			UserID:    userID,
			Content:   req.Content,
			Status:    model.DraftStatusDraft,
			CreatedAt: time.Now(),
		}
		if err := s.draftRepo.Create(ctx, target); err != nil {
			return nil, fmt.Errorf("failed to save draft before publishing: %w", err)
		}
		s.hub.Notify(userID)
		return target, nil
	}

	target, err := s.draftRepo.FindByID(ctx, req.DraftID)
	if err != nil {
		return nil, fmt.Errorf("failed to find draft: %w", err)
	}
	if target == nil || target.UserID != userID {
		return nil, model.NewDraftNotFoundError(req.DraftID)
	}
	if target.Published() {
		return nil, model.NewDraftPublishedError()
	}

	if target.Content != req.Content {
		now := time.Now()
		if err := s.draftRepo.UpdateContent(ctx, target.ID, req.Content, now); err != nil {
			return nil, fmt.Errorf("failed to save draft before publishing: %w", err)
		}
		target.Content = req.Content
		target.UpdatedAt = &now
	}

	return target, nil
}

// publishError はLinkedIn API呼び出しの失敗を分類する。
// トークン失効は再連携が必要なエラーとして返す。
func (s *Service) publishError(err error, stage string) error {
	if errors.Is(err, linkedin.ErrUnauthorized) {
		s.metrics.RecordPublishFailure("reconnect_required")
		return model.NewReconnectRequiredError()
	}
	s.metrics.RecordPublishFailure(stage)
	return fmt.Errorf("failed to publish to linkedin: %w", err)
}
