// Package draft は下書きのライフサイクル管理を提供する。
package draft

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/postdeck/internal/model"
	"github.com/hitoshi/postdeck/internal/repository"
)

// Service は下書きに関するビジネスロジックを提供する。
// 変更はHubを通じて購読者へ通知される。
type Service struct {
	repo repository.DraftRepository
	hub  *Hub
}

// NewService はServiceを生成する。
func NewService(repo repository.DraftRepository, hub *Hub) *Service {
	return &Service{repo: repo, hub: hub}
}

// Create は新しい下書きを作成する。本文が空の場合は拒否する。
func (s *Service) Create(ctx context.Context, userID, content string) (*model.Draft, error) {
	if strings.TrimSpace(content) == "" {
		return nil, model.NewEmptyContentError()
	}

	draft := &model.Draft{
		ID:        uuid.New().String(),
		UserID:    userID,
		Content:   content,
		Status:    model.DraftStatusDraft,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	s.hub.Notify(userID)
	return draft, nil
}

// List はユーザーの下書き一覧を作成日時の降順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Draft, error) {
	drafts, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return drafts, nil
}

// Get は指定IDの下書きを返す。他ユーザーの下書きは存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, userID, draftID string) (*model.Draft, error) {
	draft, err := s.findOwned(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// UpdateContent は下書きの本文を更新する。
// 公開済みの下書きは不変であり、編集は拒否される。
func (s *Service) UpdateContent(ctx context.Context, userID, draftID, content string) (*model.Draft, error) {
	if strings.TrimSpace(content) == "" {
		return nil, model.NewEmptyContentError()
	}

	draft, err := s.findOwned(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Published() {
		return nil, model.NewDraftPublishedError()
	}

	now := time.Now()
	if err := s.repo.UpdateContent(ctx, draftID, content, now); err != nil {
		return nil, fmt.Errorf("failed to update draft: %w", err)
	}

	draft.Content = content
	draft.UpdatedAt = &now

	s.hub.Notify(userID)
	return draft, nil
}

// Delete は下書きを削除する。公開済みの下書きも削除できる
// （削除されるのはローカルの記録のみで、LinkedIn上の投稿には影響しない）。
func (s *Service) Delete(ctx context.Context, userID, draftID string) error {
	if _, err := s.findOwned(ctx, userID, draftID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, draftID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	s.hub.Notify(userID)
	return nil
}

// Subscribe はユーザーの下書き変更通知を購読する。
func (s *Service) Subscribe(userID string) (<-chan struct{}, func()) {
	return s.hub.Subscribe(userID)
}

// findOwned は所有者チェック付きで下書きを取得する。
// 存在しない場合・他ユーザーの下書きの場合はDRAFT_NOT_FOUNDを返す。
func (s *Service) findOwned(ctx context.Context, userID, draftID string) (*model.Draft, error) {
	draft, err := s.repo.FindByID(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to find draft: %w", err)
	}
	if draft == nil || draft.UserID != userID {
		return nil, model.NewDraftNotFoundError(draftID)
	}
	return draft, nil
}
