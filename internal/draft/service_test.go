package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/postdeck/internal/model"
)

type mockDraftRepo struct {
	createFunc        func(ctx context.Context, draft *model.Draft) error
	findByIDFunc      func(ctx context.Context, id string) (*model.Draft, error)
	listByUserIDFunc  func(ctx context.Context, userID string) ([]*model.Draft, error)
	updateContentFunc func(ctx context.Context, id, content string, updatedAt time.Time) error
	markPublishedFunc func(ctx context.Context, id, linkedInPostID string, publishedAt time.Time) (bool, error)
	deleteFunc        func(ctx context.Context, id string) error
}

func (m *mockDraftRepo) Create(ctx context.Context, draft *model.Draft) error {
	return m.createFunc(ctx, draft)
}

func (m *mockDraftRepo) FindByID(ctx context.Context, id string) (*model.Draft, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockDraftRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Draft, error) {
	return m.listByUserIDFunc(ctx, userID)
}

func (m *mockDraftRepo) UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error {
	return m.updateContentFunc(ctx, id, content, updatedAt)
}

func (m *mockDraftRepo) MarkPublished(ctx context.Context, id, linkedInPostID string, publishedAt time.Time) (bool, error) {
	return m.markPublishedFunc(ctx, id, linkedInPostID, publishedAt)
}

func (m *mockDraftRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFunc(ctx, id)
}

func assertNotified(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Error("expected a change notification")
	}
}

// TestCreate_Success は下書き作成の正常系を検証する。
func TestCreate_Success(t *testing.T) {
	var created *model.Draft
	repo := &mockDraftRepo{
		createFunc: func(ctx context.Context, draft *model.Draft) error {
			created = draft
			return nil
		},
	}
	hub := NewHub()
	ch, cancel := hub.Subscribe("user-1")
	defer cancel()

	svc := NewService(repo, hub)

	draft, err := svc.Create(context.Background(), "user-1", "本文")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if draft.ID == "" {
		t.Error("ID should be set")
	}
	if draft.Status != model.DraftStatusDraft {
		t.Errorf("Status = %q", draft.Status)
	}
	if draft.UserID != "user-1" {
		t.Errorf("UserID = %q", draft.UserID)
	}
	if created == nil || created.ID != draft.ID {
		t.Error("draft should be persisted")
	}
	assertNotified(t, ch)
}

// TestCreate_EmptyContent は空本文の拒否を検証する。
func TestCreate_EmptyContent(t *testing.T) {
	repo := &mockDraftRepo{
		createFunc: func(ctx context.Context, draft *model.Draft) error {
			t.Error("Create should not be called for empty content")
			return nil
		},
	}

	svc := NewService(repo, NewHub())

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := svc.Create(context.Background(), "user-1", content)
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmptyContent {
			t.Errorf("Create(%q) error = %v, want EMPTY_CONTENT", content, err)
		}
	}
}

// TestUpdateContent_Success は本文更新の正常系を検証する。
func TestUpdateContent_Success(t *testing.T) {
	repo := &mockDraftRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Draft, error) {
			return &model.Draft{ID: id, UserID: "user-1", Content: "旧本文", Status: model.DraftStatusDraft}, nil
		},
		updateContentFunc: func(ctx context.Context, id, content string, updatedAt time.Time) error {
			if content != "新本文" {
				t.Errorf("content = %q", content)
			}
			return nil
		},
	}
	hub := NewHub()
	ch, cancel := hub.Subscribe("user-1")
	defer cancel()

	svc := NewService(repo, hub)

	draft, err := svc.UpdateContent(context.Background(), "user-1", "d1", "新本文")
	if err != nil {
		t.Fatalf("UpdateContent() error = %v", err)
	}
	if draft.Content != "新本文" {
		t.Errorf("Content = %q", draft.Content)
	}
	if draft.UpdatedAt == nil {
		t.Error("UpdatedAt should be set")
	}
	assertNotified(t, ch)
}

// TestUpdateContent_PublishedDraft は公開済み下書きの編集拒否を検証する。
func TestUpdateContent_PublishedDraft(t *testing.T) {
	repo := &mockDraftRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Draft, error) {
			return &model.Draft{ID: id, UserID: "user-1", Status: model.DraftStatusPublished}, nil
		},
		updateContentFunc: func(ctx context.Context, id, content string, updatedAt time.Time) error {
			t.Error("UpdateContent should not be called for published draft")
			return nil
		},
	}

	svc := NewService(repo, NewHub())

	_, err := svc.UpdateContent(context.Background(), "user-1", "d1", "新本文")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDraftPublished {
		t.Errorf("error = %v, want DRAFT_ALREADY_PUBLISHED", err)
	}
}

// TestUpdateContent_OtherUsersDraft は他ユーザーの下書きが見えないことを検証する。
func TestUpdateContent_OtherUsersDraft(t *testing.T) {
	repo := &mockDraftRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Draft, error) {
			return &model.Draft{ID: id, UserID: "user-2", Status: model.DraftStatusDraft}, nil
		},
	}

	svc := NewService(repo, NewHub())

	_, err := svc.UpdateContent(context.Background(), "user-1", "d1", "新本文")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDraftNotFound {
		t.Errorf("error = %v, want DRAFT_NOT_FOUND", err)
	}
}

// TestDelete_PublishedDraft は公開済み下書きも削除できることを検証する。
func TestDelete_PublishedDraft(t *testing.T) {
	deleted := false
	repo := &mockDraftRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Draft, error) {
			return &model.Draft{ID: id, UserID: "user-1", Status: model.DraftStatusPublished}, nil
		},
		deleteFunc: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}

	svc := NewService(repo, NewHub())

	if err := svc.Delete(context.Background(), "user-1", "d1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !deleted {
		t.Error("draft should be deleted")
	}
}

// TestDelete_NotFound は存在しない下書きの削除エラーを検証する。
func TestDelete_NotFound(t *testing.T) {
	repo := &mockDraftRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Draft, error) {
			return nil, nil
		},
	}

	svc := NewService(repo, NewHub())

	err := svc.Delete(context.Background(), "user-1", "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDraftNotFound {
		t.Errorf("error = %v, want DRAFT_NOT_FOUND", err)
	}
}

// TestList はユーザーの一覧取得を検証する。
func TestList(t *testing.T) {
	repo := &mockDraftRepo{
		listByUserIDFunc: func(ctx context.Context, userID string) ([]*model.Draft, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q", userID)
			}
			return []*model.Draft{{ID: "d2"}, {ID: "d1"}}, nil
		},
	}

	svc := NewService(repo, NewHub())

	drafts, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(drafts) != 2 {
		t.Errorf("len = %d", len(drafts))
	}
}
