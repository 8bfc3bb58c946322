package publish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/postdeck/internal/draft"
	"github.com/hitoshi/postdeck/internal/linkedin"
	"github.com/hitoshi/postdeck/internal/model"
)

type mockUserRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	return nil
}

func (m *mockUserRepo) SaveLinkedInAccount(ctx context.Context, userID string, account model.LinkedInAccount) error {
	return nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return nil
}

type mockDraftRepo struct {
	mu            sync.Mutex
	createFunc    func(ctx context.Context, d *model.Draft) error
	findByIDFunc  func(ctx context.Context, id string) (*model.Draft, error)
	updateFunc    func(ctx context.Context, id, content string, updatedAt time.Time) error
	markPublished func(ctx context.Context, id, postID string, publishedAt time.Time) (bool, error)
}

func (m *mockDraftRepo) Create(ctx context.Context, d *model.Draft) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, d)
	}
	return nil
}

func (m *mockDraftRepo) FindByID(ctx context.Context, id string) (*model.Draft, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockDraftRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Draft, error) {
	return nil, nil
}

func (m *mockDraftRepo) UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, content, updatedAt)
	}
	return nil
}

func (m *mockDraftRepo) MarkPublished(ctx context.Context, id, postID string, publishedAt time.Time) (bool, error) {
	return m.markPublished(ctx, id, postID, publishedAt)
}

func (m *mockDraftRepo) Delete(ctx context.Context, id string) error {
	return nil
}

type mockPublisher struct {
	getMemberIDFunc func(ctx context.Context, accessToken string) (string, error)
	createPostFunc  func(ctx context.Context, accessToken, memberID, text string) (string, error)
}

func (m *mockPublisher) GetMemberID(ctx context.Context, accessToken string) (string, error) {
	return m.getMemberIDFunc(ctx, accessToken)
}

func (m *mockPublisher) CreatePost(ctx context.Context, accessToken, memberID, text string) (string, error) {
	return m.createPostFunc(ctx, accessToken, memberID, text)
}

type noopMetrics struct{}

func (noopMetrics) RecordTokenExchangeSuccess()             {}
func (noopMetrics) RecordTokenExchangeFailure()             {}
func (noopMetrics) RecordPublishSuccess()                   {}
func (noopMetrics) RecordPublishFailure(reason string)      {}
func (noopMetrics) RecordGenerationSuccess()                {}
func (noopMetrics) RecordGenerationFailure()                {}
func (noopMetrics) RecordGenerationLatency(d time.Duration) {}
func (noopMetrics) RecordHTTPStatus(statusCode int)         {}

func connectedUser() *model.User {
	return &model.User{
		ID: "user-1",
		LinkedIn: model.LinkedInAccount{
			AccessToken: "li-token",
			ConnectedAt: time.Now(),
		},
	}
}

func connectedUserRepo() *mockUserRepo {
	return &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return connectedUser(), nil
		},
	}
}

// TestPublish_NewDraftSuccess は新規下書きの公開の正常系と処理順序を検証する。
func TestPublish_NewDraftSuccess(t *testing.T) {
	var order []string

	draftRepo := &mockDraftRepo{
		createFunc: func(ctx context.Context, d *model.Draft) error {
			order = append(order, "save")
			if d.Status != model.DraftStatusDraft {
				t.Errorf("saved status = %q, want draft", d.Status)
			}
			return nil
		},
		markPublished: func(ctx context.Context, id, postID string, publishedAt time.Time) (bool, error) {
			order = append(order, "transition")
			return true, nil
		},
	}
	publisher := &mockPublisher{
		getMemberIDFunc: func(ctx context.Context, accessToken string) (string, error) {
			order = append(order, "profile")
			if accessToken != "li-token" {
				t.Errorf("accessToken = %q", accessToken)
			}
			return "member-1", nil
		},
		createPostFunc: func(ctx context.Context, accessToken, memberID, text string) (string, error) {
			order = append(order, "post")
			if text != "公開する本文" {
				t.Errorf("text = %q", text)
			}
			return "urn:li:share:1", nil
		},
	}

	svc := NewService(connectedUserRepo(), draftRepo, publisher, draft.NewHub(), noopMetrics{})

	result, err := svc.Publish(context.Background(), "user-1", Request{Content: "公開する本文"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if result.LinkedInPostID != "urn:li:share:1" {
		t.Errorf("LinkedInPostID = %q", result.LinkedInPostID)
	}
	if !result.Draft.Published() {
		t.Error("draft should be published")
	}

	want := []string{"save", "profile", "post", "transition"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

// TestPublish_EmptyContent は空本文が外部APIを呼ばずに拒否されることを検証する。
func TestPublish_EmptyContent(t *testing.T) {
	publisher := &mockPublisher{
		getMemberIDFunc: func(ctx context.Context, accessToken string) (string, error) {
			t.Error("GetMemberID should not be called")
			return "", nil
		},
	}

	svc := NewService(connectedUserRepo(), &mockDraftRepo{}, publisher, draft.NewHub(), noopMetrics{})

	_, err := svc.Publish(context.Background(), "user-1", Request{Content: "   "})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmptyContent {
		t.Errorf("error = %v, want EMPTY_CONTENT", err)
	}
}

// TestPublish_NotConnected は未連携ユーザーが下書き保存前に拒否されることを検証する。
func TestPublish_NotConnected(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: "user-1"}, nil
		},
	}
	draftRepo := &mockDraftRepo{
		createFunc: func(ctx context.Context, d *model.Draft) error {
			t.Error("draft should not be saved when not connected")
			return nil
		},
	}

	svc := NewService(userRepo, draftRepo, &mockPublisher{}, draft.NewHub(), noopMetrics{})

	_, err := svc.Publish(context.Background(), "user-1", Request{Content: "本文"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNotConnected {
		t.Errorf("error = %v, want LINKEDIN_NOT_CONNECTED", err)
	}
}

// TestPublish_PostFailureKeepsDraft は投稿失敗後も下書きが残ることを検証する。
func TestPublish_PostFailureKeepsDraft(t *testing.T) {
	saved := false
	draftRepo := &mockDraftRepo{
		createFunc: func(ctx context.Context, d *model.Draft) error {
			saved = true
			return nil
		},
		markPublished: func(ctx context.Context, id, postID string, publishedAt time.Time) (bool, error) {
			t.Error("MarkPublished should not be called when post fails")
			return false, nil
		},
	}
	publisher := &mockPublisher{
		getMemberIDFunc: func(ctx context.Context, accessToken string) (string, error) {
			return "member-1", nil
		},
		createPostFunc: func(ctx context.Context, accessToken, memberID, text string) (string, error) {
			return "", errors.New("upstream error")
		},
	}

	svc := NewService(connectedUserRepo(), draftRepo, publisher, draft.NewHub(), noopMetrics{})

	_, err := svc.Publish(context.Background(), "user-1", Request{Content: "本文"})
	if err == nil {
		t.Fatal("Publish() should fail")
	}
	if !saved {
		t.Error("draft should be saved before the post attempt")
	}
}

// TestPublish_ExpiredToken はトークン失効時に再連携エラーとなることを検証する。
func TestPublish_ExpiredToken(t *testing.T) {
	draftRepo := &mockDraftRepo{}
	publisher := &mockPublisher{
		getMemberIDFunc: func(ctx context.Context, accessToken string) (string, error) {
			return "", linkedin.ErrUnauthorized
		},
	}

	svc := NewService(connectedUserRepo(), draftRepo, publisher, draft.NewHub(), noopMetrics{})

	_, err := svc.Publish(context.Background(), "user-1", Request{Content: "本文"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeReconnectRequired {
		t.Errorf("error = %v, want LINKEDIN_RECONNECT_REQUIRED", err)
	}
}

// TestPublish_ExistingDraft は既存下書きの公開を検証する。
func TestPublish_ExistingDraft(t *testing.T) {
	draftRepo := &mockDraftRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Draft, error) {
			return &model.Draft{ID: "d1", UserID: "user-1", Content: "既存本文", Status: model.DraftStatusDraft}, nil
		},
		markPublished: func(ctx context.Context, id, postID string, publishedAt time.Time) (bool, error) {
			if id != "d1" {
				t.Errorf("id = %q", id)
			}
			return true, nil
		},
	}
	publisher := &mockPublisher{
		getMemberIDFunc: func(ctx context.Context, accessToken string) (string, error) {
			return "member-1", nil
		},
		createPostFunc: func(ctx context.Context, accessToken, memberID, text string) (string, error) {
			if text != "既存本文" {
				t.Errorf("text = %q", text)
			}
			return "urn:li:share:2", nil
		},
	}

	svc := NewService(connectedUserRepo(), draftRepo, publisher, draft.NewHub(), noopMetrics{})

	result, err := svc.Publish(context.Background(), "user-1", Request{Content: "既存本文", DraftID: "d1"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if result.Draft.ID != "d1" {
		t.Errorf("draft ID = %q", result.Draft.ID)
	}
}

// TestPublish_AlreadyPublishedDraft は公開済み下書きの再公開拒否を検証する。
func TestPublish_AlreadyPublishedDraft(t *testing.T) {
	draftRepo := &mockDraftRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Draft, error) {
			return &model.Draft{ID: "d1", UserID: "user-1", Status: model.DraftStatusPublished}, nil
		},
	}
	publisher := &mockPublisher{
		getMemberIDFunc: func(ctx context.Context, accessToken string) (string, error) {
			t.Error("GetMemberID should not be called for published draft")
			return "", nil
		},
	}

	svc := NewService(connectedUserRepo(), draftRepo, publisher, draft.NewHub(), noopMetrics{})

	_, err := svc.Publish(context.Background(), "user-1", Request{Content: "本文", DraftID: "d1"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDraftPublished {
		t.Errorf("error = %v, want DRAFT_ALREADY_PUBLISHED", err)
	}
}

// TestPublish_OtherUsersDraft は他ユーザーの下書きが見えないことを検証する。
func TestPublish_OtherUsersDraft(t *testing.T) {
	draftRepo := &mockDraftRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Draft, error) {
			return &model.Draft{ID: "d1", UserID: "user-2", Status: model.DraftStatusDraft}, nil
		},
	}

	svc := NewService(connectedUserRepo(), draftRepo, &mockPublisher{}, draft.NewHub(), noopMetrics{})

	_, err := svc.Publish(context.Background(), "user-1", Request{Content: "本文", DraftID: "d1"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDraftNotFound {
		t.Errorf("error = %v, want DRAFT_NOT_FOUND", err)
	}
}

// TestPublish_ConcurrentSameDraft は同一下書きへの並行公開で片方が拒否されることを検証する。
func TestPublish_ConcurrentSameDraft(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	draftRepo := &mockDraftRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Draft, error) {
			return &model.Draft{ID: "d1", UserID: "user-1", Content: "本文", Status: model.DraftStatusDraft}, nil
		},
		markPublished: func(ctx context.Context, id, postID string, publishedAt time.Time) (bool, error) {
			return true, nil
		},
	}
	publisher := &mockPublisher{
		getMemberIDFunc: func(ctx context.Context, accessToken string) (string, error) {
			close(entered)
			<-release
			return "member-1", nil
		},
		createPostFunc: func(ctx context.Context, accessToken, memberID, text string) (string, error) {
			return "urn:li:share:3", nil
		},
	}

	svc := NewService(connectedUserRepo(), draftRepo, publisher, draft.NewHub(), noopMetrics{})

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Publish(context.Background(), "user-1", Request{Content: "本文", DraftID: "d1"})
		firstDone <- err
	}()

	// 1つ目がロックを取得して外部API呼び出しに入るのを待つ
	<-entered

	_, err := svc.Publish(context.Background(), "user-1", Request{Content: "本文", DraftID: "d1"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodePublishInFlight {
		t.Errorf("second publish error = %v, want PUBLISH_IN_FLIGHT", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Errorf("first publish error = %v", err)
	}
}

// TestPublish_TransitionRace は遷移時点で既に公開済みだった場合のエラーを検証する。
func TestPublish_TransitionRace(t *testing.T) {
	draftRepo := &mockDraftRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Draft, error) {
			return &model.Draft{ID: "d1", UserID: "user-1", Content: "本文", Status: model.DraftStatusDraft}, nil
		},
		markPublished: func(ctx context.Context, id, postID string, publishedAt time.Time) (bool, error) {
			return false, nil
		},
	}
	publisher := &mockPublisher{
		getMemberIDFunc: func(ctx context.Context, accessToken string) (string, error) {
			return "member-1", nil
		},
		createPostFunc: func(ctx context.Context, accessToken, memberID, text string) (string, error) {
			return "urn:li:share:4", nil
		},
	}

	svc := NewService(connectedUserRepo(), draftRepo, publisher, draft.NewHub(), noopMetrics{})

	_, err := svc.Publish(context.Background(), "user-1", Request{Content: "本文", DraftID: "d1"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDraftPublished {
		t.Errorf("error = %v, want DRAFT_ALREADY_PUBLISHED", err)
	}
}
