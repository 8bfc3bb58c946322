package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/postdeck/internal/model"
	"github.com/hitoshi/postdeck/internal/token"
)

type mockOAuthProvider struct {
	exchangeCodeFunc  func(ctx context.Context, code, redirectURI string) (string, error)
	fetchUserInfoFunc func(ctx context.Context, accessToken string) (*LinkedInUserInfo, error)
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	return m.exchangeCodeFunc(ctx, code, redirectURI)
}

func (m *mockOAuthProvider) FetchUserInfo(ctx context.Context, accessToken string) (*LinkedInUserInfo, error) {
	return m.fetchUserInfoFunc(ctx, accessToken)
}

type mockUserRepo struct {
	findByIDFunc            func(ctx context.Context, id string) (*model.User, error)
	createWithIdentityFunc  func(ctx context.Context, user *model.User, identity *model.Identity) error
	saveLinkedInAccountFunc func(ctx context.Context, userID string, account model.LinkedInAccount) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	return m.createWithIdentityFunc(ctx, user, identity)
}

func (m *mockUserRepo) SaveLinkedInAccount(ctx context.Context, userID string, account model.LinkedInAccount) error {
	return m.saveLinkedInAccountFunc(ctx, userID, account)
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return nil
}

type mockIdentityRepo struct {
	findFunc func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	return m.findFunc(ctx, provider, providerUserID)
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

func testTokenManager() *token.Manager {
	return token.NewManager("test-secret", time.Hour)
}

// TestSignIn_NewUser は新規ユーザーのサインインを検証する。
func TestSignIn_NewUser(t *testing.T) {
	var createdUser *model.User
	var createdIdentity *model.Identity

	oauth := &mockOAuthProvider{
		exchangeCodeFunc: func(ctx context.Context, code, redirectURI string) (string, error) {
			if code != "auth-code" {
				t.Errorf("code = %q", code)
			}
			if redirectURI != "https://app.example.com/signin" {
				t.Errorf("redirectURI = %q", redirectURI)
			}
			return "access-token", nil
		},
		fetchUserInfoFunc: func(ctx context.Context, accessToken string) (*LinkedInUserInfo, error) {
			return &LinkedInUserInfo{Sub: "li-1", Email: "taro@example.com", Name: "Taro", Picture: "https://img/p.jpg"}, nil
		},
	}
	userRepo := &mockUserRepo{
		createWithIdentityFunc: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			createdUser = user
			createdIdentity = identity
			return nil
		},
	}
	identRepo := &mockIdentityRepo{
		findFunc: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return nil, nil
		},
	}

	svc := NewService(oauth, userRepo, identRepo, testTokenManager(), noopMetrics{}, ServiceConfig{
		SignInRedirectURI:  "https://app.example.com/signin",
		ConnectRedirectURI: "https://app.example.com/connect",
	})

	result, err := svc.SignIn(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if result.SessionToken == "" {
		t.Error("SessionToken should not be empty")
	}
	if createdUser == nil || createdUser.Email != "taro@example.com" {
		t.Errorf("created user = %+v", createdUser)
	}
	if createdIdentity == nil || createdIdentity.Provider != ProviderLinkedIn || createdIdentity.ProviderUserID != "li-1" {
		t.Errorf("created identity = %+v", createdIdentity)
	}
	if createdIdentity != nil && createdIdentity.UserID != createdUser.ID {
		t.Error("identity should reference created user")
	}

	// 発行されたトークンは作成ユーザーのIDを持つ
	userID, err := testTokenManager().Verify(result.SessionToken)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != createdUser.ID {
		t.Errorf("token subject = %q, want %q", userID, createdUser.ID)
	}
}

// TestSignIn_ExistingUser は既存ユーザーのサインインを検証する。
func TestSignIn_ExistingUser(t *testing.T) {
	existing := &model.User{ID: "user-1", Email: "taro@example.com", Name: "Taro"}

	oauth := &mockOAuthProvider{
		exchangeCodeFunc: func(ctx context.Context, code, redirectURI string) (string, error) {
			return "access-token", nil
		},
		fetchUserInfoFunc: func(ctx context.Context, accessToken string) (*LinkedInUserInfo, error) {
			return &LinkedInUserInfo{Sub: "li-1"}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			if id != "user-1" {
				t.Errorf("id = %q", id)
			}
			return existing, nil
		},
		createWithIdentityFunc: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			t.Error("CreateWithIdentity should not be called for existing user")
			return nil
		},
	}
	identRepo := &mockIdentityRepo{
		findFunc: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return &model.Identity{ID: "ident-1", UserID: "user-1", Provider: ProviderLinkedIn, ProviderUserID: "li-1"}, nil
		},
	}

	svc := NewService(oauth, userRepo, identRepo, testTokenManager(), noopMetrics{}, ServiceConfig{})

	result, err := svc.SignIn(context.Background(), "code")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if result.User.ID != "user-1" {
		t.Errorf("user ID = %q, want user-1", result.User.ID)
	}
}

// TestSignIn_ExchangeFailure はトークン交換失敗時にエラーとなることを検証する。
func TestSignIn_ExchangeFailure(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFunc: func(ctx context.Context, code, redirectURI string) (string, error) {
			return "", errors.New("invalid_grant")
		},
	}

	svc := NewService(oauth, &mockUserRepo{}, &mockIdentityRepo{}, testTokenManager(), noopMetrics{}, ServiceConfig{})

	if _, err := svc.SignIn(context.Background(), "bad-code"); err == nil {
		t.Error("SignIn() should fail when exchange fails")
	}
}

// TestConnect_SavesAccessToken は連携フローでトークンが保存されることを検証する。
func TestConnect_SavesAccessToken(t *testing.T) {
	var savedUserID string
	var savedAccount model.LinkedInAccount

	oauth := &mockOAuthProvider{
		exchangeCodeFunc: func(ctx context.Context, code, redirectURI string) (string, error) {
			if redirectURI != "https://app.example.com/connect" {
				t.Errorf("redirectURI = %q", redirectURI)
			}
			return "posting-token", nil
		},
	}
	userRepo := &mockUserRepo{
		saveLinkedInAccountFunc: func(ctx context.Context, userID string, account model.LinkedInAccount) error {
			savedUserID = userID
			savedAccount = account
			return nil
		},
	}

	svc := NewService(oauth, userRepo, &mockIdentityRepo{}, testTokenManager(), noopMetrics{}, ServiceConfig{
		ConnectRedirectURI: "https://app.example.com/connect",
	})

	if err := svc.Connect(context.Background(), "user-1", "connect-code"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if savedUserID != "user-1" {
		t.Errorf("savedUserID = %q", savedUserID)
	}
	if savedAccount.AccessToken != "posting-token" {
		t.Errorf("AccessToken = %q", savedAccount.AccessToken)
	}
	if savedAccount.ConnectedAt.IsZero() {
		t.Error("ConnectedAt should be set")
	}
}

// TestConnect_ExchangeFailure は交換失敗時に保存されないことを検証する。
func TestConnect_ExchangeFailure(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFunc: func(ctx context.Context, code, redirectURI string) (string, error) {
			return "", errors.New("invalid_grant")
		},
	}
	userRepo := &mockUserRepo{
		saveLinkedInAccountFunc: func(ctx context.Context, userID string, account model.LinkedInAccount) error {
			t.Error("SaveLinkedInAccount should not be called when exchange fails")
			return nil
		},
	}

	svc := NewService(oauth, userRepo, &mockIdentityRepo{}, testTokenManager(), noopMetrics{}, ServiceConfig{})

	if err := svc.Connect(context.Background(), "user-1", "bad-code"); err == nil {
		t.Error("Connect() should fail when exchange fails")
	}
}

// TestConnectionStatus は連携状態の取得を検証する。
func TestConnectionStatus(t *testing.T) {
	connectedAt := time.Now()
	userRepo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{
				ID:       "user-1",
				LinkedIn: model.LinkedInAccount{AccessToken: "tok", ConnectedAt: connectedAt},
			}, nil
		},
	}

	svc := NewService(&mockOAuthProvider{}, userRepo, &mockIdentityRepo{}, testTokenManager(), noopMetrics{}, ServiceConfig{})

	account, err := svc.ConnectionStatus(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ConnectionStatus() error = %v", err)
	}
	if !account.Connected() {
		t.Error("account should be connected")
	}
}
