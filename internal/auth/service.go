package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/postdeck/internal/metrics"
	"github.com/hitoshi/postdeck/internal/model"
	"github.com/hitoshi/postdeck/internal/repository"
	"github.com/hitoshi/postdeck/internal/token"
)

// ProviderLinkedIn はidentitiesテーブル上のLinkedInプロバイダー名。
const ProviderLinkedIn = "linkedin"

// OAuthProvider はLinkedIn OAuthプロバイダーのインターフェース。
type OAuthProvider interface {
	// ExchangeCode は認可コードをアクセストークンに交換する。
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
	// FetchUserInfo はアクセストークンでプロフィールを取得する。
	FetchUserInfo(ctx context.Context, accessToken string) (*LinkedInUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	// SignInRedirectURI はサインインフローで使用するredirect_uri。
	SignInRedirectURI string
	// ConnectRedirectURI は連携フローで使用するredirect_uri。
	// サインインとは別のコールバック画面を持つため個別に設定する。
	ConnectRedirectURI string
}

// SignInResult はサインイン成功時の結果。
type SignInResult struct {
	SessionToken string
	User         *model.User
}

// Service はサインインとLinkedIn連携のビジネスロジックを提供する。
type Service struct {
	oauth     OAuthProvider
	userRepo  repository.UserRepository
	identRepo repository.IdentityRepository
	tokens    *token.Manager
	metrics   metrics.MetricsCollector
	config    ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	tokens *token.Manager,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:     oauth,
		userRepo:  userRepo,
		identRepo: identRepo,
		tokens:    tokens,
		metrics:   collector,
		config:    config,
	}
}

// SignIn は認可コードでサインインし、セッショントークンを発行する。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に自動作成する。
// 登録済みユーザーの場合はidentitiesテーブルで既存ユーザーを特定しログインする。
// サインインフローで取得したアクセストークンは保存しない（連携フローとは独立）。
func (s *Service) SignIn(ctx context.Context, code string) (*SignInResult, error) {
	// 1. 認可コードをトークンに交換
	accessToken, err := s.oauth.ExchangeCode(ctx, code, s.config.SignInRedirectURI)
	if err != nil {
		s.metrics.RecordTokenExchangeFailure()
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}
	s.metrics.RecordTokenExchangeSuccess()

	// 2. プロフィールを取得
	userInfo, err := s.oauth.FetchUserInfo(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}

	// 3. identitiesテーブルで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, ProviderLinkedIn, userInfo.Sub)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var user *model.User

	if identity != nil {
		// 4a. 既存ユーザー
		user, err = s.userRepo.FindByID(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return nil, fmt.Errorf("identity references missing user: %s", identity.UserID)
		}
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("provider", ProviderLinkedIn),
		)
	} else {
		// 4b. 新規ユーザー: usersレコードとidentitiesレコードを同時に作成
		now := time.Now()
		user = &model.User{
			ID:         uuid.New().String(),
			Email:      userInfo.Email,
			Name:       userInfo.Name,
			PictureURL: userInfo.Picture,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		newIdentity := &model.Identity{
			ID:             uuid.New().String(),
			UserID:         user.ID,
			Provider:       ProviderLinkedIn,
			ProviderUserID: userInfo.Sub,
			CreatedAt:      now,
		}
		if err := s.userRepo.CreateWithIdentity(ctx, user, newIdentity); err != nil {
			return nil, fmt.Errorf("failed to create user and identity: %w", err)
		}
		slog.Info("new user registered",
			slog.String("user_id", user.ID),
			slog.String("provider", ProviderLinkedIn),
		)
	}

	// 5. セッショントークンを発行
	sessionToken, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return &SignInResult{
		SessionToken: sessionToken,
		User:         user,
	}, nil
}

// Connect は認可コードを投稿用アクセストークンに交換し、ユーザーレコードの
// 連携サブレコードへ保存する。交換は1回限りで、失敗時はリトライせず
// そのままエラーを返す（呼び出し元が再連携を案内する）。
func (s *Service) Connect(ctx context.Context, userID, code string) error {
	accessToken, err := s.oauth.ExchangeCode(ctx, code, s.config.ConnectRedirectURI)
	if err != nil {
		s.metrics.RecordTokenExchangeFailure()
		return fmt.Errorf("failed to exchange oauth code: %w", err)
	}
	s.metrics.RecordTokenExchangeSuccess()

	account := model.LinkedInAccount{
		AccessToken: accessToken,
		ConnectedAt: time.Now(),
	}
	if err := s.userRepo.SaveLinkedInAccount(ctx, userID, account); err != nil {
		return fmt.Errorf("failed to save linkedin account: %w", err)
	}

	slog.Info("linkedin account connected", slog.String("user_id", userID))
	return nil
}

// ConnectionStatus は指定ユーザーのLinkedIn連携状態を返す。
func (s *Service) ConnectionStatus(ctx context.Context, userID string) (*model.LinkedInAccount, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", userID)
	}
	return &user.LinkedIn, nil
}
