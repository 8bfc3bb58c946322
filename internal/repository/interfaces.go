// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/postdeck/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// SaveLinkedInAccount はユーザーレコードのLinkedIn連携サブレコードを保存する。
	// 他のフィールドには触れないマージ更新を行う（上書きされるのは連携サブレコードのみ）。
	SaveLinkedInAccount(ctx context.Context, userID string, account model.LinkedInAccount) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、draftsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// DraftRepository は下書きデータの永続化インターフェース。
type DraftRepository interface {
	// Create は下書きを作成する。
	Create(ctx context.Context, draft *model.Draft) error

	// FindByID は指定IDの下書きを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Draft, error)

	// ListByUserID はユーザーの下書き一覧をcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Draft, error)

	// UpdateContent は下書きの本文とupdated_atを更新する。
	// ステータスの検証は呼び出し元（サービス層）が行う。
	UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error

	// MarkPublished は下書きをpublishedへ遷移させ、投稿IDと公開日時を記録する。
	// 既にpublishedの場合は更新されず、falseを返す。
	MarkPublished(ctx context.Context, id, linkedInPostID string, publishedAt time.Time) (bool, error)

	// Delete は指定IDの下書きを削除する。ステータスは問わない。
	Delete(ctx context.Context, id string) error
}
