// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// LinkedIn連携情報（アクセストークン）はユーザーレコードのサブレコードとして保持する。
type User struct {
	ID         string
	Email      string
	Name       string
	PictureURL string

	// LinkedIn はLinkedIn連携サブレコード。ユーザーごとに高々1つ。
	LinkedIn LinkedInAccount

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LinkedInAccount はLinkedIn連携サブレコードを表す。
// AccessTokenが空でないことが「連携済み」であることの唯一のシグナル。
type LinkedInAccount struct {
	AccessToken string
	ConnectedAt time.Time
}

// Connected はLinkedIn連携が完了しているかを返す。
func (a LinkedInAccount) Connected() bool {
	return a.AccessToken != ""
}

// Identity は外部IdPとの紐付け情報を表す。
// 現在はLinkedInのみだが、複数IdPに対応可能な構造。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}
