package model

import "time"

// DraftStatus は下書きのライフサイクル状態を表す。
type DraftStatus string

const (
	// DraftStatusDraft は編集可能な下書き状態。
	DraftStatusDraft DraftStatus = "draft"
	// DraftStatusPublished はLinkedInへ投稿済みの状態。
	// この状態への遷移は公開フローのみが行い、ちょうど1回だけ起こる。
	DraftStatusPublished DraftStatus = "published"
)

// Draft はユーザーが作成した投稿下書きを表す。
// 作成したユーザーのみが所有し、共有されることはない。
type Draft struct {
	ID      string
	UserID  string
	Content string
	Status  DraftStatus

	// LinkedInPostID は公開成功時にLinkedIn APIが返した投稿IDを保持する。
	LinkedInPostID string

	CreatedAt   time.Time
	UpdatedAt   *time.Time
	PublishedAt *time.Time
}

// Published は公開済みかを返す。
func (d *Draft) Published() bool {
	return d.Status == DraftStatusPublished
}
