package model

import "time"

// Article は外部スクレイパーが収集したニュース記事を表す。
// 記事ストア（MongoDB）から読み取り専用で取得する。
type Article struct {
	ID        string
	Title     string
	URL       string
	Source    string
	Content   string
	CreatedAt time.Time
}
