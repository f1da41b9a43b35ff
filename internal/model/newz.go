// Package model はドメインモデルを定義する。
package model

import "time"

// NewzItem は投稿された1件のニュース（ショート動画）を表す。
// コラボレーション投稿の場合、PosterIDはOwnerIDと異なることがある。
type NewzItem struct {
	ID         string
	OwnerID    string
	PosterID   string
	Title      string // サニタイズ済み
	Caption    string // サニタイズ済み
	IsPublic   bool
	UploadDate time.Time
	StationIDs []string
	CreatedAt  time.Time
}

// Comment はニュースへのコメントを表す。
type Comment struct {
	ID        string
	NewzID    string
	AuthorID  string
	Body      string // サニタイズ済み
	CreatedAt time.Time
}
