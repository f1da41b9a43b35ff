// Package model はドメインモデルを定義する。
package model

import "time"

// Station はユーザーが所有する投稿チャンネルを表す。
// 所有者は常に1人。コラボレーション設定が有効な場合のみ他ユーザーが投稿できる。
type Station struct {
	ID              string
	OwnerID         string
	Title           string
	IsPublic        bool
	IsCollaborative bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StationRef はステーションの非正規化サマリーを表す。
// コレクション横断の参照用に可視性フラグとカウンターのみを持つ。
type StationRef struct {
	StationID      string
	IsPublic       bool
	NewzCount      int
	FollowingCount int
	UpdatedAt      time.Time
}

// Collaboration はステーションへの投稿権限の付与を表す。
// (contributor_id, station_id) の組み合わせごとに1件のみ存在する。
type Collaboration struct {
	ID            string
	StationID     string
	OwnerID       string
	ContributorID string
	CreatedAt     time.Time
}

// Path はコラボレーションレコードの階層パスを返す。
func (c *Collaboration) Path() string {
	return "collaborations/" + c.ID
}
