// Package model はドメインモデルを定義する。
package model

import "time"

// DefaultMaxRating は評価値の上限のデフォルト。
const DefaultMaxRating = 5

// Metrics はニュース1件ごとのエンゲージメント集計ドキュメントを表す。
// ニュースと同時に作成され、ニュース削除時に削除される。
type Metrics struct {
	NewzID    string
	Views     int
	Shares    int
	AvgRating float64
	UpdatedAt time.Time
}

// Rating はニュースに対する1ユーザーの評価を表す。
// 同一ユーザーによる再評価は加算ではなく上書きされる。
type Rating struct {
	NewzID    string
	RaterID   string
	Score     float64
	UpdatedAt time.Time
}

// NewzView はユーザーによるニュース視聴の記録を表す。
// 一度記録された視聴は取り消されない（seenは終端状態）。
type NewzView struct {
	ViewerID string
	NewzID   string
	ViewedAt time.Time
}

// Follow はフォロー関係のエッジを表す。
type Follow struct {
	FollowerID string
	FollowedID string
	CreatedAt  time.Time
}
