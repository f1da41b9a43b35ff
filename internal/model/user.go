// Package model はドメインモデルを定義する。
package model

import "time"

// User はプラットフォーム利用ユーザー（Newzer）を表す。
// 認証済みアイデンティティごとに1回だけ作成される。
type User struct {
	ID         string
	Email      string
	Name       string
	GivenName  string
	FamilyName string
	PhotoURL   string
	Phone      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewzerStats はユーザーごとの非正規化カウンタードキュメントを表す。
// 各カウントは関連エンティティの実数を反映し、常に0以上を保つ。
type NewzerStats struct {
	OwnerID       string
	FollowerCount int
	NewzCount     int
	StationCount  int
	UpdatedAt     time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IdentityEvent はIdPから通知されるアイデンティティライフサイクルイベントを表す。
type IdentityEvent struct {
	Type       IdentityEventType
	UserID     string
	Email      string
	Name       string
	GivenName  string
	FamilyName string
	PhotoURL   string
	Phone      string
}

// IdentityEventType はアイデンティティイベントの種別を表す。
type IdentityEventType string

const (
	// IdentityCreated はアイデンティティ作成イベント。
	IdentityCreated IdentityEventType = "identity.created"
	// IdentityDeleted はアイデンティティ削除イベント。
	IdentityDeleted IdentityEventType = "identity.deleted"
)
