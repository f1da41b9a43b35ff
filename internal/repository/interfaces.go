// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/pocketnewz/internal/model"
)

// CounterField はカウンタードキュメント上のフィールド名を表す。
// SQLに埋め込まれるため、定義済みの値のみを使用すること。
type CounterField string

const (
	// FieldFollowerCount はnewzer_statsのフォロワー数フィールド。
	FieldFollowerCount CounterField = "follower_count"
	// FieldNewzCount はnewzer_stats / station_refsのニュース数フィールド。
	FieldNewzCount CounterField = "newz_count"
	// FieldStationCount はnewzer_statsのステーション数フィールド。
	FieldStationCount CounterField = "station_count"
	// FieldFollowingCount はstation_refsのフォロー数フィールド。
	FieldFollowingCount CounterField = "following_count"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithStats はユーザーとゼロ初期化されたnewzer_statsを同一トランザクションで作成する。
	CreateWithStats(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// newzer_stats、sessionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// StatsRepository はnewzer_statsカウンターの永続化インターフェース。
type StatsRepository interface {
	// FindByOwnerID は指定ユーザーの統計を取得する。見つからない場合はnilを返す。
	FindByOwnerID(ctx context.Context, ownerID string) (*model.NewzerStats, error)

	// AdjustCount は指定フィールドをdeltaだけ単一のアトミックなUPDATEで増減する。
	// 減算は0でクランプされる。親ドキュメントが存在しない場合はfalseを返し、エラーにはしない。
	AdjustCount(ctx context.Context, ownerID string, field CounterField, delta int) (bool, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// StationRepository はステーションデータの永続化インターフェース。
type StationRepository interface {
	// FindByID は指定IDのステーションを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Station, error)

	// CreateWithRef はステーションと非正規化station_refを同一トランザクションで作成する。
	CreateWithRef(ctx context.Context, station *model.Station) error

	// DeleteByID は指定IDのステーションを削除する。station_refsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// ListIDsByOwner はユーザーが所有するステーションIDの一覧を返す。
	ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error)

	// AdjustRefCount はstation_refsの指定フィールドをアトミックに増減する。
	// 減算は0でクランプされる。参照先が存在しない場合はfalseを返す。
	AdjustRefCount(ctx context.Context, stationID string, field CounterField, delta int) (bool, error)
}

// NewzRepository はニュースデータの永続化インターフェース。
type NewzRepository interface {
	// FindByID は指定IDのニュースをステーションIDセット込みで取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.NewzItem, error)

	// CreateWithMetrics はニュース本体・ステーションリンク・ゼロ初期化メトリクスを
	// 同一トランザクションで作成する。
	CreateWithMetrics(ctx context.Context, item *model.NewzItem) error

	// DeleteByID は指定IDのニュースを削除する。
	// metrics、ratings、views、comments、station linksはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// ListIDsByOwner はユーザーが所有するニュースIDの一覧を返す。
	ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error)

	// StationIDs はニュースが属するステーションIDセットを返す。
	StationIDs(ctx context.Context, newzID string) ([]string, error)
}

// MetricsRepository はエンゲージメント集計の永続化インターフェース。
// すべての増分は単一のアトミックなUPDATEで行い、read-modify-writeはしない。
type MetricsRepository interface {
	// FindByNewzID は指定ニュースのメトリクスを取得する。見つからない場合はnilを返す。
	FindByNewzID(ctx context.Context, newzID string) (*model.Metrics, error)

	// IncrementViews は視聴数を+1し、更新後の値を返す。
	IncrementViews(ctx context.Context, newzID string) (int, error)

	// IncrementShares は共有数を+1し、更新後の値を返す。
	IncrementShares(ctx context.Context, newzID string) (int, error)

	// UpdateAvgRating は平均評価を上書きする。
	UpdateAvgRating(ctx context.Context, newzID string, avg float64) error
}

// RatingRepository は個別評価の永続化インターフェース。
type RatingRepository interface {
	// Upsert は評価を冪等にUPSERTする。同一raterの再評価は上書きされる。
	Upsert(ctx context.Context, rating *model.Rating) error

	// ListScores は指定ニュースの全評価値を返す。
	ListScores(ctx context.Context, newzID string) ([]float64, error)

	// ListNewzIDsByRater は指定ユーザーが評価したニュースIDの一覧を返す。
	ListNewzIDsByRater(ctx context.Context, raterID string) ([]string, error)

	// DeleteByRater は指定ユーザーの全評価を削除する。
	DeleteByRater(ctx context.Context, raterID string) error
}

// ViewRepository は視聴記録の永続化インターフェース。
type ViewRepository interface {
	// MarkViewed は視聴記録を作成する。初回の視聴であればtrueを返す。
	// 既に記録がある場合は何も変更せずfalseを返す（seenは終端状態）。
	MarkViewed(ctx context.Context, viewerID, newzID string) (bool, error)

	// DeleteByViewer は指定ユーザーの全視聴記録を削除する。
	DeleteByViewer(ctx context.Context, viewerID string) error
}

// FollowRepository はフォロー関係の永続化インターフェース。
type FollowRepository interface {
	// Exists はフォローエッジの有無を返す。
	Exists(ctx context.Context, followerID, followedID string) (bool, error)

	// Create はフォローエッジを作成する。
	Create(ctx context.Context, followerID, followedID string) error

	// Delete はフォローエッジを削除する。
	Delete(ctx context.Context, followerID, followedID string) error

	// ListFollowedIDs は指定ユーザーがフォローしているユーザーIDの一覧を返す。
	ListFollowedIDs(ctx context.Context, followerID string) ([]string, error)

	// DeleteByUserID は指定ユーザーが関与する全フォローエッジ（両方向）を削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// CollaborationRepository はコラボレーション記録の永続化インターフェース。
type CollaborationRepository interface {
	// FindByContributorAndStation は(contributor, station)の組でコラボレーションを検索する。
	// 見つからない場合はnilを返す。
	FindByContributorAndStation(ctx context.Context, contributorID, stationID string) (*model.Collaboration, error)

	// Create はコラボレーション記録を作成する。
	Create(ctx context.Context, collab *model.Collaboration) error
}

// CommentRepository はコメントの永続化インターフェース。
type CommentRepository interface {
	// Create はコメントを作成する。
	Create(ctx context.Context, comment *model.Comment) error

	// ListByNewzID は指定ニュースのコメント一覧を作成日時昇順で返す。
	ListByNewzID(ctx context.Context, newzID string) ([]*model.Comment, error)

	// CountByNewzID は指定ニュースのコメント数を返す。
	CountByNewzID(ctx context.Context, newzID string) (int, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
