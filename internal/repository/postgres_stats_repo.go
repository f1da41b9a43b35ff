package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pocketnewz/internal/model"
)

// statsFields はnewzer_stats上で増減可能なカラムのホワイトリスト。
// CounterFieldはSQLに埋め込まれるため、ここに無いフィールドは拒否する。
var statsFields = map[CounterField]bool{
	FieldFollowerCount: true,
	FieldNewzCount:     true,
	FieldStationCount:  true,
}

// PostgresStatsRepo はPostgreSQLを使用したnewzer_statsリポジトリ。
type PostgresStatsRepo struct {
	db *sql.DB
}

// NewPostgresStatsRepo はPostgresStatsRepoを生成する。
func NewPostgresStatsRepo(db *sql.DB) *PostgresStatsRepo {
	return &PostgresStatsRepo{db: db}
}

// FindByOwnerID は指定ユーザーの統計を取得する。見つからない場合はnilを返す。
func (r *PostgresStatsRepo) FindByOwnerID(ctx context.Context, ownerID string) (*model.NewzerStats, error) {
	stats := &model.NewzerStats{}
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_id, follower_count, newz_count, station_count, updated_at
		 FROM newzer_stats WHERE owner_id = $1`,
		ownerID,
	).Scan(&stats.OwnerID, &stats.FollowerCount, &stats.NewzCount, &stats.StationCount, &stats.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find newzer stats: %w", err)
	}

	return stats, nil
}

// AdjustCount は指定フィールドをdeltaだけ単一のアトミックなUPDATEで増減する。
// GREATESTにより減算は0でクランプされ、並行更新でも更新が失われない。
// 親ドキュメントが存在しない場合はfalseを返し、エラーにはしない。
func (r *PostgresStatsRepo) AdjustCount(ctx context.Context, ownerID string, field CounterField, delta int) (bool, error) {
	if !statsFields[field] {
		return false, fmt.Errorf("unknown newzer_stats counter field: %s", field)
	}

	query := fmt.Sprintf(
		`UPDATE newzer_stats SET %s = GREATEST(%s + $2, 0), updated_at = now() WHERE owner_id = $1`,
		field, field,
	)
	result, err := r.db.ExecContext(ctx, query, ownerID, delta)
	if err != nil {
		return false, fmt.Errorf("failed to adjust %s: %w", field, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// compile-time interface check
var _ StatsRepository = (*PostgresStatsRepo)(nil)
