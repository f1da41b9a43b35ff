package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pocketnewz/internal/model"
)

// PostgresMetricsRepo はPostgreSQLを使用したエンゲージメント集計リポジトリ。
// 視聴・共有の増分はRETURNING付きの単一UPDATEで行い、
// read-modify-writeによる更新ロストを起こさない。
type PostgresMetricsRepo struct {
	db *sql.DB
}

// NewPostgresMetricsRepo はPostgresMetricsRepoを生成する。
func NewPostgresMetricsRepo(db *sql.DB) *PostgresMetricsRepo {
	return &PostgresMetricsRepo{db: db}
}

// FindByNewzID は指定ニュースのメトリクスを取得する。見つからない場合はnilを返す。
func (r *PostgresMetricsRepo) FindByNewzID(ctx context.Context, newzID string) (*model.Metrics, error) {
	metrics := &model.Metrics{}
	err := r.db.QueryRowContext(ctx,
		`SELECT newz_id, views, shares, avg_rating, updated_at
		 FROM newz_metrics WHERE newz_id = $1`,
		newzID,
	).Scan(&metrics.NewzID, &metrics.Views, &metrics.Shares, &metrics.AvgRating, &metrics.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find newz metrics: %w", err)
	}

	return metrics, nil
}

// IncrementViews は視聴数を+1し、更新後の値を返す。
func (r *PostgresMetricsRepo) IncrementViews(ctx context.Context, newzID string) (int, error) {
	var views int
	err := r.db.QueryRowContext(ctx,
		`UPDATE newz_metrics SET views = views + 1, updated_at = now()
		 WHERE newz_id = $1
		 RETURNING views`,
		newzID,
	).Scan(&views)

	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("newz metrics not found: %s", newzID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment views: %w", err)
	}

	return views, nil
}

// IncrementShares は共有数を+1し、更新後の値を返す。
func (r *PostgresMetricsRepo) IncrementShares(ctx context.Context, newzID string) (int, error) {
	var shares int
	err := r.db.QueryRowContext(ctx,
		`UPDATE newz_metrics SET shares = shares + 1, updated_at = now()
		 WHERE newz_id = $1
		 RETURNING shares`,
		newzID,
	).Scan(&shares)

	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("newz metrics not found: %s", newzID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment shares: %w", err)
	}

	return shares, nil
}

// UpdateAvgRating は平均評価を上書きする。
func (r *PostgresMetricsRepo) UpdateAvgRating(ctx context.Context, newzID string, avg float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE newz_metrics SET avg_rating = $2, updated_at = now() WHERE newz_id = $1`,
		newzID, avg,
	)
	if err != nil {
		return fmt.Errorf("failed to update avg rating: %w", err)
	}
	return nil
}

// compile-time interface check
var _ MetricsRepository = (*PostgresMetricsRepo)(nil)
