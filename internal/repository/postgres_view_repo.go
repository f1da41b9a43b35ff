package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresViewRepo はPostgreSQLを使用した視聴記録リポジトリ。
type PostgresViewRepo struct {
	db *sql.DB
}

// NewPostgresViewRepo はPostgresViewRepoを生成する。
func NewPostgresViewRepo(db *sql.DB) *PostgresViewRepo {
	return &PostgresViewRepo{db: db}
}

// MarkViewed は視聴記録を作成する。初回の視聴であればtrueを返す。
// ON CONFLICT DO NOTHINGにより、同一(viewer, newz)の再視聴は何も変更しない。
func (r *PostgresViewRepo) MarkViewed(ctx context.Context, viewerID, newzID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO newz_views (viewer_id, newz_id, viewed_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (viewer_id, newz_id) DO NOTHING`,
		viewerID, newzID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark viewed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// DeleteByViewer は指定ユーザーの全視聴記録を削除する。
func (r *PostgresViewRepo) DeleteByViewer(ctx context.Context, viewerID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM newz_views WHERE viewer_id = $1`,
		viewerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete views by viewer: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ViewRepository = (*PostgresViewRepo)(nil)
