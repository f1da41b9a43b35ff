package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pocketnewz/internal/model"
)

// PostgresNewzRepo はPostgreSQLを使用したニュースリポジトリ。
type PostgresNewzRepo struct {
	db *sql.DB
}

// NewPostgresNewzRepo はPostgresNewzRepoを生成する。
func NewPostgresNewzRepo(db *sql.DB) *PostgresNewzRepo {
	return &PostgresNewzRepo{db: db}
}

// FindByID は指定IDのニュースをステーションIDセット込みで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresNewzRepo) FindByID(ctx context.Context, id string) (*model.NewzItem, error) {
	item := &model.NewzItem{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, poster_id, title, caption, is_public, upload_date, created_at
		 FROM newz_items WHERE id = $1`,
		id,
	).Scan(&item.ID, &item.OwnerID, &item.PosterID, &item.Title, &item.Caption,
		&item.IsPublic, &item.UploadDate, &item.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find newz item: %w", err)
	}

	stationIDs, err := r.StationIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	item.StationIDs = stationIDs

	return item, nil
}

// CreateWithMetrics はニュース本体・ステーションリンク・ゼロ初期化メトリクスを
// 同一トランザクションで作成する。
func (r *PostgresNewzRepo) CreateWithMetrics(ctx context.Context, item *model.NewzItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO newz_items (id, owner_id, poster_id, title, caption, is_public, upload_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.OwnerID, item.PosterID, item.Title, item.Caption,
		item.IsPublic, item.UploadDate, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert newz item: %w", err)
	}

	for _, stationID := range item.StationIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO newz_item_stations (newz_id, station_id) VALUES ($1, $2)
			 ON CONFLICT (newz_id, station_id) DO NOTHING`,
			item.ID, stationID,
		)
		if err != nil {
			return fmt.Errorf("failed to link newz to station %s: %w", stationID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO newz_metrics (newz_id, views, shares, avg_rating, updated_at)
		 VALUES ($1, 0, 0, 0, $2)`,
		item.ID, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert newz metrics: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteByID は指定IDのニュースを削除する。
// metrics、ratings、views、comments、station linksはCASCADE削除される。
func (r *PostgresNewzRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM newz_items WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete newz item: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("newz item not found: %s", id)
	}
	return nil
}

// ListIDsByOwner はユーザーが所有するニュースIDの一覧を返す。
func (r *PostgresNewzRepo) ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM newz_items WHERE owner_id = $1 ORDER BY created_at`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list newz by owner: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan newz id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate newz items: %w", err)
	}

	return ids, nil
}

// StationIDs はニュースが属するステーションIDセットを返す。
func (r *PostgresNewzRepo) StationIDs(ctx context.Context, newzID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT station_id FROM newz_item_stations WHERE newz_id = $1 ORDER BY station_id`,
		newzID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list newz stations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan station id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate newz stations: %w", err)
	}

	return ids, nil
}

// compile-time interface check
var _ NewzRepository = (*PostgresNewzRepo)(nil)
