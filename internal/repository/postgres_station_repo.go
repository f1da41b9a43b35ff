package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pocketnewz/internal/model"
)

// refFields はstation_refs上で増減可能なカラムのホワイトリスト。
var refFields = map[CounterField]bool{
	FieldNewzCount:      true,
	FieldFollowingCount: true,
}

// PostgresStationRepo はPostgreSQLを使用したステーションリポジトリ。
// stationsと非正規化サマリーのstation_refsを合わせて管理する。
type PostgresStationRepo struct {
	db *sql.DB
}

// NewPostgresStationRepo はPostgresStationRepoを生成する。
func NewPostgresStationRepo(db *sql.DB) *PostgresStationRepo {
	return &PostgresStationRepo{db: db}
}

// FindByID は指定IDのステーションを取得する。見つからない場合はnilを返す。
func (r *PostgresStationRepo) FindByID(ctx context.Context, id string) (*model.Station, error) {
	station := &model.Station{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, is_public, is_collaborative, created_at, updated_at
		 FROM stations WHERE id = $1`,
		id,
	).Scan(&station.ID, &station.OwnerID, &station.Title,
		&station.IsPublic, &station.IsCollaborative, &station.CreatedAt, &station.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find station: %w", err)
	}

	return station, nil
}

// CreateWithRef はステーションと非正規化station_refを同一トランザクションで作成する。
func (r *PostgresStationRepo) CreateWithRef(ctx context.Context, station *model.Station) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO stations (id, owner_id, title, is_public, is_collaborative, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		station.ID, station.OwnerID, station.Title,
		station.IsPublic, station.IsCollaborative, station.CreatedAt, station.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert station: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO station_refs (station_id, is_public, newz_count, following_count, updated_at)
		 VALUES ($1, $2, 0, 0, $3)`,
		station.ID, station.IsPublic, station.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert station ref: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteByID は指定IDのステーションを削除する。station_refsはCASCADE削除される。
func (r *PostgresStationRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM stations WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete station: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("station not found: %s", id)
	}
	return nil
}

// ListIDsByOwner はユーザーが所有するステーションIDの一覧を返す。
func (r *PostgresStationRepo) ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM stations WHERE owner_id = $1 ORDER BY created_at`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations by owner: %w", err)
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
		return nil, fmt.Errorf("failed to iterate stations: %w", err)
	}

	return ids, nil
}

// AdjustRefCount はstation_refsの指定フィールドをアトミックに増減する。
// GREATESTにより減算は0でクランプされる。参照先が存在しない場合はfalseを返す。
func (r *PostgresStationRepo) AdjustRefCount(ctx context.Context, stationID string, field CounterField, delta int) (bool, error) {
	if !refFields[field] {
		return false, fmt.Errorf("unknown station_refs counter field: %s", field)
	}

	query := fmt.Sprintf(
		`UPDATE station_refs SET %s = GREATEST(%s + $2, 0), updated_at = now() WHERE station_id = $1`,
		field, field,
	)
	result, err := r.db.ExecContext(ctx, query, stationID, delta)
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
var _ StationRepository = (*PostgresStationRepo)(nil)
