package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pocketnewz/internal/model"
)

// PostgresRatingRepo はPostgreSQLを使用した評価リポジトリ。
type PostgresRatingRepo struct {
	db *sql.DB
}

// NewPostgresRatingRepo はPostgresRatingRepoを生成する。
func NewPostgresRatingRepo(db *sql.DB) *PostgresRatingRepo {
	return &PostgresRatingRepo{db: db}
}

// Upsert は評価を冪等にUPSERTする。同一raterの再評価は加算ではなく上書きされる。
// UNIQUE(newz_id, rater_id)制約を利用したINSERT ON CONFLICTで実装する。
func (r *PostgresRatingRepo) Upsert(ctx context.Context, rating *model.Rating) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO newz_ratings (newz_id, rater_id, score, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (newz_id, rater_id) DO UPDATE SET
		     score = EXCLUDED.score,
		     updated_at = EXCLUDED.updated_at`,
		rating.NewzID, rating.RaterID, rating.Score, rating.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	return nil
}

// ListScores は指定ニュースの全評価値を返す。
// 平均再計算はこの全件読み取りの上で行われる（O(rater数)）。
func (r *PostgresRatingRepo) ListScores(ctx context.Context, newzID string) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT score FROM newz_ratings WHERE newz_id = $1`,
		newzID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rating scores: %w", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var score float64
		if err := rows.Scan(&score); err != nil {
			return nil, fmt.Errorf("failed to scan rating score: %w", err)
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rating scores: %w", err)
	}

	return scores, nil
}

// ListNewzIDsByRater は指定ユーザーが評価したニュースIDの一覧を返す。
func (r *PostgresRatingRepo) ListNewzIDsByRater(ctx context.Context, raterID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT newz_id FROM newz_ratings WHERE rater_id = $1`,
		raterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rated newz: %w", err)
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
		return nil, fmt.Errorf("failed to iterate rated newz: %w", err)
	}

	return ids, nil
}

// DeleteByRater は指定ユーザーの全評価を削除する。
func (r *PostgresRatingRepo) DeleteByRater(ctx context.Context, raterID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM newz_ratings WHERE rater_id = $1`,
		raterID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete ratings by rater: %w", err)
	}
	return nil
}

// compile-time interface check
var _ RatingRepository = (*PostgresRatingRepo)(nil)
