package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresFollowRepo はPostgreSQLを使用したフォロー関係リポジトリ。
type PostgresFollowRepo struct {
	db *sql.DB
}

// NewPostgresFollowRepo はPostgresFollowRepoを生成する。
func NewPostgresFollowRepo(db *sql.DB) *PostgresFollowRepo {
	return &PostgresFollowRepo{db: db}
}

// Exists はフォローエッジの有無を返す。
func (r *PostgresFollowRepo) Exists(ctx context.Context, followerID, followedID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM follows WHERE follower_id = $1 AND followed_id = $2
		 )`,
		followerID, followedID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check follow edge: %w", err)
	}
	return exists, nil
}

// Create はフォローエッジを作成する。既存エッジに対しては何もしない。
func (r *PostgresFollowRepo) Create(ctx context.Context, followerID, followedID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO follows (follower_id, followed_id, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (follower_id, followed_id) DO NOTHING`,
		followerID, followedID,
	)
	if err != nil {
		return fmt.Errorf("failed to create follow edge: %w", err)
	}
	return nil
}

// Delete はフォローエッジを削除する。
func (r *PostgresFollowRepo) Delete(ctx context.Context, followerID, followedID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followed_id = $2`,
		followerID, followedID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete follow edge: %w", err)
	}
	return nil
}

// ListFollowedIDs は指定ユーザーがフォローしているユーザーIDの一覧を返す。
func (r *PostgresFollowRepo) ListFollowedIDs(ctx context.Context, followerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT followed_id FROM follows WHERE follower_id = $1 ORDER BY created_at`,
		followerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list followed users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan followed id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follows: %w", err)
	}

	return ids, nil
}

// DeleteByUserID は指定ユーザーが関与する全フォローエッジ（両方向）を削除する。
func (r *PostgresFollowRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 OR followed_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete follow edges: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FollowRepository = (*PostgresFollowRepo)(nil)
