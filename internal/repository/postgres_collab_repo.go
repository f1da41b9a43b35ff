package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pocketnewz/internal/model"
)

// PostgresCollabRepo はPostgreSQLを使用したコラボレーションリポジトリ。
type PostgresCollabRepo struct {
	db *sql.DB
}

// NewPostgresCollabRepo はPostgresCollabRepoを生成する。
func NewPostgresCollabRepo(db *sql.DB) *PostgresCollabRepo {
	return &PostgresCollabRepo{db: db}
}

// FindByContributorAndStation は(contributor, station)の組でコラボレーションを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresCollabRepo) FindByContributorAndStation(ctx context.Context, contributorID, stationID string) (*model.Collaboration, error) {
	collab := &model.Collaboration{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, station_id, owner_id, contributor_id, created_at
		 FROM collaborations WHERE contributor_id = $1 AND station_id = $2`,
		contributorID, stationID,
	).Scan(&collab.ID, &collab.StationID, &collab.OwnerID, &collab.ContributorID, &collab.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find collaboration: %w", err)
	}

	return collab, nil
}

// Create はコラボレーション記録を作成する。
func (r *PostgresCollabRepo) Create(ctx context.Context, collab *model.Collaboration) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO collaborations (id, station_id, owner_id, contributor_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		collab.ID, collab.StationID, collab.OwnerID, collab.ContributorID, collab.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create collaboration: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CollaborationRepository = (*PostgresCollabRepo)(nil)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// Create はコメントを作成する。
func (r *PostgresCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (id, newz_id, author_id, body, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, comment.NewzID, comment.AuthorID, comment.Body, comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListByNewzID は指定ニュースのコメント一覧を作成日時昇順で返す。
func (r *PostgresCommentRepo) ListByNewzID(ctx context.Context, newzID string) ([]*model.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, newz_id, author_id, body, created_at
		 FROM comments WHERE newz_id = $1 ORDER BY created_at`,
		newzID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*model.Comment
	for rows.Next() {
		comment := &model.Comment{}
		if err := rows.Scan(&comment.ID, &comment.NewzID, &comment.AuthorID, &comment.Body, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}

	return comments, nil
}

// CountByNewzID は指定ニュースのコメント数を返す。
func (r *PostgresCommentRepo) CountByNewzID(ctx context.Context, newzID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE newz_id = $1`,
		newzID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
