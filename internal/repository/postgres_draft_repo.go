package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/postdeck/internal/model"
)

// PostgresDraftRepo はPostgreSQLを使用した下書きリポジトリ。
type PostgresDraftRepo struct {
	db *sql.DB
}

// NewPostgresDraftRepo はPostgresDraftRepoを生成する。
func NewPostgresDraftRepo(db *sql.DB) *PostgresDraftRepo {
	return &PostgresDraftRepo{db: db}
}

// Create は下書きを作成する。
func (r *PostgresDraftRepo) Create(ctx context.Context, draft *model.Draft) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO drafts (id, user_id, content, status, linkedin_post_id, created_at, updated_at, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		draft.ID, draft.UserID, draft.Content, string(draft.Status), draft.LinkedInPostID,
		draft.CreatedAt, draft.UpdatedAt, draft.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert draft: %w", err)
	}
	return nil
}

// FindByID は指定IDの下書きを取得する。見つからない場合はnilを返す。
func (r *PostgresDraftRepo) FindByID(ctx context.Context, id string) (*model.Draft, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, content, status, linkedin_post_id, created_at, updated_at, published_at
		 FROM drafts WHERE id = $1`,
		id,
	)

	draft, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find draft by ID: %w", err)
	}

	return draft, nil
}

// ListByUserID はユーザーの下書き一覧をcreated_at降順で返す。
func (r *PostgresDraftRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Draft, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, content, status, linkedin_post_id, created_at, updated_at, published_at
		 FROM drafts WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	drafts := []*model.Draft{}
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drafts: %w", err)
	}

	return drafts, nil
}

// UpdateContent は下書きの本文とupdated_atを更新する。
func (r *PostgresDraftRepo) UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE drafts SET content = $1, updated_at = $2 WHERE id = $3`,
		content, updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update draft content: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("draft not found: %s", id)
	}
	return nil
}

// MarkPublished は下書きをpublishedへ遷移させ、投稿IDと公開日時を記録する。
// WHERE句でstatus = 'draft'を条件にすることで、draft→publishedの遷移が
// ちょうど1回しか起こらないことをDBレベルで保証する。
func (r *PostgresDraftRepo) MarkPublished(ctx context.Context, id, linkedInPostID string, publishedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE drafts
		 SET status = 'published', linkedin_post_id = $1, published_at = $2
		 WHERE id = $3 AND status = 'draft'`,
		linkedInPostID, publishedAt, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark draft published: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Delete は指定IDの下書きを削除する。
func (r *PostgresDraftRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("draft not found: %s", id)
	}
	return nil
}

// scanner はsql.Rowとsql.Rowsの共通部分。
type scanner interface {
	Scan(dest ...any) error
}

// scanDraft は1行分の下書きレコードを読み取る。
func scanDraft(s scanner) (*model.Draft, error) {
	draft := &model.Draft{}
	var status string
	var updatedAt, publishedAt sql.NullTime

	err := s.Scan(
		&draft.ID, &draft.UserID, &draft.Content, &status, &draft.LinkedInPostID,
		&draft.CreatedAt, &updatedAt, &publishedAt,
	)
	if err != nil {
		return nil, err
	}

	draft.Status = model.DraftStatus(status)
	if updatedAt.Valid {
		t := updatedAt.Time
		draft.UpdatedAt = &t
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		draft.PublishedAt = &t
	}

	return draft, nil
}

// compile-time interface check
var _ DraftRepository = (*PostgresDraftRepo)(nil)
