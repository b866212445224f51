package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/netfrix/backend/internal/model"
)

// PostgresAnnouncementRepo はPostgreSQLを使用したお知らせリポジトリ。
type PostgresAnnouncementRepo struct {
	db *sql.DB
}

// NewPostgresAnnouncementRepo はPostgresAnnouncementRepoを生成する。
func NewPostgresAnnouncementRepo(db *sql.DB) *PostgresAnnouncementRepo {
	return &PostgresAnnouncementRepo{db: db}
}

const announcementColumns = `id, title, body, type, priority, is_active, created_at, updated_at`

func scanAnnouncement(scan func(dest ...any) error) (*model.Announcement, error) {
	a := &model.Announcement{}
	err := scan(
		&a.ID, &a.Title, &a.Body, &a.Type, &a.Priority,
		&a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan announcement: %w", err)
	}
	return a, nil
}

// FindByID は指定IDのお知らせを取得する。見つからない場合はnilを返す。
func (r *PostgresAnnouncementRepo) FindByID(ctx context.Context, id string) (*model.Announcement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+announcementColumns+` FROM announcements WHERE id = $1`,
		id,
	)
	return scanAnnouncement(row.Scan)
}

// listQuery は共通の一覧取得処理。
func (r *PostgresAnnouncementRepo) listQuery(ctx context.Context, query string, args ...any) ([]*model.Announcement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	defer rows.Close()

	var announcements []*model.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows.Scan)
		if err != nil {
			return nil, err
		}
		announcements = append(announcements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate announcements: %w", err)
	}

	return announcements, nil
}

// ListActive は有効なお知らせを優先度の高い順、次いで新しい順で返す。
func (r *PostgresAnnouncementRepo) ListActive(ctx context.Context) ([]*model.Announcement, error) {
	return r.listQuery(ctx,
		`SELECT `+announcementColumns+` FROM announcements
		 WHERE is_active = TRUE
		 ORDER BY
		     CASE priority WHEN 'high' THEN 0 WHEN 'normal' THEN 1 ELSE 2 END,
		     created_at DESC`,
	)
}

// List は全お知らせを作成日時の降順で返す。
func (r *PostgresAnnouncementRepo) List(ctx context.Context) ([]*model.Announcement, error) {
	return r.listQuery(ctx,
		`SELECT `+announcementColumns+` FROM announcements ORDER BY created_at DESC`,
	)
}

// Create はお知らせを作成する。
func (r *PostgresAnnouncementRepo) Create(ctx context.Context, a *model.Announcement) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO announcements (id, title, body, type, priority, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Title, a.Body, a.Type, a.Priority, a.IsActive, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert announcement: %w", err)
	}
	return nil
}

// Update はお知らせを更新する。
func (r *PostgresAnnouncementRepo) Update(ctx context.Context, a *model.Announcement) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE announcements SET
		     title = $2, body = $3, type = $4, priority = $5, is_active = $6, updated_at = $7
		 WHERE id = $1`,
		a.ID, a.Title, a.Body, a.Type, a.Priority, a.IsActive, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update announcement: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("announcement not found: %s", a.ID)
	}
	return nil
}

// Delete は指定IDのお知らせを削除する。
func (r *PostgresAnnouncementRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM announcements WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete announcement: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("announcement not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ AnnouncementRepository = (*PostgresAnnouncementRepo)(nil)
