package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/netfrix/backend/internal/model"
)

// PostgresContentRepo はPostgreSQLを使用したカタログリポジトリ。
type PostgresContentRepo struct {
	db *sql.DB
}

// NewPostgresContentRepo はPostgresContentRepoを生成する。
func NewPostgresContentRepo(db *sql.DB) *PostgresContentRepo {
	return &PostgresContentRepo{db: db}
}

// scanContent は行スキャン結果をmodel.Contentに組み立てる。
// seasonsはJSONBカラムからデコードする。
func scanContent(scan func(dest ...any) error) (*model.Content, error) {
	content := &model.Content{}
	var seasons []byte

	err := scan(
		&content.ID, &content.Title, &content.Kind, &content.Description,
		&content.PosterURL, &seasons, &content.CreatedAt, &content.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan content: %w", err)
	}

	if len(seasons) > 0 {
		if err := json.Unmarshal(seasons, &content.Seasons); err != nil {
			return nil, fmt.Errorf("failed to decode seasons: %w", err)
		}
	}
	return content, nil
}

// FindByID は指定IDのコンテンツを取得する。見つからない場合はnilを返す。
func (r *PostgresContentRepo) FindByID(ctx context.Context, id string) (*model.Content, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, kind, description, poster_url, seasons, created_at, updated_at
		 FROM contents WHERE id = $1`,
		id,
	)
	return scanContent(row.Scan)
}

// List は全コンテンツを作成日時の降順で返す。
func (r *PostgresContentRepo) List(ctx context.Context) ([]*model.Content, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, kind, description, poster_url, seasons, created_at, updated_at
		 FROM contents ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contents: %w", err)
	}
	defer rows.Close()

	var contents []*model.Content
	for rows.Next() {
		content, err := scanContent(rows.Scan)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contents: %w", err)
	}

	return contents, nil
}

// Create はコンテンツを作成する。
func (r *PostgresContentRepo) Create(ctx context.Context, content *model.Content) error {
	seasons, err := encodeSeasons(content.Seasons)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO contents (id, title, kind, description, poster_url, seasons, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		content.ID, content.Title, content.Kind, content.Description,
		content.PosterURL, seasons, content.CreatedAt, content.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert content: %w", err)
	}
	return nil
}

// Update はコンテンツを更新する。
func (r *PostgresContentRepo) Update(ctx context.Context, content *model.Content) error {
	seasons, err := encodeSeasons(content.Seasons)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE contents SET
		     title = $2, kind = $3, description = $4, poster_url = $5,
		     seasons = $6, updated_at = $7
		 WHERE id = $1`,
		content.ID, content.Title, content.Kind, content.Description,
		content.PosterURL, seasons, content.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update content: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("content not found: %s", content.ID)
	}
	return nil
}

// Delete は指定IDのコンテンツを削除する。
func (r *PostgresContentRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM contents WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("content not found: %s", id)
	}
	return nil
}

// Count はコンテンツ総数を返す。
func (r *PostgresContentRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM contents`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count contents: %w", err)
	}
	return count, nil
}

// encodeSeasons はシーズン一覧をJSONBカラム用にエンコードする。
// 空の場合はNULLを格納する。
func encodeSeasons(seasons []model.Season) (any, error) {
	if len(seasons) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(seasons)
	if err != nil {
		return nil, fmt.Errorf("failed to encode seasons: %w", err)
	}
	return data, nil
}

// compile-time interface check
var _ ContentRepository = (*PostgresContentRepo)(nil)
