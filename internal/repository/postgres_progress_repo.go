package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/netfrix/backend/internal/model"
)

// PostgresProgressRepo はPostgreSQLを使用した視聴進捗リポジトリ。
type PostgresProgressRepo struct {
	db *sql.DB
}

// NewPostgresProgressRepo はPostgresProgressRepoを生成する。
func NewPostgresProgressRepo(db *sql.DB) *PostgresProgressRepo {
	return &PostgresProgressRepo{db: db}
}

// Upsert は(identity_id, content_id)をキーに進捗を冪等にUPSERTする。
// 単一ステートメントのINSERT ON CONFLICTにより、同一キーへの並行書き込みでも
// 行が重複することはなく、到着順の後勝ちになる。
func (r *PostgresProgressRepo) Upsert(ctx context.Context, identityID, contentID string, seconds int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watch_progress (id, identity_id, content_id, seconds, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())
		 ON CONFLICT (identity_id, content_id) DO UPDATE SET
		     seconds = EXCLUDED.seconds,
		     updated_at = EXCLUDED.updated_at`,
		uuid.New().String(), identityID, contentID, seconds,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert watch progress: %w", err)
	}
	return nil
}

// Find は指定キーの進捗を取得する。見つからない場合はnilを返す。
func (r *PostgresProgressRepo) Find(ctx context.Context, identityID, contentID string) (*model.WatchProgress, error) {
	progress := &model.WatchProgress{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, identity_id, content_id, seconds, created_at, updated_at
		 FROM watch_progress
		 WHERE identity_id = $1 AND content_id = $2`,
		identityID, contentID,
	).Scan(
		&progress.ID, &progress.IdentityID, &progress.ContentID,
		&progress.Seconds, &progress.CreatedAt, &progress.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find watch progress: %w", err)
	}

	return progress, nil
}

// MergeIdentity はfromIDの進捗レコードをtoIDへ統合する。
// 同一コンテンツの進捗が両方に存在する場合はupdated_atが新しい方を残す。
// 統合後、fromID側のレコードは削除する。全体を1トランザクションで実行する。
func (r *PostgresProgressRepo) MergeIdentity(ctx context.Context, fromID, toID string) error {
	if fromID == "" || fromID == toID {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO watch_progress (id, identity_id, content_id, seconds, created_at, updated_at)
		 SELECT gen_random_uuid()::text, $2, content_id, seconds, created_at, updated_at
		 FROM watch_progress WHERE identity_id = $1
		 ON CONFLICT (identity_id, content_id) DO UPDATE SET
		     seconds = EXCLUDED.seconds,
		     updated_at = EXCLUDED.updated_at
		 WHERE watch_progress.updated_at < EXCLUDED.updated_at`,
		fromID, toID,
	)
	if err != nil {
		return fmt.Errorf("failed to merge watch progress: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM watch_progress WHERE identity_id = $1`,
		fromID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete merged watch progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Count は進捗レコード総数を返す。
func (r *PostgresProgressRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM watch_progress`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count watch progress: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ ProgressRepository = (*PostgresProgressRepo)(nil)
