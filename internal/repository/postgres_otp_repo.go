package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/netfrix/backend/internal/model"
)

// PostgresOTPRepo はPostgreSQLを使用したワンタイムコードリポジトリ。
type PostgresOTPRepo struct {
	db *sql.DB
}

// NewPostgresOTPRepo はPostgresOTPRepoを生成する。
func NewPostgresOTPRepo(db *sql.DB) *PostgresOTPRepo {
	return &PostgresOTPRepo{db: db}
}

const otpColumns = `id, contact, method, code, expires_at, verified, attempts, created_at`

func scanOTP(row *sql.Row) (*model.OTPCode, error) {
	otp := &model.OTPCode{}
	err := row.Scan(
		&otp.ID, &otp.Contact, &otp.Method, &otp.Code,
		&otp.ExpiresAt, &otp.Verified, &otp.Attempts, &otp.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan otp code: %w", err)
	}
	return otp, nil
}

// Create はコードレコードを作成する。
func (r *PostgresOTPRepo) Create(ctx context.Context, otp *model.OTPCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_codes (id, contact, method, code, expires_at, verified, attempts, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		otp.ID, otp.Contact, otp.Method, otp.Code,
		otp.ExpiresAt, otp.Verified, otp.Attempts, otp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert otp code: %w", err)
	}
	return nil
}

// DeleteUnverifiedByContact は同一連絡先の未検証コードを削除する。
func (r *PostgresOTPRepo) DeleteUnverifiedByContact(ctx context.Context, contact string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_codes WHERE contact = $1 AND verified = FALSE`,
		contact,
	)
	if err != nil {
		return fmt.Errorf("failed to delete unverified otp codes: %w", err)
	}
	return nil
}

// FindByContactAndCode は連絡先とコードの組でレコードを検索する。
// 複数件ある場合は最新の発行分を返す。見つからない場合はnilを返す。
func (r *PostgresOTPRepo) FindByContactAndCode(ctx context.Context, contact, code string) (*model.OTPCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+otpColumns+` FROM otp_codes
		 WHERE contact = $1 AND code = $2
		 ORDER BY created_at DESC LIMIT 1`,
		contact, code,
	)
	return scanOTP(row)
}

// FindVerified は検証済みかつ未期限切れのレコードを検索する。見つからない場合はnilを返す。
func (r *PostgresOTPRepo) FindVerified(ctx context.Context, contact, code string, now time.Time) (*model.OTPCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+otpColumns+` FROM otp_codes
		 WHERE contact = $1 AND code = $2 AND verified = TRUE AND expires_at > $3
		 ORDER BY created_at DESC LIMIT 1`,
		contact, code, now,
	)
	return scanOTP(row)
}

// MarkVerified は指定レコードの検証済みフラグを立てる。
func (r *PostgresOTPRepo) MarkVerified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE otp_codes SET verified = TRUE WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark otp verified: %w", err)
	}
	return nil
}

// IncrementAttempts は連絡先の最新コードの試行回数を加算する。
func (r *PostgresOTPRepo) IncrementAttempts(ctx context.Context, contact string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE otp_codes SET attempts = attempts + 1
		 WHERE id = (
		     SELECT id FROM otp_codes
		     WHERE contact = $1 AND verified = FALSE
		     ORDER BY created_at DESC LIMIT 1
		 )`,
		contact,
	)
	if err != nil {
		return fmt.Errorf("failed to increment otp attempts: %w", err)
	}
	return nil
}

// DeleteByID は指定レコードを削除する。
func (r *PostgresOTPRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_codes WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete otp code: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れレコードを削除し、削除件数を返す。
func (r *PostgresOTPRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_codes WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otp codes: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ OTPRepository = (*PostgresOTPRepo)(nil)
