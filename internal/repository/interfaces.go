// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/netfrix/backend/internal/model"
)

// UserRepository は認証情報レコードの永続化インターフェース。
// このサブシステムはユーザーを物理削除しない。
type UserRepository interface {
	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザーを作成する。emailの一意制約違反はエラーになる。
	Create(ctx context.Context, user *model.User) error

	// UpdateLastLogin は最終ログイン時刻を更新する。
	UpdateLastLogin(ctx context.Context, email string, at time.Time) error

	// MarkVerified は連絡先所有確認フラグを立てる。
	MarkVerified(ctx context.Context, email string) error

	// UpdatePasswordHash はパスワードハッシュを差し替える。
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error

	// Count は登録ユーザー数を返す。管理ダッシュボード用。
	Count(ctx context.Context) (int, error)
}

// OTPRepository はワンタイムコードの永続化インターフェース。
type OTPRepository interface {
	// Create はコードレコードを作成する。
	Create(ctx context.Context, otp *model.OTPCode) error

	// DeleteUnverifiedByContact は同一連絡先の未検証コードを削除する。
	// 新規発行前に呼び、連絡先ごとに有効なコードを常に1件に保つ。
	DeleteUnverifiedByContact(ctx context.Context, contact string) error

	// FindByContactAndCode は連絡先とコードの組でレコードを検索する。
	// 期限・検証済みフラグの判定は呼び出し側で行う。見つからない場合はnilを返す。
	FindByContactAndCode(ctx context.Context, contact, code string) (*model.OTPCode, error)

	// FindVerified は検証済みかつ未期限切れのレコードを検索する。
	// パスワード再設定の前提条件チェック用。見つからない場合はnilを返す。
	FindVerified(ctx context.Context, contact, code string, now time.Time) (*model.OTPCode, error)

	// MarkVerified は指定レコードの検証済みフラグを立てる。
	MarkVerified(ctx context.Context, id string) error

	// IncrementAttempts は連絡先の最新コードの試行回数を加算する。
	IncrementAttempts(ctx context.Context, contact string) error

	// DeleteByID は指定レコードを削除する。パスワード再設定完了時の消費用。
	DeleteByID(ctx context.Context, id string) error

	// DeleteExpired は期限切れレコードを削除し、削除件数を返す。
	// ストレージ衛生のためのパージであり、正しさには影響しない。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ProgressRepository は視聴進捗レコードの永続化インターフェース。
type ProgressRepository interface {
	// Upsert は(identity_id, content_id)をキーに進捗を冪等にUPSERTする。
	// 単一ステートメントのINSERT ON CONFLICTで実行し、同一キーへの
	// 並行書き込みは後勝ちになる。
	Upsert(ctx context.Context, identityID, contentID string, seconds int) error

	// Find は指定キーの進捗を取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, identityID, contentID string) (*model.WatchProgress, error)

	// MergeIdentity はfromIDの進捗レコードをtoIDへ統合する。
	// 同一コンテンツの進捗が両方に存在する場合はupdated_atが新しい方を残す。
	MergeIdentity(ctx context.Context, fromID, toID string) error

	// Count は進捗レコード総数を返す。管理ダッシュボード用。
	Count(ctx context.Context) (int, error)
}

// ContentRepository はカタログエントリの永続化インターフェース。
type ContentRepository interface {
	// FindByID は指定IDのコンテンツを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Content, error)

	// List は全コンテンツを作成日時の降順で返す。
	List(ctx context.Context) ([]*model.Content, error)

	// Create はコンテンツを作成する。
	Create(ctx context.Context, content *model.Content) error

	// Update はコンテンツを更新する。
	Update(ctx context.Context, content *model.Content) error

	// Delete は指定IDのコンテンツを削除する。
	Delete(ctx context.Context, id string) error

	// Count はコンテンツ総数を返す。管理ダッシュボード用。
	Count(ctx context.Context) (int, error)
}

// AnnouncementRepository はお知らせの永続化インターフェース。
type AnnouncementRepository interface {
	// FindByID は指定IDのお知らせを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Announcement, error)

	// ListActive は有効なお知らせを優先度・作成日時順で返す。
	ListActive(ctx context.Context) ([]*model.Announcement, error)

	// List は全お知らせを作成日時の降順で返す。管理画面用。
	List(ctx context.Context) ([]*model.Announcement, error)

	// Create はお知らせを作成する。
	Create(ctx context.Context, a *model.Announcement) error

	// Update はお知らせを更新する。
	Update(ctx context.Context, a *model.Announcement) error

	// Delete は指定IDのお知らせを削除する。
	Delete(ctx context.Context, id string) error
}
