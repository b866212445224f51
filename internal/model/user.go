// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限区分を表す閉じた列挙型。
type Role string

const (
	// RoleUser は一般ユーザーを示す。
	RoleUser Role = "user"
	// RoleAdmin はカタログ・お知らせを管理できる管理者を示す。
	RoleAdmin Role = "admin"
)

// Valid はRoleが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// User は登録ユーザーを表す。
// Emailは全レコードで一意（認証情報レコードの不変条件）。
// PasswordHashが空のユーザーは外部IdP経由で作成されたことを意味し、
// パスワードログインは拒否される。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	IsVerified   bool
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
