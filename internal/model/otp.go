package model

import "time"

// OTPMethod はワンタイムコードの配送経路を表す閉じた列挙型。
// 現状はメールのみだが、配送経路の追加を見越して型で区別する。
type OTPMethod string

const (
	// OTPMethodEmail はメールによるコード配送を示す。
	OTPMethodEmail OTPMethod = "email"
)

// Valid はOTPMethodが定義済みの値かどうかを返す。
func (m OTPMethod) Valid() bool {
	return m == OTPMethodEmail
}

// OTPCode は連絡先アドレスの所有確認に使うワンタイムコードを表す。
// 連絡先ごとに「現在有効なコード」は常に1件だけ存在する:
// 新しいコードの発行時に、同じ連絡先の未検証コードは削除される。
// 有効期限は読み取り時に比較して判定し、期限切れレコードの物理削除は
// 日次のパージジョブに任せる（正しさには不要、ストレージ衛生のみ）。
type OTPCode struct {
	ID        string
	Contact   string
	Method    OTPMethod
	Code      string // 6桁固定のゼロ埋め数字文字列
	ExpiresAt time.Time
	Verified  bool
	Attempts  int
	CreatedAt time.Time
}

// Expired は指定時刻においてコードが期限切れかどうかを返す。
func (o *OTPCode) Expired(now time.Time) bool {
	return !o.ExpiresAt.After(now)
}
