package model

import "time"

// WatchProgress は(視聴者ID, コンテンツID)の複合キーごとに1件だけ存在する
// 再生位置のチェックポイントを表す。
// IdentityIDは認証済みユーザーIDまたは匿名ビジターIDのどちらか。
// 書き込みは冪等なUPSERTで、同一キーへの並行書き込みは後勝ち。
type WatchProgress struct {
	ID         string
	IdentityID string
	ContentID  string
	Seconds    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
