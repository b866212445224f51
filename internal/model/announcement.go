package model

import "time"

// AnnouncementType はお知らせの種別を表す閉じた列挙型。
type AnnouncementType string

const (
	// AnnouncementTypeInfo は通常のお知らせを示す。
	AnnouncementTypeInfo AnnouncementType = "info"
	// AnnouncementTypeWarning は障害・メンテナンス等の警告を示す。
	AnnouncementTypeWarning AnnouncementType = "warning"
	// AnnouncementTypePromo は新着コンテンツ等のプロモーションを示す。
	AnnouncementTypePromo AnnouncementType = "promo"
)

// Valid はAnnouncementTypeが定義済みの値かどうかを返す。
func (t AnnouncementType) Valid() bool {
	switch t {
	case AnnouncementTypeInfo, AnnouncementTypeWarning, AnnouncementTypePromo:
		return true
	}
	return false
}

// AnnouncementPriority はお知らせの表示優先度を表す閉じた列挙型。
type AnnouncementPriority string

const (
	// PriorityLow は低優先度を示す。
	PriorityLow AnnouncementPriority = "low"
	// PriorityNormal は通常優先度を示す。
	PriorityNormal AnnouncementPriority = "normal"
	// PriorityHigh は高優先度（バナー常時表示）を示す。
	PriorityHigh AnnouncementPriority = "high"
)

// Valid はAnnouncementPriorityが定義済みの値かどうかを返す。
func (p AnnouncementPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// Announcement はトップページ等に表示するお知らせを表す。
// Bodyは保存前にサニタイズ済みのHTML。
type Announcement struct {
	ID        string
	Title     string
	Body      string
	Type      AnnouncementType
	Priority  AnnouncementPriority
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
