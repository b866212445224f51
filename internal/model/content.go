package model

import "time"

// ContentKind はカタログエントリの種別を表す閉じた列挙型。
type ContentKind string

const (
	// ContentKindMovie は単発の映画を示す。
	ContentKindMovie ContentKind = "movie"
	// ContentKindSeries は複数シーズンのシリーズを示す。
	ContentKindSeries ContentKind = "series"
)

// Valid はContentKindが定義済みの値かどうかを返す。
func (k ContentKind) Valid() bool {
	switch k {
	case ContentKindMovie, ContentKindSeries:
		return true
	}
	return false
}

// Content はカタログエントリを表す。
// 視聴進捗トラッカーが参照するコンテンツIDの実体であり、
// スキーマはトラッカーと管理ダッシュボードが必要とする範囲に留める。
type Content struct {
	ID          string
	Title       string
	Kind        ContentKind
	Description string
	PosterURL   string
	Seasons     []Season // Kind == ContentKindSeries の場合のみ
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Season はシリーズの1シーズンを表す。
type Season struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Episodes int    `json:"episodes"`
}
