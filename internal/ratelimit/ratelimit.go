// Package ratelimit はクライアントIP単位の固定ウィンドウレート制限を提供する。
// カウンターはプロセスメモリのみに保持し、再起動でリセットされる。
// 複数インスタンス構成では外部の共有カウンターストアが必要になる（未対応）。
package ratelimit

import (
	"sync"
	"time"
)

// window はキーごとのカウンターと現在ウィンドウの開始時刻を保持する。
type window struct {
	count   int
	startAt time.Time
}

// Limiter は固定ウィンドウカウンター方式のレートリミッター。
// プロセス起動時に1回構築し、ハンドラーに参照として渡す。
// 同一キーへの並行呼び出しでも取りこぼしが起きないよう、
// カウンターの判定と加算はミューテックス内で行う。
type Limiter struct {
	limit  int
	length time.Duration
	now    func() time.Time // テストで時刻を注入するためのフック

	mu      sync.Mutex
	windows map[string]*window

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New はLimiterを生成する。limit回/lengthウィンドウを上限とする。
// バックグラウンドで期限切れウィンドウのクリーンアップを開始する。
func New(limit int, length time.Duration) *Limiter {
	l := &Limiter{
		limit:   limit,
		length:  length,
		now:     time.Now,
		windows: make(map[string]*window),
		stopCh:  make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// NewWithClock は時刻関数を注入したLimiterを生成する。テスト用。
// クリーンアップゴルーチンは起動しない。
func NewWithClock(limit int, length time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		limit:   limit,
		length:  length,
		now:     now,
		windows: make(map[string]*window),
		stopCh:  make(chan struct{}),
	}
}

// Allow はキーのリクエストを1回分消費し、上限内であればtrueを返す。
// キーの初回観測時、または前回ウィンドウの開始からウィンドウ長が経過した場合は
// カウントを1にリセットして許可する。それ以外はカウントを加算し、
// 上限以内なら許可、超過なら拒否する。ブロックもスリープもしない。
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || now.Sub(w.startAt) > l.length {
		l.windows[key] = &window{count: 1, startAt: now}
		return true
	}

	w.count++
	return w.count <= l.limit
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

// Len は現在保持しているウィンドウ数を返す。テストおよびメトリクス用。
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// cleanupLoop はウィンドウ長の2倍を超えて更新のないエントリを定期的に削除する。
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.length * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	now := l.now()
	ttl := l.length * 2

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.Sub(w.startAt) > ttl {
			delete(l.windows, key)
		}
	}
}
