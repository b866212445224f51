package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/netfrix/backend/internal/model"
	"github.com/netfrix/backend/internal/ratelimit"
)

// NewAuthRateLimitMiddleware は認証系エンドポイント用の固定ウィンドウ
// レート制限ミドルウェアを返す。クライアントIPをキーにし、超過時は
// 操作を試みずに429を返す。リミッターはプロセス起動時に1つ構築して
// 全認証エンドポイントで共有する。
func NewAuthRateLimitMiddleware(limiter *ratelimit.Limiter, window time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			if !limiter.Allow(ip) {
				slog.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				writeRateLimitResponse(w, int(window.Seconds()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// identityLimiter は識別子ごとのレートリミッターとアクセス時刻を保持する。
type identityLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// APIRateLimiter は認証後のAPI全般に適用するトークンバケット方式の
// レートリミッター。識別子（ユーザーIDまたは訪問者ID)ごとに管理する。
type APIRateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.RWMutex
	limiters map[string]*identityLimiter

	cleanupInterval time.Duration
	stopCh          chan struct{}
}

// NewAPIRateLimiter は新しいAPIRateLimiterを生成する。
// perMinuteは1分あたりの許容リクエスト数。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewAPIRateLimiter(perMinute int) *APIRateLimiter {
	rl := &APIRateLimiter{
		limit:           rate.Limit(float64(perMinute) / 60.0),
		burst:           perMinute,
		limiters:        make(map[string]*identityLimiter),
		cleanupInterval: 5 * time.Minute,
		stopCh:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *APIRateLimiter) Stop() {
	close(rl.stopCh)
}

// Middleware はレート制限ミドルウェアを返す。
// IdentityMiddlewareの後に配置すること。
func (rl *APIRateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := IdentityFromContext(r.Context())
			if err != nil {
				WriteInternalServerError(w)
				return
			}

			if !rl.getOrCreate(identity.ID).Allow() {
				slog.Warn("rate limit exceeded",
					slog.String("identity_id", identity.ID),
					slog.String("limit_type", "api"),
				)
				writeRateLimitResponse(w, 1)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Count は現在管理されているリミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *APIRateLimiter) Count() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}

// getOrCreate は識別子のリミッターを取得または作成する。
func (rl *APIRateLimiter) getOrCreate(id string) *rate.Limiter {
	rl.mu.RLock()
	il, exists := rl.limiters[id]
	rl.mu.RUnlock()

	if exists {
		rl.mu.Lock()
		il.lastAccess = time.Now()
		rl.mu.Unlock()
		return il.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// ダブルチェック
	if il, exists := rl.limiters[id]; exists {
		il.lastAccess = time.Now()
		return il.limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[id] = &identityLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *APIRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がcleanupIntervalの2倍を超えたエントリを削除する。
func (rl *APIRateLimiter) cleanup() {
	ttl := rl.cleanupInterval * 2
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, il := range rl.limiters {
		if now.Sub(il.lastAccess) > ttl {
			delete(rl.limiters, id)
		}
	}
}

// clientIP はリバースプロキシ経由を考慮してクライアントIPを取得する。
// X-Forwarded-Forの先頭エントリを優先し、なければRemoteAddrを使う。
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーには次のウィンドウまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, retryAfterSec int) {
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	apiErr := model.NewRateLimitedError()
	WriteErrorResponse(w, http.StatusTooManyRequests, apiErr.Message)
}
