package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/netfrix/backend/internal/metrics"
	"github.com/netfrix/backend/internal/middleware"
	"github.com/netfrix/backend/internal/ratelimit"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	TokenVerifier     middleware.TokenVerifier
	VisitorMaxAge     time.Duration
	CookieSecure      bool

	// レート制限
	AuthLimiter    *ratelimit.Limiter // 認証エンドポイント用（固定ウィンドウ、IP単位）
	AuthRateWindow time.Duration
	ResetLimiter   *ratelimit.Limiter // パスワード再設定用（より長いウィンドウ）
	ResetWindow    time.Duration
	APILimiter     *middleware.APIRateLimiter // 管理APIの全般制限

	// 認証
	AuthService AuthServiceInterface
	Merger      ProgressMerger
	UserFinder  UserFinder
	AuthConfig  AuthHandlerConfig
	OAuth       *OAuthHandler // nilの場合は外部IdPログインを無効化

	// 視聴進捗
	ProgressService ProgressServiceInterface

	// カタログ・お知らせ
	ContentService      ContentServiceInterface
	AnnouncementService AnnouncementServiceInterface

	// 管理ダッシュボード集計
	UserCounter     StatsCounter
	ContentCounter  StatsCounter
	ProgressCounter StatsCounter

	// 運用系
	DB             Pinger
	Metrics        *metrics.Collector
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RecoveryMiddleware → SecurityHeadersMiddleware
//	→ IdentityMiddleware → LoggingMiddleware
//
// /health と /metrics は識別子解決の外に配置し、監視アクセスで
// 訪問者Cookieを発行しないようにする。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())

	// --- 運用系ルート ---
	r.Get("/health", NewHealthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Merger, deps.UserFinder, deps.AuthConfig)
	progressHandler := NewProgressHandler(deps.ProgressService)
	contentHandler := NewContentHandler(deps.ContentService)
	announcementHandler := NewAnnouncementHandler(deps.AnnouncementService)
	adminHandler := NewAdminHandler(
		deps.ContentService,
		deps.AnnouncementService,
		deps.UserCounter,
		deps.ContentCounter,
		deps.ProgressCounter,
	)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewIdentityMiddleware(deps.TokenVerifier, deps.VisitorMaxAge, deps.CookieSecure))
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
		if deps.Metrics != nil {
			r.Use(deps.Metrics.Middleware())
		}

		// --- 認証フロー（IP単位の固定ウィンドウレート制限付き） ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthRateLimitMiddleware(deps.AuthLimiter, deps.AuthRateWindow))

			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/verify", authHandler.Verify)
		})

		// パスワード再設定は独立したウィンドウで制限する
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthRateLimitMiddleware(deps.ResetLimiter, deps.ResetWindow))

			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
		})

		// --- 外部IdPログイン（設定時のみ有効） ---
		if deps.OAuth != nil {
			r.Get("/auth/google", deps.OAuth.Login)
			r.Get("/auth/google/callback", deps.OAuth.Callback)
		}

		r.Post("/logout", authHandler.Logout)
		r.Get("/session", authHandler.Session)

		// --- 視聴進捗（匿名訪問者にも開放） ---
		r.Get("/progress/{contentId}", progressHandler.Get)
		r.Post("/progress", progressHandler.Report)

		// --- カタログ・お知らせ（閲覧のみ） ---
		r.Get("/contents", contentHandler.List)
		r.Get("/contents/{id}", contentHandler.Get)
		r.Get("/announcements", announcementHandler.ListActive)

		// --- 管理エンドポイント ---
		// ミドルウェアスタック: RequireAuth → RequireAdmin → APIRateLimit
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.NewRequireAuthMiddleware())
			r.Use(middleware.NewRequireAdminMiddleware())
			r.Use(deps.APILimiter.Middleware())

			r.Get("/stats", adminHandler.Stats)

			r.Route("/contents", func(r chi.Router) {
				r.Post("/", adminHandler.CreateContent)
				r.Put("/{id}", adminHandler.UpdateContent)
				r.Delete("/{id}", adminHandler.DeleteContent)
			})

			r.Route("/announcements", func(r chi.Router) {
				r.Get("/", adminHandler.ListAnnouncements)
				r.Post("/", adminHandler.CreateAnnouncement)
				r.Put("/{id}", adminHandler.UpdateAnnouncement)
				r.Delete("/{id}", adminHandler.DeleteAnnouncement)
			})
		})
	})

	return r
}
