package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/netfrix/backend/internal/auth"
	"github.com/netfrix/backend/internal/config"
	"github.com/netfrix/backend/internal/database"
	"github.com/netfrix/backend/internal/email"
	"github.com/netfrix/backend/internal/handler"
	"github.com/netfrix/backend/internal/logger"
	"github.com/netfrix/backend/internal/metrics"
	"github.com/netfrix/backend/internal/middleware"
	"github.com/netfrix/backend/internal/otp"
	"github.com/netfrix/backend/internal/progress"
	"github.com/netfrix/backend/internal/ratelimit"
	"github.com/netfrix/backend/internal/repository"

	announcementpkg "github.com/netfrix/backend/internal/announcement"
	contentpkg "github.com/netfrix/backend/internal/content"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	otpRepo := repository.NewPostgresOTPRepo(db)
	progressRepo := repository.NewPostgresProgressRepo(db)
	contentRepo := repository.NewPostgresContentRepo(db)
	announcementRepo := repository.NewPostgresAnnouncementRepo(db)

	// 3. ワンタイムコード配信の初期化
	// APIキー未設定時はログ出力のみのSenderにフォールバックする（開発環境用）
	var sender email.Sender
	if cfg.EmailAPIKey != "" {
		sender = email.NewElasticSender(cfg.EmailAPIKey, cfg.EmailFrom, slog.Default())
	} else {
		slog.Warn("EMAIL_API_KEY is not set, falling back to log-only sender")
		sender = email.NewLogSender(slog.Default())
	}

	// 4. ドメインサービスの初期化
	otpService := otp.NewService(otpRepo, sender, cfg.OTPExpiry, slog.Default())
	issuer := auth.NewTokenIssuer(cfg.SessionSecret, cfg.SessionMaxAge)
	authService := auth.NewService(userRepo, otpService, issuer, slog.Default())
	progressService := progress.NewService(progressRepo, slog.Default())
	contentService := contentpkg.NewService(contentRepo, slog.Default())
	announcementService := announcementpkg.NewService(announcementRepo, slog.Default())

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. レート制限の初期化
	authLimiter := ratelimit.New(cfg.AuthRateLimit, cfg.AuthRateWindow)
	defer authLimiter.Stop()
	resetLimiter := ratelimit.New(cfg.AuthRateLimit, cfg.ResetRateWindow)
	defer resetLimiter.Stop()
	apiLimiter := middleware.NewAPIRateLimiter(cfg.RateLimitAPI)
	defer apiLimiter.Stop()

	authConfig := handler.AuthHandlerConfig{
		BaseURL:       cfg.BaseURL,
		CookieDomain:  cfg.CookieDomain,
		CookieSecure:  cfg.CookieSecure,
		SessionMaxAge: int(cfg.SessionMaxAge.Seconds()),
	}

	// 外部IdPログインはクライアントID設定時のみ有効化する
	var oauthHandler *handler.OAuthHandler
	if cfg.GoogleClientID != "" {
		provider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
		oauthHandler = handler.NewOAuthHandler(provider, authService, progressService, authConfig)
	} else {
		slog.Info("GOOGLE_CLIENT_ID is not set, external IdP login is disabled")
	}

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		TokenVerifier:     issuer,
		VisitorMaxAge:     cfg.VisitorMaxAge,
		CookieSecure:      cfg.CookieSecure,

		AuthLimiter:    authLimiter,
		AuthRateWindow: cfg.AuthRateWindow,
		ResetLimiter:   resetLimiter,
		ResetWindow:    cfg.ResetRateWindow,
		APILimiter:     apiLimiter,

		AuthService: authService,
		Merger:      progressService,
		UserFinder:  userRepo,
		AuthConfig:  authConfig,
		OAuth:       oauthHandler,

		ProgressService:     progressService,
		ContentService:      contentService,
		AnnouncementService: announcementService,

		UserCounter:     userRepo,
		ContentCounter:  contentRepo,
		ProgressCounter: progressRepo,

		DB:             db,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// 期限切れワンタイムコードのパージを日次でバックグラウンド実行
	purgeJob := otp.NewPurgeJob(otpRepo, slog.Default())
	go func() {
		if err := purgeJob.Run(ctx); err != nil {
			slog.Error("otp purge job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := purgeJob.Run(ctx); err != nil {
					slog.Error("otp purge job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
