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
	"golang.org/x/time/rate"

	"github.com/hitoshi/pocketnewz/internal/auth"
	"github.com/hitoshi/pocketnewz/internal/blob"
	"github.com/hitoshi/pocketnewz/internal/config"
	"github.com/hitoshi/pocketnewz/internal/counter"
	"github.com/hitoshi/pocketnewz/internal/database"
	"github.com/hitoshi/pocketnewz/internal/email"
	"github.com/hitoshi/pocketnewz/internal/engagement"
	"github.com/hitoshi/pocketnewz/internal/handler"
	"github.com/hitoshi/pocketnewz/internal/lifecycle"
	"github.com/hitoshi/pocketnewz/internal/logger"
	"github.com/hitoshi/pocketnewz/internal/metrics"
	"github.com/hitoshi/pocketnewz/internal/middleware"
	"github.com/hitoshi/pocketnewz/internal/relationship"
	"github.com/hitoshi/pocketnewz/internal/repository"
	"github.com/hitoshi/pocketnewz/internal/security"
	"github.com/hitoshi/pocketnewz/internal/worker/reconcile"
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
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
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

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	statsRepo := repository.NewPostgresStatsRepo(db)
	stationRepo := repository.NewPostgresStationRepo(db)
	newzRepo := repository.NewPostgresNewzRepo(db)
	metricsRepo := repository.NewPostgresMetricsRepo(db)
	ratingRepo := repository.NewPostgresRatingRepo(db)
	viewRepo := repository.NewPostgresViewRepo(db)
	followRepo := repository.NewPostgresFollowRepo(db)
	collabRepo := repository.NewPostgresCollabRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)

	// 4. ブロブストレージと署名器の初期化
	blobStore := blob.NewFSStore(cfg.BlobRoot)
	signer := blob.NewSigner(cfg.BlobSigningSecret, cfg.BaseURL)

	// 5. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 6. ドメインサービスの初期化
	counterService := counter.NewService(statsRepo, stationRepo, slog.Default(), collector)
	engagementService := engagement.NewService(
		newzRepo, metricsRepo, viewRepo, ratingRepo, cfg.MaxRating, collector,
	)
	relationshipService := relationship.NewService(
		followRepo, statsRepo, stationRepo, collabRepo, slog.Default(),
	)
	authService := auth.NewService(
		userRepo, sessionRepo,
		auth.ServiceConfig{
			SessionMaxAge: cfg.SessionMaxAge,
			SessionSecret: cfg.SessionSecret,
		},
	)

	emailClient := email.NewClient(cfg.EmailAPIURL, cfg.EmailAPIKey, slog.Default())

	lifecycleService := lifecycle.NewService(lifecycle.Deps{
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		StationRepo: stationRepo,
		NewzRepo:    newzRepo,
		MetricsRepo: metricsRepo,
		RatingRepo:  ratingRepo,
		ViewRepo:    viewRepo,
		FollowRepo:  followRepo,
		CollabRepo:  collabRepo,
		CommentRepo: commentRepo,
		Counter:     counterService,
		Sanitizer:   sanitizer,
		BlobStore:   blobStore,
		URLGuard:    ssrfGuard,
		Email:       emailClient,
		Logger:      slog.Default(),
		Metrics:     collector,
		Config: lifecycle.ServiceConfig{
			EmailFrom:         cfg.EmailFrom,
			WelcomeTemplateID: cfg.WelcomeTemplateID,
		},
	})

	// 7. Webhook検証器の初期化
	verifier := auth.NewWebhookVerifier(cfg.IdentityWebhookSecret)

	// 8. ルーターの構築
	rlConfig := middleware.DefaultRateLimiterConfig()
	rlConfig.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rlConfig.GeneralBurst = cfg.RateLimitGeneral
	rlConfig.EngagementRate = rate.Limit(float64(cfg.RateLimitEngagement) / 60.0)
	rlConfig.EngagementBurst = cfg.RateLimitEngagement
	rateLimiter := middleware.NewRateLimiter(rlConfig)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger: slog.Default(),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			CookieMaxAge: cfg.SessionMaxAge,
		},
		Verifier: verifier,

		NewzService:         lifecycleService,
		StationService:      lifecycleService,
		EngagementService:   engagementService,
		RelationshipService: relationshipService,
		IdentityProcessor:   lifecycleService,
		StatsFinder:         statsRepo,

		BlobStore: blobStore,
		Signer:    signer,
		NewzRepo:  newzRepo,
		AssetTTL:  cfg.BlobURLTTL,

		Gatherer: registry,
		DB:       db,
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、再集計スケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. 再集計ジョブとスケジューラの初期化
	job := reconcile.NewJob(db, slog.Default(), collector)
	scheduler := reconcile.NewScheduler(job, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("reconcile_interval", cfg.ReconcileInterval),
	)

	// 再集計スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.ReconcileInterval)

	slog.Info("worker stopped gracefully")
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
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
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
