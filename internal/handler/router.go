package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/pocketnewz/internal/auth"
	"github.com/hitoshi/pocketnewz/internal/blob"
	"github.com/hitoshi/pocketnewz/internal/metrics"
	"github.com/hitoshi/pocketnewz/internal/middleware"
)

// Pinger はヘルスチェック時の依存確認インターフェース。
type Pinger interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig
	Verifier    *auth.WebhookVerifier

	// ドメインサービス
	NewzService         NewzServiceInterface
	StationService      StationServiceInterface
	EngagementService   EngagementServiceInterface
	RelationshipService RelationshipServiceInterface
	IdentityProcessor   IdentityEventProcessor
	StatsFinder         StatsFinder

	// アセット
	BlobStore blob.Store
	Signer    *blob.Signer
	NewzRepo  NewzFinder
	AssetTTL  time.Duration

	// 監視
	Gatherer prometheus.Gatherer
	DB       Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging が全ルートに適用され、
//	認証グループにはさらに Session → CSRF → RateLimit(General) が適用される。
//	エンゲージメント操作には専用のレート制限が追加される。
//
// Webhook・共有リンク・アセット・ヘルスチェックのルートは認証グループの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Verifier, deps.AuthConfig)
	newzHandler := NewNewzHandler(deps.NewzService)
	stationHandler := NewStationHandler(deps.StationService)
	engagementHandler := NewEngagementHandler(deps.EngagementService)
	relationshipHandler := NewRelationshipHandler(deps.RelationshipService)
	identityHandler := NewIdentityHandler(deps.IdentityProcessor, deps.Verifier, nil)
	statsHandler := NewStatsHandler(deps.StatsFinder)
	assetsHandler := NewAssetsHandler(deps.BlobStore, deps.Signer, deps.NewzRepo, deps.AssetTTL)

	// --- 認証不要のルート ---

	// セッション管理
	r.Route("/auth", func(r chi.Router) {
		r.Post("/sessions", authHandler.CreateSession)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// IdP Webhook
	r.Post("/identity/events", identityHandler.HandleEvent)

	// 共有リンク経由の視聴。POST以外は400を返すため、メソッドを限定せずマウントする。
	r.HandleFunc("/share/view", engagementHandler.SharedView)

	// アセット。cloneはPOST以外に400を返す。
	r.HandleFunc("/assets/clone", assetsHandler.Clone)
	r.Get("/assets/url", assetsHandler.SignedURL)
	r.Get("/assets/get", assetsHandler.Get)

	// CSRFトークン取得
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// ヘルスチェック
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if deps.DB != nil {
			if err := deps.DB.Ping(); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheusスクレイプ
	if deps.Gatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.Gatherer).ServeHTTP)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ニュース管理
		r.Route("/api/newz", func(r chi.Router) {
			r.Post("/", newzHandler.CreateNewz)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", newzHandler.DeleteNewz)

				// エンゲージメント操作（専用レート制限を追加）
				r.With(deps.RateLimiter.EngagementMiddleware()).Post("/view", engagementHandler.RecordView)
				r.With(deps.RateLimiter.EngagementMiddleware()).Post("/share", engagementHandler.RecordShare)
				r.With(deps.RateLimiter.EngagementMiddleware()).Post("/rating", engagementHandler.SubmitRating)

				// コメント
				r.Post("/comments", newzHandler.AddComment)
				r.Get("/comments", newzHandler.ListComments)
			})
		})

		// フォロー
		r.Post("/api/follows/toggle", relationshipHandler.ToggleFollow)

		// ステーション管理
		r.Route("/api/stations", func(r chi.Router) {
			r.Post("/", stationHandler.CreateStation)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", stationHandler.DeleteStation)
				r.Post("/collaborators", relationshipHandler.InviteContributor)
			})
		})

		// ユーザー統計
		r.Get("/api/newzers/{id}/stats", statsHandler.GetStats)
	})

	return r
}
