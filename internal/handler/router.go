package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/mdpress/internal/metrics"
	"github.com/hitoshi/mdpress/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 記事
	PostLister   PostLister
	PostRenderer PostRenderer
	PageSize     int

	// SNSフィード
	SocialFetcher   SocialFetcher
	SocialSanitizer HTMLSanitizer

	// RSS・サイトマップ・HTMLページ
	Feed FeedConfig
	Site SiteInfo

	// メトリクス（nilの場合は/metricsを公開しない）
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS（/apiのみ） → RateLimit
//
// /api/socialと/socialは外部APIを呼び出すため、通常の制限に加えてSNS用の制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	postHandler := NewPostHandler(deps.PostLister, deps.PostRenderer, deps.PageSize, logger)
	socialHandler := NewSocialHandler(deps.SocialFetcher)
	feedHandler := NewFeedHandler(deps.PostLister, deps.Feed, logger)
	site := deps.Site
	site.PageSize = deps.PageSize
	pageHandler := NewPageHandler(deps.PostLister, deps.PostRenderer, deps.SocialFetcher, deps.SocialSanitizer, site, logger)

	// --- 運用エンドポイント ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- JSON API ---
	// ミドルウェアスタック: CORS → RateLimit(General)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.ListPosts)
			r.Get("/facets", postHandler.Facets)
			r.Get("/{id}", postHandler.GetPost)
		})

		// GET /api/social - 外部API呼び出しを伴うためSNS用レート制限を追加
		r.With(deps.RateLimiter.SocialMiddleware()).Get("/social", socialHandler.ListSocialPosts)
	})

	// --- フィード ---
	r.Get("/feed", feedHandler.Feed)
	r.Get("/sitemap.xml", feedHandler.Sitemap)

	// --- HTMLページ ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", pageHandler.HomePage)
		r.Get("/posts", pageHandler.PostsPage)
		r.Get("/posts/{id}", pageHandler.PostPage)
		r.With(deps.RateLimiter.SocialMiddleware()).Get("/social", pageHandler.SocialPage)
	})

	return r
}
