package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hitoshi/mdpress/internal/config"
	"github.com/hitoshi/mdpress/internal/embed"
	"github.com/hitoshi/mdpress/internal/export"
	"github.com/hitoshi/mdpress/internal/handler"
	"github.com/hitoshi/mdpress/internal/logger"
	"github.com/hitoshi/mdpress/internal/metrics"
	"github.com/hitoshi/mdpress/internal/middleware"
	"github.com/hitoshi/mdpress/internal/post"
	"github.com/hitoshi/mdpress/internal/security"
	"github.com/hitoshi/mdpress/internal/social"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

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

	// 3. 設定のログレベルで作り直す（.envのLOG_LEVELを反映する）
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(logger.Setup(w, logger.ParseLevel(cfg.LogLevel)))

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
		slog.String("site_url", cfg.SiteURL),
		slog.String("posts_dir", cfg.PostsDir),
	)

	switch cmd {
	case CommandSitemap:
		return runSitemap(cfg, sitemapPath(args, cfg.SitemapOutput), time.Now())
	default:
		return runServe(cfg)
	}
}

// components はserveモードで組み立てた依存関係一式。
type components struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
}

// close はバックグラウンド処理を停止する。
func (c *components) close() {
	c.rateLimiter.Stop()
}

// postOptions は記事の読み込みとレンダリングに共通のオプションを返す。
func postOptions(cfg *config.Config, log *slog.Logger, m metrics.MetricsCollector) []post.Option {
	return []post.Option{
		post.WithLocation(cfg.Location()),
		post.WithLocale(cfg.DateLocale),
		post.WithLogger(log),
		post.WithMetrics(m),
	}
}

// buildComponents は設定から全依存関係をワイヤリングする。
func buildComponents(cfg *config.Config, log *slog.Logger, reg *prometheus.Registry) *components {
	// 1. メトリクス
	collector := metrics.NewCollector(reg)

	// 2. 記事の読み込み
	reader := post.NewReader(cfg.PostsDir, postOptions(cfg, log, collector)...)

	// 3. 埋め込み解決（SSRF対策済みクライアント）
	ssrfGuard := security.NewSSRFGuard()
	resolver := embed.NewResolver(
		ssrfGuard.NewSafeClient(cfg.EmbedTimeout), ssrfGuard, log,
		embed.WithDiscoveryHosts(cfg.EmbedDiscoveryHosts...),
		embed.WithMaxBodySize(cfg.EmbedMaxSize),
	)

	// 4. レンダリング
	renderOpts := postOptions(cfg, log, collector)
	if cfg.PostSanitize {
		renderOpts = append(renderOpts, post.WithSanitizer(security.NewPostSanitizer()))
	}
	renderer := post.NewRenderer(cfg.PostsDir, resolver, renderOpts...)

	// 5. SNSフィード
	socialClient := &http.Client{Timeout: cfg.SocialTimeout}
	bluesky := social.NewBlueskyClient(social.BlueskyConfig{
		Handle:       cfg.BlueskyHandle,
		AppPassword:  cfg.BlueskyAppPassword,
		ServiceURL:   cfg.BlueskyServiceURL,
		ViewerDomain: cfg.BlueskyViewerDomain,
	}, socialClient, log, collector)
	pixelfed := social.NewPixelfedClient(social.PixelfedConfig{
		Instance:    cfg.PixelfedInstance,
		UserID:      cfg.PixelfedUserID,
		AccessToken: cfg.PixelfedAccessToken,
	}, socialClient, log, collector)
	aggregator := social.NewAggregator([]social.Source{bluesky, pixelfed}, log, collector)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSocial), log,
	)

	deps := &handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		PostLister:   reader,
		PostRenderer: renderer,
		PageSize:     cfg.PostsPageSize,

		SocialFetcher:   aggregator,
		SocialSanitizer: security.NewSocialSanitizer(),

		Feed: handler.FeedConfig{
			Channel:         channelFromConfig(cfg),
			StaticPages:     cfg.Site.StaticPages,
			ChangeFrequency: cfg.Site.ChangeFrequency,
		},
		Site: handler.SiteInfo{
			Title:       cfg.Site.Title,
			Description: cfg.Site.Description,
			Location:    cfg.Location(),
		},

		MetricsGatherer: reg,
	}

	return &components{
		handler:     handler.NewRouter(deps),
		rateLimiter: rateLimiter,
	}
}

func channelFromConfig(cfg *config.Config) export.Channel {
	return export.Channel{
		Title:       cfg.Site.Title,
		Description: cfg.Site.Description,
		SiteURL:     cfg.SiteURL,
		Location:    cfg.Location(),
	}
}

// newRegistry はプロセスとGoランタイムのメトリクスを含むレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はHTTPサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	comps := buildComponents(cfg, slog.Default(), newRegistry())
	defer comps.close()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      comps.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.SocialTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped gracefully")
	return nil
}

// runSitemap はサイトマップを生成してpathに書き出す。
// 出力先のディレクトリがなければ作成する。
// 記事はファイル名だけから列挙し、中身は解釈しない。
// 記事ディレクトリが存在しない場合は警告を出し、固定ページのみを出力する。
func runSitemap(cfg *config.Config, path string, now time.Time) error {
	reader := post.NewReader(cfg.PostsDir, postOptions(cfg, slog.Default(), metrics.Nop{})...)

	ids, err := reader.ListIDs(context.Background())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to list posts: %w", err)
		}
		slog.Warn("posts directory not found, only static pages will be included",
			slog.String("posts_dir", cfg.PostsDir),
		)
		ids = nil
	}

	body, err := export.Sitemap(export.SitemapOptions{
		BaseURL:         cfg.SiteURL,
		StaticPages:     cfg.Site.StaticPages,
		ChangeFrequency: cfg.Site.ChangeFrequency,
		Now:             now,
	}, ids)
	if err != nil {
		return fmt.Errorf("failed to generate sitemap: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create sitemap directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write sitemap: %w", err)
	}

	slog.Info("sitemap generated",
		slog.String("path", path),
		slog.Int("posts", len(ids)),
	)
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
