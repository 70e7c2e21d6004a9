package handler

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/mdpress/internal/export"
	"github.com/hitoshi/mdpress/internal/middleware"
)

// feedCacheControl はRSSフィードのキャッシュ指定（1日）。
const feedCacheControl = "public, max-age=86400"

// FeedConfig はRSSフィードとサイトマップの生成設定。
type FeedConfig struct {
	Channel         export.Channel
	StaticPages     []string
	ChangeFrequency string
}

// FeedHandler はRSSフィードとサイトマップのHTTPハンドラー。
type FeedHandler struct {
	lister PostLister
	config FeedConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(lister PostLister, config FeedConfig, logger *slog.Logger) *FeedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedHandler{
		lister: lister,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Feed はRSS 2.0フィードを返す。
// GET /feed
func (h *FeedHandler) Feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.lister.ReadAll(r.Context())
	if err != nil {
		h.logger.Error("RSSフィード用の記事読み込みに失敗しました",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		http.Error(w, "failed to generate feed", http.StatusInternalServerError)
		return
	}

	body, err := export.RSS(h.config.Channel, posts)
	if err != nil {
		h.logger.Error("RSSフィードの生成に失敗しました", slog.String("error", err.Error()))
		http.Error(w, "failed to generate feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	w.Header().Set("Cache-Control", feedCacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Sitemap はリクエスト時点のサイトマップを返す。
// 記事はファイル名から列挙するため、フロントマターが壊れた記事があっても生成できる。
// 記事ディレクトリが存在しない場合は固定ページのみを含める。
// GET /sitemap.xml
func (h *FeedHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	ids, err := h.lister.ListIDs(r.Context())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.Error("サイトマップ用の記事一覧の取得に失敗しました",
				slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
				slog.String("error", err.Error()),
			)
			http.Error(w, "failed to generate sitemap", http.StatusInternalServerError)
			return
		}
		h.logger.Warn("記事ディレクトリが見つからないため固定ページのみを出力します",
			slog.String("error", err.Error()),
		)
		ids = nil
	}

	body, err := export.Sitemap(h.sitemapOptions(), ids)
	if err != nil {
		h.logger.Error("サイトマップの生成に失敗しました", slog.String("error", err.Error()))
		http.Error(w, "failed to generate sitemap", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *FeedHandler) sitemapOptions() export.SitemapOptions {
	return export.SitemapOptions{
		BaseURL:         h.config.Channel.SiteURL,
		StaticPages:     h.config.StaticPages,
		ChangeFrequency: h.config.ChangeFrequency,
		Now:             h.now(),
	}
}
