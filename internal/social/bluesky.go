package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/mdpress/internal/metrics"
	"github.com/hitoshi/mdpress/internal/model"
)

// BlueskyConfig はBlueskyの接続設定。
type BlueskyConfig struct {
	Handle       string // 例: name.bsky.social
	AppPassword  string
	ServiceURL   string // 例: https://bsky.social
	ViewerDomain string // 投稿リンクのホスト。例: bsky.app
}

// BlueskyClient はAT Protocolで自分のフィードを取得するSource。
type BlueskyClient struct {
	cfg     BlueskyConfig
	client  *http.Client
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewBlueskyClient はBlueskyClientを生成する。
// ハンドルかアプリパスワードがない場合は警告を記録し、常に空の結果を返すクライアントになる。
func NewBlueskyClient(cfg BlueskyConfig, client *http.Client, logger *slog.Logger, m metrics.MetricsCollector) *BlueskyClient {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	cfg.ServiceURL = strings.TrimRight(cfg.ServiceURL, "/")
	c := &BlueskyClient{cfg: cfg, client: client, logger: logger, metrics: m}
	if !c.Enabled() {
		logger.Warn("Blueskyの認証情報が設定されていないため取得をスキップします")
	}
	return c
}

// Platform はSourceを実装する。
func (c *BlueskyClient) Platform() model.Platform {
	return model.PlatformBluesky
}

// Enabled は認証情報が揃っているかを返す。
func (c *BlueskyClient) Enabled() bool {
	return c.cfg.Handle != "" && c.cfg.AppPassword != ""
}

// Fetch はセッションを作成してから自分の投稿フィードを取得する。
func (c *BlueskyClient) Fetch(ctx context.Context) ([]model.SocialPost, error) {
	if !c.Enabled() {
		return []model.SocialPost{}, nil
	}

	token, err := c.createSession(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.ServiceURL+"/xrpc/app.bsky.feed.getAuthorFeed?actor="+url.QueryEscape(c.cfg.Handle), nil)
	if err != nil {
		return nil, &model.UpstreamFetchError{Platform: model.PlatformBluesky, Op: "feed", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var feed authorFeed
	if err := doJSON(c.client, req, model.PlatformBluesky, "feed", c.metrics, &feed); err != nil {
		return nil, err
	}

	posts := make([]model.SocialPost, 0, len(feed.Feed))
	for _, item := range feed.Feed {
		posts = append(posts, c.normalize(item.Post))
	}
	return posts, nil
}

// createSession はハンドルとアプリパスワードでアクセストークンを取得する。
func (c *BlueskyClient) createSession(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"identifier": c.cfg.Handle,
		"password":   c.cfg.AppPassword,
	})
	if err != nil {
		return "", &model.UpstreamFetchError{Platform: model.PlatformBluesky, Op: "session", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.ServiceURL+"/xrpc/com.atproto.server.createSession", bytes.NewReader(body))
	if err != nil {
		return "", &model.UpstreamFetchError{Platform: model.PlatformBluesky, Op: "session", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var session struct {
		AccessJwt string `json:"accessJwt"`
	}
	if err := doJSON(c.client, req, model.PlatformBluesky, "session", c.metrics, &session); err != nil {
		return "", err
	}
	if session.AccessJwt == "" {
		return "", &model.UpstreamFetchError{
			Platform: model.PlatformBluesky,
			Op:       "session",
			Err:      errors.New("no access token in session response"),
		}
	}
	return session.AccessJwt, nil
}

// authorFeed はapp.bsky.feed.getAuthorFeedの応答のうち使用する部分。
type authorFeed struct {
	Feed []struct {
		Post blueskyPost `json:"post"`
	} `json:"feed"`
}

type blueskyPost struct {
	URI    string `json:"uri"`
	CID    string `json:"cid"`
	Record struct {
		Text      string `json:"text"`
		CreatedAt string `json:"createdAt"`
		Embed     *struct {
			Images []blueskyImage `json:"images"`
		} `json:"embed"`
	} `json:"record"`
	Embeds []struct {
		Images []blueskyImage `json:"images"`
	} `json:"embeds"`
}

type blueskyImage struct {
	Fullsize string `json:"fullsize"`
	Full     string `json:"full"`
	Thumb    string `json:"thumb"`
}

// url は表示に使う画像URLを返す。fullsize、full、thumbの順に優先する。
func (img blueskyImage) url() string {
	for _, u := range []string{img.Fullsize, img.Full, img.Thumb} {
		if u != "" {
			return u
		}
	}
	return ""
}

// normalize はフィードの投稿を共通形式に変換する。
func (c *BlueskyClient) normalize(p blueskyPost) model.SocialPost {
	id := p.URI
	if id == "" {
		id = p.CID
	}

	var images []blueskyImage
	if p.Record.Embed != nil {
		images = append(images, p.Record.Embed.Images...)
	}
	for _, e := range p.Embeds {
		images = append(images, e.Images...)
	}

	urls := make([]string, 0, len(images))
	for _, img := range images {
		if u := img.url(); u != "" {
			urls = append(urls, u)
		}
	}

	return model.SocialPost{
		ID:        "bluesky-" + id,
		Platform:  model.PlatformBluesky,
		Timestamp: p.Record.CreatedAt,
		Content:   p.Record.Text,
		PostURL:   c.postURL(p.URI),
		Media:     model.BlueskyMedia{ImageURLs: urls},
	}
}

// postURL はat://<authority>/<collection>/<rkey>形式のURIから閲覧用のURLを組み立てる。
func (c *BlueskyClient) postURL(uri string) string {
	rest, ok := strings.CutPrefix(uri, "at://")
	if !ok {
		return ""
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 3 || parts[2] == "" {
		return ""
	}
	return "https://" + c.cfg.ViewerDomain + "/profile/" + c.cfg.Handle + "/post/" + parts[2]
}
