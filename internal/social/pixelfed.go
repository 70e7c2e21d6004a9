package social

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/mdpress/internal/metrics"
	"github.com/hitoshi/mdpress/internal/model"
)

// pixelfedStatusLimit は1回に取得する投稿数。
const pixelfedStatusLimit = 10

// PixelfedConfig はPixelfedインスタンスの接続設定。
type PixelfedConfig struct {
	Instance    string // 例: https://pixelfed.social
	UserID      string
	AccessToken string
}

// PixelfedClient はMastodon互換APIでアカウントの投稿を取得するSource。
type PixelfedClient struct {
	cfg     PixelfedConfig
	client  *http.Client
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewPixelfedClient はPixelfedClientを生成する。
// 設定が欠けている場合は警告を記録し、常に空の結果を返すクライアントになる。
func NewPixelfedClient(cfg PixelfedConfig, client *http.Client, logger *slog.Logger, m metrics.MetricsCollector) *PixelfedClient {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	cfg.Instance = strings.TrimRight(cfg.Instance, "/")
	c := &PixelfedClient{cfg: cfg, client: client, logger: logger, metrics: m}
	if !c.Enabled() {
		logger.Warn("Pixelfedの認証情報が設定されていないため取得をスキップします")
	}
	return c
}

// Platform はSourceを実装する。
func (c *PixelfedClient) Platform() model.Platform {
	return model.PlatformPixelfed
}

// Enabled はインスタンス、ユーザーID、アクセストークンが揃っているかを返す。
func (c *PixelfedClient) Enabled() bool {
	return c.cfg.Instance != "" && c.cfg.UserID != "" && c.cfg.AccessToken != ""
}

// pixelfedStatus はMastodon互換のステータスのうち使用する部分。
type pixelfedStatus struct {
	ID               statusID `json:"id"`
	Content          string   `json:"content"`
	CreatedAt        string   `json:"created_at"`
	URL              string   `json:"url"`
	MediaAttachments []struct {
		URL string `json:"url"`
	} `json:"media_attachments"`
}

// statusID は文字列と数値のどちらでも受け付けるステータスID。
type statusID string

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (id *statusID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = statusID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = statusID(n.String())
	return nil
}

// Fetch はアカウントの最近の投稿を取得する。
func (c *PixelfedClient) Fetch(ctx context.Context) ([]model.SocialPost, error) {
	if !c.Enabled() {
		return []model.SocialPost{}, nil
	}

	endpoint := c.cfg.Instance + "/api/v1/accounts/" + url.PathEscape(c.cfg.UserID) + "/statuses?limit=" + strconv.Itoa(pixelfedStatusLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &model.UpstreamFetchError{Platform: model.PlatformPixelfed, Op: "statuses", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	var raw json.RawMessage
	if err := doJSON(c.client, req, model.PlatformPixelfed, "statuses", c.metrics, &raw); err != nil {
		return nil, err
	}

	var statuses []pixelfedStatus
	if err := json.Unmarshal(raw, &statuses); err != nil {
		return nil, &model.UpstreamFetchError{
			Platform: model.PlatformPixelfed,
			Op:       "statuses",
			Err:      errors.New("unexpected response: not a list of statuses"),
		}
	}

	posts := make([]model.SocialPost, 0, len(statuses))
	for _, s := range statuses {
		var image string
		if len(s.MediaAttachments) > 0 {
			image = s.MediaAttachments[0].URL
		}
		posts = append(posts, model.SocialPost{
			ID:        "pixelfed-" + string(s.ID),
			Platform:  model.PlatformPixelfed,
			Timestamp: s.CreatedAt,
			Content:   s.Content,
			PostURL:   s.URL,
			Media:     model.PixelfedMedia{ImageURL: image},
		})
	}
	return posts, nil
}
