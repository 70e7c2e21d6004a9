package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// defaultMaxBodySize はoEmbed応答とディスカバリー対象ページの最大サイズ。
const defaultMaxBodySize = 1 << 20

var (
	// ErrNoProvider はURLに一致するプロバイダーがないことを表す。
	ErrNoProvider = errors.New("no oembed provider for url")
	// ErrNoMarkup はoEmbed応答に埋め込み可能なマークアップがないことを表す。
	ErrNoMarkup = errors.New("oembed response has no embeddable markup")
	// ErrBodyTooLarge は応答が上限サイズを超えたことを表す。
	ErrBodyTooLarge = errors.New("response body too large")
)

// URLValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Response はoEmbed APIの応答。
type Response struct {
	Type   string `json:"type"`
	HTML   string `json:"html"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Width  any    `json:"width"`
	Height any    `json:"height"`
}

// Option はResolverの設定を変更する。
type Option func(*Resolver)

// WithProviders は組み込みのプロバイダー一覧を置き換える。
func WithProviders(providers ...Provider) Option {
	return func(r *Resolver) {
		r.providers = append([]Provider(nil), providers...)
	}
}

// WithDiscoveryHosts はoEmbedディスカバリーで解決するホストを追加する。
func WithDiscoveryHosts(hosts ...string) Option {
	return func(r *Resolver) {
		for _, h := range hosts {
			if strings.TrimSpace(h) == "" {
				continue
			}
			r.providers = append(r.providers, DiscoveryProvider(h))
		}
	}
}

// WithMaxBodySize は応答ボディの最大サイズを指定する。
func WithMaxBodySize(n int64) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxBodySize = n
		}
	}
}

// Resolver はURLをoEmbedで埋め込みマークアップに解決する。
type Resolver struct {
	providers   []Provider
	client      *http.Client
	validator   URLValidator
	logger      *slog.Logger
	maxBodySize int64
}

// NewResolver はResolverの新しいインスタンスを生成する。
// validatorがnilの場合はURLの事前検証を行わない。
func NewResolver(client *http.Client, validator URLValidator, logger *slog.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		providers:   DefaultProviders(),
		client:      client,
		validator:   validator,
		logger:      logger,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(r)
	}
	for i := range r.providers {
		r.providers[i].compile()
	}
	return r
}

// Match はURLが既知のプロバイダーに一致するかを返す。
func (r *Resolver) Match(rawURL string) bool {
	return r.provider(rawURL) != nil
}

func (r *Resolver) provider(rawURL string) *Provider {
	for i := range r.providers {
		if r.providers[i].matches(rawURL) {
			return &r.providers[i]
		}
	}
	return nil
}

// Resolve はURLの埋め込みマークアップを取得する。
// 失敗時はエラーを返し、呼び出し元がフォールバックを判断する。
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	p := r.provider(rawURL)
	if p == nil {
		return "", fmt.Errorf("%w: %s", ErrNoProvider, rawURL)
	}

	var endpoint string
	var err error
	if p.Discover {
		endpoint, err = r.discover(ctx, rawURL)
	} else {
		endpoint, err = p.endpointURL(rawURL)
	}
	if err != nil {
		return "", fmt.Errorf("oembed endpoint for %s: %w", p.Name, err)
	}

	body, err := r.get(ctx, endpoint, "application/json")
	if err != nil {
		return "", fmt.Errorf("oembed request to %s: %w", p.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("oembed response from %s: %w", p.Name, err)
	}

	markup, err := resp.Markup()
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.Name, err)
	}

	r.logger.Debug("埋め込みを解決しました",
		slog.String("provider", p.Name),
		slog.String("url", rawURL),
		slog.String("type", resp.Type),
	)
	return markup, nil
}

// Markup はoEmbed応答の種類に応じた埋め込みHTMLを返す。
// video/richはhtmlフィールド、photoは<img>要素を使う。
func (resp Response) Markup() (string, error) {
	switch resp.Type {
	case "video", "rich":
		if strings.TrimSpace(resp.HTML) == "" {
			return "", ErrNoMarkup
		}
		return resp.HTML, nil
	case "photo":
		if resp.URL == "" {
			return "", ErrNoMarkup
		}
		var b strings.Builder
		b.WriteString(`<img src="`)
		b.WriteString(html.EscapeString(resp.URL))
		b.WriteString(`" alt="`)
		b.WriteString(html.EscapeString(resp.Title))
		b.WriteString(`"`)
		if w := dimension(resp.Width); w != "" {
			b.WriteString(` width="` + w + `"`)
		}
		if h := dimension(resp.Height); h != "" {
			b.WriteString(` height="` + h + `"`)
		}
		b.WriteString(`>`)
		return b.String(), nil
	default:
		return "", fmt.Errorf("%w: type %q", ErrNoMarkup, resp.Type)
	}
}

// dimension はoEmbedのwidth/height（数値または文字列）を属性値に変換する。
func dimension(v any) string {
	switch n := v.(type) {
	case float64:
		if n <= 0 {
			return ""
		}
		return fmt.Sprintf("%d", int(n))
	case string:
		return html.EscapeString(n)
	default:
		return ""
	}
}

// get はURLを検証してからGETし、上限サイズまでのボディを返す。
func (r *Resolver) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	if r.validator != nil {
		if err := r.validator.ValidateURL(rawURL); err != nil {
			return nil, fmt.Errorf("url rejected: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "mdpress/1.0 (+oembed)")
	req.Header.Set("Accept", accept)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > r.maxBodySize {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}
