package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goodsign/monday"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string
	SiteURL    string

	// Posts
	PostsDir      string
	PostsPageSize int
	PostSanitize  bool
	DateLocale    string
	DateTimezone  string

	// Embed
	EmbedTimeout        time.Duration
	EmbedMaxSize        int64
	EmbedDiscoveryHosts []string

	// Social
	SocialTimeout       time.Duration
	BlueskyHandle       string
	BlueskyAppPassword  string
	BlueskyServiceURL   string
	BlueskyViewerDomain string
	PixelfedInstance    string
	PixelfedUserID      string
	PixelfedAccessToken string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitSocial  int

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string

	// Sitemap
	SitemapOutput string

	// SITE_CONFIGで指定されたYAMLファイルの内容
	Site Site
}

// Site はRSSチャンネルやサイトマップに使うサイト情報。
type Site struct {
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description"`
	StaticPages     []string `yaml:"static_pages"`
	ChangeFrequency string   `yaml:"changefreq"`
}

// defaultSite はSITE_CONFIG未指定時のサイト情報。
func defaultSite() Site {
	return Site{
		Title:           "Your Tagline",
		Description:     "Join Your Name Here",
		StaticPages:     []string{"", "posts", "social"},
		ChangeFrequency: "weekly",
	}
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリの.envは既存の環境変数を上書きせずに読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envが存在しない場合は環境変数のみで動作する
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.SiteURL = strings.TrimRight(os.Getenv("SITE_URL"), "/")
	if cfg.SiteURL == "" {
		missing = append(missing, "SITE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.PostsDir = getEnvString("POSTS_DIR", "posts")
	cfg.PostsPageSize = getEnvInt("POSTS_PAGE_SIZE", 5)
	cfg.PostSanitize = getEnvBool("POST_SANITIZE", false)
	cfg.DateLocale = getEnvString("DATE_LOCALE", string(monday.LocaleEnUS))
	cfg.DateTimezone = getEnvString("DATE_TIMEZONE", "Local")
	cfg.EmbedTimeout = getEnvDuration("EMBED_TIMEOUT", 5*time.Second)
	cfg.EmbedMaxSize = getEnvInt64("EMBED_MAX_SIZE", 1048576)
	cfg.EmbedDiscoveryHosts = getEnvList("EMBED_DISCOVERY_HOSTS")
	cfg.SocialTimeout = getEnvDuration("SOCIAL_TIMEOUT", 10*time.Second)
	cfg.BlueskyHandle = os.Getenv("BLUESKY_HANDLE")
	cfg.BlueskyAppPassword = os.Getenv("BLUESKY_APP_PASSWORD")
	cfg.BlueskyServiceURL = getEnvString("BLUESKY_SERVICE_URL", "https://bsky.social")
	cfg.BlueskyViewerDomain = getEnvString("BLUESKY_VIEWER_DOMAIN", "bsky.app")
	cfg.PixelfedInstance = strings.TrimRight(os.Getenv("PIXELFED_INSTANCE"), "/")
	cfg.PixelfedUserID = os.Getenv("PIXELFED_USER_ID")
	cfg.PixelfedAccessToken = os.Getenv("PIXELFED_ACCESS_TOKEN")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSocial = getEnvInt("RATE_LIMIT_SOCIAL", 20)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.SiteURL)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.SitemapOutput = getEnvString("SITEMAP_OUTPUT", "public/sitemap.xml")

	site, err := loadSite(os.Getenv("SITE_CONFIG"))
	if err != nil {
		return nil, err
	}
	cfg.Site = site

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate は設定値の整合性を検証する。
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SiteURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.PostsDir, validation.Required),
		validation.Field(&c.PostsPageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.DateLocale, validation.By(knownLocale)),
		validation.Field(&c.DateTimezone, validation.By(loadableLocation)),
		validation.Field(&c.EmbedTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.SocialTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.BlueskyServiceURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.PixelfedInstance, validation.By(absoluteURL)),
		validation.Field(&c.RateLimitGeneral, validation.Required, validation.Min(1)),
		validation.Field(&c.RateLimitSocial, validation.Required, validation.Min(1)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
}

// Location はDATE_TIMEZONEに対応するtime.Locationを返す。
// Validate済みの設定では失敗しない。
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DateTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// BlueskyEnabled はBlueskyの認証情報が揃っているかを返す。
func (c *Config) BlueskyEnabled() bool {
	return c.BlueskyHandle != "" && c.BlueskyAppPassword != ""
}

// PixelfedEnabled はPixelfedの接続情報が揃っているかを返す。
func (c *Config) PixelfedEnabled() bool {
	return c.PixelfedInstance != "" && c.PixelfedUserID != "" && c.PixelfedAccessToken != ""
}

func loadSite(path string) (Site, error) {
	site := defaultSite()
	if path == "" {
		return site, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Site{}, fmt.Errorf("read site config: %w", err)
	}

	// ファイルに書かれた項目のみデフォルトを上書きする
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &site); err != nil {
		return Site{}, fmt.Errorf("parse site config: %w", err)
	}
	if site.ChangeFrequency == "" {
		site.ChangeFrequency = "weekly"
	}

	return site, nil
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}

func knownLocale(value any) error {
	s, _ := value.(string)
	for _, l := range monday.ListLocales() {
		if string(l) == s {
			return nil
		}
	}
	return fmt.Errorf("unsupported locale %q", s)
}

func loadableLocation(value any) error {
	s, _ := value.(string)
	if _, err := time.LoadLocation(s); err != nil {
		return fmt.Errorf("unknown time zone %q", s)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの環境変数を空要素を除いて返す。
func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
