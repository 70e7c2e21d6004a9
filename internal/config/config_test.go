package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// optionalEnvVars はテスト環境の値が混ざらないよう空にする環境変数。
var optionalEnvVars = []string{
	"SERVER_PORT", "POSTS_DIR", "POSTS_PAGE_SIZE", "POST_SANITIZE",
	"DATE_LOCALE", "DATE_TIMEZONE",
	"EMBED_TIMEOUT", "EMBED_MAX_SIZE", "EMBED_DISCOVERY_HOSTS",
	"SOCIAL_TIMEOUT", "BLUESKY_HANDLE", "BLUESKY_APP_PASSWORD",
	"BLUESKY_SERVICE_URL", "BLUESKY_VIEWER_DOMAIN",
	"PIXELFED_INSTANCE", "PIXELFED_USER_ID", "PIXELFED_ACCESS_TOKEN",
	"RATE_LIMIT_GENERAL", "RATE_LIMIT_SOCIAL", "CORS_ALLOWED_ORIGIN",
	"LOG_LEVEL", "SITEMAP_OUTPUT", "SITE_CONFIG",
}

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range optionalEnvVars {
		t.Setenv(key, "")
	}
	t.Setenv("SITE_URL", "https://blog.example/")
}

func TestLoad_AllRequiredVarsSet_ReturnsConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.SiteURL != "https://blog.example" {
		t.Errorf("SiteURL = %q, want %q", cfg.SiteURL, "https://blog.example")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Server defaults
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}

	// Posts defaults
	if cfg.PostsDir != "posts" {
		t.Errorf("PostsDir = %q, want %q", cfg.PostsDir, "posts")
	}
	if cfg.PostsPageSize != 5 {
		t.Errorf("PostsPageSize = %d, want %d", cfg.PostsPageSize, 5)
	}
	if cfg.PostSanitize {
		t.Error("PostSanitize = true, want false")
	}
	if cfg.DateLocale != "en_US" {
		t.Errorf("DateLocale = %q, want %q", cfg.DateLocale, "en_US")
	}

	// Embed defaults
	if cfg.EmbedTimeout != 5*time.Second {
		t.Errorf("EmbedTimeout = %v, want %v", cfg.EmbedTimeout, 5*time.Second)
	}
	if cfg.EmbedMaxSize != 1048576 {
		t.Errorf("EmbedMaxSize = %d, want %d", cfg.EmbedMaxSize, 1048576)
	}
	if cfg.EmbedDiscoveryHosts != nil {
		t.Errorf("EmbedDiscoveryHosts = %v, want nil", cfg.EmbedDiscoveryHosts)
	}

	// Social defaults
	if cfg.SocialTimeout != 10*time.Second {
		t.Errorf("SocialTimeout = %v, want %v", cfg.SocialTimeout, 10*time.Second)
	}
	if cfg.BlueskyServiceURL != "https://bsky.social" {
		t.Errorf("BlueskyServiceURL = %q, want %q", cfg.BlueskyServiceURL, "https://bsky.social")
	}
	if cfg.BlueskyViewerDomain != "bsky.app" {
		t.Errorf("BlueskyViewerDomain = %q, want %q", cfg.BlueskyViewerDomain, "bsky.app")
	}
	if cfg.BlueskyEnabled() || cfg.PixelfedEnabled() {
		t.Error("認証情報がない場合はSNS連携を無効にするべき")
	}

	// Rate limit defaults
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want %d", cfg.RateLimitGeneral, 120)
	}
	if cfg.RateLimitSocial != 20 {
		t.Errorf("RateLimitSocial = %d, want %d", cfg.RateLimitSocial, 20)
	}

	// CORS defaults to the site origin
	if cfg.CORSAllowedOrigin != "https://blog.example" {
		t.Errorf("CORSAllowedOrigin = %q, want %q", cfg.CORSAllowedOrigin, "https://blog.example")
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.SitemapOutput != "public/sitemap.xml" {
		t.Errorf("SitemapOutput = %q, want %q", cfg.SitemapOutput, "public/sitemap.xml")
	}

	// Site defaults
	if cfg.Site.Title != "Your Tagline" {
		t.Errorf("Site.Title = %q, want %q", cfg.Site.Title, "Your Tagline")
	}
	if len(cfg.Site.StaticPages) != 3 {
		t.Errorf("Site.StaticPages = %v, want 3 entries", cfg.Site.StaticPages)
	}
	if cfg.Site.ChangeFrequency != "weekly" {
		t.Errorf("Site.ChangeFrequency = %q, want %q", cfg.Site.ChangeFrequency, "weekly")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnvVars(t)

	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("POSTS_DIR", "content/posts")
	t.Setenv("POSTS_PAGE_SIZE", "10")
	t.Setenv("POST_SANITIZE", "true")
	t.Setenv("DATE_LOCALE", "ja_JP")
	t.Setenv("DATE_TIMEZONE", "UTC")
	t.Setenv("EMBED_TIMEOUT", "2s")
	t.Setenv("EMBED_MAX_SIZE", "65536")
	t.Setenv("EMBED_DISCOVERY_HOSTS", "video.example, ,media.example")
	t.Setenv("SOCIAL_TIMEOUT", "3s")
	t.Setenv("BLUESKY_HANDLE", "me.bsky.social")
	t.Setenv("BLUESKY_APP_PASSWORD", "app-password")
	t.Setenv("PIXELFED_INSTANCE", "https://pixelfed.example/")
	t.Setenv("PIXELFED_USER_ID", "42")
	t.Setenv("PIXELFED_ACCESS_TOKEN", "token")
	t.Setenv("RATE_LIMIT_GENERAL", "60")
	t.Setenv("RATE_LIMIT_SOCIAL", "5")
	t.Setenv("CORS_ALLOWED_ORIGIN", "https://app.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.ServerPort != "3000" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "3000")
	}
	if cfg.PostsDir != "content/posts" {
		t.Errorf("PostsDir = %q, want %q", cfg.PostsDir, "content/posts")
	}
	if cfg.PostsPageSize != 10 {
		t.Errorf("PostsPageSize = %d, want %d", cfg.PostsPageSize, 10)
	}
	if !cfg.PostSanitize {
		t.Error("PostSanitize = false, want true")
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
	if cfg.EmbedTimeout != 2*time.Second {
		t.Errorf("EmbedTimeout = %v, want %v", cfg.EmbedTimeout, 2*time.Second)
	}
	if cfg.EmbedMaxSize != 65536 {
		t.Errorf("EmbedMaxSize = %d, want %d", cfg.EmbedMaxSize, 65536)
	}
	if len(cfg.EmbedDiscoveryHosts) != 2 || cfg.EmbedDiscoveryHosts[0] != "video.example" || cfg.EmbedDiscoveryHosts[1] != "media.example" {
		t.Errorf("EmbedDiscoveryHosts = %v, want [video.example media.example]", cfg.EmbedDiscoveryHosts)
	}
	if cfg.SocialTimeout != 3*time.Second {
		t.Errorf("SocialTimeout = %v, want %v", cfg.SocialTimeout, 3*time.Second)
	}
	if !cfg.BlueskyEnabled() {
		t.Error("BlueskyEnabled() = false, want true")
	}
	if !cfg.PixelfedEnabled() {
		t.Error("PixelfedEnabled() = false, want true")
	}
	if cfg.PixelfedInstance != "https://pixelfed.example" {
		t.Errorf("PixelfedInstance = %q, want %q", cfg.PixelfedInstance, "https://pixelfed.example")
	}
	if cfg.RateLimitGeneral != 60 {
		t.Errorf("RateLimitGeneral = %d, want %d", cfg.RateLimitGeneral, 60)
	}
	if cfg.RateLimitSocial != 5 {
		t.Errorf("RateLimitSocial = %d, want %d", cfg.RateLimitSocial, 5)
	}
	if cfg.CORSAllowedOrigin != "https://app.example" {
		t.Errorf("CORSAllowedOrigin = %q, want %q", cfg.CORSAllowedOrigin, "https://app.example")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_InvalidNumberFallsBackToDefault(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("POSTS_PAGE_SIZE", "many")
	t.Setenv("SOCIAL_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.PostsPageSize != 5 {
		t.Errorf("PostsPageSize = %d, want %d", cfg.PostsPageSize, 5)
	}
	if cfg.SocialTimeout != 10*time.Second {
		t.Errorf("SocialTimeout = %v, want %v", cfg.SocialTimeout, 10*time.Second)
	}
}

func TestLoad_MissingSiteURL_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SITE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing SITE_URL, got nil")
	}
}

func TestLoad_InvalidValues_ReturnsError(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"相対URLのSITE_URL", "SITE_URL", "blog.example"},
		{"ページサイズ0", "POSTS_PAGE_SIZE", "0"},
		{"未知のロケール", "DATE_LOCALE", "xx_XX"},
		{"未知のタイムゾーン", "DATE_TIMEZONE", "Mars/Olympus"},
		{"不正なPixelfedインスタンス", "PIXELFED_INSTANCE", "ftp://pixelfed.example"},
		{"不正なログレベル", "LOG_LEVEL", "verbose"},
		{"SNSレート制限0", "RATE_LIMIT_SOCIAL", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnvVars(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("%s=%q should be rejected", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_SiteConfig(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("BLOG_TITLE", "Env Title")

	path := filepath.Join(t.TempDir(), "site.yaml")
	content := "title: ${BLOG_TITLE}\ndescription: Notes\nstatic_pages: [\"\", about]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write site config: %v", err)
	}
	t.Setenv("SITE_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Site.Title != "Env Title" {
		t.Errorf("Site.Title = %q, want %q", cfg.Site.Title, "Env Title")
	}
	if cfg.Site.Description != "Notes" {
		t.Errorf("Site.Description = %q, want %q", cfg.Site.Description, "Notes")
	}
	if len(cfg.Site.StaticPages) != 2 || cfg.Site.StaticPages[1] != "about" {
		t.Errorf("Site.StaticPages = %v, want [\"\" about]", cfg.Site.StaticPages)
	}
	if cfg.Site.ChangeFrequency != "weekly" {
		t.Errorf("Site.ChangeFrequency = %q, want %q", cfg.Site.ChangeFrequency, "weekly")
	}
}

func TestLoad_SiteConfigMissingFile_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SITE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing SITE_CONFIG file, got nil")
	}
}
