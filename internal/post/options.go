package post

import (
	"log/slog"
	"time"

	"github.com/goodsign/monday"

	"github.com/hitoshi/mdpress/internal/metrics"
)

// Sanitizer はレンダリング結果のHTMLを後処理するインターフェース。
// security.ContentSanitizerServiceを抽象化する。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// options はReaderとRendererに共通の設定。
type options struct {
	deriver   deriver
	logger    *slog.Logger
	sanitizer Sanitizer
	metrics   metrics.MetricsCollector
}

func newOptions(opts []Option) options {
	o := options{
		deriver: defaultDeriver(),
		logger:  slog.Default(),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option はReaderとRendererの設定を変更する。
type Option func(*options)

// WithLocation は年・月の導出に使うロケーションを指定する。
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.deriver.location = loc
		}
	}
}

// WithLocale は月名のロケールを指定する（例: en_US, ja_JP）。
func WithLocale(locale string) Option {
	return func(o *options) {
		if locale != "" {
			o.deriver.locale = monday.Locale(locale)
		}
	}
}

// WithLogger はロガーを指定する。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSanitizer はレンダリング結果に適用するサニタイザーを指定する。
// 指定しない場合、HTMLはそのまま出力される。
func WithSanitizer(s Sanitizer) Option {
	return func(o *options) {
		o.sanitizer = s
	}
}

// WithMetrics はメトリクスの記録先を指定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}
