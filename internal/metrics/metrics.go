// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 外部取得の結果ラベル。
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ソーシャル集約や記事レンダリングから利用する。
type MetricsCollector interface {
	RecordSocialFetch(platform, result string)
	RecordSocialLatency(platform string, duration time.Duration)
	RecordUpstreamStatus(platform string, statusCode int)
	RecordEmbedFallback()
	SetPostsLoaded(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	socialFetch    *prometheus.CounterVec
	socialLatency  *prometheus.HistogramVec
	upstreamStatus *prometheus.CounterVec
	embedFallback  prometheus.Counter
	postsLoaded    prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		socialFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdpress_social_fetch_total",
			Help: "プラットフォーム別のソーシャル投稿取得数",
		}, []string{"platform", "result"}),
		socialLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mdpress_social_fetch_latency_seconds",
			Help:    "ソーシャル投稿取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"platform"}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdpress_upstream_http_status_total",
			Help: "外部APIのHTTPステータスコード別のレスポンス数",
		}, []string{"platform", "status_code"}),
		embedFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdpress_embed_fallback_total",
			Help: "埋め込み解決に失敗し通常のレンダリングに切り替えた回数",
		}),
		postsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mdpress_posts_loaded",
			Help: "直近の一覧読み込みで得た記事数",
		}),
	}

	reg.MustRegister(
		c.socialFetch,
		c.socialLatency,
		c.upstreamStatus,
		c.embedFallback,
		c.postsLoaded,
	)

	return c
}

// RecordSocialFetch はソーシャル投稿取得の結果を記録する。
func (c *Collector) RecordSocialFetch(platform, result string) {
	c.socialFetch.WithLabelValues(platform, result).Inc()
}

// RecordSocialLatency はソーシャル投稿取得のレイテンシを記録する。
func (c *Collector) RecordSocialLatency(platform string, duration time.Duration) {
	c.socialLatency.WithLabelValues(platform).Observe(duration.Seconds())
}

// RecordUpstreamStatus は外部APIのHTTPステータスコードを記録する。
func (c *Collector) RecordUpstreamStatus(platform string, statusCode int) {
	c.upstreamStatus.WithLabelValues(platform, strconv.Itoa(statusCode)).Inc()
}

// RecordEmbedFallback はフォールバックレンダリングを記録する。
func (c *Collector) RecordEmbedFallback() {
	c.embedFallback.Inc()
}

// SetPostsLoaded は読み込んだ記事数を記録する。
func (c *Collector) SetPostsLoaded(count int) {
	c.postsLoaded.Set(float64(count))
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordSocialFetch(string, string)          {}
func (Nop) RecordSocialLatency(string, time.Duration) {}
func (Nop) RecordUpstreamStatus(string, int)          {}
func (Nop) RecordEmbedFallback()                      {}
func (Nop) SetPostsLoaded(int)                        {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
