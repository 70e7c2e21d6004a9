package social

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/mdpress/internal/metrics"
	"github.com/hitoshi/mdpress/internal/model"
)

// Aggregator は複数のSourceから投稿を並行に取得し、新しい順に統合する。
type Aggregator struct {
	sources []Source
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewAggregator はAggregatorを生成する。
func NewAggregator(sources []Source, logger *slog.Logger, m metrics.MetricsCollector) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Aggregator{sources: sources, logger: logger, metrics: m}
}

// Fetch は全Sourceの取得完了を待ち、統合した投稿を返す。
// 失敗したSourceは空として扱い、エラーは返さない。
func (a *Aggregator) Fetch(ctx context.Context) []model.SocialPost {
	results := make([][]model.SocialPost, len(a.sources))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			results[i] = a.fetchOne(ctx, src)
		}(i, src)
	}
	wg.Wait()

	var combined []model.SocialPost
	for _, r := range results {
		combined = append(combined, r...)
	}
	if combined == nil {
		combined = []model.SocialPost{}
	}

	SortByTimestamp(combined)
	return combined
}

// fetchOne は1つのSourceから取得し、結果を記録する。
func (a *Aggregator) fetchOne(ctx context.Context, src Source) []model.SocialPost {
	platform := string(src.Platform())
	start := time.Now()

	posts, err := src.Fetch(ctx)
	a.metrics.RecordSocialLatency(platform, time.Since(start))

	if err != nil {
		a.metrics.RecordSocialFetch(platform, metrics.ResultFailure)
		a.logger.Error("SNS投稿の取得に失敗しました",
			slog.String("platform", platform),
			slog.String("error", err.Error()),
		)
		return nil
	}

	a.metrics.RecordSocialFetch(platform, metrics.ResultSuccess)
	a.logger.Debug("SNS投稿を取得しました",
		slog.String("platform", platform),
		slog.Int("count", len(posts)),
		slog.Duration("duration", time.Since(start)),
	)
	return posts
}

// SortByTimestamp はRFC 3339のタイムスタンプで新しい順に安定ソートする。
// 解釈できないタイムスタンプの投稿は末尾に元の順序で並ぶ。
func SortByTimestamp(posts []model.SocialPost) {
	type parsed struct {
		t  time.Time
		ok bool
	}
	cache := make(map[string]parsed, len(posts))
	parse := func(s string) (time.Time, bool) {
		if p, hit := cache[s]; hit {
			return p.t, p.ok
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		p := parsed{t: t, ok: err == nil}
		cache[s] = p
		return p.t, p.ok
	}

	sort.SliceStable(posts, func(i, j int) bool {
		ti, okI := parse(posts[i].Timestamp)
		tj, okJ := parse(posts[j].Timestamp)
		if okI != okJ {
			return okI
		}
		return ti.After(tj)
	})
}
