// Package social は外部SNSの最近の投稿を取得し、1つの時系列にまとめる。
//
// 各プラットフォームはSourceとして実装され、Aggregatorが全Sourceを並行に呼び出す。
// 取得に失敗したSourceは空の結果として扱い、他のSourceの結果は失われない。
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hitoshi/mdpress/internal/metrics"
	"github.com/hitoshi/mdpress/internal/model"
)

// maxResponseSize はSNS APIの応答ボディの最大サイズ。
const maxResponseSize = 5 << 20

// Source は1つのSNSから正規化済みの投稿を取得する。
type Source interface {
	Platform() model.Platform
	// Fetch は投稿を取得する。失敗時は*model.UpstreamFetchErrorを返す。
	Fetch(ctx context.Context) ([]model.SocialPost, error)
}

// doJSON はリクエストを送信し、2xx応答のボディをoutにデコードする。
// 通信失敗・非2xx・デコード失敗はいずれもUpstreamFetchErrorになる。
func doJSON(client *http.Client, req *http.Request, platform model.Platform, op string, m metrics.MetricsCollector, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &model.UpstreamFetchError{Platform: platform, Op: op, Err: err}
	}
	defer resp.Body.Close()

	m.RecordUpstreamStatus(string(platform), resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return &model.UpstreamFetchError{
			Platform:   platform,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return &model.UpstreamFetchError{Platform: platform, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
