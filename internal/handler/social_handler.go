package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/mdpress/internal/middleware"
	"github.com/hitoshi/mdpress/internal/model"
)

// socialCacheControl はSNSフィードのキャッシュ指定（3時間）。
// 外部APIの呼び出し回数を抑える。
const socialCacheControl = "public, max-age=10800"

// SocialFetcher は統合済みのSNS投稿を取得するインターフェース。
type SocialFetcher interface {
	// Fetch は新しい順に並んだ投稿を返す。取得元の失敗は空として扱われる。
	Fetch(ctx context.Context) []model.SocialPost
}

// SocialHandler はSNSフィードAPIのHTTPハンドラー。
type SocialHandler struct {
	fetcher SocialFetcher
}

// NewSocialHandler はSocialHandlerを生成する。
func NewSocialHandler(fetcher SocialFetcher) *SocialHandler {
	return &SocialHandler{fetcher: fetcher}
}

// socialListResponse はSNSフィードのレスポンス。
type socialListResponse struct {
	Posts []model.SocialPost `json:"posts"`
}

// ListSocialPosts は統合済みのSNS投稿を返す。
// GET /api/social
func (h *SocialHandler) ListSocialPosts(w http.ResponseWriter, r *http.Request) {
	posts := h.fetcher.Fetch(r.Context())
	if posts == nil {
		posts = []model.SocialPost{}
	}

	w.Header().Set("Cache-Control", socialCacheControl)
	middleware.WriteJSON(w, http.StatusOK, socialListResponse{Posts: posts})
}
