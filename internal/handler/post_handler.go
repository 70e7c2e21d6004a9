package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/mdpress/internal/middleware"
	"github.com/hitoshi/mdpress/internal/model"
	"github.com/hitoshi/mdpress/internal/pagination"
	"github.com/hitoshi/mdpress/internal/post"
)

// PostLister は記事一覧を読み込むインターフェース。
type PostLister interface {
	// ReadAll は日付の降順に並んだ全記事を返す。
	ReadAll(ctx context.Context) ([]model.Post, error)
	// ListIDs はファイルの中身を読まずに全記事のIDを返す。
	ListIDs(ctx context.Context) ([]string, error)
}

// PostRenderer は記事1件をHTMLにレンダリングするインターフェース。
type PostRenderer interface {
	// Render は記事IDに対応する記事を返す。存在しない場合はNotFoundError。
	Render(ctx context.Context, id string) (*model.PostDetail, error)
}

// PostHandler は記事APIのHTTPハンドラー。
type PostHandler struct {
	lister   PostLister
	renderer PostRenderer
	pageSize int
	logger   *slog.Logger
}

// NewPostHandler はPostHandlerを生成する。
// pageSizeが1未満の場合はpagination.DefaultPageSizeを使う。
func NewPostHandler(lister PostLister, renderer PostRenderer, pageSize int, logger *slog.Logger) *PostHandler {
	if pageSize < 1 {
		pageSize = pagination.DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostHandler{
		lister:   lister,
		renderer: renderer,
		pageSize: pageSize,
		logger:   logger,
	}
}

// postListResponse は記事一覧のレスポンス。
type postListResponse struct {
	Posts       []model.Post `json:"posts"`
	Total       int          `json:"total"`
	CurrentPage int          `json:"currentPage"`
	TotalPages  int          `json:"totalPages"`
}

// ListPosts は記事一覧をページ単位で返す。
// GET /api/posts?page=1&tag=go&year=2024&month=March
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := pagination.ParsePage(q.Get("page"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	filter, err := parseFilter(q)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	posts, err := h.lister.ReadAll(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	result, err := pagination.Paginate(post.ApplyFilter(posts, filter), page, h.pageSize)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, postListResponse{
		Posts:       result.Items,
		Total:       result.Total,
		CurrentPage: result.CurrentPage,
		TotalPages:  result.TotalPages,
	})
}

// Facets は絞り込みに使える年・月・タグの一覧を返す。
// GET /api/posts/facets
func (h *PostHandler) Facets(w http.ResponseWriter, r *http.Request) {
	posts, err := h.lister.ReadAll(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, post.BuildFacets(posts))
}

// GetPost はレンダリング済みの記事を返す。
// GET /api/posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	detail, err := h.renderer.Render(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, detail)
}

// parseFilter はクエリパラメータから絞り込み条件を組み立てる。
func parseFilter(q url.Values) (post.Filter, error) {
	f := post.Filter{
		Month: strings.TrimSpace(q.Get("month")),
		Tag:   strings.TrimSpace(q.Get("tag")),
	}

	if raw := strings.TrimSpace(q.Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1 {
			return post.Filter{}, &model.InvalidParameterError{
				Name:    "year",
				Value:   raw,
				Message: "Invalid year parameter. Year must be a positive integer.",
			}
		}
		f.Year = year
	}

	return f, nil
}

// handleError はエラーの種類に応じたJSONエラーレスポンスを書き込む。
func (h *PostHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidErr *model.InvalidParameterError
	if errors.As(err, &invalidErr) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, middleware.ErrorResponseBody{
			Error: invalidErr.Message,
		})
		return
	}

	var rangeErr *model.OutOfRangeError
	if errors.As(err, &rangeErr) {
		totalPages, currentPage := rangeErr.TotalPages, rangeErr.CurrentPage
		middleware.WriteErrorResponse(w, http.StatusBadRequest, middleware.ErrorResponseBody{
			Error:       "Page out of range",
			TotalPages:  &totalPages,
			CurrentPage: &currentPage,
		})
		return
	}

	var notFoundErr *model.NotFoundError
	if errors.As(err, &notFoundErr) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, middleware.ErrorResponseBody{
			Error: "Post not found",
		})
		return
	}

	h.logger.Error("failed to load posts",
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w, "Failed to load posts.")
}
