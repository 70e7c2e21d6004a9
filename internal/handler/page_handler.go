package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/mdpress/internal/middleware"
	"github.com/hitoshi/mdpress/internal/model"
	"github.com/hitoshi/mdpress/internal/pagination"
	"github.com/hitoshi/mdpress/internal/post"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	listTemplate   = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/list.html"))
	postTemplate   = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/post.html"))
	socialTemplate = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/social.html"))
)

// 画面に表示するエラーメッセージ。
const (
	msgPostNotFound   = "Post not found."
	msgPostLoadError  = "Error loading post."
	msgPostsLoadError = "Error loading posts."
	msgPageOutOfRange = "Page out of range."
)

// allPostsPageTitle は記事一覧ページの見出し。
const allPostsPageTitle = "All Posts"

// socialTimeLayout はSNS投稿日時の表示形式。
const socialTimeLayout = "Jan 2, 2006 3:04 PM"

// HTMLSanitizer はSNS投稿のHTML本文を表示前に無害化するインターフェース。
type HTMLSanitizer interface {
	Sanitize(rawHTML string) string
}

// SiteInfo はHTMLページの共通表示に使うサイト情報。
type SiteInfo struct {
	Title       string
	Description string
	// Location は投稿日時の表示に使う。nilの場合はUTC。
	Location *time.Location
	// PageSize は記事一覧の1ページあたりの件数。0以下の場合はpagination.DefaultPageSize。
	PageSize int
}

// PageHandler はサーバーサイドでレンダリングするHTMLページのハンドラー。
type PageHandler struct {
	lister    PostLister
	renderer  PostRenderer
	fetcher   SocialFetcher
	sanitizer HTMLSanitizer
	site      SiteInfo
	logger    *slog.Logger
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(lister PostLister, renderer PostRenderer, fetcher SocialFetcher, sanitizer HTMLSanitizer, site SiteInfo, logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if site.Location == nil {
		site.Location = time.UTC
	}
	if site.PageSize < 1 {
		site.PageSize = pagination.DefaultPageSize
	}
	return &PageHandler{
		lister:    lister,
		renderer:  renderer,
		fetcher:   fetcher,
		sanitizer: sanitizer,
		site:      site,
		logger:    logger,
	}
}

type pageData struct {
	SiteTitle   string
	Title       string
	Description string
}

type listPageData struct {
	pageData
	Heading     string
	Posts       []model.Post
	Facets      post.Facets
	CurrentPage int
	TotalPages  int
	PrevURL     string
	NextURL     string
	Error       string
}

type postPageData struct {
	pageData
	Post    *model.PostDetail
	Content template.HTML
	Error   string
}

type socialPageData struct {
	pageData
	Posts []socialPostView
}

// socialPostView はSNS投稿1件の表示用データ。
// HTMLが空でなければ本文としてHTMLを、そうでなければTextを表示する。
type socialPostView struct {
	ID        string
	Platform  model.Platform
	Text      string
	HTML      template.HTML
	ImageURLs []string
	PostURL   string
	PostedAt  string
}

// HomePage はトップページとして最新の記事一覧を返す。
// GET /
func (h *PageHandler) HomePage(w http.ResponseWriter, r *http.Request) {
	h.listPage(w, r, "", h.site.Title)
}

// PostsPage は全記事の一覧ページを返す。tag・year・monthで絞り込める。
// GET /posts
func (h *PageHandler) PostsPage(w http.ResponseWriter, r *http.Request) {
	h.listPage(w, r, allPostsPageTitle, allPostsPageTitle)
}

// listPage はページ番号と絞り込み条件に従って記事一覧を表示する。
// 不正なパラメータや読み込みエラーは一覧の代わりにエラーメッセージとして表示する。
func (h *PageHandler) listPage(w http.ResponseWriter, r *http.Request, title, heading string) {
	data := listPageData{
		pageData: h.pageData(title, h.site.Description),
		Heading:  heading,
	}

	q := r.URL.Query()
	page, err := pagination.ParsePage(q.Get("page"))
	var filter post.Filter
	if err == nil {
		filter, err = parseFilter(q)
	}
	if err != nil {
		data.Error = err.Error()
		var invalidErr *model.InvalidParameterError
		if errors.As(err, &invalidErr) {
			data.Error = invalidErr.Message
		}
		h.render(w, r, listTemplate, http.StatusBadRequest, data)
		return
	}

	posts, err := h.lister.ReadAll(r.Context())
	if err != nil {
		h.logger.Error("記事一覧ページの読み込みに失敗しました",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		data.Error = msgPostsLoadError
		h.render(w, r, listTemplate, http.StatusInternalServerError, data)
		return
	}
	data.Facets = post.BuildFacets(posts)

	result, err := pagination.Paginate(post.ApplyFilter(posts, filter), page, h.site.PageSize)
	if err != nil {
		data.Error = msgPageOutOfRange
		h.render(w, r, listTemplate, http.StatusBadRequest, data)
		return
	}

	data.Posts = result.Items
	data.CurrentPage = result.CurrentPage
	data.TotalPages = result.TotalPages
	if result.CurrentPage > 1 {
		data.PrevURL = pageURL(r.URL, result.CurrentPage-1)
	}
	if result.CurrentPage < result.TotalPages {
		data.NextURL = pageURL(r.URL, result.CurrentPage+1)
	}

	h.render(w, r, listTemplate, http.StatusOK, data)
}

// pageURL は絞り込み条件を保ったまま指定ページへのURLを返す。1ページ目はpageを省く。
func pageURL(u *url.URL, page int) string {
	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return u.Path
	}
	return u.Path + "?" + q.Encode()
}

// PostPage は記事ページを返す。
// 記事が見つからない・読み込めない場合は本文の代わりにエラーメッセージを表示する。
// GET /posts/{id}
func (h *PageHandler) PostPage(w http.ResponseWriter, r *http.Request) {
	data := postPageData{pageData: h.pageData("", h.site.Description)}
	status := http.StatusOK

	detail, err := h.renderer.Render(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		data.Title = detail.Title
		if detail.Excerpt != "" {
			data.Description = detail.Excerpt
		}
		data.Post = detail
		// 記事本文は信頼済みの著者コンテンツとしてそのまま出力する
		data.Content = template.HTML(detail.ContentHTML)
	case isNotFound(err):
		status = http.StatusNotFound
		data.Error = msgPostNotFound
	default:
		h.logger.Error("記事ページのレンダリングに失敗しました",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
			slog.String("error", err.Error()),
		)
		status = http.StatusInternalServerError
		data.Error = msgPostLoadError
	}

	h.render(w, r, postTemplate, status, data)
}

// SocialPage はSNSフィードのページを返す。
// GET /social
func (h *PageHandler) SocialPage(w http.ResponseWriter, r *http.Request) {
	posts := h.fetcher.Fetch(r.Context())

	data := socialPageData{
		pageData: h.pageData("Social Feed", "Latest posts on Bluesky and Pixelfed."),
		Posts:    make([]socialPostView, 0, len(posts)),
	}
	for _, p := range posts {
		data.Posts = append(data.Posts, h.socialView(p))
	}

	w.Header().Set("Cache-Control", socialCacheControl)
	h.render(w, r, socialTemplate, http.StatusOK, data)
}

func (h *PageHandler) pageData(title, description string) pageData {
	return pageData{
		SiteTitle:   h.site.Title,
		Title:       title,
		Description: description,
	}
}

// socialView は投稿を表示用に変換する。
// PixelfedのHTML本文はサニタイズしてから埋め込む。
func (h *PageHandler) socialView(p model.SocialPost) socialPostView {
	v := socialPostView{
		ID:        p.ID,
		Platform:  p.Platform,
		ImageURLs: p.ImageURLs(),
		PostURL:   p.PostURL,
		PostedAt:  h.formatTimestamp(p.Timestamp),
	}

	if p.Platform == model.PlatformPixelfed && h.sanitizer != nil {
		v.HTML = template.HTML(h.sanitizer.Sanitize(p.Content))
	} else {
		v.Text = p.Content
	}
	return v
}

// formatTimestamp はRFC 3339の日時を表示用に整形する。解釈できない場合はそのまま返す。
func (h *PageHandler) formatTimestamp(raw string) string {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw
	}
	return t.In(h.site.Location).Format(socialTimeLayout)
}

// render はテンプレートをバッファに展開してから書き込む。
// 展開に失敗した場合は途中までの出力を送らずに500を返す。
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, status int, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error("テンプレートの展開に失敗しました",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		http.Error(w, msgPostLoadError, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func isNotFound(err error) bool {
	var notFoundErr *model.NotFoundError
	return errors.As(err, &notFoundErr)
}
