package post

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/hitoshi/mdpress/internal/embed"
	"github.com/hitoshi/mdpress/internal/model"
)

// EmbedResolver は単独URLを埋め込みマークアップに解決するインターフェース。
// embed.Resolverを抽象化する。
type EmbedResolver interface {
	Match(rawURL string) bool
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// Renderer は記事1件をHTMLに変換する。
type Renderer struct {
	dir      string
	resolver EmbedResolver
	md       goldmark.Markdown
	options
}

// NewRenderer はRendererを生成する。resolverがnilの場合は埋め込みを解決しない。
// 生のHTMLはそのまま出力するため、信頼できない入力にはWithSanitizerを指定する。
func NewRenderer(dir string, resolver EmbedResolver, opts ...Option) *Renderer {
	return &Renderer{
		dir:      dir,
		resolver: resolver,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, embed.Extension),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		options: newOptions(opts),
	}
}

// Render は記事をHTMLに変換する。IDが不正またはファイルが存在しない場合はNotFoundErrorを返す。
// 埋め込みの解決に失敗した場合は埋め込みなしの変換結果を返す。
func (r *Renderer) Render(ctx context.Context, id string) (*model.PostDetail, error) {
	if !validID(id) {
		return nil, &model.NotFoundError{ID: id}
	}

	p, body, err := r.load(r.dir, id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &model.NotFoundError{ID: id}
		}
		return nil, err
	}

	out, err := r.renderWithEmbeds(ctx, body)
	if err != nil {
		deg := &model.RenderDegradation{PostID: id, Err: err}
		r.logger.Warn("埋め込みの解決に失敗したため通常のレンダリングに切り替えます",
			slog.String("post_id", id),
			slog.String("error", deg.Error()),
		)
		r.metrics.RecordEmbedFallback()

		out, err = r.renderPlain(body)
		if err != nil {
			return nil, fmt.Errorf("render post %s: %w", id, err)
		}
	}

	if r.sanitizer != nil {
		out = r.sanitizer.Sanitize(out)
	}

	r.logger.Debug("processed markdown output",
		slog.String("post_id", id),
		slog.String("html", out),
	)

	return &model.PostDetail{Post: p, ContentHTML: out}, nil
}

// renderWithEmbeds は埋め込み候補を全て解決してから変換する。1件でも失敗すればエラーを返す。
func (r *Renderer) renderWithEmbeds(ctx context.Context, body []byte) (string, error) {
	doc := r.md.Parser().Parse(text.NewReader(body))

	if r.resolver != nil {
		candidates := embed.FindCandidates(doc, body, r.resolver.Match)
		markups := make([]string, len(candidates))
		for i, c := range candidates {
			m, err := r.resolver.Resolve(ctx, c.URL)
			if err != nil {
				return "", fmt.Errorf("resolve %s: %w", c.URL, err)
			}
			markups[i] = m
		}
		for i, c := range candidates {
			embed.Replace(c, markups[i])
		}
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, body, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderPlain は埋め込みを解決せずに変換する。
func (r *Renderer) renderPlain(body []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// validID は記事IDがディレクトリ外を参照しないかを検証する。
func validID(id string) bool {
	if id == "" || id == "." {
		return false
	}
	return !strings.ContainsAny(id, "/\\\x00") && !strings.Contains(id, "..")
}
