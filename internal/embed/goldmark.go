package embed

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// KindEmbed は埋め込みノードの種別。
var KindEmbed = ast.NewNodeKind("Embed")

// Embed は段落を置き換える埋め込みブロック。HTMLはそのまま出力される。
type Embed struct {
	ast.BaseBlock
	URL  string
	HTML string
}

// NewEmbed は新しい埋め込みノードを生成する。
func NewEmbed(rawURL, markup string) *Embed {
	return &Embed{URL: rawURL, HTML: markup}
}

// Kind はast.Nodeを実装する。
func (n *Embed) Kind() ast.NodeKind {
	return KindEmbed
}

// Dump はast.Nodeを実装する。
func (n *Embed) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"URL": n.URL}, nil)
}

// Candidate は埋め込み対象の段落とそのURL。
type Candidate struct {
	Paragraph ast.Node
	URL       string
}

// FindCandidates は単独のリンクだけを含む段落のうち、matchがtrueを返すURLのものを集める。
// 対象はリンクテキストがURLと同じリンク、または裸のURL（自動リンク）。
func FindCandidates(doc ast.Node, source []byte, match func(string) bool) []Candidate {
	var out []Candidate
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if n.Kind() != ast.KindParagraph {
			return ast.WalkContinue, nil
		}
		if u, ok := loneLinkURL(n, source); ok && (match == nil || match(u)) {
			out = append(out, Candidate{Paragraph: n, URL: u})
		}
		return ast.WalkSkipChildren, nil
	})
	return out
}

// loneLinkURL は段落の唯一の子がURLそのものを表示するリンクであればそのURLを返す。
func loneLinkURL(para ast.Node, source []byte) (string, bool) {
	if para.ChildCount() != 1 {
		return "", false
	}
	switch link := para.FirstChild().(type) {
	case *ast.AutoLink:
		if link.AutoLinkType != ast.AutoLinkURL {
			return "", false
		}
		return string(link.URL(source)), true
	case *ast.Link:
		if !bytes.Equal(link.Text(source), link.Destination) {
			return "", false
		}
		return string(link.Destination), true
	}
	return "", false
}

// Replace は候補の段落を埋め込みノードに差し替える。
func Replace(c Candidate, markup string) {
	parent := c.Paragraph.Parent()
	if parent == nil {
		return
	}
	parent.ReplaceChild(parent, c.Paragraph, NewEmbed(c.URL, markup))
}

// embedRenderer はEmbedノードのHTMLレンダラー。
type embedRenderer struct{}

// RegisterFuncs はrenderer.NodeRendererを実装する。
func (r *embedRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindEmbed, r.renderEmbed)
}

func (r *embedRenderer) renderEmbed(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*Embed)
	_, _ = w.WriteString(`<div class="embed">`)
	_, _ = w.WriteString(n.HTML)
	_, _ = w.WriteString("</div>\n")
	return ast.WalkSkipChildren, nil
}

// Extension はEmbedノードのレンダラーをgoldmarkに登録する。
// 登録だけではノードは生成されないため、Embedを含まない文書の出力は変わらない。
var Extension goldmark.Extender = &embedExtension{}

type embedExtension struct{}

// Extend はgoldmark.Extenderを実装する。
func (e *embedExtension) Extend(m goldmark.Markdown) {
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&embedRenderer{}, 500),
	))
}
