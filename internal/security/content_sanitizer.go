// Package security はアプリケーションのセキュリティ機能を提供する。
//
// HTMLのサニタイズにはbluemondayの許可リスト方式のポリシーを使い、
// 外部URLの取得にはsafeurlでSSRFを防止したHTTPクライアントを使う。
package security

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェース。
type ContentSanitizerService interface {
	// Sanitize はポリシーに従ってHTMLをサニタイズする。同一入力には常に同一出力を返す。
	Sanitize(rawHTML string) string
}

// ContentSanitizer はbluemondayのポリシーを保持するContentSanitizerServiceの実装。
// ポリシーは生成後に変更しないため、並行して使用できる。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *ContentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}

// embedHosts はiframeのsrcとして許可するホスト。
var embedHosts = regexp.MustCompile(`^https://(www\.youtube\.com|www\.youtube-nocookie\.com|player\.vimeo\.com|w\.soundcloud\.com|open\.spotify\.com|embed\.bsky\.app)/`)

// NewPostSanitizer は記事本文用のサニタイザーを生成する。
// UGCポリシーに加え、埋め込み用のiframe（既知プロバイダーのhttpsのみ）と
// コードブロックの言語クラスを許可する。
func NewPostSanitizer() *ContentSanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^(embed|language-[\w+-]+)$`)).OnElements("div", "code")
	p.AllowAttrs("src").Matching(embedHosts).OnElements("iframe")
	p.AllowAttrs("width", "height").Matching(bluemonday.Integer).OnElements("iframe")
	p.AllowAttrs("title", "allow", "allowfullscreen", "frameborder").OnElements("iframe")
	p.AllowAttrs("type", "checked", "disabled").OnElements("input")
	return &ContentSanitizer{policy: p}
}

// NewSocialSanitizer はPixelfed投稿本文用のサニタイザーを生成する。
// 段落、改行、リンク、spanのみを許可し、リンクは新しいタブで開く。
func NewSocialSanitizer() *ContentSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "span")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return &ContentSanitizer{policy: p}
}

// NewTextSanitizer は全てのタグを除去するサニタイザーを生成する。
// RSSのdescriptionなどプレーンテキストが必要な箇所で使う。
func NewTextSanitizer() *ContentSanitizer {
	return &ContentSanitizer{policy: bluemonday.StrictPolicy()}
}
