// Package export は記事一覧からRSSフィードとサイトマップを生成する。
package export

import (
	"bytes"
	"encoding/xml"
	"html"
	"strings"
	"time"

	"github.com/hitoshi/mdpress/internal/model"
	"github.com/hitoshi/mdpress/internal/post"
	"github.com/hitoshi/mdpress/internal/security"
)

// RFC1123形式のGMT表記。
const pubDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// textSanitizer は抜粋からタグを除去する。
var textSanitizer = security.NewTextSanitizer()

// Channel はRSSチャンネルの設定。
type Channel struct {
	Title       string
	Description string
	SiteURL     string
	// Location はタイムゾーンを含まない日時の解釈に使う。nilの場合はUTC。
	Location *time.Location
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	AtomNS  string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Description string    `xml:"description"`
	Link        string    `xml:"link"`
	AtomLink    atomLink  `xml:"atom:link"`
	Items       []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Description string  `xml:"description"`
	Link        string  `xml:"link"`
	GUID        rssGUID `xml:"guid"`
	PubDate     string  `xml:"pubDate,omitempty"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// RSS は記事一覧からRSS 2.0文書を生成する。記事は渡された順に出力する。
func RSS(ch Channel, posts []model.Post) ([]byte, error) {
	base := strings.TrimRight(ch.SiteURL, "/")
	loc := ch.Location
	if loc == nil {
		loc = time.UTC
	}

	doc := rssDocument{
		Version: "2.0",
		AtomNS:  "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:       ch.Title,
			Description: ch.Description,
			Link:        base,
			AtomLink: atomLink{
				Href: base + "/feed",
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Items: make([]rssItem, 0, len(posts)),
		},
	}

	for _, p := range posts {
		link := base + "/posts/" + p.ID
		item := rssItem{
			Title:       p.Title,
			Description: plainText(p.Excerpt),
			Link:        link,
			GUID:        rssGUID{IsPermaLink: true, Value: link},
		}
		if t, ok := post.ParseDate(p.Date, loc); ok {
			item.PubDate = t.UTC().Format(pubDateLayout)
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}

	return marshalXML(doc)
}

// plainText はHTMLタグを除去し、文字参照を元の文字に戻す。
// XMLへの書き出し時に改めてエスケープされる。
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textSanitizer.Sanitize(s)))
}

func marshalXML(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
