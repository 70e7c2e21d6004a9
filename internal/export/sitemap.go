package export

import (
	"encoding/xml"
	"strings"
	"time"
)

// DefaultStaticPages はサイトマップに含める固定ページのパス。空文字列はトップページ。
var DefaultStaticPages = []string{"", "posts", "social"}

const (
	rootPriority    = "1.0"
	defaultPriority = "0.7"
	// DefaultChangeFrequency はサイトマップのchangefreqの既定値。
	DefaultChangeFrequency = "weekly"
)

type urlSet struct {
	XMLName        xml.Name     `xml:"urlset"`
	XMLNS          string       `xml:"xmlns,attr"`
	XSI            string       `xml:"xmlns:xsi,attr"`
	SchemaLocation string       `xml:"xsi:schemaLocation,attr"`
	URLs           []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// SitemapOptions はサイトマップ生成の設定。
type SitemapOptions struct {
	BaseURL         string
	StaticPages     []string // nilの場合はDefaultStaticPages
	ChangeFrequency string   // 空の場合はDefaultChangeFrequency
	Now             time.Time
}

// Sitemap は固定ページと記事IDごとのURLを列挙したサイトマップを生成する。
// 全URLのlastmodは生成日になる。
func Sitemap(opts SitemapOptions, postIDs []string) ([]byte, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	pages := opts.StaticPages
	if pages == nil {
		pages = DefaultStaticPages
	}
	freq := opts.ChangeFrequency
	if freq == "" {
		freq = DefaultChangeFrequency
	}
	lastMod := opts.Now.Format("2006-01-02")

	set := urlSet{
		XMLNS:          "http://www.sitemaps.org/schemas/sitemap/0.9",
		XSI:            "http://www.w3.org/2001/XMLSchema-instance",
		SchemaLocation: "http://www.sitemaps.org/schemas/sitemap/0.9 http://www.sitemaps.org/schemas/sitemap/0.9/sitemap.xsd",
		URLs:           make([]sitemapURL, 0, len(pages)+len(postIDs)),
	}

	add := func(loc, priority string) {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        loc,
			LastMod:    lastMod,
			ChangeFreq: freq,
			Priority:   priority,
		})
	}

	for _, page := range pages {
		page = strings.Trim(page, "/")
		if page == "" {
			add(base, rootPriority)
			continue
		}
		add(base+"/"+page, defaultPriority)
	}
	for _, id := range postIDs {
		add(base+"/posts/"+id, defaultPriority)
	}

	return marshalXML(set)
}
