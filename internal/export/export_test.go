package export

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/mdpress/internal/model"
)

func testPosts() []model.Post {
	return []model.Post{
		{ID: "second", Title: "Second & Last", Date: "2024-05-02", Excerpt: "Has <em>markup</em> &amp; entities"},
		{ID: "first", Title: "First", Date: "2024-01-15T09:30:00Z", Excerpt: "Plain excerpt"},
		{ID: "undated", Title: "Undated", Date: "someday", Excerpt: ""},
	}
}

func TestRSS_ParsesAsFeed(t *testing.T) {
	out, err := RSS(Channel{
		Title:       "Your Tagline",
		Description: "Join Your Name Here",
		SiteURL:     "https://example.com/",
	}, testPosts())
	if err != nil {
		t.Fatalf("RSS がエラーを返した: %v", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(out))
	if err != nil {
		t.Fatalf("生成したRSSを解析できない: %v\n%s", err, out)
	}

	if feed.FeedType != "rss" || feed.FeedVersion != "2.0" {
		t.Errorf("type/version = %s/%s", feed.FeedType, feed.FeedVersion)
	}
	if feed.Title != "Your Tagline" || feed.Description != "Join Your Name Here" {
		t.Errorf("channel = %q / %q", feed.Title, feed.Description)
	}
	if feed.Link != "https://example.com" {
		t.Errorf("Link = %q", feed.Link)
	}
	if len(feed.Items) != 3 {
		t.Fatalf("item数 = %d, want 3", len(feed.Items))
	}

	first := feed.Items[0]
	if first.Title != "Second & Last" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Link != "https://example.com/posts/second" || first.GUID != "https://example.com/posts/second" {
		t.Errorf("Link/GUID = %q / %q", first.Link, first.GUID)
	}
	if first.Description != "Has markup & entities" {
		t.Errorf("Description = %q", first.Description)
	}
	if first.PublishedParsed == nil || !first.PublishedParsed.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Published = %q", first.Published)
	}

	if feed.Items[1].Published != "Mon, 15 Jan 2024 09:30:00 GMT" {
		t.Errorf("pubDate = %q", feed.Items[1].Published)
	}
	if feed.Items[2].Published != "" {
		t.Errorf("解釈できない日付ではpubDateを省略すべき: %q", feed.Items[2].Published)
	}
}

func TestRSS_SelfLinkAndGUID(t *testing.T) {
	out, err := RSS(Channel{Title: "T", SiteURL: "https://example.com"}, testPosts()[:1])
	if err != nil {
		t.Fatalf("RSS がエラーを返した: %v", err)
	}
	s := string(out)

	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`xmlns:atom="http://www.w3.org/2005/Atom"`,
		`<atom:link href="https://example.com/feed" rel="self" type="application/rss+xml"></atom:link>`,
		`<guid isPermaLink="true">https://example.com/posts/second</guid>`,
		`<title>Second &amp; Last</title>`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("出力に %q が含まれない:\n%s", want, s)
		}
	}
}

func TestRSS_Empty(t *testing.T) {
	out, err := RSS(Channel{Title: "T", SiteURL: "https://example.com"}, nil)
	if err != nil {
		t.Fatalf("RSS がエラーを返した: %v", err)
	}
	feed, err := gofeed.NewParser().ParseString(string(out))
	if err != nil {
		t.Fatalf("解析できない: %v", err)
	}
	if len(feed.Items) != 0 {
		t.Errorf("item数 = %d, want 0", len(feed.Items))
	}
}

func TestSitemap(t *testing.T) {
	now := time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)
	out, err := Sitemap(SitemapOptions{BaseURL: "https://example.com/", Now: now}, []string{"second", "first"})
	if err != nil {
		t.Fatalf("Sitemap がエラーを返した: %v", err)
	}

	var set struct {
		URLs []struct {
			Loc        string `xml:"loc"`
			LastMod    string `xml:"lastmod"`
			ChangeFreq string `xml:"changefreq"`
			Priority   string `xml:"priority"`
		} `xml:"url"`
	}
	if err := xml.Unmarshal(out, &set); err != nil {
		t.Fatalf("サイトマップを解析できない: %v", err)
	}

	wantLocs := []string{
		"https://example.com",
		"https://example.com/posts",
		"https://example.com/social",
		"https://example.com/posts/second",
		"https://example.com/posts/first",
	}
	if len(set.URLs) != len(wantLocs) {
		t.Fatalf("URL数 = %d, want %d", len(set.URLs), len(wantLocs))
	}
	for i, u := range set.URLs {
		if u.Loc != wantLocs[i] {
			t.Errorf("URLs[%d].Loc = %q, want %q", i, u.Loc, wantLocs[i])
		}
		if u.LastMod != "2024-06-30" || u.ChangeFreq != "weekly" {
			t.Errorf("URLs[%d] = %+v", i, u)
		}
		wantPriority := "0.7"
		if i == 0 {
			wantPriority = "1.0"
		}
		if u.Priority != wantPriority {
			t.Errorf("URLs[%d].Priority = %q, want %q", i, u.Priority, wantPriority)
		}
	}

	if !strings.Contains(string(out), `xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"`) {
		t.Errorf("名前空間が含まれない:\n%s", out)
	}
}

func TestSitemap_CustomPages(t *testing.T) {
	out, err := Sitemap(SitemapOptions{
		BaseURL:         "https://example.com",
		StaticPages:     []string{"/now/"},
		ChangeFrequency: "daily",
		Now:             time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil)
	if err != nil {
		t.Fatalf("Sitemap がエラーを返した: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "<loc>https://example.com/now</loc>") || !strings.Contains(s, "<changefreq>daily</changefreq>") {
		t.Errorf("出力 = %s", s)
	}
	if strings.Count(s, "<url>") != 1 {
		t.Errorf("URL数が1でない: %s", s)
	}
}
