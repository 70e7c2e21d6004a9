// Package post はMarkdownファイルからの記事読み込みとHTMLレンダリングを提供する。
//
// Readerはディレクトリ内の全記事を一覧用メタデータとして読み込み、
// Rendererは記事1件を埋め込み解決付きでHTMLに変換する。
// どちらもリクエストごとにディスクから読み直し、キャッシュは持たない。
package post

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/goodsign/monday"

	"github.com/hitoshi/mdpress/internal/model"
)

// markdownExt は記事として扱うファイルの拡張子。
const markdownExt = ".md"

// frontMatter は記事ファイル先頭のメタデータブロック。
// YAML(---)、TOML(+++)、JSON({})のいずれでも記述できる。
type frontMatter struct {
	Title   string   `yaml:"title" toml:"title" json:"title"`
	Date    string   `yaml:"date" toml:"date" json:"date"`
	Tags    []string `yaml:"tags" toml:"tags" json:"tags"`
	Excerpt string   `yaml:"excerpt" toml:"excerpt" json:"excerpt"`
}

// parseDocument はファイル内容をフロントマターと本文に分離する。
// フロントマターがないファイルは全体を本文として扱う。
func parseDocument(source []byte) (frontMatter, []byte, error) {
	var fm frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &fm)
	if err != nil {
		return frontMatter{}, nil, fmt.Errorf("parse front matter: %w", err)
	}
	return fm, body, nil
}

// dateLayouts は記事の日付として受け付ける書式。
// 日付のみの値はUTCの0時として解釈し、それ以外のタイムゾーンなしの値は
// 設定されたロケーションの現地時刻として解釈する。
var dateLayouts = []struct {
	layout string
	utc    bool
}{
	{"2006-01-02", true},
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02 15:04", false},
}

// ParseDate は記事の日付文字列をtime.Timeに変換する。
// タイムゾーンを含まない日時はlocの現地時刻として扱う。
func ParseDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		in := loc
		if l.utc {
			in = time.UTC
		}
		if t, err := time.ParseInLocation(l.layout, raw, in); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// deriver は日付から年・月を導出するための設定。
type deriver struct {
	location *time.Location
	locale   monday.Locale
}

func defaultDeriver() deriver {
	return deriver{location: time.Local, locale: monday.LocaleEnUS}
}

// yearMonth は日付文字列から設定ロケーションでの年と月名（ロング形式）を導出する。
// 解釈できない日付の場合はokがfalseになる。
func (d deriver) yearMonth(raw string) (year int, month string, ok bool) {
	t, ok := ParseDate(raw, d.location)
	if !ok {
		return 0, "", false
	}
	local := t.In(d.location)
	return local.Year(), monday.Format(local, "January", d.locale), true
}

// excerptOf はフロントマターの抜粋があればそれを、なければ本文の最初の空でない行を返す。
// 行はMarkdown/HTMLのまま返す。
func excerptOf(fm frontMatter, body []byte) string {
	if fm.Excerpt != "" {
		return fm.Excerpt
	}
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

// buildPost はフロントマターと本文から一覧用の記事メタデータを組み立てる。
func (d deriver) buildPost(id string, fm frontMatter, body []byte) (model.Post, bool) {
	year, month, ok := d.yearMonth(fm.Date)

	tags := fm.Tags
	if tags == nil {
		tags = []string{}
	}

	return model.Post{
		ID:      id,
		Title:   fm.Title,
		Date:    fm.Date,
		Year:    year,
		Month:   month,
		Tags:    tags,
		Excerpt: excerptOf(fm, body),
	}, ok
}
