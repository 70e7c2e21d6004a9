package embed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoDiscoveryLink はページにoEmbedリンクが見つからないことを表す。
var ErrNoDiscoveryLink = errors.New("no oembed discovery link")

// discover は対象ページを取得し、headのoEmbedリンクからエンドポイントURLを得る。
func (r *Resolver) discover(ctx context.Context, pageURL string) (string, error) {
	body, err := r.get(ctx, pageURL, "text/html")
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	endpoint := ParseDiscoveryLink(body, pageURL)
	if endpoint == "" {
		return "", ErrNoDiscoveryLink
	}
	return endpoint, nil
}

// ParseDiscoveryLink はHTMLのheadから
// <link rel="alternate" type="application/json+oembed">のhrefを探す。
// 相対URLはbaseURLを基準に解決する。見つからなければ空文字列を返す。
func ParseDiscoveryLink(htmlBody []byte, baseURL string) string {
	baseU, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "head" {
				inHead = true
				continue
			}
			if tagName == "body" {
				return ""
			}
			if !inHead || tagName != "link" || !hasAttr {
				continue
			}

			var rel, linkType, href string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					linkType = strings.ToLower(string(val))
				case "href":
					href = string(val)
				}
				if !more {
					break
				}
			}

			if rel != "alternate" || linkType != "application/json+oembed" || href == "" {
				continue
			}
			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			return baseU.ResolveReference(ref).String()

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return ""
			}
		}
	}
}
