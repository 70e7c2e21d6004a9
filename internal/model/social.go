package model

import "encoding/json"

// Platform はSNS投稿の取得元を表す。
type Platform string

const (
	// PlatformBluesky は連合型マイクロブログ（AT Protocol）。
	PlatformBluesky Platform = "Bluesky"
	// PlatformPixelfed はMastodon互換APIを持つPixelfedインスタンス。
	PlatformPixelfed Platform = "Pixelfed"
)

// Media はプラットフォームごとに形の異なる添付画像を表す。
// 実装はBlueskyMediaとPixelfedMediaのみ。
type Media interface {
	// URLs は表示順の画像URLを返す。
	URLs() []string
	isMedia()
}

// BlueskyMedia は0件以上の画像を持つBluesky投稿の添付。
type BlueskyMedia struct {
	ImageURLs []string
}

// URLs はMediaインターフェースを実装する。
func (m BlueskyMedia) URLs() []string { return m.ImageURLs }

func (BlueskyMedia) isMedia() {}

// PixelfedMedia は先頭1件のみを保持するPixelfed投稿の添付。
type PixelfedMedia struct {
	ImageURL string // 添付なしの場合は空
}

// URLs はMediaインターフェースを実装する。
func (m PixelfedMedia) URLs() []string {
	if m.ImageURL == "" {
		return nil
	}
	return []string{m.ImageURL}
}

func (PixelfedMedia) isMedia() {}

// SocialPost は正規化済みのSNS投稿。
// IDはプラットフォーム接頭辞付きで全体として一意になる。
type SocialPost struct {
	ID        string
	Platform  Platform
	Timestamp string // ISO 8601
	Content   string // Blueskyはプレーンテキスト、PixelfedはHTML
	PostURL   string // 元投稿へのリンク（不明な場合は空）
	Media     Media
}

// socialPostJSON はSocialPostの共通部分のJSON表現。
type socialPostJSON struct {
	ID        string   `json:"id"`
	Platform  Platform `json:"platform"`
	Timestamp string   `json:"timestamp"`
	Content   string   `json:"content"`
	PostURL   *string  `json:"postUrl"`
}

// MarshalJSON はjson.Marshalerを実装する。
// 画像はBlueskyならimageUrls（配列）、PixelfedならimageUrl（単一）として出力し、
// 2つの形を統合しない。
func (p SocialPost) MarshalJSON() ([]byte, error) {
	base := socialPostJSON{
		ID:        p.ID,
		Platform:  p.Platform,
		Timestamp: p.Timestamp,
		Content:   p.Content,
	}
	if p.PostURL != "" {
		u := p.PostURL
		base.PostURL = &u
	}

	switch m := p.Media.(type) {
	case BlueskyMedia:
		urls := m.ImageURLs
		if urls == nil {
			urls = []string{}
		}
		return json.Marshal(struct {
			socialPostJSON
			ImageURLs []string `json:"imageUrls"`
		}{base, urls})
	case PixelfedMedia:
		var u *string
		if m.ImageURL != "" {
			v := m.ImageURL
			u = &v
		}
		return json.Marshal(struct {
			socialPostJSON
			ImageURL *string `json:"imageUrl"`
		}{base, u})
	}

	return json.Marshal(base)
}

// ImageURLs はプラットフォームを問わず表示用の画像URLを返す。
func (p SocialPost) ImageURLs() []string {
	if p.Media == nil {
		return nil
	}
	return p.Media.URLs()
}
