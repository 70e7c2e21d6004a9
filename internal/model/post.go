package model

// Post はMarkdownファイルから導出される一覧用の記事メタデータを表す。
// 本文HTMLは含まない。
type Post struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Date    string   `json:"date"`
	Year    int      `json:"year"`
	Month   string   `json:"month"`
	Tags    []string `json:"tags"`
	Excerpt string   `json:"excerpt"` // 未サニタイズ
}

// PostDetail はレンダリング済みの記事を表す。
type PostDetail struct {
	Post
	ContentHTML string `json:"contentHtml"`
}
