package security

import (
	"strings"
	"testing"
)

// TestPostSanitizer_KeepsMarkdownOutput は通常の記事HTMLが保持されることを検証する。
func TestPostSanitizer_KeepsMarkdownOutput(t *testing.T) {
	s := NewPostSanitizer()

	tests := []string{
		"<p>Hello <strong>world</strong></p>",
		"<h2>Title</h2>",
		"<ul>\n<li>one</li>\n</ul>",
		`<pre><code class="language-go">fmt.Println()</code></pre>`,
		"<blockquote>\n<p>quote</p>\n</blockquote>",
		"<p><del>old</del></p>",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if got := s.Sanitize(input); got != input {
				t.Errorf("Sanitize(%q) = %q", input, got)
			}
		})
	}
}

// TestPostSanitizer_Embeds は既知プロバイダーのiframeのみ許可されることを検証する。
func TestPostSanitizer_Embeds(t *testing.T) {
	s := NewPostSanitizer()

	allowed := `<div class="embed"><iframe src="https://www.youtube.com/embed/abc" width="560" height="315" allowfullscreen=""></iframe></div>`
	got := s.Sanitize(allowed)
	if !strings.Contains(got, `src="https://www.youtube.com/embed/abc"`) {
		t.Errorf("YouTubeのiframeが除去された: %q", got)
	}
	if !strings.Contains(got, `class="embed"`) {
		t.Errorf("embedクラスが除去された: %q", got)
	}

	blocked := `<iframe src="https://evil.example/frame"></iframe>`
	if got := s.Sanitize(blocked); strings.Contains(got, "evil.example") {
		t.Errorf("未知のホストのiframeが残っている: %q", got)
	}
}

// TestPostSanitizer_RemovesScripts はスクリプトとイベント属性が除去されることを検証する。
func TestPostSanitizer_RemovesScripts(t *testing.T) {
	s := NewPostSanitizer()

	tests := []string{
		`<script>alert(1)</script>`,
		`<img src="x" onerror="alert(1)">`,
		`<a href="javascript:alert(1)">x</a>`,
		`<div onclick="alert(1)">x</div>`,
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			got := s.Sanitize(input)
			for _, unwanted := range []string{"<script", "onerror", "onclick", "javascript:"} {
				if strings.Contains(got, unwanted) {
					t.Errorf("Sanitize(%q) = %q, %q を含んではならない", input, got, unwanted)
				}
			}
		})
	}
}

// TestSocialSanitizer はPixelfedの本文から許可タグ以外が除去されることを検証する。
func TestSocialSanitizer(t *testing.T) {
	s := NewSocialSanitizer()

	input := `<p>Sunset <a href="https://pixelfed.social/discover/tags/sunset" class="mention hashtag">#<span>sunset</span></a><br><img src="https://x/y.jpg"><script>x()</script></p>`
	got := s.Sanitize(input)

	for _, want := range []string{"<p>", "<br", "sunset", `href="https://pixelfed.social/discover/tags/sunset"`, `target="_blank"`, "noopener", "noreferrer"} {
		if !strings.Contains(got, want) {
			t.Errorf("Sanitize() = %q, %q を含むべき", got, want)
		}
	}
	for _, unwanted := range []string{"<img", "<script", "class="} {
		if strings.Contains(got, unwanted) {
			t.Errorf("Sanitize() = %q, %q を含んではならない", got, unwanted)
		}
	}
}

// TestTextSanitizer は全てのタグが除去されることを検証する。
func TestTextSanitizer(t *testing.T) {
	s := NewTextSanitizer()

	got := s.Sanitize(`Read <a href="/x">this</a> <em>now</em><script>bad()</script>`)
	if got != "Read this now" {
		t.Errorf("Sanitize() = %q, want %q", got, "Read this now")
	}
}

// TestSanitize_Idempotent は2回適用しても結果が変わらないことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	input := `<p>Text <a href="https://example.com">link</a></p>`
	for _, s := range []*ContentSanitizer{NewPostSanitizer(), NewSocialSanitizer(), NewTextSanitizer()} {
		once := s.Sanitize(input)
		if twice := s.Sanitize(once); once != twice {
			t.Errorf("once = %q, twice = %q", once, twice)
		}
	}
}

// TestContentSanitizerInterface はContentSanitizerServiceインターフェースの適合を検証する。
func TestContentSanitizerInterface(t *testing.T) {
	var _ ContentSanitizerService = NewPostSanitizer()
}
