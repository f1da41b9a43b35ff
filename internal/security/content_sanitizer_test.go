package security

import (
	"strings"
	"testing"
)

// TestSanitizeComment_AllowedTags は許可タグが正しく通過することを検証する。
func TestSanitizeComment_AllowedTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		// want に含まれるべき部分文字列
		wantContains []string
	}{
		{
			name:         "brタグが許可される",
			input:        "行1<br>行2",
			wantContains: []string{"<br>", "行1", "行2"},
		},
		{
			name:         "strongタグが許可される",
			input:        "<strong>すごいニュース</strong>",
			wantContains: []string{"<strong>すごいニュース</strong>"},
		},
		{
			name:         "emタグが許可される",
			input:        "<em>注目</em>",
			wantContains: []string{"<em>注目</em>"},
		},
		{
			name:         "codeタグが許可される",
			input:        "<code>pocketnewz</code>",
			wantContains: []string{"<code>pocketnewz</code>"},
		},
		{
			name:         "aタグが許可される",
			input:        `<a href="https://example.com">リンク</a>`,
			wantContains: []string{"<a", "href", "https://example.com", "リンク", "</a>"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := sanitizer.SanitizeComment(tc.input)
			for _, want := range tc.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("SanitizeComment(%q) = %q, want to contain %q", tc.input, got, want)
				}
			}
		})
	}
}

// TestSanitizeComment_RemovesDangerousContent は危険なタグと属性が除去されることを検証する。
func TestSanitizeComment_RemovesDangerousContent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		// want に含まれてはいけない部分文字列
		wantExcludes []string
	}{
		{
			name:         "scriptタグが除去される",
			input:        `コメント<script>alert("xss")</script>`,
			wantExcludes: []string{"<script>", "alert"},
		},
		{
			name:         "iframeタグが除去される",
			input:        `<iframe src="https://evil.example.com"></iframe>本文`,
			wantExcludes: []string{"<iframe", "evil.example.com"},
		},
		{
			name:         "styleタグが除去される",
			input:        `<style>body{display:none}</style>本文`,
			wantExcludes: []string{"<style>", "display:none"},
		},
		{
			name:         "onclickイベント属性が除去される",
			input:        `<strong onclick="steal()">太字</strong>`,
			wantExcludes: []string{"onclick", "steal"},
		},
		{
			name:         "javascriptスキームのリンクが除去される",
			input:        `<a href="javascript:alert(1)">クリック</a>`,
			wantExcludes: []string{"javascript:"},
		},
		{
			name:         "imgタグが除去される",
			input:        `<img src="https://example.com/x.png">本文`,
			wantExcludes: []string{"<img"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := sanitizer.SanitizeComment(tc.input)
			for _, exclude := range tc.wantExcludes {
				if strings.Contains(got, exclude) {
					t.Errorf("SanitizeComment(%q) = %q, must not contain %q", tc.input, got, exclude)
				}
			}
		})
	}
}

// TestSanitizeComment_LinkAttributes はリンクにtarget/rel属性が付与されることを検証する。
func TestSanitizeComment_LinkAttributes(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.SanitizeComment(`<a href="https://example.com">リンク</a>`)

	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("expected target=_blank in %q", got)
	}
	if !strings.Contains(got, "noopener") || !strings.Contains(got, "noreferrer") {
		t.Errorf("expected rel noopener noreferrer in %q", got)
	}
}

// TestSanitizeComment_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestSanitizeComment_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<strong>太字</strong><script>alert(1)</script>と<em>斜体</em>`
	first := sanitizer.SanitizeComment(input)
	second := sanitizer.SanitizeComment(first)

	if first != second {
		t.Errorf("sanitize is not idempotent: first=%q second=%q", first, second)
	}
}

// TestSanitizeComment_Empty は空文字列の入力に空文字列を返すことを検証する。
func TestSanitizeComment_Empty(t *testing.T) {
	sanitizer := NewContentSanitizer()

	if got := sanitizer.SanitizeComment(""); got != "" {
		t.Errorf("SanitizeComment(\"\") = %q, want empty", got)
	}
}

// TestSanitizeText はタイトル・キャプションの全タグ除去を検証する。
func TestSanitizeText(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "タグなしの入力はそのまま",
			input: "今日のニュース",
			want:  "今日のニュース",
		},
		{
			name:  "全てのタグが除去される",
			input: "<strong>速報</strong>: <em>地震</em>",
			want:  "速報: 地震",
		},
		{
			name:  "scriptタグの中身も除去される",
			input: `タイトル<script>alert(1)</script>`,
			want:  "タイトル",
		},
		{
			name:  "前後の空白がトリムされる",
			input: "  速報  ",
			want:  "速報",
		},
		{
			name:  "空文字列",
			input: "",
			want:  "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizer.SanitizeText(tc.input); got != tc.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
