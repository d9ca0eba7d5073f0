package security

import "testing"

// TestClean はタグ除去と空白除去を検証する。
func TestClean(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "牛乳 1L", "牛乳 1L"},
		{"空文字列", "", ""},
		{"前後の空白を除去", "  卵  ", "卵"},
		{"タグを除去", "<b>醤油</b>", "醤油"},
		{"scriptは中身ごと除去", `<script>alert("x")</script>パン`, "パン"},
		{"イベント属性付きタグ", `<img src=x onerror=alert(1)>チーズ`, "チーズ"},
		{"アンパサンドは元に戻す", "Tom & Jerry", "Tom & Jerry"},
		{"引用符は元に戻す", `"特売"`, `"特売"`},
		{"タグのみは空になる", "<br/>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestClean_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestClean_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()
	input := "<p>ヨーグルト</p> & <i>はちみつ</i>"

	first := sanitizer.Clean(input)
	second := sanitizer.Clean(first)
	if first != second {
		t.Errorf("Clean is not idempotent: %q vs %q", first, second)
	}
}

func TestCleanPtr(t *testing.T) {
	sanitizer := NewTextSanitizer()

	if got := CleanPtr(sanitizer, nil); got != nil {
		t.Errorf("CleanPtr(nil) = %v, want nil", *got)
	}

	raw := " <b>米</b> "
	got := CleanPtr(sanitizer, &raw)
	if got == nil || *got != "米" {
		t.Errorf("CleanPtr = %v, want 米", got)
	}
}
