package collector

import "testing"

func TestCleanBaiduDesc(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"正文内容 [查看更多>]", "正文内容"},
		{"正文内容 查看更多", "正文内容"},
		{"纯正文没有链接文案", "纯正文没有链接文案"},
		{"  带空白  ", "带空白"},
	}
	for _, tc := range cases {
		if got := cleanBaiduDesc(tc.in); got != tc.want {
			t.Fatalf("cleanBaiduDesc(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseHeat(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"4976120", 4976120},
		{"497万", 497},
		{"4,976,120", 4976120},
		{" 123 ", 123},
		{"热度未知", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := parseHeat(tc.in); got != tc.want {
			t.Fatalf("parseHeat(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
