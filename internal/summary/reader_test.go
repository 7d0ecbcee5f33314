package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeStrategy 可编排返回值并统计在途请求数
type fakeStrategy struct {
	name  string
	fetch func(ctx context.Context, url string) (string, error)
}

func (f *fakeStrategy) Name() string { return f.name }
func (f *fakeStrategy) Fetch(ctx context.Context, url string) (string, error) {
	return f.fetch(ctx, url)
}

func TestFetchContentStrategyChain(t *testing.T) {
	failing := &fakeStrategy{name: "first", fetch: func(context.Context, string) (string, error) {
		return "", errors.New("blocked")
	}}
	empty := &fakeStrategy{name: "second", fetch: func(context.Context, string) (string, error) {
		return "", nil // 没抓到内容，不是错误
	}}
	working := &fakeStrategy{name: "third", fetch: func(context.Context, string) (string, error) {
		return "正文内容", nil
	}}

	r := &Reader{strategies: []Strategy{failing, empty, working}}
	content, ok := r.FetchContent(context.Background(), "https://example.com/a")
	if !ok || content != "正文内容" {
		t.Fatalf("expected fallback to third strategy, got (%q, %v)", content, ok)
	}
}

func TestFetchContentAllStrategiesFail(t *testing.T) {
	failing := &fakeStrategy{name: "only", fetch: func(context.Context, string) (string, error) {
		return "", errors.New("blocked")
	}}
	r := &Reader{strategies: []Strategy{failing}}
	if _, ok := r.FetchContent(context.Background(), "https://example.com/a"); ok {
		t.Fatal("expected ok=false when every strategy fails")
	}
}

// 压力场景：20 条慢请求，任意时刻在途请求数不超过 5
func TestFetchAllConcurrencyCap(t *testing.T) {
	var inFlight, peak int64
	var mu sync.Mutex

	slow := &fakeStrategy{name: "slow", fetch: func(context.Context, string) (string, error) {
		cur := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if cur > peak {
			peak = cur
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return "内容", nil
	}}

	r := &Reader{strategies: []Strategy{slow}}
	items := make([]SelectedItem, 20)
	for i := range items {
		items[i] = SelectedItem{
			Title: fmt.Sprintf("t%d", i),
			URL:   fmt.Sprintf("https://example.com/%d", i),
			Rank:  i + 1,
		}
	}

	results := r.FetchAll(context.Background(), items)
	if len(results) != 20 {
		t.Fatalf("expected 20 results, got %d", len(results))
	}

	mu.Lock()
	got := peak
	mu.Unlock()
	if got > 5 {
		t.Fatalf("in-flight peak = %d, want <= 5", got)
	}
}

// 单条失败只影响该条，结果与输入顺序一一对应
func TestFetchAllFaultIsolation(t *testing.T) {
	st := &fakeStrategy{name: "picky", fetch: func(_ context.Context, url string) (string, error) {
		if strings.HasSuffix(url, "/bad") {
			return "", errors.New("blocked")
		}
		return "正文: " + url, nil
	}}

	r := &Reader{strategies: []Strategy{st}}
	items := []SelectedItem{
		{Title: "a", URL: "https://example.com/a", Rank: 1},
		{Title: "b", URL: "https://example.com/bad", Rank: 2},
		{Title: "c", URL: "https://example.com/c", Rank: 3},
	}

	results := r.FetchAll(context.Background(), items)
	if results[0].MarkdownContent == "" || results[2].MarkdownContent == "" {
		t.Fatalf("healthy items should have content: %+v", results)
	}
	if results[1].MarkdownContent != "" {
		t.Fatalf("failed item should have empty content, got %q", results[1].MarkdownContent)
	}
	for i, it := range results {
		if it.Rank != i+1 {
			t.Fatalf("result order broken at %d: rank=%d", i, it.Rank)
		}
	}
}

func TestNewReaderModes(t *testing.T) {
	def := NewReader(ReaderConfig{})
	if len(def.strategies) != 2 || def.strategies[0].Name() != "chromedp" || def.strategies[1].Name() != "http" {
		t.Fatalf("default chain mismatch: %+v", names(def.strategies))
	}

	httpOnly := NewReader(ReaderConfig{Mode: "http"})
	if len(httpOnly.strategies) != 1 || httpOnly.strategies[0].Name() != "http" {
		t.Fatalf("http chain mismatch: %+v", names(httpOnly.strategies))
	}

	api := NewReader(ReaderConfig{Mode: "reader_api", ReaderAPIEndpoint: "https://r.example.com", ReaderAPIKey: "k"})
	if len(api.strategies) != 1 || api.strategies[0].Name() != "reader_api" {
		t.Fatalf("reader_api chain mismatch: %+v", names(api.strategies))
	}
}

func names(sts []Strategy) []string {
	out := make([]string, 0, len(sts))
	for _, s := range sts {
		out = append(out, s.Name())
	}
	return out
}

func TestCleanHTMLContent(t *testing.T) {
	html := `<html><head><style>.x{color:red}</style><script>alert(1)</script></head>
<body><nav>导航</nav><header>页头</header>
<p>第一段   正文</p>
<p>第二段正文</p>
<footer>页脚</footer><aside>侧栏</aside></body></html>`

	text := cleanHTMLContent(html)
	for _, banned := range []string{"alert", "color:red", "导航", "页头", "页脚", "侧栏"} {
		if strings.Contains(text, banned) {
			t.Fatalf("non-content %q leaked into output: %q", banned, text)
		}
	}
	if !strings.Contains(text, "第一段 正文") || !strings.Contains(text, "第二段正文") {
		t.Fatalf("content lost or whitespace not collapsed: %q", text)
	}

	if cleanHTMLContent("") != "" {
		t.Fatal("empty input should give empty output")
	}
}

func TestCapContent(t *testing.T) {
	short := strings.Repeat("短", 100)
	if got := capContent(short); got != short {
		t.Fatal("short content should pass through")
	}

	long := strings.Repeat("长", 10001)
	got := capContent(long)
	if !strings.HasSuffix(got, "\n\n[内容已截断]") {
		t.Fatalf("missing truncation marker: ...%q", got[len(got)-30:])
	}
	if body := strings.TrimSuffix(got, "\n\n[内容已截断]"); len([]rune(body)) != 10000 {
		t.Fatalf("body length = %d runes, want 10000", len([]rune(body)))
	}
}
