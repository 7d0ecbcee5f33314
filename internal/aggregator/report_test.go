package aggregator

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"briefy/internal/collector"
	"briefy/internal/storage"
)

func newTestAggregator(t *testing.T) (*Aggregator, *storage.Store, string) {
	t.Helper()
	base := t.TempDir()
	dataDir := filepath.Join(base, "data")
	store := storage.NewStore(dataDir, filepath.Join(base, "temp"), "")
	sources := map[string]SourceMeta{
		"cailian": {Name: "财联社", Order: 1},
		"jin10":   {Name: "金十数据", Order: 3},
	}
	return New(store, sources), store, dataDir
}

func saveSnap(t *testing.T, store *storage.Store, sourceID, at string, items []collector.Trend) {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", at, time.FixedZone("CST", 8*3600))
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	if err := store.SaveSnapshot(sourceID, ts, items); err != nil {
		t.Fatalf("save snapshot failed: %v", err)
	}
}

func TestGenerateNoData(t *testing.T) {
	agg, _, _ := newTestAggregator(t)
	if err := agg.Generate("2026-08-24"); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestGenerateReportOrderingAndMarkdown(t *testing.T) {
	agg, store, dataDir := newTestAggregator(t)
	date := "2026-08-24"

	saveSnap(t, store, "jin10", "2026-08-24 08:00:00", []collector.Trend{
		{ID: "j1", Title: "金十快讯", URL: "https://example.com/j1", PublishTime: "2026-08-24 07:55"},
	})
	saveSnap(t, store, "cailian", "2026-08-24 08:00:00", []collector.Trend{
		{ID: "c1", Title: "财联社电报", URL: "https://example.com/c1"},
	})
	// 未配置展示信息的来源排在最后
	saveSnap(t, store, "unknown_src", "2026-08-24 08:00:00", []collector.Trend{
		{ID: "u1", Title: "其他", URL: "https://example.com/u1"},
	})

	if err := agg.Generate(date); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	report, ok, err := store.ReadFullReport(date)
	if err != nil || !ok {
		t.Fatalf("read report: ok=%v err=%v", ok, err)
	}
	if len(report.Sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(report.Sources))
	}
	gotOrder := []string{report.Sources[0].SourceID, report.Sources[1].SourceID, report.Sources[2].SourceID}
	if gotOrder[0] != "cailian" || gotOrder[1] != "jin10" || gotOrder[2] != "unknown_src" {
		t.Fatalf("source order = %v", gotOrder)
	}
	if report.Sources[2].Name != "unknown_src" {
		t.Fatalf("unknown source should fall back to its id as name, got %q", report.Sources[2].Name)
	}

	data, err := os.ReadFile(filepath.Join(dataDir, date+".md"))
	if err != nil {
		t.Fatalf("read digest: %v", err)
	}
	raw := string(data)
	if !strings.HasPrefix(raw, "# "+date+" 热门新闻汇总\n") {
		t.Fatalf("digest header mismatch: %q", firstLine(raw))
	}
	if !strings.Contains(raw, "## 财联社\n1. [财联社电报](https://example.com/c1)\n") {
		t.Fatalf("digest missing cailian section:\n%s", raw)
	}
	// 带发布时间的条目带 [time] 尾注
	if !strings.Contains(raw, "1. [金十快讯](https://example.com/j1) [2026-08-24 07:55]\n") {
		t.Fatalf("digest missing publish time:\n%s", raw)
	}
}

// 相同的快照集合重复生成，结构化导出逐字节一致
func TestGenerateIdempotentExport(t *testing.T) {
	agg, store, _ := newTestAggregator(t)
	date := "2026-08-24"

	saveSnap(t, store, "cailian", "2026-08-24 08:00:00", []collector.Trend{
		{ID: "1", Title: "a", URL: "https://example.com/1"},
		{ID: "2", Title: "b", URL: "https://example.com/2"},
	})
	saveSnap(t, store, "cailian", "2026-08-24 12:00:00", []collector.Trend{
		{ID: "2", Title: "b", URL: "https://example.com/2"},
		{ID: "3", Title: "c", URL: "https://example.com/3"},
	})

	if err := agg.Generate(date); err != nil {
		t.Fatalf("first generate failed: %v", err)
	}
	first, err := store.ReadFullReportRaw(date)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	if err := agg.Generate(date); err != nil {
		t.Fatalf("second generate failed: %v", err)
	}
	second, err := store.ReadFullReportRaw(date)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Fatal("export differs between identical runs")
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
