package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

const ifengMaxResponseBytes = 4 << 20 // 首页 HTML 较大

var ifengAllDataRe = regexp.MustCompile(`var\s+allData\s*=\s*(\{[\s\S]*?\});`)

// IfengFetcher 凤凰网首页热点：正文里内嵌了一段 var allData = {...}，
// 其中 hotNews1 即热点新闻列表。
type IfengFetcher struct{}

func (f *IfengFetcher) SourceID() string {
	return "ifeng"
}

func (f *IfengFetcher) Fetch(ctx context.Context) ([]Trend, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.ifeng.com", nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ifeng: fetch homepage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ifeng: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, ifengMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("ifeng: read body: %w", err)
	}

	return parseIfengHomepage(body)
}

func parseIfengHomepage(html []byte) ([]Trend, error) {
	m := ifengAllDataRe.FindSubmatch(html)
	if m == nil {
		return nil, fmt.Errorf("ifeng: allData not found in page")
	}

	var data struct {
		HotNews1 []struct {
			Title    string `json:"title"`
			URL      string `json:"url"`
			NewsTime string `json:"newsTime"`
		} `json:"hotNews1"`
	}
	if err := json.Unmarshal(m[1], &data); err != nil {
		return nil, fmt.Errorf("ifeng: decode allData: %w", err)
	}

	items := make([]Trend, 0, len(data.HotNews1))
	for _, n := range data.HotNews1 {
		if n.URL == "" {
			continue
		}
		items = append(items, Trend{
			ID:          n.URL,
			Title:       n.Title,
			URL:         n.URL,
			PublishTime: truncateTime(n.NewsTime),
		})
	}
	return items, nil
}

// truncateTime 保留到分钟，例如 "2026-02-06 00:57:44" -> "2026-02-06 00:57"
func truncateTime(s string) string {
	if len(s) > 16 {
		return s[:16]
	}
	return s
}
