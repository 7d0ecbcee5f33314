package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const jin10MaxResponseBytes = 2 << 20

var (
	jin10BoldRe  = regexp.MustCompile(`</?b>`)
	jin10TitleRe = regexp.MustCompile(`^【([^】]*)】(.*)$`)
)

// Jin10Fetcher 金十数据快讯：flash_newest.js 是一个 JSONP 风格的文件，
// 去掉 "var newest =" 前缀和末尾分号后即为 JSON 数组。
type Jin10Fetcher struct{}

func (f *Jin10Fetcher) SourceID() string {
	return "jin10"
}

type jin10Item struct {
	ID      string `json:"id"`
	Time    string `json:"time"`
	Channel []int  `json:"channel"`
	Data    struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"data"`
}

func (f *Jin10Fetcher) Fetch(ctx context.Context) ([]Trend, error) {
	url := fmt.Sprintf("https://www.jin10.com/flash_newest.js?t=%d", time.Now().UnixMilli())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jin10: fetch flash list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jin10: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, jin10MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("jin10: read body: %w", err)
	}

	return parseJin10Flash(string(body))
}

func parseJin10Flash(raw string) ([]Trend, error) {
	jsonStr := strings.TrimSpace(raw)
	jsonStr = strings.TrimPrefix(jsonStr, "var newest = ")
	jsonStr = strings.TrimPrefix(jsonStr, "var newest=")
	jsonStr = strings.TrimSuffix(jsonStr, ";")

	var items []jin10Item
	if err := json.Unmarshal([]byte(jsonStr), &items); err != nil {
		return nil, fmt.Errorf("jin10: decode payload: %w", err)
	}

	out := make([]Trend, 0, len(items))
	for _, it := range items {
		// channel 5 是广告/VIP 内容，跳过
		if containsInt(it.Channel, 5) {
			continue
		}
		if it.ID == "" {
			continue
		}

		text := it.Data.Title
		if text == "" {
			text = it.Data.Content
		}
		if text == "" {
			continue
		}
		text = jin10BoldRe.ReplaceAllString(text, "")

		title, desc := splitBracketTitle(text)

		out = append(out, Trend{
			ID:          it.ID,
			Title:       title,
			URL:         "https://flash.jin10.com/detail/" + it.ID,
			Description: desc,
			PublishTime: truncateTime(it.Time),
		})
	}
	return out, nil
}

// splitBracketTitle 处理 "【标题】正文" 格式的快讯，拆出标题与描述；
// 没有【】时整段文本作为标题。
func splitBracketTitle(text string) (title, desc string) {
	if m := jin10TitleRe.FindStringSubmatch(text); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	return text, ""
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}
