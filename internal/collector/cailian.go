package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const cailianMaxResponseBytes = 2 << 20

// CailianFetcher 财联社电报滚动快讯
type CailianFetcher struct{}

func (f *CailianFetcher) SourceID() string {
	return "cailian"
}

func (f *CailianFetcher) Fetch(ctx context.Context) ([]Trend, error) {
	url := "https://www.cls.cn/nodeapi/updateTelegraphList?app=CailianpressWeb&os=web&rn=30"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "https://www.cls.cn/telegraph")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cailian: fetch telegraph list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cailian: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, cailianMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("cailian: read body: %w", err)
	}

	var payload struct {
		Data struct {
			RollData []struct {
				ID      int64  `json:"id"`
				Title   string `json:"title"`
				Content string `json:"content"`
				Ctime   int64  `json:"ctime"`
			} `json:"roll_data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("cailian: decode payload: %w", err)
	}

	items := make([]Trend, 0, len(payload.Data.RollData))
	for _, d := range payload.Data.RollData {
		text := d.Title
		if text == "" {
			text = d.Content
		}
		if text == "" || d.ID == 0 {
			continue
		}

		// 与金十一样，快讯常见 "【标题】正文" 格式
		title, desc := splitBracketTitle(text)
		if desc == "" && d.Content != "" && d.Content != text {
			_, desc = splitBracketTitle(d.Content)
		}

		id := fmt.Sprintf("%d", d.ID)
		t := Trend{
			ID:          id,
			Title:       title,
			URL:         "https://www.cls.cn/detail/" + id,
			Description: desc,
		}
		if d.Ctime > 0 {
			t.PublishTime = time.Unix(d.Ctime, 0).In(locEast8).Format("2006-01-02 15:04")
		}
		items = append(items, t)
	}
	return items, nil
}
