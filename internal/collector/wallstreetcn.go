package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const wscnMaxResponseBytes = 2 << 20

// WallstreetcnFetcher 华尔街见闻直播快讯
type WallstreetcnFetcher struct{}

func (f *WallstreetcnFetcher) SourceID() string {
	return "wallstreetcn"
}

func (f *WallstreetcnFetcher) Fetch(ctx context.Context) ([]Trend, error) {
	url := "https://api-one.wallstcn.com/apiv1/content/lives?channel=global-channel&limit=30"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallstreetcn: fetch lives: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wallstreetcn: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, wscnMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("wallstreetcn: read body: %w", err)
	}

	var payload struct {
		Data struct {
			Items []struct {
				ID          int64  `json:"id"`
				Title       string `json:"title"`
				ContentText string `json:"content_text"`
				URI         string `json:"uri"`
				DisplayTime int64  `json:"display_time"`
			} `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("wallstreetcn: decode payload: %w", err)
	}

	items := make([]Trend, 0, len(payload.Data.Items))
	for _, d := range payload.Data.Items {
		title := d.Title
		desc := d.ContentText
		if title == "" {
			// 快讯常常只有正文，此时以正文作为标题
			title = desc
			desc = ""
		}
		if title == "" || d.ID == 0 {
			continue
		}

		link := d.URI
		if link == "" {
			link = fmt.Sprintf("https://wallstreetcn.com/livenews/%d", d.ID)
		}

		t := Trend{
			ID:          fmt.Sprintf("%d", d.ID),
			Title:       title,
			URL:         link,
			Description: desc,
		}
		if d.DisplayTime > 0 {
			t.PublishTime = time.Unix(d.DisplayTime, 0).In(locEast8).Format("2006-01-02 15:04")
		}
		items = append(items, t)
	}
	return items, nil
}
