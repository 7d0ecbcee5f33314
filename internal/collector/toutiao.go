package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const toutiaoMaxResponseBytes = 1 << 20

// ToutiaoFetcher 今日头条热榜，官方 PC 端 JSON 接口，自带 HotValue 热度值
type ToutiaoFetcher struct{}

func (f *ToutiaoFetcher) SourceID() string {
	return "toutiao"
}

func (f *ToutiaoFetcher) Fetch(ctx context.Context) ([]Trend, error) {
	url := "https://www.toutiao.com/hot-event/hot-board/?origin=toutiao_pc"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("toutiao: fetch hot board: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("toutiao: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, toutiaoMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("toutiao: read body: %w", err)
	}

	var payload struct {
		Data []struct {
			Title    string `json:"Title"`
			URL      string `json:"Url"`
			HotValue string `json:"HotValue"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("toutiao: decode payload: %w", err)
	}

	items := make([]Trend, 0, len(payload.Data))
	for _, d := range payload.Data {
		if d.Title == "" || d.URL == "" {
			continue
		}
		t := Trend{
			ID:    d.URL,
			Title: d.Title,
			URL:   d.URL,
		}
		if v, err := strconv.Atoi(d.HotValue); err == nil {
			t.Score = intPtr(v)
		}
		items = append(items, t)
	}
	return items, nil
}
