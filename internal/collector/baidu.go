package collector

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// BaiduFetcher 抓取百度实时热搜榜。页面结构可能调整，
// 此处基于当前的 DOM 结构做"尽力而为"的解析。
type BaiduFetcher struct{}

func (f *BaiduFetcher) SourceID() string {
	return "baidu"
}

func (f *BaiduFetcher) Fetch(ctx context.Context) ([]Trend, error) {
	c := colly.NewCollector(
		colly.AllowedDomains("top.baidu.com"),
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
	)
	c.SetRequestTimeout(10 * time.Second)

	results := make([]Trend, 0, 50)

	c.OnHTML("div.category-wrap_iQLoo", func(e *colly.HTMLElement) {
		select {
		case <-ctx.Done():
			return
		default:
		}

		title := strings.TrimSpace(e.ChildText("div.c-single-text-ellipsis"))
		if title == "" {
			return
		}

		link := e.ChildAttr("a", "href")
		switch {
		case link == "":
			link = "https://top.baidu.com/board?tab=realtime"
		case !strings.HasPrefix(link, "http"):
			link = "https://top.baidu.com" + link
		}

		heatText := strings.TrimSpace(e.ChildText("div.hot-index_1Bl1a"))

		desc := strings.TrimSpace(e.ChildText("div[class*='content']"))
		if desc == "" {
			desc = strings.TrimSpace(e.ChildText("div[class*='desc']"))
		}
		desc = cleanBaiduDesc(desc)

		t := Trend{
			ID:          link,
			Title:       title,
			URL:         link,
			Description: desc,
		}
		if heat := parseHeat(heatText); heat > 0 {
			t.Score = intPtr(heat)
		}
		results = append(results, t)
	})

	if err := c.Visit("https://top.baidu.com/board?tab=realtime"); err != nil {
		return nil, err
	}

	return results, nil
}

// cleanBaiduDesc 去掉简介中的"查看更多"等链接文案，只保留正文
func cleanBaiduDesc(s string) string {
	s = strings.TrimSpace(s)
	for _, cut := range []string{"[查看更多>]", "[查看更多&gt;]", "查看更多"} {
		if idx := strings.Index(s, cut); idx != -1 {
			s = strings.TrimSpace(s[:idx])
		}
	}
	return s
}

// parseHeat 从热度文本中取出前导数字部分，去掉"万"等单位
func parseHeat(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	end := 0
	for ; end < len(s); end++ {
		if s[end] < '0' || s[end] > '9' {
			break
		}
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
