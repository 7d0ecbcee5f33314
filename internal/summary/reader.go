package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

const (
	// 正文太短视为没抓到内容，换下一个策略
	minContentLength = 100
	// 正文截断上限
	maxContentLength  = 10000
	truncationMarker  = "\n\n[内容已截断]"
	fetchConcurrency  = 5
	strategyMaxRetry  = 2
	httpFetchTimeout  = 30 * time.Second
	renderNavTimeout  = 15 * time.Second
	readerAPITimeout  = 30 * time.Second
	maxFetchBodyBytes = 8 << 20
)

var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Strategy 一种正文抓取手段。返回 ("", nil) 表示"没抓到内容"，
// 与真正的错误区分开，两者都会让 Reader 落到下一个策略。
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}

// RetrievedItem 选取的新闻加上抓取到的正文；MarkdownContent 为空表示没抓到
type RetrievedItem struct {
	SelectedItem
	MarkdownContent string
}

// Reader 按策略链抓取文章正文。
// 默认链：chromedp 渲染（处理客户端渲染页面）→ 普通 HTTP；
// 配置 reader_api 时只走托管抽取服务，配置 http 时只走 HTTP。
type Reader struct {
	strategies []Strategy
}

// ReaderConfig 见 config 包的 CONTENT_FETCHER 等环境变量
type ReaderConfig struct {
	Mode              string // chromedp(默认) / http / reader_api
	ReaderAPIEndpoint string
	ReaderAPIKey      string
}

func NewReader(cfg ReaderConfig) *Reader {
	switch cfg.Mode {
	case "reader_api":
		return &Reader{strategies: []Strategy{
			&readerAPIStrategy{endpoint: cfg.ReaderAPIEndpoint, apiKey: cfg.ReaderAPIKey},
		}}
	case "http":
		return &Reader{strategies: []Strategy{&httpStrategy{}}}
	default:
		return &Reader{strategies: []Strategy{&renderStrategy{}, &httpStrategy{}}}
	}
}

// FetchContent 依次尝试策略链，返回第一个拿到的正文；ok=false 表示全部落空
func (r *Reader) FetchContent(ctx context.Context, url string) (string, bool) {
	for _, st := range r.strategies {
		content, err := st.Fetch(ctx, url)
		if err != nil {
			log.Printf("warn: %s fetch failed: %v (url=%s)", st.Name(), err, url)
			continue
		}
		if content != "" {
			return content, true
		}
		log.Printf("%s got no content, trying next strategy (url=%s)", st.Name(), url)
	}
	return "", false
}

// FetchAll 并发抓取全部选中条目的正文，全局最多 5 个在途请求。
// 单条失败只影响该条（正文置空），不影响其余条目。
func (r *Reader) FetchAll(ctx context.Context, items []SelectedItem) []RetrievedItem {
	results := make([]RetrievedItem, len(items))

	var wg sync.WaitGroup
	sem := make(chan struct{}, fetchConcurrency)

	for i, item := range items {
		wg.Add(1)
		go func(i int, item SelectedItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out := RetrievedItem{SelectedItem: item}
			if item.URL != "" {
				if content, ok := r.FetchContent(ctx, item.URL); ok {
					out.MarkdownContent = content
				}
			}
			results[i] = out
		}(i, item)
	}
	wg.Wait()

	success := 0
	for _, it := range results {
		if it.MarkdownContent != "" {
			success++
		}
	}
	log.Printf("fetched %d/%d article contents", success, len(results))
	return results
}

// ---- chromedp 渲染策略 ----

// renderStrategy 用 headless 浏览器渲染后取整页 HTML，
// 覆盖纯客户端渲染的页面
type renderStrategy struct{}

func (s *renderStrategy) Name() string { return "chromedp" }

func (s *renderStrategy) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= strategyMaxRetry; attempt++ {
		html, err := s.renderPage(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}

		text := capContent(cleanHTMLContent(html))
		if len([]rune(text)) > minContentLength {
			return text, nil
		}
		// 内容过短，当作没抓到再试一次
	}

	if lastErr != nil {
		return "", lastErr
	}
	return "", nil
}

func (s *renderStrategy) renderPage(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgents[rand.Intn(len(userAgents))]),
		chromedp.WindowSize(1280, 800),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, renderNavTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

// ---- 普通 HTTP 策略 ----

// httpStrategy 随机浏览器头的直接 GET，两次尝试之间指数退避，
// 对付简单的反爬拦截
type httpStrategy struct {
	// 测试钩子
	sleep func(time.Duration)
}

func (s *httpStrategy) Name() string { return "http" }

func (s *httpStrategy) Fetch(ctx context.Context, url string) (string, error) {
	sleep := s.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	client := &http.Client{Timeout: httpFetchTimeout}
	var lastErr error

	for attempt := 1; attempt <= strategyMaxRetry; attempt++ {
		if attempt > 1 {
			// 2s、4s 的简单退避
			sleep(time.Duration(2*(attempt-1)) * time.Second)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
		req.Header.Set("Connection", "keep-alive")
		req.Header.Set("Upgrade-Insecure-Requests", "1")

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBodyBytes))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("http status %d", resp.StatusCode)
			continue
		}

		text := capContent(cleanHTMLContent(string(body)))
		if len([]rune(text)) > minContentLength {
			return text, nil
		}
		lastErr = nil // 拿到了页面但内容过短，按"没抓到"处理
	}

	if lastErr != nil {
		return "", lastErr
	}
	return "", nil
}

// ---- Reader API 策略 ----

// readerAPIStrategy 托管的服务端抽取接口，返回现成的 markdown
type readerAPIStrategy struct {
	endpoint string
	apiKey   string
}

func (s *readerAPIStrategy) Name() string { return "reader_api" }

func (s *readerAPIStrategy) Fetch(ctx context.Context, url string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("reader api key not configured")
	}

	payload := fmt.Sprintf(`{"url":%q}`, url)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader([]byte(payload)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: readerAPITimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reader api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reader api: status %d", resp.StatusCode)
	}

	var out struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Markdown string `json:"markdown"`
		} `json:"data"`
	}
	if err := decodeJSONBody(resp.Body, &out); err != nil {
		return "", fmt.Errorf("reader api: decode response: %w", err)
	}
	if out.Code != 0 {
		log.Printf("warn: reader api error: %s (url=%s)", out.Message, url)
		return "", nil
	}
	return out.Data.Markdown, nil
}

func decodeJSONBody(r io.Reader, v any) error {
	return json.NewDecoder(io.LimitReader(r, 1<<20)).Decode(v)
}

// ---- HTML 清洗 ----

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	anyTagRe     = regexp.MustCompile(`<[^>]+>`)
)

// cleanHTMLContent 把 HTML 还原成纯文本：去掉脚本、样式与页头页尾等
// 非正文元素，合并空白。解析失败时退化为正则去标签。
func cleanHTMLContent(html string) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		stripped := anyTagRe.ReplaceAllString(html, " ")
		return strings.TrimSpace(whitespaceRe.ReplaceAllString(stripped, " "))
	}

	doc.Find("script, style, noscript, nav, header, footer, aside, iframe").Remove()
	text := doc.Text()
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// capContent 截断超长正文并附截断标记
func capContent(text string) string {
	rs := []rune(text)
	if len(rs) <= maxContentLength {
		return text
	}
	return string(rs[:maxContentLength]) + truncationMarker
}
