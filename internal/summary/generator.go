package summary

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"briefy/internal/storage"
)

const (
	// 送入 prompt 的正文上限。GLM-4-Flash 免费版上下文超过 8K tokens 后
	// 并发限制骤降，中文约 1.5-2 字符一个 token，prompt 本身约 500-1000
	// tokens，留 12000 字符是安全余量。
	maxPromptContentLength = 12000

	// 逐条生成之间的固定间隔，避免触发速率限制
	interItemDelay = 5 * time.Second
)

const summaryPromptTemplate = `你是一个专业的新闻摘要助手。请根据以下内容生成简洁、准确的摘要。

**原始内容：**

%s

**要求：**

1. 字数：250-300字

2. 结构清晰，分段呈现（2-3个自然段）

3. 保留关键信息、数据、人物、时间等要素

4. 使用客观、中立的语气

5. 避免主观评价和情绪化表达

6. 如果是争议话题，呈现多方观点

7. 保持逻辑连贯，易于理解

**输出格式：**

直接输出摘要内容，不需要标题或其他说明。`

var summaryLabelRe = regexp.MustCompile(`^摘要[：:]\s*`)

// Completer 摘要生成所需的 LLM 补全能力
type Completer interface {
	CompleteWithRetry(ctx context.Context, prompt string) (string, error)
}

// ContentFetcher 正文批量抓取能力，*Reader 是生产实现
type ContentFetcher interface {
	FetchAll(ctx context.Context, items []SelectedItem) []RetrievedItem
}

// SummarizedItem 完成摘要后的条目；Summary 为空表示该条生成失败
type SummarizedItem struct {
	RetrievedItem
	Summary     string
	ContentFile string
}

// Result 一次摘要生成的结果
type Result struct {
	Success            bool
	Error              string
	Date               string
	TotalNews          int
	ContentFetched     int
	SummariesGenerated int
	TotalContentLength int
}

// Generator 摘要流水线：选取 → 抓正文 → 逐条生成 → 落盘。
// 生成严格串行，条与条之间固定等待，换吞吐量保稳定。
type Generator struct {
	store   *storage.Store
	llm     Completer
	fetcher ContentFetcher

	allowedSources map[string]bool

	// 测试钩子
	sleep func(time.Duration)
	now   func() time.Time
}

func NewGenerator(store *storage.Store, llm Completer, fetcher ContentFetcher, allowedSources map[string]bool) *Generator {
	return &Generator{
		store:          store,
		llm:            llm,
		fetcher:        fetcher,
		allowedSources: allowedSources,
		sleep:          time.Sleep,
		now:            time.Now,
	}
}

// GenerateDailySummary 为指定日期生成每日摘要。
//
// 进度文件随每条完成更新一次，结束时（无论成败）删除；
// 进程崩溃时残留的进度文件会被下一次运行覆盖。
// 单条 LLM 失败记空摘要继续，整批完成后写出最终结果。
func (g *Generator) GenerateDailySummary(ctx context.Context, date string, topN int) (*Result, error) {
	log.Printf("generating summary for %s", date)
	start := g.now()

	defer g.store.ClearProgress(date)

	selected, err := SelectTopNews(g.store, date, topN, g.allowedSources)
	if err != nil {
		return nil, fmt.Errorf("summary: select news: %w", err)
	}
	if len(selected) == 0 {
		log.Printf("warn: no news selected for %s", date)
		return &Result{Success: false, Error: "no eligible news found", Date: date}, nil
	}
	log.Printf("selected %d news items", len(selected))

	retrieved := g.fetcher.FetchAll(ctx, selected)

	contentFetched := 0
	totalContentLength := 0
	items := make([]SummarizedItem, 0, len(retrieved))
	for _, it := range retrieved {
		si := SummarizedItem{RetrievedItem: it}
		if it.MarkdownContent != "" {
			contentFetched++
			totalContentLength += len(it.MarkdownContent)
			name, err := g.store.WriteSummaryContent(date, it.Rank, it.MarkdownContent)
			if err != nil {
				log.Printf("warn: write content file for rank %d: %v", it.Rank, err)
			} else {
				si.ContentFile = name
			}
		}
		items = append(items, si)
	}

	total := len(items)
	if err := g.store.WriteProgress(date, 0, total); err != nil {
		log.Printf("warn: write progress: %v", err)
	}

	summariesGenerated := 0
	for i := range items {
		log.Printf("summarizing %d/%d: %s", i+1, total, truncateForLog(items[i].Title))

		prompt := buildPrompt(items[i].RetrievedItem)
		text, err := g.llm.CompleteWithRetry(ctx, prompt)
		if err != nil {
			log.Printf("warn: summarize item %d failed after retries: %v", i+1, err)
		} else {
			items[i].Summary = extractSummary(text)
			if items[i].Summary != "" {
				summariesGenerated++
			}
		}

		if err := g.store.WriteProgress(date, i+1, total); err != nil {
			log.Printf("warn: write progress: %v", err)
		}

		if i < total-1 {
			g.sleep(interItemDelay)
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Rank < items[j].Rank })

	generatedAt := g.now().Format("2006-01-02 15:04:05")

	// 中间元数据留在 temp 下，带 content_file 指针便于排查
	type metadataNews struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		SourceName  string `json:"source_name"`
		Rank        int    `json:"rank"`
		Summary     string `json:"summary"`
		ContentFile string `json:"content_file,omitempty"`
	}
	metaNews := make([]metadataNews, 0, len(items))
	finalNews := make([]storage.SummaryNews, 0, len(items))
	for _, it := range items {
		metaNews = append(metaNews, metadataNews{
			Title: it.Title, URL: it.URL, SourceName: it.SourceName,
			Rank: it.Rank, Summary: it.Summary, ContentFile: it.ContentFile,
		})
		finalNews = append(finalNews, storage.SummaryNews{
			Title: it.Title, URL: it.URL, SourceName: it.SourceName,
			Rank: it.Rank, Summary: it.Summary,
		})
	}

	meta := struct {
		Date        string         `json:"date"`
		GeneratedAt string         `json:"generated_at"`
		TotalNews   int            `json:"total_news"`
		News        []metadataNews `json:"news"`
	}{Date: date, GeneratedAt: generatedAt, TotalNews: total, News: metaNews}
	if err := g.store.WriteSummaryMetadata(date, meta); err != nil {
		log.Printf("warn: write metadata: %v", err)
	}

	final := storage.SummaryData{
		Date:        date,
		GeneratedAt: generatedAt,
		TotalNews:   total,
		Stats: storage.SummaryStats{
			ContentFetched:     contentFetched,
			SummariesGenerated: summariesGenerated,
			TotalContentLength: totalContentLength,
		},
		News: finalNews,
	}
	if err := g.store.WriteSummary(date, final); err != nil {
		return nil, fmt.Errorf("summary: write output: %w", err)
	}

	log.Printf("summary generation completed: %d items, %d summaries, elapsed: %s",
		total, summariesGenerated, g.now().Sub(start).Round(time.Second))

	return &Result{
		Success:            true,
		Date:               date,
		TotalNews:          total,
		ContentFetched:     contentFetched,
		SummariesGenerated: summariesGenerated,
		TotalContentLength: totalContentLength,
	}, nil
}

// buildPrompt 正文截断到安全预算；没抓到正文时退化为只给标题
func buildPrompt(item RetrievedItem) string {
	var content string
	if item.MarkdownContent != "" {
		content = item.MarkdownContent
		if rs := []rune(content); len(rs) > maxPromptContentLength {
			content = string(rs[:maxPromptContentLength]) + "..."
		}
	} else {
		content = fmt.Sprintf("标题：%s\n\n（无法获取正文内容，请根据标题生成摘要）", item.Title)
	}
	return fmt.Sprintf(summaryPromptTemplate, content)
}

// extractSummary 去掉模型输出里可能带的"摘要："前缀
func extractSummary(response string) string {
	content := strings.TrimSpace(response)
	if content == "" {
		return ""
	}
	return strings.TrimSpace(summaryLabelRe.ReplaceAllString(content, ""))
}

func truncateForLog(s string) string {
	rs := []rune(s)
	if len(rs) > 50 {
		return string(rs[:50]) + "..."
	}
	return s
}
