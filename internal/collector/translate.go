package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode"

	"briefy/internal/llm"
)

const (
	// 单批最多条数与字符数，保证单次 LLM 调用不会超出安全的 prompt 体积
	translateMaxBatchSize  = 5
	translateMaxBatchChars = 4000
	// 单条内容参与批次计算与传输时的软上限
	translateMaxItemChars = 2000
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// Completer 翻译所需的 LLM 补全能力，消费方接口便于测试注入
type Completer interface {
	CompleteWithRetry(ctx context.Context, prompt string) (string, error)
}

// Translator 批量翻译外文条目：标题译为中文，正文压缩为中文摘要。
// 批次解析失败时整批返回原文，绝不丢条目。
type Translator struct {
	llm   Completer
	sleep func(time.Duration)
}

func NewTranslator(c Completer) *Translator {
	return &Translator{llm: c, sleep: time.Sleep}
}

// TranslateItems 将条目按字符预算动态分批后逐批翻译，批与批之间停顿 1 秒
func (t *Translator) TranslateItems(ctx context.Context, items []Trend) []Trend {
	if t.llm == nil || len(items) == 0 {
		return items
	}

	batches := createDynamicBatches(items)
	out := make([]Trend, 0, len(items))
	for i, batch := range batches {
		log.Printf("translate batch %d/%d (%d items)", i+1, len(batches), len(batch))
		out = append(out, t.translateBatch(ctx, batch)...)
		if i < len(batches)-1 {
			t.sleep(time.Second)
		}
	}
	return out
}

// createDynamicBatches 同时受条数与字符数约束的分批
func createDynamicBatches(items []Trend) [][]Trend {
	var batches [][]Trend
	var current []Trend
	chars := 0

	for _, item := range items {
		desc := htmlTagRe.ReplaceAllString(item.Description, "")
		if rs := []rune(desc); len(rs) > translateMaxItemChars {
			desc = string(rs[:translateMaxItemChars])
		}
		itemLen := len([]rune(item.Title)) + len([]rune(desc))

		if len(current) > 0 &&
			(chars+itemLen > translateMaxBatchChars || len(current) >= translateMaxBatchSize) {
			batches = append(batches, current)
			current = nil
			chars = 0
		}
		current = append(current, item)
		chars += itemLen
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

type translateInput struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type translateOutput struct {
	ID        int    `json:"id"`
	TitleZh   string `json:"title_zh"`
	SummaryZh string `json:"summary_zh"`
}

const translatePromptTemplate = `You are a professional financial news editor.
Task: Translate news titles to Chinese and generate a concise Chinese summary of the content.

Input News Items:
%s

Requirements:
1. "title_zh": Translate the "title" into Chinese.
2. "summary_zh": Summarize the "content" into a concise summary in Chinese (max 100 characters). The summary MUST be in Chinese.
3. Return a JSON Array with objects containing: "id", "title_zh", "summary_zh".
4. Strictly Output VALID JSON only. No markdown formatting.

Example Output:
[
  {"id": 0, "title_zh": "...", "summary_zh": "..."},
  {"id": 1, "title_zh": "...", "summary_zh": "..."}
]
`

// translateBatch 翻译一批条目；任何失败（调用失败、JSON 解析失败）都返回原文
func (t *Translator) translateBatch(ctx context.Context, items []Trend) []Trend {
	if len(items) == 0 {
		return items
	}

	inputs := make([]translateInput, 0, len(items))
	for idx, item := range items {
		content := htmlTagRe.ReplaceAllString(item.Description, "")
		if rs := []rune(content); len(rs) > translateMaxItemChars {
			content = string(rs[:translateMaxItemChars]) + "..."
		}
		inputs = append(inputs, translateInput{ID: idx, Title: item.Title, Content: content})
	}

	inputJSON, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return items
	}

	resp, err := t.llm.CompleteWithRetry(ctx, fmt.Sprintf(translatePromptTemplate, inputJSON))
	if err != nil {
		log.Printf("warn: batch translation failed: %v", err)
		return items
	}

	var results []translateOutput
	if err := json.Unmarshal([]byte(llm.CleanJSONResponse(resp)), &results); err != nil {
		log.Printf("warn: batch translation: decode response: %v", err)
		return items
	}

	byID := make(map[int]translateOutput, len(results))
	for _, r := range results {
		byID[r.ID] = r
	}

	out := make([]Trend, len(items))
	copy(out, items)
	for idx := range out {
		r, ok := byID[idx]
		if !ok {
			continue
		}
		if r.TitleZh != "" {
			// 保留原标题便于核对
			out[idx].Title = fmt.Sprintf("%s (%s)", r.TitleZh, out[idx].Title)
		}
		if r.SummaryZh != "" {
			out[idx].Description = r.SummaryZh
		}
	}
	return out
}

func isMostlyChinese(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	var cjk, total int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if isCJK(r) {
			cjk++
		}
	}
	if total == 0 {
		return true
	}
	return cjk >= 1 && (cjk*4 >= total || cjk >= 2)
}

func isCJK(r rune) bool {
	if r >= 0x4e00 && r <= 0x9fff {
		return true
	}
	if r >= 0x3400 && r <= 0x4dbf {
		return true
	}
	if r >= 0x3000 && r <= 0x303f {
		return true
	}
	return false
}
