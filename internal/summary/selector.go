// Package summary 负责深度处理流水线：跨源选取头部新闻、抓取正文、
// 逐条生成 AI 摘要并持久化进度。
package summary

import (
	"sort"

	"briefy/internal/storage"
)

// SelectedItem 跨源选取后的一条新闻。Rank 是最终输出顺序，1 起。
type SelectedItem struct {
	Title      string
	URL        string
	SourceName string
	Rank       int
	Score      int
}

// SelectTopNews 从当日结构化导出中跨源选取得分最高的 topN 条。
//
// 导出文件不存在时返回空列表而非错误——没有数据可摘要不是故障。
// allowedSources 非空时只保留这些展示名的来源。URL 去重，先到先得。
func SelectTopNews(store *storage.Store, date string, topN int, allowedSources map[string]bool) ([]SelectedItem, error) {
	report, ok, err := store.ReadFullReport(date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var candidates []SelectedItem
	for _, src := range report.Sources {
		if len(allowedSources) > 0 && !allowedSources[src.Name] {
			continue
		}
		for _, item := range src.Items {
			if item.URL == "" || item.Title == "" {
				continue
			}
			score := 0
			if item.Score != nil {
				score = *item.Score
			}
			candidates = append(candidates, SelectedItem{
				Title:      item.Title,
				URL:        item.URL,
				SourceName: src.Name,
				Score:      score,
			})
		}
	}

	// 稳定排序：同分保持来源展示顺序
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	seen := make(map[string]bool)
	selected := make([]SelectedItem, 0, topN)
	for _, c := range candidates {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		c.Rank = len(selected) + 1
		selected = append(selected, c)
		if len(selected) == topN {
			break
		}
	}
	return selected, nil
}
