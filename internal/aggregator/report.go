package aggregator

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"briefy/internal/collector"
	"briefy/internal/storage"
)

// ErrNoData 某天一个可读快照都没有时返回，此时不落任何文件
var ErrNoData = errors.New("aggregator: no data for date")

// SourceMeta 来源的展示名称与排序位置
type SourceMeta struct {
	Name  string
	Order int
}

// 没有配置展示信息的来源排在最后
const defaultSourceOrder = 999

// Aggregator 每日汇总生成器
type Aggregator struct {
	store   *storage.Store
	sources map[string]SourceMeta
}

func New(store *storage.Store, sources map[string]SourceMeta) *Aggregator {
	if sources == nil {
		sources = map[string]SourceMeta{}
	}
	return &Aggregator{store: store, sources: sources}
}

// Generate 聚合某天所有来源的快照并写出日报。
// 重复执行是幂等的：相同的快照集合产出逐字节相同的结构化导出。
func (a *Aggregator) Generate(date string) error {
	sourceIDs := a.store.SnapshotSources(date)

	var reports []storage.SourceReport
	for _, sourceID := range sourceIDs {
		snapshots := a.store.LoadDaySnapshots(sourceID, date)
		if len(snapshots) == 0 {
			continue
		}

		ranked := aggregateSnapshots(snapshots)
		if len(ranked) == 0 {
			continue
		}

		meta, ok := a.sources[sourceID]
		if !ok {
			meta = SourceMeta{Name: sourceID, Order: defaultSourceOrder}
		}

		reports = append(reports, storage.SourceReport{
			SourceID: sourceID,
			Name:     meta.Name,
			Order:    meta.Order,
			Items:    ranked,
		})
	}

	if len(reports) == 0 {
		log.Printf("warn: no data for %s", date)
		return ErrNoData
	}

	// 全局展示顺序；order 相同时按 source_id 保证输出确定
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].Order != reports[j].Order {
			return reports[i].Order < reports[j].Order
		}
		return reports[i].SourceID < reports[j].SourceID
	})

	markdown := renderMarkdown(date, reports)
	report := storage.FullReport{Date: date, Sources: reports}

	if err := a.store.WriteDailyReport(date, markdown, report); err != nil {
		return fmt.Errorf("aggregator: write report %s: %w", date, err)
	}

	total := 0
	for _, r := range reports {
		total += len(r.Items)
	}
	log.Printf("report generated: %s (%d sources, %d items)", date, len(reports), total)
	return nil
}

func aggregateSnapshots(snapshots []storage.Snapshot) []collector.Trend {
	lists := make([][]collector.Trend, 0, len(snapshots))
	for _, snap := range snapshots {
		lists = append(lists, snap.Items)
	}
	return AggregateTrends(lists)
}

func renderMarkdown(date string, reports []storage.SourceReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s 热门新闻汇总\n", date)

	for _, r := range reports {
		fmt.Fprintf(&sb, "\n## %s\n", r.Name)
		for i, item := range r.Items {
			if item.PublishTime != "" {
				fmt.Fprintf(&sb, "%d. [%s](%s) [%s]\n", i+1, item.Title, item.URL, item.PublishTime)
			} else {
				fmt.Fprintf(&sb, "%d. [%s](%s)\n", i+1, item.Title, item.URL)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
