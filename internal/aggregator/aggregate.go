// Package aggregator 把一天内多次抓取的快照合并成去重后的排行榜，
// 并生成当日的 Markdown 汇总与结构化导出。
package aggregator

import (
	"math"
	"sort"

	"briefy/internal/collector"
)

const (
	// 综合得分权重：出现次数 0.6，平均名次的倒数 0.4
	scoreCountWeight = 0.6
	scoreRankWeight  = 0.4

	// 每个来源最终保留的最大条数
	maxItemsPerSource = 50
)

// topicStats 按条目 ID 累积一天内的观测
type topicStats struct {
	trend     collector.Trend
	count     int
	totalRank int
	scores    []int
}

// AggregateTrends 合并一个来源一天内的全部快照。
//
// 每条新闻按 ID 去重并累积出现次数与名次；来源自带热度值时取均值下取整，
// 否则用 出现次数*0.6 + (1/平均名次)*0.4 四舍五入。最终按得分降序，
// 同分保持首次出现的先后顺序（稳定排序），截断到 50 条。
func AggregateTrends(snapshots [][]collector.Trend) []collector.Trend {
	stats := make(map[string]*topicStats)
	var order []string

	for _, items := range snapshots {
		for i, trend := range items {
			rank := i + 1 // 快照内的顺序即榜单名次，1 起

			st, ok := stats[trend.ID]
			if !ok {
				st = &topicStats{trend: trend}
				stats[trend.ID] = st
				order = append(order, trend.ID)
			}

			// 后到的观测用非空字段覆盖，空值不会抹掉已有的描述
			if trend.Title != "" {
				st.trend.Title = trend.Title
			}
			if trend.URL != "" {
				st.trend.URL = trend.URL
			}
			if trend.Description != "" {
				st.trend.Description = trend.Description
			}
			if trend.PublishTime != "" {
				st.trend.PublishTime = trend.PublishTime
			}

			st.count++
			st.totalRank += rank
			if trend.Score != nil {
				st.scores = append(st.scores, *trend.Score)
			}
		}
	}

	result := make([]collector.Trend, 0, len(order))
	for _, id := range order {
		st := stats[id]
		t := st.trend
		score := finalScore(st)
		t.Score = &score
		result = append(result, t)
	}

	// 稳定排序：同分条目保持首次出现的先后顺序
	sort.SliceStable(result, func(i, j int) bool {
		return *result[i].Score > *result[j].Score
	})

	if len(result) > maxItemsPerSource {
		result = result[:maxItemsPerSource]
	}
	return result
}

func finalScore(st *topicStats) int {
	if len(st.scores) > 0 {
		sum := 0
		for _, s := range st.scores {
			sum += s
		}
		return int(float64(sum) / float64(len(st.scores)))
	}
	avgRank := float64(st.totalRank) / float64(st.count)
	calculated := float64(st.count)*scoreCountWeight + (1/avgRank)*scoreRankWeight
	return int(math.Round(calculated))
}
