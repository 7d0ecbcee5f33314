package aggregator

import "briefy/internal/collector"

// BuiltinSources 内置来源的展示名与全局顺序
func BuiltinSources() map[string]SourceMeta {
	return map[string]SourceMeta{
		"cailian":      {Name: "财联社", Order: 1},
		"wallstreetcn": {Name: "华尔街见闻", Order: 2},
		"jin10":        {Name: "金十数据", Order: 3},
		"ifeng":        {Name: "凤凰网", Order: 4},
		"toutiao":      {Name: "今日头条", Order: 5},
		"baidu":        {Name: "百度热搜", Order: 6},
	}
}

// RSS 源排在内置来源之后，从 100 起按配置顺序递增
const rssBaseOrder = 100

// AddRSSSources 把 RSS 源配置并入展示表
func AddRSSSources(table map[string]SourceMeta, sources []collector.RSSSource) {
	for idx, s := range sources {
		table[s.ID] = SourceMeta{Name: s.Name, Order: rssBaseOrder + idx}
	}
}
