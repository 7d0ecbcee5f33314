package collector

import (
	"context"
	"fmt"
	"time"
)

// 东八区，用于时间展示与日期计算
var locEast8 *time.Location

func init() {
	locEast8, _ = time.LoadLocation("Asia/Shanghai")
	if locEast8 == nil {
		locEast8 = time.FixedZone("CST", 8*3600)
	}
}

// Trend 一条新闻/热搜条目。同一来源同一天内，ID 唯一标识同一条新闻：
// 不同抓取时间点出现相同 ID 视为同一条新闻的多次观测。
type Trend struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	// PublishTime 保留来源原始精度的时间字符串，例如 "2026-02-06 00:57"
	PublishTime string `json:"publish_time,omitempty"`
	// Score 来源自带的热度值；为 nil 表示来源不提供排名，需要聚合时计算
	Score *int `json:"score,omitempty"`
}

// Fetcher 抽象每一个数据源
type Fetcher interface {
	SourceID() string
	Fetch(ctx context.Context) ([]Trend, error)
}

// Registry 显式的采集器注册表，在启动时构造后传入调度器，
// 避免包级全局状态，也方便测试时注入假采集器。
type Registry struct {
	order    []string
	fetchers map[string]Fetcher
}

func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]Fetcher)}
}

func (r *Registry) Register(f Fetcher) error {
	id := f.SourceID()
	if id == "" {
		return fmt.Errorf("registry: empty source id")
	}
	if _, ok := r.fetchers[id]; ok {
		return fmt.Errorf("registry: source %q already registered", id)
	}
	r.order = append(r.order, id)
	r.fetchers[id] = f
	return nil
}

func (r *Registry) Get(id string) (Fetcher, bool) {
	f, ok := r.fetchers[id]
	return f, ok
}

// SourceIDs 按注册顺序返回所有来源 ID
func (r *Registry) SourceIDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func intPtr(v int) *int {
	return &v
}
