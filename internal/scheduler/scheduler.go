// Package scheduler 顶层编排：定时触发 抓取 → 聚合 → (摘要) 的完整一轮，
// 各阶段的失败互相隔离，一轮总能跑到结束。
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"briefy/internal/aggregator"
	"briefy/internal/collector"
	"briefy/internal/storage"
	"briefy/internal/summary"

	"github.com/robfig/cron/v3"
)

const (
	// 单个来源的抓取超时；超时只放弃该来源，不影响其它来源
	perSourceTimeout = 300 * time.Second

	// 延迟执行首轮采集，避免与服务启动争抢资源
	startupDelay = 15 * time.Second
)

var (
	// ErrNoData 请求摘要但当天还没有日报文件
	ErrNoData = errors.New("scheduler: no report data for date")
	// ErrAlreadyRunning 同一天的摘要生成已在进行中
	ErrAlreadyRunning = errors.New("scheduler: summary generation already running")
)

// SummaryRunner 摘要流水线能力，生产实现是 *summary.Generator
type SummaryRunner interface {
	GenerateDailySummary(ctx context.Context, date string, topN int) (*summary.Result, error)
}

type Scheduler struct {
	cron     *cron.Cron
	registry *collector.Registry
	store    *storage.Store
	agg      *aggregator.Aggregator
	gen      SummaryRunner

	enableSummary bool
	summaryTopN   int

	mu       sync.Mutex
	inFlight map[string]bool
}

func New(spec string, registry *collector.Registry, store *storage.Store, agg *aggregator.Aggregator, gen SummaryRunner, enableSummary bool, summaryTopN int) (*Scheduler, error) {
	s := &Scheduler{
		cron:          cron.New(),
		registry:      registry,
		store:         store,
		agg:           agg,
		gen:           gen,
		enableSummary: enableSummary,
		summaryTopN:   summaryTopN,
		inFlight:      make(map[string]bool),
	}

	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	time.AfterFunc(startupDelay, func() {
		go s.runOnce()
	})
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

// runOnce 一轮完整任务：逐个来源抓取并保存快照，每个来源成功后做一次
// 增量聚合，全部结束后再做一次最终聚合（幂等）。只要有一个来源成功，
// 且开启了摘要开关，就进入摘要分支；摘要失败只记日志，不影响下一轮调度。
func (s *Scheduler) runOnce() {
	log.Println("scheduled run started")
	date := storage.Today()

	successCount := 0
	sourceIDs := s.registry.SourceIDs()

	for _, sourceID := range sourceIDs {
		fetcher, ok := s.registry.Get(sourceID)
		if !ok {
			continue
		}

		items, err := s.fetchSource(fetcher)
		if err != nil {
			log.Printf("fetch %s error: %v", sourceID, err)
			continue
		}
		if len(items) == 0 {
			log.Printf("fetch %s got 0 items", sourceID)
			continue
		}

		if err := s.store.SaveSnapshot(sourceID, time.Now(), items); err != nil {
			log.Printf("save snapshot %s error: %v", sourceID, err)
			continue
		}
		successCount++
		log.Printf("%s done, fetched=%d items", sourceID, len(items))

		// 增量聚合：部分完成的一轮也能产出可用的日报
		if err := s.agg.Generate(date); err != nil && !errors.Is(err, aggregator.ErrNoData) {
			log.Printf("warn: incremental aggregate error: %v", err)
		}
	}

	// 最终聚合，对同一快照集合重复执行结果不变
	if err := s.agg.Generate(date); err != nil {
		if errors.Is(err, aggregator.ErrNoData) {
			log.Printf("warn: no data aggregated for %s", date)
		} else {
			log.Printf("final aggregate error: %v", err)
		}
	}

	log.Printf("fetch completed: %d/%d sources succeeded", successCount, len(sourceIDs))

	if s.enableSummary && successCount > 0 {
		if err := s.GenerateSummary(context.Background(), date); err != nil {
			log.Printf("summary generation error: %v", err)
		}
	}

	log.Println("scheduled run completed")
}

// fetchSource 带独立超时地调用一个采集器；超时只放弃这一个来源
func (s *Scheduler) fetchSource(f collector.Fetcher) ([]collector.Trend, error) {
	ctx, cancel := context.WithTimeout(context.Background(), perSourceTimeout)
	defer cancel()

	type fetchResult struct {
		items []collector.Trend
		err   error
	}
	ch := make(chan fetchResult, 1)
	go func() {
		items, err := f.Fetch(ctx)
		ch <- fetchResult{items: items, err: err}
	}()

	select {
	case r := <-ch:
		return r.items, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out after %s", perSourceTimeout)
	}
}

// GenerateSummary 对外的"为某天生成摘要"操作。
// 前置条件：当天的日报文件已存在，否则返回 ErrNoData。
// 同一天只允许一个生成在进行，重复调用返回 ErrAlreadyRunning；
// 崩溃残留的进度文件不在此列，会被新一轮生成直接覆盖。
func (s *Scheduler) GenerateSummary(ctx context.Context, date string) error {
	s.mu.Lock()
	if s.inFlight[date] {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.inFlight[date] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, date)
		s.mu.Unlock()
	}()

	if !s.store.HasDigest(date) {
		return fmt.Errorf("%w: %s", ErrNoData, date)
	}

	res, err := s.gen.GenerateDailySummary(ctx, date, s.summaryTopN)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("scheduler: summary for %s: %s", date, res.Error)
	}
	return nil
}

// RegenerateSummary 删除旧的摘要与音频后重新生成。
// 同样要求当天的日报文件已存在。
func (s *Scheduler) RegenerateSummary(ctx context.Context, date string) error {
	if !s.store.HasDigest(date) {
		return fmt.Errorf("%w: %s", ErrNoData, date)
	}
	if err := s.store.DeleteSummary(date); err != nil {
		return fmt.Errorf("scheduler: delete summary: %w", err)
	}
	if err := s.store.DeleteAudio(date); err != nil {
		return fmt.Errorf("scheduler: delete audio: %w", err)
	}
	return s.GenerateSummary(ctx, date)
}
