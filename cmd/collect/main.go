package main

import (
	"log"

	"briefy/internal/aggregator"
	"briefy/internal/collector"
	"briefy/internal/config"
	"briefy/internal/llm"
	"briefy/internal/scheduler"
	"briefy/internal/storage"
)

// 一个仅执行一次 抓取+聚合 的命令行入口：适合手动补数据
func main() {
	cfg := config.Load()

	store := storage.NewStore(cfg.DataDir, cfg.TempDir, cfg.RedisAddr)
	llmClient := llm.New(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMAPIBase)
	translator := collector.NewTranslator(llmClient)

	registry := collector.NewRegistry()
	fetchers := []collector.Fetcher{
		&collector.CailianFetcher{},
		&collector.WallstreetcnFetcher{},
		&collector.Jin10Fetcher{},
		&collector.IfengFetcher{},
		&collector.ToutiaoFetcher{},
		&collector.BaiduFetcher{},
	}
	for _, f := range fetchers {
		if err := registry.Register(f); err != nil {
			log.Fatalf("register fetcher failed: %v", err)
		}
	}

	rssSources, err := collector.LoadRSSSources(cfg.RSSSourcesFile)
	if err != nil {
		log.Printf("warn: load rss sources: %v", err)
	}
	for _, src := range rssSources {
		if !src.Enabled {
			continue
		}
		if err := registry.Register(collector.NewRSSFetcher(src, translator)); err != nil {
			log.Printf("warn: register rss source %s: %v", src.ID, err)
		}
	}

	sourceTable := aggregator.BuiltinSources()
	aggregator.AddRSSSources(sourceTable, rssSources)
	agg := aggregator.New(store, sourceTable)

	// 手动补数据不走摘要分支
	sched, err := scheduler.New(cfg.CronSpec, registry, store, agg, nil, false, cfg.SummaryTopN)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}

	// 只执行一轮后退出
	sched.RunOnce()
}
