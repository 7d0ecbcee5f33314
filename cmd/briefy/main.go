package main

import (
	"log"
	"net/http"
	"path/filepath"

	"briefy/internal/aggregator"
	"briefy/internal/api"
	"briefy/internal/collector"
	"briefy/internal/config"
	"briefy/internal/llm"
	"briefy/internal/scheduler"
	"briefy/internal/storage"
	"briefy/internal/summary"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	store := storage.NewStore(cfg.DataDir, cfg.TempDir, cfg.RedisAddr)
	llmClient := llm.New(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMAPIBase)
	translator := collector.NewTranslator(llmClient)

	// 注册采集器：内置来源 + 配置文件里的 RSS 源
	registry := collector.NewRegistry()
	mustRegister(registry, &collector.CailianFetcher{})
	mustRegister(registry, &collector.WallstreetcnFetcher{})
	mustRegister(registry, &collector.Jin10Fetcher{})
	mustRegister(registry, &collector.IfengFetcher{})
	mustRegister(registry, &collector.ToutiaoFetcher{})
	mustRegister(registry, &collector.BaiduFetcher{})

	rssSources, err := collector.LoadRSSSources(cfg.RSSSourcesFile)
	if err != nil {
		log.Printf("warn: load rss sources: %v", err)
	}
	for _, src := range rssSources {
		if !src.Enabled {
			continue
		}
		mustRegister(registry, collector.NewRSSFetcher(src, translator))
		log.Printf("registered rss source: %s (%s)", src.Name, src.ID)
	}

	sourceTable := aggregator.BuiltinSources()
	aggregator.AddRSSSources(sourceTable, rssSources)
	agg := aggregator.New(store, sourceTable)

	reader := summary.NewReader(summary.ReaderConfig{
		Mode:              cfg.ContentFetcher,
		ReaderAPIEndpoint: cfg.ReaderAPIEndpoint,
		ReaderAPIKey:      cfg.ReaderAPIKey,
	})
	gen := summary.NewGenerator(store, llmClient, reader, cfg.SummarySourceSet())

	sched, err := scheduler.New(cfg.CronSpec, registry, store, agg, gen, cfg.EnableSummary, cfg.SummaryTopN)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	sched.Start()

	// API
	r := gin.Default()
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	apiServer := api.NewServer(store, sched)
	apiServer.RegisterRoutes(r)

	// 若配置了前端目录，则托管 SPA 静态文件并做 fallback
	if cfg.WebRoot != "" {
		assetsDir := filepath.Join(cfg.WebRoot, "assets")
		indexFile := filepath.Join(cfg.WebRoot, "index.html")
		r.Static("/assets", assetsDir)
		r.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet {
				c.Status(http.StatusNotFound)
				return
			}
			// SPA：未匹配 API 的 GET 均返回 index.html
			c.File(indexFile)
		})
	}

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

func mustRegister(r *collector.Registry, f collector.Fetcher) {
	if err := r.Register(f); err != nil {
		log.Fatalf("register fetcher failed: %v", err)
	}
}
