package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppPort string

	DataDir string
	TempDir string

	CronSpec string

	// 摘要生成
	EnableSummary  bool
	SummaryTopN    int
	SummarySources []string // 来源展示名白名单，空表示全部

	// 正文抓取策略: chromedp(默认) / http / reader_api
	ContentFetcher    string
	ReaderAPIEndpoint string
	ReaderAPIKey      string

	// LLM
	LLMAPIKey  string
	LLMModel   string
	LLMAPIBase string

	// 为空则不启用读缓存
	RedisAddr string

	BasicAuthUser string
	BasicAuthPass string

	// 前端静态文件目录，为空则不托管
	WebRoot string

	RSSSourcesFile string
}

func Load() *Config {
	cfg := &Config{
		AppPort:           getEnv("APP_PORT", "9000"),
		DataDir:           getEnv("DATA_DIR", "data"),
		TempDir:           getEnv("TEMP_DIR", "temp"),
		CronSpec:          getEnv("CRON_SPEC", "*/30 * * * *"),
		EnableSummary:     getEnv("ENABLE_SUMMARY", "0") == "1",
		SummaryTopN:       getEnvInt("SUMMARY_TOP_N", 10),
		SummarySources:    splitList(getEnv("SUMMARY_SOURCES", "")),
		ContentFetcher:    getEnv("CONTENT_FETCHER", "chromedp"),
		ReaderAPIEndpoint: getEnv("READER_API_ENDPOINT", "https://api.shuyanai.com/v1/reader"),
		ReaderAPIKey:      getEnv("READER_API_KEY", ""),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMModel:          getEnv("LLM_MODEL", "glm-4-flash"),
		LLMAPIBase:        getEnv("LLM_API_BASE", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		BasicAuthUser:     getEnv("APP_BASIC_USER", ""),
		BasicAuthPass:     getEnv("APP_BASIC_PASS", ""),
		WebRoot:           getEnv("WEB_ROOT", ""),
		RSSSourcesFile:    getEnv("RSS_SOURCES_FILE", "config/rss_sources.yaml"),
	}

	log.Printf("config loaded: port=%s cron=%s summary=%v fetcher=%s",
		cfg.AppPort, cfg.CronSpec, cfg.EnableSummary, cfg.ContentFetcher)
	return cfg
}

// SummarySourceSet 摘要来源白名单转成集合，空白名单返回 nil 表示不过滤
func (c *Config) SummarySourceSet() map[string]bool {
	if len(c.SummarySources) == 0 {
		return nil
	}
	set := make(map[string]bool, len(c.SummarySources))
	for _, s := range c.SummarySources {
		set[s] = true
	}
	return set
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("warn: invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
