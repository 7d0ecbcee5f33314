package collector

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"
)

const (
	rssMaxEntries    = 20
	rssMaxItems      = 10
	rssTranslateTopN = 10
)

// RSSSource 一个 RSS 源的配置，来自 config/rss_sources.yaml
type RSSSource struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	URL       string `yaml:"url"`
	Enabled   bool   `yaml:"enabled"`
	Language  string `yaml:"language"`
	Translate bool   `yaml:"translate"`
}

type rssSourceFile struct {
	Sources []RSSSource `yaml:"sources"`
}

// LoadRSSSources 读取 RSS 源配置文件；文件不存在时返回空列表而非错误，
// 没有配置 RSS 源是正常情况。
func LoadRSSSources(path string) ([]RSSSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("rss: read sources file: %w", err)
	}

	var file rssSourceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("rss: parse sources file: %w", err)
	}
	return file.Sources, nil
}

// RSSFetcher 单个 RSS 源的抓取器。外文源可配置 translate，
// 最新的 10 条会经过 LLM 批量翻译。
type RSSFetcher struct {
	source     RSSSource
	translator *Translator
}

func NewRSSFetcher(source RSSSource, translator *Translator) *RSSFetcher {
	return &RSSFetcher{source: source, translator: translator}
}

func (f *RSSFetcher) SourceID() string {
	return f.source.ID
}

func (f *RSSFetcher) Fetch(ctx context.Context) ([]Trend, error) {
	if !f.source.Enabled {
		return nil, nil
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(f.source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("rss %s: parse feed: %w", f.source.ID, err)
	}

	entries := feed.Items
	if len(entries) > rssMaxEntries {
		entries = entries[:rssMaxEntries]
	}

	all := make([]Trend, 0, len(entries))
	for _, entry := range entries {
		if entry == nil || entry.Link == "" {
			continue
		}

		publishTime := ""
		if entry.PublishedParsed != nil {
			publishTime = entry.PublishedParsed.In(locEast8).Format("2006-01-02 15:04")
		} else if entry.UpdatedParsed != nil {
			publishTime = entry.UpdatedParsed.In(locEast8).Format("2006-01-02 15:04")
		}

		all = append(all, Trend{
			ID:          entry.Link,
			Title:       entry.Title,
			URL:         entry.Link,
			Description: entry.Description,
			PublishTime: publishTime,
			// RSS 条目没有热度值，置 0 让聚合排序依赖出现顺序
			Score: intPtr(0),
		})
	}

	if len(all) == 0 {
		return nil, nil
	}

	// 最新的排前面，优先翻译最新条目
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishTime > all[j].PublishTime
	})

	if f.source.Translate && f.source.Language != "zh" && f.translator != nil {
		head := all
		var rest []Trend
		if len(all) > rssTranslateTopN {
			head = all[:rssTranslateTopN]
			rest = all[rssTranslateTopN:]
		}
		// 已经基本是中文的源（比如转载源）不值得再走一遍 LLM
		if hasNonChineseTitle(head) {
			head = f.translator.TranslateItems(ctx, head)
		}
		return append(head, rest...), nil
	}

	if len(all) > rssMaxItems {
		all = all[:rssMaxItems]
	}
	return all, nil
}

func hasNonChineseTitle(items []Trend) bool {
	for _, item := range items {
		if !isMostlyChinese(item.Title) {
			return true
		}
	}
	return false
}
