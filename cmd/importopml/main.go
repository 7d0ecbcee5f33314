package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"briefy/internal/collector"

	"gopkg.in/yaml.v3"
)

// 把 OPML 订阅清单合并进 config/rss_sources.yaml：
// 按 URL 去重，新源默认 language=en + translate=true。
func main() {
	opmlPath := flag.String("opml", "", "OPML 文件路径")
	configPath := flag.String("config", "config/rss_sources.yaml", "RSS 源配置文件路径")
	flag.Parse()

	if *opmlPath == "" {
		log.Fatal("usage: importopml -opml <file.opml> [-config config/rss_sources.yaml]")
	}

	existing, err := collector.LoadRSSSources(*configPath)
	if err != nil {
		log.Fatalf("load existing sources: %v", err)
	}

	opmlData, err := os.ReadFile(*opmlPath)
	if err != nil {
		log.Fatalf("read opml: %v", err)
	}

	added := mergeOutlines(string(opmlData), &existing)
	if added == 0 {
		fmt.Println("no new feeds to import")
		return
	}

	out, err := yaml.Marshal(map[string][]collector.RSSSource{"sources": existing})
	if err != nil {
		log.Fatalf("encode sources: %v", err)
	}
	if err := os.WriteFile(*configPath, out, 0o644); err != nil {
		log.Fatalf("write sources file: %v", err)
	}
	fmt.Printf("imported %d feeds into %s\n", added, *configPath)
}

var outlineRe = regexp.MustCompile(`<outline[^>]+title="([^"]+)"[^>]+xmlUrl="([^"]+)"`)
var idSanitizeRe = regexp.MustCompile(`[^a-zA-Z0-9]`)

// mergeOutlines 解析 OPML 中的 outline 节点并追加未收录的源，返回新增数量
func mergeOutlines(opml string, sources *[]collector.RSSSource) int {
	existingURLs := make(map[string]bool)
	existingIDs := make(map[string]bool)
	for _, s := range *sources {
		existingURLs[s.URL] = true
		existingIDs[s.ID] = true
	}

	added := 0
	for _, m := range outlineRe.FindAllStringSubmatch(opml, -1) {
		title, url := m[1], m[2]
		if url == "" || existingURLs[url] {
			continue
		}

		id := strings.ToLower(idSanitizeRe.ReplaceAllString(title, "_"))
		for existingIDs[id] {
			id += "_1"
		}

		*sources = append(*sources, collector.RSSSource{
			ID:        id,
			Name:      title,
			URL:       url,
			Enabled:   true,
			Language:  "en",
			Translate: true,
		})
		existingURLs[url] = true
		existingIDs[id] = true
		added++
	}
	return added
}
