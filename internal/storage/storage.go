// Package storage 基于扁平文件的持久层：快照、日报、摘要与进度文件。
//
// 目录约定（DataDir 默认 data/，TempDir 默认 temp/）：
//
//	temp/<source_id>/<YYYYMMDD>_<HHMMSS>.json  抓取快照（追加写入，不覆盖）
//	temp/summaries/<date>/                      摘要中间产物（正文 + metadata.json）
//	data/<date>.md                              当日 Markdown 汇总
//	data/<date>_full.json                       当日结构化导出
//	data/summaries/<date>.json                  摘要结果
//	data/summaries/<date>.progress.json         生成进度（仅在生成期间存在）
//	data/audio/<date>.mp3                       TTS 产物（由外部服务生成，这里只负责路径）
//
// 所有写入都走临时文件 + rename，读方不会看到半个文件。
// 前提约定：同一数据目录同一时刻只有一个采集/摘要进程在写。
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"briefy/internal/collector"

	"github.com/redis/go-redis/v9"
)

// 东八区，所有"当天"的计算都以北京时间为准
var locEast8 *time.Location

func init() {
	locEast8, _ = time.LoadLocation("Asia/Shanghai")
	if locEast8 == nil {
		locEast8 = time.FixedZone("CST", 8*3600)
	}
}

// Today 返回东八区的今天，格式 2006-01-02
func Today() string {
	return time.Now().In(locEast8).Format("2006-01-02")
}

// Snapshot 一次抓取的完整结果：来源原始顺序即榜单名次
type Snapshot struct {
	Timestamp string            `json:"timestamp"`
	Items     []collector.Trend `json:"items"`
}

// SourceReport 单个来源当日聚合后的榜单
type SourceReport struct {
	SourceID string            `json:"source_id"`
	Name     string            `json:"name"`
	Order    int               `json:"order"`
	Items    []collector.Trend `json:"items"`
}

// FullReport 当日所有来源的结构化导出
type FullReport struct {
	Date    string         `json:"date"`
	Sources []SourceReport `json:"sources"`
}

// Progress 摘要生成进度，仅在生成期间存在于磁盘
type Progress struct {
	Date      string `json:"date"`
	Status    string `json:"status"`
	Current   int    `json:"current"`
	Total     int    `json:"total"`
	UpdatedAt string `json:"updated_at"`
}

// SummaryNews 摘要结果中的单条新闻
type SummaryNews struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	SourceName string `json:"source_name"`
	Rank       int    `json:"rank"`
	Summary    string `json:"summary"`
}

// SummaryStats 一次摘要生成的统计
type SummaryStats struct {
	ContentFetched     int `json:"content_fetched"`
	SummariesGenerated int `json:"summaries_generated"`
	TotalContentLength int `json:"total_content_length"`
}

// SummaryData 摘要结果文件 data/summaries/<date>.json 的内容
type SummaryData struct {
	Date        string        `json:"date"`
	GeneratedAt string        `json:"generated_at"`
	TotalNews   int           `json:"total_news"`
	Stats       SummaryStats  `json:"stats"`
	News        []SummaryNews `json:"news"`
}

type Store struct {
	dataDir string
	tempDir string
	redis   *redis.Client
}

// NewStore 构造文件存储。redisAddr 非空时启用读缓存（只加速 API 读取，
// 文件始终是唯一事实来源）。
func NewStore(dataDir, tempDir, redisAddr string) *Store {
	s := &Store{dataDir: dataDir, tempDir: tempDir}

	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed, cache disabled: %v", err)
		} else {
			s.redis = rdb
		}
	}
	return s
}

func (s *Store) summariesDir() string { return filepath.Join(s.dataDir, "summaries") }
func (s *Store) audioDir() string     { return filepath.Join(s.dataDir, "audio") }

// writeFileAtomic 写临时文件再 rename，避免读方看到写了一半的内容
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// marshalJSON 统一的 JSON 编码：两空格缩进、不转义 HTML，
// 保证相同输入的导出逐字节一致
func marshalJSON(v any) ([]byte, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := marshalJSON(v)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// ---- 快照 ----

// SaveSnapshot 保存一次抓取结果，文件名含抓取时刻，同一天内只增不改
func (s *Store) SaveSnapshot(sourceID string, at time.Time, items []collector.Trend) error {
	at = at.In(locEast8)
	snap := Snapshot{
		Timestamp: at.Format("2006-01-02 15:04:05"),
		Items:     items,
	}
	name := at.Format("20060102_150405") + ".json"
	path := filepath.Join(s.tempDir, sourceID, name)
	return writeJSONAtomic(path, snap)
}

// LoadDaySnapshots 读取某来源某天的全部快照，按抓取时间排序。
// 损坏的快照文件记日志后跳过，不影响其余文件。
func (s *Store) LoadDaySnapshots(sourceID, date string) []Snapshot {
	prefix := strings.ReplaceAll(date, "-", "") + "_"
	dir := filepath.Join(s.tempDir, sourceID)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	snapshots := make([]Snapshot, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("warn: read snapshot %s: %v", path, err)
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			log.Printf("warn: decode snapshot %s: %v", path, err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots
}

// SnapshotSources 返回某天有快照的来源 ID 列表（按目录名排序）
func (s *Store) SnapshotSources(date string) []string {
	prefix := strings.ReplaceAll(date, "-", "") + "_"

	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		return nil
	}

	var sources []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "summaries" {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.tempDir, e.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if strings.HasPrefix(f.Name(), prefix) {
				sources = append(sources, e.Name())
				break
			}
		}
	}
	sort.Strings(sources)
	return sources
}

// ---- 日报 ----

func (s *Store) digestPath(date string) string {
	return filepath.Join(s.dataDir, date+".md")
}

func (s *Store) fullReportPath(date string) string {
	return filepath.Join(s.dataDir, date+"_full.json")
}

// WriteDailyReport 同时落盘 Markdown 汇总与结构化导出
func (s *Store) WriteDailyReport(date, markdown string, report FullReport) error {
	if err := writeFileAtomic(s.digestPath(date), []byte(markdown)); err != nil {
		return fmt.Errorf("write digest: %w", err)
	}
	if err := writeJSONAtomic(s.fullReportPath(date), report); err != nil {
		return fmt.Errorf("write full report: %w", err)
	}
	return nil
}

// HasDigest 某天的 Markdown 汇总是否存在（摘要生成的前置条件）
func (s *Store) HasDigest(date string) bool {
	_, err := os.Stat(s.digestPath(date))
	return err == nil
}

// ReadFullReport 读取结构化导出；文件不存在时返回 (nil, false, nil)
func (s *Store) ReadFullReport(date string) (*FullReport, bool, error) {
	data, err := os.ReadFile(s.fullReportPath(date))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var report FullReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false, fmt.Errorf("decode full report %s: %w", date, err)
	}
	return &report, true, nil
}

// ReadFullReportRaw 原样返回导出文件内容，给 API 直接透传
func (s *Store) ReadFullReportRaw(date string) ([]byte, error) {
	return os.ReadFile(s.fullReportPath(date))
}

// ReportDates 返回有结构化导出的日期列表，新的在前
func (s *Store) ReportDates() []string {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil
	}
	var dates []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, "_full.json") {
			dates = append(dates, strings.TrimSuffix(name, "_full.json"))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

// ---- 摘要结果 ----

func (s *Store) summaryPath(date string) string {
	return filepath.Join(s.summariesDir(), date+".json")
}

func (s *Store) WriteSummary(date string, data SummaryData) error {
	return writeJSONAtomic(s.summaryPath(date), data)
}

// ReadSummary 读取摘要结果；不存在时返回 (nil, false, nil)
func (s *Store) ReadSummary(date string) (*SummaryData, bool, error) {
	data, err := os.ReadFile(s.summaryPath(date))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var out SummaryData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false, fmt.Errorf("decode summary %s: %w", date, err)
	}
	return &out, true, nil
}

func (s *Store) DeleteSummary(date string) error {
	err := os.Remove(s.summaryPath(date))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SummaryWorkDir 某天摘要生成的中间产物目录（正文文件、metadata.json）
func (s *Store) SummaryWorkDir(date string) string {
	return filepath.Join(s.tempDir, "summaries", date)
}

// WriteSummaryContent 保存第 rank 条新闻的正文，返回文件名
func (s *Store) WriteSummaryContent(date string, rank int, content string) (string, error) {
	name := fmt.Sprintf("%d.md", rank)
	path := filepath.Join(s.SummaryWorkDir(date), name)
	if err := writeFileAtomic(path, []byte(content)); err != nil {
		return "", err
	}
	return name, nil
}

// WriteSummaryMetadata 保存摘要中间元数据（含 content_file 指针）
func (s *Store) WriteSummaryMetadata(date string, v any) error {
	return writeJSONAtomic(filepath.Join(s.SummaryWorkDir(date), "metadata.json"), v)
}

// ---- 进度 ----

func (s *Store) progressPath(date string) string {
	return filepath.Join(s.summariesDir(), date+".progress.json")
}

// WriteProgress 更新进度文件，外部通过轮询它观察生成进度
func (s *Store) WriteProgress(date string, current, total int) error {
	p := Progress{
		Date:      date,
		Status:    "generating",
		Current:   current,
		Total:     total,
		UpdatedAt: time.Now().In(locEast8).Format("2006-01-02 15:04:05"),
	}
	return writeJSONAtomic(s.progressPath(date), p)
}

// ReadProgress 读取进度；文件不存在表示当前没有生成在进行
func (s *Store) ReadProgress(date string) (*Progress, bool, error) {
	data, err := os.ReadFile(s.progressPath(date))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// ClearProgress 生成结束（无论成败）后删除进度文件
func (s *Store) ClearProgress(date string) {
	if err := os.Remove(s.progressPath(date)); err != nil && !os.IsNotExist(err) {
		log.Printf("warn: clear progress %s: %v", date, err)
	}
}

// ---- 音频 ----

// AudioPath 某天 TTS 音频的路径；音频由外部服务生成，这里只负责定位与删除
func (s *Store) AudioPath(date string) string {
	return filepath.Join(s.audioDir(), date+".mp3")
}

func (s *Store) HasAudio(date string) bool {
	_, err := os.Stat(s.AudioPath(date))
	return err == nil
}

func (s *Store) DeleteAudio(date string) error {
	err := os.Remove(s.AudioPath(date))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ---- Redis 读缓存 ----

const cacheTTL = 5 * time.Minute

// CacheGet 读缓存未命中或未启用时返回 false
func (s *Store) CacheGet(ctx context.Context, key string) ([]byte, bool) {
	if s.redis == nil {
		return nil, false
	}
	bs, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return bs, true
}

// CacheSet 回写缓存（5 分钟，减轻每天首次打开时的磁盘读压力）
func (s *Store) CacheSet(ctx context.Context, key string, data []byte) {
	if s.redis == nil || len(data) == 0 {
		return
	}
	_ = s.redis.Set(ctx, key, data, cacheTTL).Err()
}
