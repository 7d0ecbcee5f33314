// Package api HTTP 查询面：摘要、进度、日报与音频的读取，
// 以及手动重新生成摘要的入口。
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"briefy/internal/scheduler"
	"briefy/internal/storage"

	"github.com/gin-gonic/gin"
)

// SummaryService 摘要的触发能力，生产实现是 *scheduler.Scheduler
type SummaryService interface {
	RegenerateSummary(ctx context.Context, date string) error
}

type Server struct {
	store   *storage.Store
	summary SummaryService
}

func NewServer(store *storage.Store, summary SummaryService) *Server {
	return &Server{store: store, summary: summary}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		api.GET("/summary/:date", s.getSummary)
		api.GET("/summary-progress/:date", s.getSummaryProgress)
		api.POST("/regenerate-summary/:date", s.regenerateSummary)
		api.GET("/audio/:date", s.getAudio)
		api.GET("/report/:date", s.getReport)
		api.GET("/dates", s.getDates)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func validDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func (s *Server) getSummary(c *gin.Context) {
	date := c.Param("date")

	cacheKey := "summary:" + date
	if bs, ok := s.store.CacheGet(c.Request.Context(), cacheKey); ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", bs)
		return
	}

	data, ok, err := s.store.ReadSummary(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取摘要数据失败"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "未找到 " + date + " 的摘要数据"})
		return
	}

	if raw, err := json.Marshal(data); err == nil {
		s.store.CacheSet(c.Request.Context(), cacheKey, raw)
	}
	c.JSON(http.StatusOK, data)
}

// getSummaryProgress 三种状态：生成中（返回进度）、已完成（返回摘要）、
// 两者皆无（404，从未生成过）
func (s *Server) getSummaryProgress(c *gin.Context) {
	date := c.Param("date")

	if p, ok, _ := s.store.ReadProgress(date); ok {
		c.JSON(http.StatusOK, gin.H{
			"status":   "generating",
			"progress": p,
			// 仍在生成中，不返回不完整的摘要
			"summary": nil,
		})
		return
	}

	if data, ok, err := s.store.ReadSummary(date); err == nil && ok {
		c.JSON(http.StatusOK, gin.H{
			"status":   "completed",
			"progress": nil,
			"summary":  data,
		})
		return
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "未找到 " + date + " 的摘要数据"})
}

func (s *Server) regenerateSummary(c *gin.Context) {
	date := c.Param("date")
	if !validDate(date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "日期格式无效，请使用 YYYY-MM-DD"})
		return
	}

	err := s.summary.RegenerateSummary(c.Request.Context(), date)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "摘要已重新生成"})
	case errors.Is(err, scheduler.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": "未找到 " + date + " 的数据文件，请先抓取新闻"})
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": date + " 的摘要正在生成中"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成摘要失败: " + err.Error()})
	}
}

func (s *Server) getAudio(c *gin.Context) {
	date := c.Param("date")
	if !s.store.HasAudio(date) {
		c.JSON(http.StatusNotFound, gin.H{"error": "未找到 " + date + " 的音频文件"})
		return
	}
	c.FileAttachment(s.store.AudioPath(date), date+".mp3")
}

func (s *Server) getReport(c *gin.Context) {
	date := c.Param("date")

	cacheKey := "report:" + date
	if bs, ok := s.store.CacheGet(c.Request.Context(), cacheKey); ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", bs)
		return
	}

	raw, err := s.store.ReadFullReportRaw(date)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "未找到 " + date + " 的日报数据"})
		return
	}

	s.store.CacheSet(c.Request.Context(), cacheKey, raw)
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) getDates(c *gin.Context) {
	dates := s.store.ReportDates()
	if dates == nil {
		dates = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}
