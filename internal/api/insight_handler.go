package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agencyhub/internal/service"
)

// InsightHandler 提供仪表盘、分析和报表接口
type InsightHandler struct {
	dashboard *service.DashboardService
	analytics *service.AnalyticsService
	reports   *service.ReportService
	logger    *zap.Logger
}

func NewInsightHandler(
	dashboard *service.DashboardService,
	analytics *service.AnalyticsService,
	reports *service.ReportService,
	logger *zap.Logger,
) *InsightHandler {
	return &InsightHandler{
		dashboard: dashboard,
		analytics: analytics,
		reports:   reports,
		logger:    logger,
	}
}

func (h *InsightHandler) DashboardStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *InsightHandler) Productivity(c *gin.Context) {
	rows, err := h.analytics.Productivity(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *InsightHandler) Revenue(c *gin.Context) {
	revenue, err := h.analytics.Revenue(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, revenue)
}

func (h *InsightHandler) ProjectMetrics(c *gin.Context) {
	m, err := h.analytics.ProjectMetrics(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// ProductivityCSV 先写入缓冲区，出错时还能返回 JSON 错误
func (h *InsightHandler) ProductivityCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.reports.WriteProductivityCSV(c.Request.Context(), &buf); err != nil {
		c.Error(err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="productivity.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *InsightHandler) SummaryPDF(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.reports.WriteSummaryPDF(c.Request.Context(), &buf); err != nil {
		c.Error(err)
		return
	}
	h.logger.Info("Summary report generated", zap.Int("bytes", buf.Len()))
	c.Header("Content-Disposition", `attachment; filename="agency-report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
