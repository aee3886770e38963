package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"agencyhub/pkg/otel"
	"agencyhub/pkg/rbac"
	"agencyhub/pkg/util"
)

// ReadinessCheck 返回 nil 表示依赖可用
type ReadinessCheck func(ctx context.Context) error

type RouterConfig struct {
	JWTSecret   string
	BasePath    string
	CORSOrigins []string
	// 名称 → 检查函数，/readyz 依次执行
	Readiness map[string]ReadinessCheck
}

type Handlers struct {
	Users    *UserHandler
	Clients  *ClientHandler
	Projects *ProjectHandler
	Tasks    *TaskHandler
	Invoices *InvoiceHandler
	Insights *InsightHandler
	Admin    *AdminHandler
}

func NewRouter(cfg RouterConfig, h Handlers, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otel.GinMiddleware())
	r.Use(TraceMiddleware())
	r.Use(RequestLogger(logger))
	r.Use(corsMiddleware(cfg.CORSOrigins))

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		for name, check := range cfg.Readiness {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	base := r.Group(cfg.BasePath)

	// Public
	users := base.Group("/users")
	{
		users.POST("/register", h.Users.Register)
		users.POST("/login", h.Users.Login)
		users.GET("/interns", h.Users.Interns)
		users.POST("/forgot-password", h.Users.ForgotPassword)
		users.POST("/reset-password", h.Users.ResetPassword)
	}

	// Protected
	auth := base.Group("/")
	auth.Use(AuthMiddleware(cfg.JWTSecret))

	crud(auth.Group("/clients"), rbac.PermissionClientWrite,
		h.Clients.List, h.Clients.Get, h.Clients.Create, h.Clients.Update, h.Clients.Delete)
	crud(auth.Group("/projects"), rbac.PermissionProjectWrite,
		h.Projects.List, h.Projects.Get, h.Projects.Create, h.Projects.Update, h.Projects.Delete)
	crud(auth.Group("/invoices"), rbac.PermissionInvoiceWrite,
		h.Invoices.List, h.Invoices.Get, h.Invoices.Create, h.Invoices.Update, h.Invoices.Delete)

	tasks := auth.Group("/tasks")
	crud(tasks, rbac.PermissionTaskWrite,
		h.Tasks.List, h.Tasks.Get, h.Tasks.Create, h.Tasks.Update, h.Tasks.Delete)
	// 负责人校验在 service 中完成
	tasks.PATCH("/:id/status", RequirePermission(rbac.PermissionTaskUpdateStatus), h.Tasks.UpdateStatus)

	auth.GET("/dashboard/stats", h.Insights.DashboardStats)

	analytics := auth.Group("/analytics", RequireAdmin())
	{
		analytics.GET("/productivity", h.Insights.Productivity)
		analytics.GET("/revenue", h.Insights.Revenue)
		analytics.GET("/projects", h.Insights.ProjectMetrics)
	}

	reports := auth.Group("/reports", RequirePermission(rbac.PermissionReportRead))
	{
		reports.GET("/productivity.csv", h.Insights.ProductivityCSV)
		reports.GET("/summary.pdf", h.Insights.SummaryPDF)
	}

	if h.Admin != nil {
		admin := auth.Group("/admin/outbox", RequirePermission(rbac.PermissionOutboxReplay))
		admin.POST("/replay", h.Admin.ReplayOutboxEvent)
		admin.POST("/replay-failed", h.Admin.ReplayFailedEvents)
	}

	return r
}

// crud 注册五个标准路由；写操作需要 writePerm
func crud(g *gin.RouterGroup, writePerm string, list, get, create, update, remove gin.HandlerFunc) {
	write := RequirePermission(writePerm)
	g.GET("", list)
	g.GET("/:id", get)
	g.POST("", write, create)
	g.PUT("/:id", write, update)
	g.DELETE("/:id", write, remove)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", util.AuthHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
