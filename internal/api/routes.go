package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/governance-gin/internal/auth"
	"github.com/mautops/governance-gin/internal/config"
	"github.com/mautops/governance-gin/internal/service"
	"github.com/mautops/governance-gin/internal/websocket"
	"gorm.io/gorm"
)

// RouterOptions 路由依赖
type RouterOptions struct {
	Config            *config.Config
	DB                *gorm.DB
	Hub               *websocket.Hub
	Validator         *auth.TokenValidator
	SubmissionService service.SubmissionService
	QueryService      service.QueryService
	StatisticsService service.StatisticsService
	BackupService     *service.BackupService
}

// SetupRoutes 配置路由
func SetupRoutes(opts *RouterOptions) *gin.Engine {
	router := gin.Default()

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(VersionMiddleware())
	router.Use(ErrorHandlerMiddleware())
	if opts.Config != nil {
		router.Use(CORSMiddleware(opts.Config.CORS.AllowedOrigins))
		if opts.Config.Tracing.Enabled {
			router.Use(TracingMiddleware())
		}
	}
	router.Use(RateLimitMiddleware(100, 200))

	// 健康检查
	healthController := NewHealthController(opts.DB, opts.Hub)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由
	if opts.Hub != nil && opts.Validator != nil {
		router.GET("/ws", websocket.WebSocketHandler(opts.Hub, opts.Validator))
	}

	// API v1 路由组
	v1 := router.Group("/api/v1")
	if opts.Validator != nil {
		v1.Use(AuthMiddleware(opts.Validator, false))
	}
	{
		submissionController := NewSubmissionController(opts.SubmissionService)
		queryController := NewQueryController(opts.QueryService, opts.StatisticsService)

		// 提案管理路由
		submissions := v1.Group("/submissions")
		{
			submissions.POST("", submissionController.Create)
			submissions.GET("", queryController.List)
			submissions.GET("/:id", submissionController.Get)
			submissions.GET("/:id/actions", submissionController.LegalActions)
			submissions.POST("/:id/actions", submissionController.RunAction)
			submissions.POST("/:id/decisions", submissionController.RecordDecision)
			submissions.POST("/:id/reconcile", submissionController.Reconcile)
			submissions.GET("/:id/audit", queryController.AuditTrail)
			submissions.GET("/:id/requests", queryController.Requests)
		}

		// 批量对账
		v1.POST("/reconcile", submissionController.ReconcileAll)

		// 统计
		v1.GET("/statistics", queryController.Statistics)

		// 备份管理路由
		if opts.BackupService != nil {
			backupController := NewBackupController(opts.BackupService)
			backups := v1.Group("/backups")
			{
				backups.POST("", backupController.CreateBackup)
				backups.GET("", backupController.ListBackups)
				backups.DELETE("/:filename", backupController.DeleteBackup)
				backups.POST("/:filename/restore", backupController.RestoreBackup)
			}
		}
	}

	return router
}
