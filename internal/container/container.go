package container

import (
	"fmt"
	"time"

	"github.com/mautops/governance-gin/internal/api"
	"github.com/mautops/governance-gin/internal/auth"
	"github.com/mautops/governance-gin/internal/config"
	"github.com/mautops/governance-gin/internal/database"
	"github.com/mautops/governance-gin/internal/integration"
	"github.com/mautops/governance-gin/internal/repository"
	"github.com/mautops/governance-gin/internal/service"
	"github.com/mautops/governance-gin/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、服务、客户端等
type Container struct {
	cfg               *config.Config
	db                *gorm.DB
	logger            *logrus.Logger
	hub               *websocket.Hub
	validator         *auth.TokenValidator
	manager           integration.SubmissionManager
	submissionService service.SubmissionService
	queryService      service.QueryService
	statisticsService service.StatisticsService
	backupService     *service.BackupService
	backupScheduler   *service.BackupScheduler
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. 初始化日志
	logger, err := api.NewLoggerFromConfig(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// 2. 初始化数据库(带重试机制)
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移(含索引创建)
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 3. 初始化外部集成
	board := integration.NewBoardClient(cfg.Board, logger)
	notifier := integration.NewNotifier(cfg.Notifier, logger)
	registry := integration.NewApprovalRegistry(db)

	// 4. 初始化提案管理器
	manager := integration.NewSubmissionManager(db, registry, board, notifier, logger)

	// 5. 初始化 WebSocket Hub 与 Token 验证器
	hub := websocket.NewHub()
	validator := auth.NewTokenValidator(cfg.Auth.TokenSecret)

	// 6. 初始化服务层
	auditLogService := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	submissionService := service.NewSubmissionService(manager, auditLogService, hub)
	queryService := service.NewQueryService(db)
	statisticsService := service.NewStatisticsService(db)

	// 7. 初始化备份服务
	backupService := service.NewBackupService(db, cfg.Backup.Dir)
	var backupScheduler *service.BackupScheduler
	if cfg.Backup.Interval > 0 {
		backupScheduler = service.NewBackupScheduler(backupService, &service.BackupScheduleConfig{
			Enabled:       true,
			Interval:      time.Duration(cfg.Backup.Interval) * time.Hour,
			RetentionDays: 30,
		})
	}

	return &Container{
		cfg:               cfg,
		db:                db,
		logger:            logger,
		hub:               hub,
		validator:         validator,
		manager:           manager,
		submissionService: submissionService,
		queryService:      queryService,
		statisticsService: statisticsService,
		backupService:     backupService,
		backupScheduler:   backupScheduler,
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Logger 获取日志记录器
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Validator 获取 Token 验证器
func (c *Container) Validator() *auth.TokenValidator {
	return c.validator
}

// SubmissionManager 获取提案管理器
func (c *Container) SubmissionManager() integration.SubmissionManager {
	return c.manager
}

// SubmissionService 获取提案服务
func (c *Container) SubmissionService() service.SubmissionService {
	return c.submissionService
}

// QueryService 获取查询服务
func (c *Container) QueryService() service.QueryService {
	return c.queryService
}

// StatisticsService 获取统计服务
func (c *Container) StatisticsService() service.StatisticsService {
	return c.statisticsService
}

// BackupService 获取备份服务
func (c *Container) BackupService() *service.BackupService {
	return c.backupService
}

// BackupScheduler 获取备份调度器,未启用时为 nil
func (c *Container) BackupScheduler() *service.BackupScheduler {
	return c.backupScheduler
}

// RouterOptions 构造路由依赖
func (c *Container) RouterOptions() *api.RouterOptions {
	return &api.RouterOptions{
		Config:            c.cfg,
		DB:                c.db,
		Hub:               c.hub,
		Validator:         c.validator,
		SubmissionService: c.submissionService,
		QueryService:      c.queryService,
		StatisticsService: c.statisticsService,
		BackupService:     c.backupService,
	}
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.backupScheduler != nil {
		c.backupScheduler.Stop()
	}
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	return nil
}
