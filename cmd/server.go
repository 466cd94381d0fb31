/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/governance-gin/internal/api"
	"github.com/mautops/governance-gin/internal/config"
	"github.com/mautops/governance-gin/internal/container"
	"github.com/mautops/governance-gin/internal/metrics"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Governance Gin API server.
The server will listen on the configured host and port,
and provide REST API interfaces for submission lifecycle management.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 2. 初始化容器
		ctr, err := container.NewContainer(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 3. 初始化链路追踪
		if cfg.Tracing.Enabled {
			if err := api.InitTracing(cfg.Tracing.ServiceName, cfg.Tracing.JaegerURL); err != nil {
				return fmt.Errorf("failed to initialize tracing: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = api.ShutdownTracing(ctx)
			}()
		}

		// 4. 启动后台组件
		go ctr.Hub().Run()

		// 配置热更新: 运行中调整日志级别,无需重启
		if configPath != "" {
			watcher := config.NewConfigWatcher(cfg, configPath)
			watcher.OnConfigChange(func(newCfg *config.Config) {
				level, err := logrus.ParseLevel(newCfg.Log.Level)
				if err != nil {
					ctr.Logger().WithField("level", newCfg.Log.Level).Warn("ignoring invalid log level from config reload")
					return
				}
				ctr.Logger().SetLevel(level)
				ctr.Logger().WithField("level", level).Info("log level updated from config reload")
			})
			if err := watcher.Start(); err != nil {
				ctr.Logger().WithError(err).Warn("config watcher not started")
			} else {
				defer watcher.Stop()
			}
		}

		collector := metrics.NewCollector(ctr.DB(), 15*time.Second)
		collector.Start()
		defer collector.Stop()

		if scheduler := ctr.BackupScheduler(); scheduler != nil {
			if err := scheduler.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start backup scheduler: %w", err)
			}
			defer scheduler.Stop()
		}

		// 5. 周期对账,提案依赖外部信号的推进由这里驱动
		reconcileCtx, stopReconcile := context.WithCancel(context.Background())
		defer stopReconcile()
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-reconcileCtx.Done():
					return
				case <-ticker.C:
					if advanced, err := ctr.SubmissionService().ReconcileAll(reconcileCtx); err != nil {
						ctr.Logger().WithError(err).Warn("periodic reconcile failed")
					} else if advanced > 0 {
						ctr.Logger().WithField("advanced", advanced).Info("periodic reconcile advanced submissions")
					}
				}
			}
		}()

		// 6. 设置路由
		router := api.SetupRoutes(ctr.RouterOptions())
		router.NoRoute(func(c *gin.Context) {
			api.Error(c, http.StatusNotFound, "route not found", "the requested route does not exist")
		})

		// 7. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		go func() {
			log.Printf("Server starting on %s", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down server...")

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		log.Println("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志
	serverCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
}
