package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BackupScheduler 备份调度器
type BackupScheduler struct {
	backupService *BackupService
	config        *BackupScheduleConfig
	stopChan      chan struct{}
}

// BackupScheduleConfig 备份计划配置
type BackupScheduleConfig struct {
	Enabled       bool          // 是否启用周期备份
	Interval      time.Duration // 备份间隔
	RetentionDays int           // 备份保留天数
}

// NewBackupScheduler 创建备份调度器
func NewBackupScheduler(backupService *BackupService, config *BackupScheduleConfig) *BackupScheduler {
	if config == nil {
		config = &BackupScheduleConfig{
			Enabled:       true,
			Interval:      24 * time.Hour,
			RetentionDays: 30,
		}
	}

	return &BackupScheduler{
		backupService: backupService,
		config:        config,
		stopChan:      make(chan struct{}),
	}
}

// Start 启动备份调度器
func (s *BackupScheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}
	if s.config.Interval <= 0 {
		return fmt.Errorf("backup interval must be positive")
	}

	go s.run(ctx)
	return nil
}

// Stop 停止备份调度器
func (s *BackupScheduler) Stop() {
	close(s.stopChan)
}

// Config 返回调度配置
func (s *BackupScheduler) Config() *BackupScheduleConfig {
	return s.config
}

// run 周期执行备份与清理
func (s *BackupScheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.performBackup(ctx)
			s.CleanupOldBackups(ctx)
		}
	}
}

// performBackup 执行一次备份
func (s *BackupScheduler) performBackup(ctx context.Context) {
	if _, err := s.backupService.CreateBackup(ctx); err != nil {
		fmt.Printf("scheduled backup failed: %v\n", err)
	}
}

// CleanupOldBackups 清理超过保留期的备份
func (s *BackupScheduler) CleanupOldBackups(ctx context.Context) {
	if s.config.RetentionDays <= 0 {
		return
	}

	backups, err := s.backupService.ListBackups(ctx)
	if err != nil {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	for _, backup := range backups {
		if backup.CreatedAt.Before(cutoff) {
			_ = os.Remove(filepath.Join(s.backupService.BackupDir(), backup.Filename))
		}
	}
}
