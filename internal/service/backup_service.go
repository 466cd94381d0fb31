package service

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mautops/governance-gin/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BackupService 备份服务
// 以 JSON 快照的形式导出和恢复全部治理数据
type BackupService struct {
	db          *gorm.DB
	backupDir   string
	compression bool
}

// BackupInfo 备份信息
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// backupArchive 备份文件内容
type backupArchive struct {
	Version     int                           `json:"version"`
	CreatedAt   time.Time                     `json:"created_at"`
	Submissions []model.SubmissionModel       `json:"submissions"`
	Requests    []model.ApprovalRequestModel  `json:"approval_requests"`
	AuditLogs   []model.AuditLogModel         `json:"audit_logs"`
	Counters    []model.CaseCounterModel      `json:"case_counters"`
}

// NewBackupService 创建备份服务
func NewBackupService(db *gorm.DB, backupDir string) *BackupService {
	// 确保备份目录存在
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		// 创建失败时退化到临时目录
		backupDir = os.TempDir()
	}

	return &BackupService{
		db:          db,
		backupDir:   backupDir,
		compression: true,
	}
}

// CreateBackup 创建备份
func (s *BackupService) CreateBackup(ctx context.Context) (string, error) {
	archive := backupArchive{
		Version:   1,
		CreatedAt: time.Now(),
	}

	if err := s.db.WithContext(ctx).Find(&archive.Submissions).Error; err != nil {
		return "", fmt.Errorf("failed to export submissions: %w", err)
	}
	if err := s.db.WithContext(ctx).Find(&archive.Requests).Error; err != nil {
		return "", fmt.Errorf("failed to export approval requests: %w", err)
	}
	if err := s.db.WithContext(ctx).Find(&archive.AuditLogs).Error; err != nil {
		return "", fmt.Errorf("failed to export audit logs: %w", err)
	}
	if err := s.db.WithContext(ctx).Find(&archive.Counters).Error; err != nil {
		return "", fmt.Errorf("failed to export case counters: %w", err)
	}

	timestamp := archive.CreatedAt.Format("20060102_150405")
	ext := ".json"
	if s.compression {
		ext = ".json.gz"
	}
	filename := fmt.Sprintf("backup_%s%s", timestamp, ext)
	backupPath := filepath.Join(s.backupDir, filename)

	file, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer file.Close()

	var writer io.Writer = file
	if s.compression {
		gzWriter := gzip.NewWriter(file)
		defer gzWriter.Close()
		writer = gzWriter
	}

	if err := json.NewEncoder(writer).Encode(&archive); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	return backupPath, nil
}

// RestoreBackup 恢复备份
// 按主键覆盖写入,备份中不存在的行保持原样
func (s *BackupService) RestoreBackup(ctx context.Context, backupPath string) error {
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup file not found: %s", backupPath)
	}

	file, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(backupPath, ".gz") {
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	var archive backupArchive
	if err := json.NewDecoder(reader).Decode(&archive); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := clause.OnConflict{UpdateAll: true}
		for i := range archive.Submissions {
			if err := tx.Clauses(upsert).Create(&archive.Submissions[i]).Error; err != nil {
				return fmt.Errorf("failed to restore submission %s: %w", archive.Submissions[i].ID, err)
			}
		}
		for i := range archive.Requests {
			if err := tx.Clauses(upsert).Create(&archive.Requests[i]).Error; err != nil {
				return fmt.Errorf("failed to restore approval request %s: %w", archive.Requests[i].ID, err)
			}
		}
		for i := range archive.AuditLogs {
			if err := tx.Clauses(upsert).Create(&archive.AuditLogs[i]).Error; err != nil {
				return fmt.Errorf("failed to restore audit log %s: %w", archive.AuditLogs[i].ID, err)
			}
		}
		for i := range archive.Counters {
			if err := tx.Clauses(upsert).Create(&archive.Counters[i]).Error; err != nil {
				return fmt.Errorf("failed to restore case counter %d: %w", archive.Counters[i].Year, err)
			}
		}
		return nil
	})
}

// ListBackups 列出所有备份
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	var backups []BackupInfo

	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isBackupFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backups = append(backups, BackupInfo{
			Filename:  entry.Name(),
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	return backups, nil
}

// BackupDir 返回备份目录
func (s *BackupService) BackupDir() string {
	return s.backupDir
}

// DeleteBackup 删除备份
func (s *BackupService) DeleteBackup(ctx context.Context, filename string) error {
	// 文件名不允许携带路径,防止目录穿越
	if filename != filepath.Base(filename) {
		return fmt.Errorf("invalid backup filename: %s", filename)
	}
	if !isBackupFile(filename) {
		return fmt.Errorf("not a backup file: %s", filename)
	}

	backupPath := filepath.Join(s.backupDir, filename)
	if err := os.Remove(backupPath); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	return nil
}

// isBackupFile 判断是否是备份文件
func isBackupFile(filename string) bool {
	if !strings.HasPrefix(filename, "backup_") {
		return false
	}
	return strings.HasSuffix(filename, ".json") || strings.HasSuffix(filename, ".json.gz")
}
