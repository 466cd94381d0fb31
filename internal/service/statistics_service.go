package service

import (
	"fmt"

	"github.com/mautops/governance-gin/internal/model"
	"gorm.io/gorm"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	GetSubmissionStatisticsByLifecycle() ([]*SubmissionStatisticsByLifecycle, error)
	GetSubmissionStatisticsByStage() ([]*SubmissionStatisticsByStage, error)
	GetSubmissionStatisticsByTime() ([]*SubmissionStatisticsByTime, error)
	GetDecisionStatistics() (*DecisionStatistics, error)
}

// SubmissionStatisticsByLifecycle 按生命周期状态统计
type SubmissionStatisticsByLifecycle struct {
	LifecycleStatus string
	Count           int64
}

// SubmissionStatisticsByStage 按阶段统计
type SubmissionStatisticsByStage struct {
	Stage  string
	Status string
	Count  int64
}

// SubmissionStatisticsByTime 按时间统计
type SubmissionStatisticsByTime struct {
	Date  string
	Count int64
}

// DecisionStatistics 审批决定统计
type DecisionStatistics struct {
	TotalRequests     int64
	PendingCount      int64
	ApprovedCount     int64
	RejectedCount     int64
	NeedMoreInfoCount int64
	CancelledCount    int64
	ApprovalRate      float64
}

// statisticsService 统计服务实现
type statisticsService struct {
	db *gorm.DB
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetSubmissionStatisticsByLifecycle 按生命周期状态统计提案
func (s *statisticsService) GetSubmissionStatisticsByLifecycle() ([]*SubmissionStatisticsByLifecycle, error) {
	var results []struct {
		LifecycleStatus string
		Count           int64
	}

	err := s.db.Model(&model.SubmissionModel{}).
		Select("lifecycle_status, COUNT(*) as count").
		Group("lifecycle_status").
		Scan(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get submission statistics by lifecycle: %w", err)
	}

	stats := make([]*SubmissionStatisticsByLifecycle, 0, len(results))
	for _, r := range results {
		stats = append(stats, &SubmissionStatisticsByLifecycle{
			LifecycleStatus: r.LifecycleStatus,
			Count:           r.Count,
		})
	}

	return stats, nil
}

// GetSubmissionStatisticsByStage 按阶段与展示状态统计提案
func (s *statisticsService) GetSubmissionStatisticsByStage() ([]*SubmissionStatisticsByStage, error) {
	var results []struct {
		Stage  string
		Status string
		Count  int64
	}

	err := s.db.Model(&model.SubmissionModel{}).
		Select("stage, status, COUNT(*) as count").
		Group("stage, status").
		Scan(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get submission statistics by stage: %w", err)
	}

	stats := make([]*SubmissionStatisticsByStage, 0, len(results))
	for _, r := range results {
		stats = append(stats, &SubmissionStatisticsByStage{
			Stage:  r.Stage,
			Status: r.Status,
			Count:  r.Count,
		})
	}

	return stats, nil
}

// GetSubmissionStatisticsByTime 按创建日期统计提案
func (s *statisticsService) GetSubmissionStatisticsByTime() ([]*SubmissionStatisticsByTime, error) {
	var results []struct {
		Date  string
		Count int64
	}

	err := s.db.Model(&model.SubmissionModel{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Group("DATE(created_at)").
		Order("date DESC").
		Scan(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get submission statistics by time: %w", err)
	}

	stats := make([]*SubmissionStatisticsByTime, 0, len(results))
	for _, r := range results {
		stats = append(stats, &SubmissionStatisticsByTime{
			Date:  r.Date,
			Count: r.Count,
		})
	}

	return stats, nil
}

// GetDecisionStatistics 统计审批请求的决定分布
func (s *statisticsService) GetDecisionStatistics() (*DecisionStatistics, error) {
	var results []struct {
		Status string
		Count  int64
	}

	err := s.db.Model(&model.ApprovalRequestModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get decision statistics: %w", err)
	}

	stats := &DecisionStatistics{}
	for _, r := range results {
		stats.TotalRequests += r.Count
		switch r.Status {
		case model.RequestStatusPending:
			stats.PendingCount = r.Count
		case model.RequestStatusApproved:
			stats.ApprovedCount = r.Count
		case model.RequestStatusRejected:
			stats.RejectedCount = r.Count
		case model.RequestStatusNeedMoreInfo:
			stats.NeedMoreInfoCount = r.Count
		case model.RequestStatusCancelled:
			stats.CancelledCount = r.Count
		}
	}

	// 取消的请求属于作废轮次,不计入通过率
	decided := stats.ApprovedCount + stats.RejectedCount + stats.NeedMoreInfoCount
	if decided > 0 {
		stats.ApprovalRate = float64(stats.ApprovedCount) / float64(decided) * 100
	}

	return stats, nil
}
