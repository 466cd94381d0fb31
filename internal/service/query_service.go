package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mautops/governance-gin/internal/model"
	"github.com/mautops/governance-gin/internal/repository"
	"github.com/mautops/governance-gin/internal/utils"
	"github.com/mautops/governance-gin/internal/workflow"
	"gorm.io/gorm"
)

// QueryService 查询服务接口
type QueryService interface {
	ListSubmissions(filter *ListSubmissionsFilter) ([]*workflow.Submission, int64, error)
	GetAuditTrail(submissionID string) ([]workflow.AuditEntry, error)
	GetRequests(submissionID string) ([]*model.ApprovalRequestModel, error)
}

// ListSubmissionsFilter 提案列表查询过滤器
type ListSubmissionsFilter struct {
	Stage           *string
	Status          *string
	LifecycleStatus *string
	EntityType      *string
	CreatedBy       *string
	Year            *int
	Page            int
	PageSize        int
	SortBy          string
	Order           string
}

// queryService 查询服务实现
type queryService struct {
	db          *gorm.DB
	subRepo     repository.SubmissionRepository
	requestRepo repository.ApprovalRequestRepository
}

// NewQueryService 创建查询服务
func NewQueryService(db *gorm.DB) QueryService {
	return &queryService{
		db:          db,
		subRepo:     repository.NewSubmissionRepository(db),
		requestRepo: repository.NewApprovalRequestRepository(db),
	}
}

// ListSubmissions 列出提案
func (s *queryService) ListSubmissions(filter *ListSubmissionsFilter) ([]*workflow.Submission, int64, error) {
	query := s.db.Model(&model.SubmissionModel{})

	if filter.Stage != nil {
		query = query.Where("stage = ?", *filter.Stage)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.LifecycleStatus != nil {
		query = query.Where("lifecycle_status = ?", *filter.LifecycleStatus)
	}
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Year != nil {
		query = query.Where("year = ?", *filter.Year)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	// 排序字段走白名单,防止 SQL 注入
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	if err := utils.ValidateSortField(sortBy); err != nil {
		return nil, 0, fmt.Errorf("invalid sort field: %w", err)
	}

	order := filter.Order
	if order == "" {
		order = "desc"
	}
	if err := utils.ValidateSortOrder(order); err != nil {
		return nil, 0, fmt.Errorf("invalid sort order: %w", err)
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, strings.ToUpper(order)))

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	var models []model.SubmissionModel
	if err := query.Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query submissions: %w", err)
	}

	// 直接反序列化聚合,避免 N+1 查询
	subs := make([]*workflow.Submission, 0, len(models))
	for _, sm := range models {
		var sub workflow.Submission
		if err := json.Unmarshal(sm.Data, &sub); err != nil {
			continue // 跳过无法反序列化的行
		}
		subs = append(subs, &sub)
	}

	return subs, total, nil
}

// GetAuditTrail 获取提案的审计轨迹
func (s *queryService) GetAuditTrail(submissionID string) ([]workflow.AuditEntry, error) {
	sm, err := s.subRepo.FindByID(submissionID)
	if err == gorm.ErrRecordNotFound {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	var sub workflow.Submission
	if err := json.Unmarshal(sm.Data, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal submission: %w", err)
	}
	return sub.AuditTrail, nil
}

// GetRequests 获取提案的审批请求记录
func (s *queryService) GetRequests(submissionID string) ([]*model.ApprovalRequestModel, error) {
	requests, err := s.requestRepo.FindBySubmission(submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get requests: %w", err)
	}
	return requests, nil
}
