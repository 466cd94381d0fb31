package repository

import (
	"github.com/mautops/governance-gin/internal/model"
	"gorm.io/gorm"
)

// ApprovalRequestRepository 审批请求仓储接口
type ApprovalRequestRepository interface {
	Save(req *model.ApprovalRequestModel) error
	FindByID(id string) (*model.ApprovalRequestModel, error)
	FindBySubmission(submissionID string) ([]*model.ApprovalRequestModel, error)
	FindPendingBySubmission(submissionID string) ([]*model.ApprovalRequestModel, error)
	FindPendingByStage(submissionID string, stageCode string) (*model.ApprovalRequestModel, error)
}

// approvalRequestRepository 审批请求仓储实现
type approvalRequestRepository struct {
	db *gorm.DB
}

// NewApprovalRequestRepository 创建审批请求仓储
func NewApprovalRequestRepository(db *gorm.DB) ApprovalRequestRepository {
	return &approvalRequestRepository{db: db}
}

// Save 保存审批请求
func (r *approvalRequestRepository) Save(req *model.ApprovalRequestModel) error {
	return r.db.Save(req).Error
}

// FindByID 根据 ID 查找审批请求
func (r *approvalRequestRepository) FindByID(id string) (*model.ApprovalRequestModel, error) {
	var req model.ApprovalRequestModel
	if err := r.db.Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// FindBySubmission 查找提案的全部审批请求
func (r *approvalRequestRepository) FindBySubmission(submissionID string) ([]*model.ApprovalRequestModel, error) {
	var reqs []*model.ApprovalRequestModel
	err := r.db.Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&reqs).Error
	return reqs, err
}

// FindPendingBySubmission 查找提案的待处理审批请求
func (r *approvalRequestRepository) FindPendingBySubmission(submissionID string) ([]*model.ApprovalRequestModel, error) {
	var reqs []*model.ApprovalRequestModel
	err := r.db.Where("submission_id = ? AND status = ?", submissionID, model.RequestStatusPending).
		Order("created_at ASC").
		Find(&reqs).Error
	return reqs, err
}

// FindPendingByStage 查找提案在指定环节上的待处理请求,不存在时返回 gorm.ErrRecordNotFound
func (r *approvalRequestRepository) FindPendingByStage(submissionID string, stageCode string) (*model.ApprovalRequestModel, error) {
	var req model.ApprovalRequestModel
	err := r.db.Where("submission_id = ? AND stage_code = ? AND status = ?",
		submissionID, stageCode, model.RequestStatusPending).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}
