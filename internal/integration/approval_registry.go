package integration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/governance-gin/internal/model"
	"github.com/mautops/governance-gin/internal/repository"
	"github.com/mautops/governance-gin/internal/workflow"
	"gorm.io/gorm"
)

// ApprovalRegistry 审批请求注册表
// 负责创建、取消与汇总某个提案的各环节审批请求
type ApprovalRegistry interface {
	// CreateRequests 为提案的每个适用环节创建审批请求
	// 对同一 (提案, 环节) 已有待处理请求时幂等跳过
	CreateRequests(sub *workflow.Submission, requestedBy string) ([]*model.ApprovalRequestModel, error)
	// CancelPending 把提案的全部待处理请求置为 CANCELLED 并记录原因
	// 用于重新提交或发起人变更,防止旧请求上的迟到决定影响新一轮评审
	CancelPending(submissionID string, reason string) error
	// Resolve 把指定环节的待处理请求落为最终状态
	Resolve(submissionID string, stageCode workflow.StageCode, status string, decidedBy string, comment string) error
	// Summarize 只读汇总,供对账引擎消费,从不修改状态
	Summarize(sub *workflow.Submission) (workflow.ApprovalSummary, error)
	// ListRequests 返回提案的全部请求记录
	ListRequests(submissionID string) ([]*model.ApprovalRequestModel, error)
}

// approvalRegistry 审批请求注册表实现
type approvalRegistry struct {
	db   *gorm.DB
	repo repository.ApprovalRequestRepository
}

// NewApprovalRegistry 创建审批请求注册表
func NewApprovalRegistry(db *gorm.DB) ApprovalRegistry {
	return &approvalRegistry{
		db:   db,
		repo: repository.NewApprovalRequestRepository(db),
	}
}

// stageRecipient 环节对应的收件人
// BUSINESS 环节优先业务发起人,缺席时落到其代理
func stageRecipient(code workflow.StageCode, contacts workflow.SponsorContacts) *workflow.Person {
	switch code {
	case workflow.StageCodeBusiness:
		if contacts.BusinessSponsor != nil {
			return contacts.BusinessSponsor
		}
		return contacts.BusinessDelegate
	case workflow.StageCodeTechnology:
		return contacts.TechnologySponsor
	case workflow.StageCodeFinance:
		return contacts.FinanceSponsor
	case workflow.StageCodeBenefits:
		return contacts.BenefitsSponsor
	}
	return nil
}

// CreateRequests 为每个适用环节创建审批请求
func (r *approvalRegistry) CreateRequests(sub *workflow.Submission, requestedBy string) ([]*model.ApprovalRequestModel, error) {
	now := time.Now()
	var created []*model.ApprovalRequestModel

	for _, code := range workflow.ApplicableStageCodes(sub.SponsorContacts) {
		// 幂等: 同一环节已有待处理请求时跳过
		if _, err := r.repo.FindPendingByStage(sub.ID, string(code)); err == nil {
			continue
		} else if err != gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("failed to check outstanding request: %w", err)
		}

		recipient := stageRecipient(code, sub.SponsorContacts)
		req := &model.ApprovalRequestModel{
			ID:           uuid.NewString(),
			SubmissionID: sub.ID,
			StageCode:    string(code),
			Status:       model.RequestStatusPending,
			RequestedBy:  requestedBy,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if recipient != nil {
			req.RecipientID = recipient.ID
			req.RecipientEmail = recipient.Email
		}

		if err := r.repo.Save(req); err != nil {
			return nil, fmt.Errorf("failed to create approval request: %w", err)
		}
		created = append(created, req)
	}

	return created, nil
}

// CancelPending 取消提案的全部待处理请求
func (r *approvalRegistry) CancelPending(submissionID string, reason string) error {
	pending, err := r.repo.FindPendingBySubmission(submissionID)
	if err != nil {
		return fmt.Errorf("failed to list pending requests: %w", err)
	}

	now := time.Now()
	for _, req := range pending {
		req.Status = model.RequestStatusCancelled
		req.CancelReason = reason
		req.UpdatedAt = now
		if err := r.repo.Save(req); err != nil {
			return fmt.Errorf("failed to cancel request %s: %w", req.ID, err)
		}
	}
	return nil
}

// Resolve 落定指定环节的待处理请求
func (r *approvalRegistry) Resolve(submissionID string, stageCode workflow.StageCode, status string, decidedBy string, comment string) error {
	req, err := r.repo.FindPendingByStage(submissionID, string(stageCode))
	if err == gorm.ErrRecordNotFound {
		// 请求可能由旧数据迁移而来,没有对应行时不视为错误
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find pending request: %w", err)
	}

	now := time.Now()
	req.Status = status
	req.DecidedBy = decidedBy
	req.Comment = comment
	req.DecidedAt = &now
	req.UpdatedAt = now
	return r.repo.Save(req)
}

// Summarize 汇总提案当前一轮的审批请求状态
// 每个必需环节取最近一条未取消的请求;被取消的请求不参与汇总,
// 保证旧轮次的迟到决定不会影响新一轮评审。
func (r *approvalRegistry) Summarize(sub *workflow.Submission) (workflow.ApprovalSummary, error) {
	summary := workflow.ApprovalSummary{}

	required := workflow.ApplicableStageCodes(sub.SponsorContacts)
	if len(required) == 0 {
		return summary, nil
	}

	all, err := r.repo.FindBySubmission(sub.ID)
	if err != nil {
		return summary, fmt.Errorf("failed to list requests: %w", err)
	}

	latest := make(map[string]*model.ApprovalRequestModel)
	for _, req := range all {
		if req.Status == model.RequestStatusCancelled {
			continue
		}
		// FindBySubmission 按创建时间升序,后写的覆盖先写的
		latest[req.StageCode] = req
	}

	approvedCount := 0
	for _, code := range required {
		req, ok := latest[string(code)]
		if !ok {
			continue
		}
		summary.Rows = append(summary.Rows, workflow.ApprovalSummaryRow{
			StageCode: code,
			Status:    req.Status,
			Recipient: req.RecipientEmail,
			DecidedBy: req.DecidedBy,
		})
		switch req.Status {
		case model.RequestStatusApproved:
			approvedCount++
		case model.RequestStatusRejected:
			summary.AnyRejected = true
		case model.RequestStatusNeedMoreInfo:
			summary.AnyNeedMoreInfo = true
		}
	}

	summary.AllRequiredApproved = approvedCount == len(required)
	return summary, nil
}

// ListRequests 返回提案的全部请求记录
func (r *approvalRegistry) ListRequests(submissionID string) ([]*model.ApprovalRequestModel, error) {
	return r.repo.FindBySubmission(submissionID)
}
