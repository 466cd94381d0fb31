package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mautops/governance-gin/internal/integration"
	"github.com/mautops/governance-gin/internal/metrics"
	"github.com/mautops/governance-gin/internal/websocket"
	"github.com/mautops/governance-gin/internal/workflow"
)

// SubmissionService 提案服务接口
type SubmissionService interface {
	Create(ctx context.Context, req *CreateSubmissionRequest, actor workflow.Actor) (*workflow.Submission, error)
	Get(id string) (*workflow.Submission, error)
	RunAction(ctx context.Context, id string, action workflow.Action, actor workflow.Actor) (*workflow.Submission, error)
	RecordDecision(ctx context.Context, id string, stage workflow.StageCode, decision workflow.StageStatus, comment string, actor workflow.Actor) (*workflow.Submission, error)
	Reconcile(ctx context.Context, id string) (*workflow.Submission, error)
	ReconcileAll(ctx context.Context) (int, error)
}

// CreateSubmissionRequest 创建提案请求
// @Description 创建治理提案的请求参数
type CreateSubmissionRequest struct {
	Title           string                   `json:"title" example:"Customer portal revamp" binding:"required"` // 提案标题
	Description     string                   `json:"description" example:"Replace the legacy portal"`           // 提案描述
	Classification  string                   `json:"classification" example:"Project"`                          // 提案分类
	Financials      json.RawMessage          `json:"financials" swaggertype:"object"`                           // 财务数据(JSON 格式)
	SponsorContacts workflow.SponsorContacts `json:"sponsor_contacts"`                                          // 发起人配置
}

// ActionRequest 生命周期动作请求
// @Description 执行生命周期动作的请求参数
type ActionRequest struct {
	Action string `json:"action" example:"SEND_TO_SPONSOR" binding:"required"` // 动作名称
}

// DecisionRequest 审批决定请求
// @Description 记录审批环节决定的请求参数
type DecisionRequest struct {
	Stage    string `json:"stage" example:"BUSINESS" binding:"required"`     // 审批环节
	Decision string `json:"decision" example:"Approved" binding:"required"`  // 决定: Approved, Rejected, Need More Info
	Comment  string `json:"comment" example:"Business case looks sound"`     // 审批意见
}

// submissionService 提案服务实现
type submissionService struct {
	manager     integration.SubmissionManager
	auditLogSvc AuditLogService
	hub         *websocket.Hub
}

// NewSubmissionService 创建提案服务
func NewSubmissionService(manager integration.SubmissionManager, auditLogSvc AuditLogService, hub *websocket.Hub) SubmissionService {
	return &submissionService{
		manager:     manager,
		auditLogSvc: auditLogSvc,
		hub:         hub,
	}
}

// Create 创建提案
func (s *submissionService) Create(ctx context.Context, req *CreateSubmissionRequest, actor workflow.Actor) (*workflow.Submission, error) {
	sub, err := s.manager.Create(&integration.CreateSubmissionInput{
		Title:           req.Title,
		Description:     req.Description,
		Classification:  req.Classification,
		Financials:      req.Financials,
		SponsorContacts: req.SponsorContacts,
		CreatedBy:       actor.ID,
	}, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	metrics.RecordSubmissionCreated()
	s.recordAudit(ctx, actor, "create", sub.ID, map[string]string{"title": sub.Title})
	s.publish("created", sub, "")

	return sub, nil
}

// Get 获取提案详情
func (s *submissionService) Get(id string) (*workflow.Submission, error) {
	return s.manager.Get(id)
}

// RunAction 执行生命周期动作
func (s *submissionService) RunAction(ctx context.Context, id string, action workflow.Action, actor workflow.Actor) (*workflow.Submission, error) {
	sub, err := s.manager.RunAction(id, action, actor)
	if err != nil {
		if workflow.IsIllegalTransition(err) {
			metrics.RecordLifecycleAction(string(action), "illegal")
		} else {
			metrics.RecordLifecycleAction(string(action), "error")
		}
		return nil, err
	}

	metrics.RecordLifecycleAction(string(action), "ok")
	s.recordAudit(ctx, actor, "run_action", id, map[string]string{
		"action":           string(action),
		"lifecycle_status": string(sub.Workflow.LifecycleStatus),
	})
	s.publish("action", sub, string(action))

	return sub, nil
}

// RecordDecision 记录审批环节决定并立即对账
// 决定落库后执行一次对账,满足条件时提案在同一请求内推进一步
func (s *submissionService) RecordDecision(ctx context.Context, id string, stage workflow.StageCode, decision workflow.StageStatus, comment string, actor workflow.Actor) (*workflow.Submission, error) {
	sub, err := s.manager.RecordApprovalDecision(id, stage, decision, comment, actor)
	if err != nil {
		return nil, err
	}

	metrics.RecordApprovalDecision(string(stage), string(decision))
	s.recordAudit(ctx, actor, "record_decision", id, map[string]string{
		"stage":    string(stage),
		"decision": string(decision),
	})
	s.publish("decision", sub, "")

	reconciled, err := s.Reconcile(ctx, id)
	if err != nil {
		// 决定已经落库,对账失败留给下一次周期对账重试
		return sub, nil
	}
	return reconciled, nil
}

// Reconcile 对单个提案执行一次对账
func (s *submissionService) Reconcile(ctx context.Context, id string) (*workflow.Submission, error) {
	before, err := s.manager.Get(id)
	if err != nil {
		return nil, err
	}

	sub, err := s.manager.Reconcile(ctx, id)
	if err != nil {
		metrics.RecordReconciliation("error")
		return nil, err
	}

	if sub.Workflow.LifecycleStatus != before.Workflow.LifecycleStatus {
		metrics.RecordReconciliation("advanced")
		s.publish("reconciled", sub, "")
	} else {
		metrics.RecordReconciliation("noop")
	}
	return sub, nil
}

// ReconcileAll 对全部非终态提案执行一次对账
func (s *submissionService) ReconcileAll(ctx context.Context) (int, error) {
	return s.manager.ReconcileAll(ctx)
}

// recordAudit 记录操作审计日志
func (s *submissionService) recordAudit(ctx context.Context, actor workflow.Actor, action string, submissionID string, details map[string]string) {
	if s.auditLogSvc == nil || actor.ID == "" {
		return
	}
	_ = s.auditLogSvc.RecordAction(ctx, actor.ID, action, "submission", submissionID, details)
}

// publish 推送提案事件
func (s *submissionService) publish(eventType string, sub *workflow.Submission, action string) {
	if s.hub == nil {
		return
	}
	s.hub.PublishEvent(websocket.SubmissionEvent{
		Type:            eventType,
		SubmissionID:    sub.ID,
		Action:          action,
		Stage:           string(sub.Stage),
		Status:          sub.Status,
		LifecycleStatus: string(sub.Workflow.LifecycleStatus),
	})
}
