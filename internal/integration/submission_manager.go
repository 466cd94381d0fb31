package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mautops/governance-gin/internal/model"
	"github.com/mautops/governance-gin/internal/repository"
	"github.com/mautops/governance-gin/internal/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// assignPMTaskTitle 资金获批后必须存在的下游任务标题
const assignPMTaskTitle = "Assign project manager"

// CreateSubmissionInput 创建提案入参
type CreateSubmissionInput struct {
	Title           string
	Description     string
	Classification  string
	Financials      json.RawMessage
	SponsorContacts workflow.SponsorContacts
	CreatedBy       string
}

// SubmissionManager 提案管理器
// 所有变更操作都是对单个提案的读-改-写单元: 读当前值、计算新值、落库,
// 中间不跨越任何挂起点,同一提案之间的并发写交由持久层 last-writer-wins
type SubmissionManager interface {
	Create(input *CreateSubmissionInput, actor workflow.Actor) (*workflow.Submission, error)
	Get(id string) (*workflow.Submission, error)
	// RunAction 执行命名动作,非法动作返回 IllegalTransitionError 且不产生任何副作用
	RunAction(id string, action workflow.Action, actor workflow.Actor) (*workflow.Submission, error)
	// RecordApprovalDecision 记录某环节的审批决定
	RecordApprovalDecision(id string, stage workflow.StageCode, decision workflow.StageStatus, comment string, actor workflow.Actor) (*workflow.Submission, error)
	// Reconcile 按外部信号推进生命周期,永远成功,可能是 no-op
	Reconcile(ctx context.Context, id string) (*workflow.Submission, error)
	// ReconcileAll 对全部非终态提案各执行一次对账,返回推进数量
	ReconcileAll(ctx context.Context) (int, error)
	// Registry 暴露审批请求注册表
	Registry() ApprovalRegistry
}

// dbSubmissionManager 基于数据库的提案管理器
type dbSubmissionManager struct {
	db       *gorm.DB
	repo     repository.SubmissionRepository
	registry ApprovalRegistry
	board    BoardClient
	notifier Notifier
	logger   *logrus.Logger
}

// NewSubmissionManager 创建提案管理器
func NewSubmissionManager(db *gorm.DB, registry ApprovalRegistry, board BoardClient, notifier Notifier, logger *logrus.Logger) SubmissionManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &dbSubmissionManager{
		db:       db,
		repo:     repository.NewSubmissionRepository(db),
		registry: registry,
		board:    board,
		notifier: notifier,
		logger:   logger,
	}
}

// Registry 暴露审批请求注册表
func (m *dbSubmissionManager) Registry() ApprovalRegistry {
	return m.registry
}

// Create 创建提案
// 案件号由按年单调计数器分配,创建必定写入首条审计条目
func (m *dbSubmissionManager) Create(input *CreateSubmissionInput, actor workflow.Actor) (*workflow.Submission, error) {
	now := time.Now()

	id, err := m.repo.NextCaseID(now.Year())
	if err != nil {
		return nil, fmt.Errorf("failed to allocate case id: %w", err)
	}

	sub := &workflow.Submission{
		ID:             id,
		Title:          input.Title,
		Description:    input.Description,
		Classification: input.Classification,
		Financials:     input.Financials,
		Workflow: workflow.Workflow{
			LifecycleStatus: workflow.LifecycleDraft,
			LastSavedAt:     now,
		},
		SponsorContacts: input.SponsorContacts,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedBy:       input.CreatedBy,
	}
	sub = workflow.Normalize(sub)

	sub = workflow.AppendAudit(sub, &workflow.AuditEntry{
		Action:     workflow.ActionCreate,
		Note:       "submission created",
		ActorName:  actor.Name,
		ActorEmail: actor.Email,
		CreatedAt:  now,
	})

	if err := m.persist(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Get 获取提案,读取路径始终经过规范化保证旧数据兼容
func (m *dbSubmissionManager) Get(id string) (*workflow.Submission, error) {
	sm, err := m.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	var sub workflow.Submission
	if err := json.Unmarshal(sm.Data, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal submission: %w", err)
	}
	return workflow.Normalize(&sub), nil
}

// RunAction 执行命名动作
func (m *dbSubmissionManager) RunAction(id string, action workflow.Action, actor workflow.Actor) (*workflow.Submission, error) {
	sub, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	result, err := workflow.ApplyAction(sub, action, actor, time.Now())
	if err != nil {
		return nil, err
	}
	next := result.Submission

	// 开启新一轮评审: 先取消旧请求,再创建新一轮,迟到的旧决定无法影响本轮
	if result.OpensReviewRound {
		if err := m.registry.CancelPending(next.ID, result.CancelReason); err != nil {
			return nil, fmt.Errorf("failed to cancel stale requests: %w", err)
		}
		if _, err := m.registry.CreateRequests(next, actor.ID); err != nil {
			return nil, fmt.Errorf("failed to create approval requests: %w", err)
		}
	}

	if err := m.persist(next); err != nil {
		return nil, err
	}

	// 每个成功动作恰好触发一次通知,失败不回滚状态转换
	m.notifyTransition(next, string(action))

	return next, nil
}

// RecordApprovalDecision 记录审批决定
// 环节未配置返回 ErrUnknownStage,环节已有结论返回 ErrStageNotPending
func (m *dbSubmissionManager) RecordApprovalDecision(id string, stage workflow.StageCode, decision workflow.StageStatus, comment string, actor workflow.Actor) (*workflow.Submission, error) {
	switch decision {
	case workflow.StageApproved, workflow.StageRejected, workflow.StageNeedMoreInfo:
	default:
		return nil, fmt.Errorf("invalid approval decision: %s", decision)
	}

	sub, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	next := sub.Clone()
	rec := next.FindStage(stage)
	if rec == nil {
		return nil, workflow.ErrUnknownStage
	}
	if rec.Status != workflow.StagePending {
		return nil, workflow.ErrStageNotPending
	}

	now := time.Now()
	rec.Status = decision
	rec.DecidedByUserID = actor.ID
	rec.ActingAs = actingAsFor(stage, next.SponsorContacts, actor)
	rec.Comment = comment
	rec.DecidedAt = &now
	next.UpdatedAt = now
	next.Workflow.LastSavedAt = now

	if err := m.registry.Resolve(next.ID, stage, string(decision), actor.ID, comment); err != nil {
		return nil, fmt.Errorf("failed to resolve approval request: %w", err)
	}

	next = workflow.AppendAudit(next, &workflow.AuditEntry{
		Action:     workflow.ActionApprovalDecision,
		Note:       fmt.Sprintf("%s stage decided: %s", stage, decision),
		ActorName:  actor.Name,
		ActorEmail: actor.Email,
		CreatedAt:  now,
	})

	if err := m.persist(next); err != nil {
		return nil, err
	}
	return next, nil
}

// actingAsFor 判定决定人身份
// 业务环节由代理人决定时标记 DELEGATE
func actingAsFor(stage workflow.StageCode, contacts workflow.SponsorContacts, actor workflow.Actor) workflow.ActingAs {
	if stage == workflow.StageCodeBusiness &&
		contacts.BusinessDelegate != nil &&
		actor.ID == contacts.BusinessDelegate.ID {
		return workflow.ActingAsDelegate
	}
	return workflow.ActingAsSponsor
}

// Reconcile 单步推进生命周期
func (m *dbSubmissionManager) Reconcile(ctx context.Context, id string) (*workflow.Submission, error) {
	sub, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	summary, err := m.registry.Summarize(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize approvals: %w", err)
	}

	gates := m.gateSignals(ctx, sub)

	result := workflow.Reconcile(sub, summary, gates, time.Now())
	if !result.Changed {
		return sub, nil
	}
	next := result.Submission

	if result.CancelReason != "" {
		if err := m.registry.CancelPending(next.ID, result.CancelReason); err != nil {
			return nil, fmt.Errorf("failed to cancel stale requests: %w", err)
		}
	}

	if err := m.persist(next); err != nil {
		return nil, err
	}

	// FR_APPROVED 时确保下游"指派项目经理"任务存在,幂等
	if result.EnsurePMTask {
		if err := m.board.EnsureTask(ctx, next.ID, assignPMTaskTitle); err != nil {
			m.logger.WithField("submission_id", next.ID).
				WithError(err).Warn("failed to ensure assign-PM task, will retry on next reconcile")
		}
	}

	m.notifyTransition(next, string(workflow.ActionReconcile))

	return next, nil
}

// ReconcileAll 对全部非终态提案执行一次对账
func (m *dbSubmissionManager) ReconcileAll(ctx context.Context) (int, error) {
	models, err := m.repo.FindActive()
	if err != nil {
		return 0, fmt.Errorf("failed to list active submissions: %w", err)
	}

	advanced := 0
	for _, sm := range models {
		before := sm.LifecycleStatus
		sub, err := m.Reconcile(ctx, sm.ID)
		if err != nil {
			m.logger.WithField("submission_id", sm.ID).WithError(err).Warn("reconcile failed")
			continue
		}
		if string(sub.Workflow.LifecycleStatus) != before {
			advanced++
		}
	}
	return advanced, nil
}

// gateSignals 采集门禁任务信号,仅在 PGO/FGO 评审状态下访问看板
func (m *dbSubmissionManager) gateSignals(ctx context.Context, sub *workflow.Submission) workflow.GateSignals {
	switch sub.Workflow.LifecycleStatus {
	case workflow.LifecycleAtPGOFGOReview, workflow.LifecycleFRAtPGOFGOReview:
	default:
		return workflow.GateSignals{}
	}

	finance, err := m.board.IsGatingTaskDone(ctx, sub.ID, workflow.GateLaneFinance)
	if err != nil {
		m.logger.WithField("submission_id", sub.ID).WithError(err).Warn("finance gate lookup failed")
	}
	governance, err := m.board.IsGatingTaskDone(ctx, sub.ID, workflow.GateLaneGovernance)
	if err != nil {
		m.logger.WithField("submission_id", sub.ID).WithError(err).Warn("governance gate lookup failed")
	}
	return workflow.GateSignals{FinanceDone: finance, GovernanceDone: governance}
}

// notifyTransition 触发一次转换通知
func (m *dbSubmissionManager) notifyTransition(sub *workflow.Submission, action string) {
	if m.notifier == nil {
		return
	}
	recipient := sub.CreatedBy
	if sub.SponsorContacts.BusinessSponsor != nil {
		recipient = sub.SponsorContacts.BusinessSponsor.Email
	}
	title := fmt.Sprintf("Submission %s: %s", sub.ID, action)
	body := fmt.Sprintf("Submission %s is now %s (%s).", sub.ID, sub.Status, sub.Workflow.LifecycleStatus)
	m.notifier.Notify(recipient, title, body, "/submissions/"+sub.ID)
}

// persist 序列化聚合并落库
func (m *dbSubmissionManager) persist(sub *workflow.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	year, seq := parseCaseID(sub.ID)
	sm := &model.SubmissionModel{
		ID:              sub.ID,
		Year:            year,
		Seq:             seq,
		Stage:           string(sub.Stage),
		Status:          sub.Status,
		LifecycleStatus: string(sub.Workflow.LifecycleStatus),
		EntityType:      string(sub.Workflow.EntityType),
		Data:            data,
		CreatedAt:       sub.CreatedAt,
		UpdatedAt:       sub.UpdatedAt,
		CreatedBy:       sub.CreatedBy,
	}
	if err := m.repo.Save(sm); err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

// parseCaseID 从案件号解析年份与序号
func parseCaseID(id string) (int, int) {
	var year, seq int
	_, _ = fmt.Sscanf(id, "SP-%d-%d", &year, &seq)
	return year, seq
}
