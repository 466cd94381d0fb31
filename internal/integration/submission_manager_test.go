package integration_test

import (
	"context"
	"testing"

	"github.com/mautops/governance-gin/internal/database"
	"github.com/mautops/governance-gin/internal/integration"
	"github.com/mautops/governance-gin/internal/model"
	"github.com/mautops/governance-gin/internal/workflow"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 创建内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// fakeBoardClient 可控的看板桩实现
type fakeBoardClient struct {
	gates map[workflow.GateLane]bool
	tasks []string
}

func (f *fakeBoardClient) IsGatingTaskDone(ctx context.Context, projectID string, lane workflow.GateLane) (bool, error) {
	return f.gates[lane], nil
}

func (f *fakeBoardClient) EnsureTask(ctx context.Context, projectID string, title string) error {
	f.tasks = append(f.tasks, title)
	return nil
}

// fakeNotifier 记录通知调用
type fakeNotifier struct {
	titles []string
}

func (f *fakeNotifier) Notify(recipient string, title string, body string, link string) {
	f.titles = append(f.titles, title)
}

type managerFixture struct {
	manager  integration.SubmissionManager
	registry integration.ApprovalRegistry
	board    *fakeBoardClient
	notifier *fakeNotifier
}

func setupManager(t *testing.T) *managerFixture {
	db := setupTestDB(t)
	registry := integration.NewApprovalRegistry(db)
	board := &fakeBoardClient{gates: map[workflow.GateLane]bool{}}
	notifier := &fakeNotifier{}
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return &managerFixture{
		manager:  integration.NewSubmissionManager(db, registry, board, notifier, log),
		registry: registry,
		board:    board,
		notifier: notifier,
	}
}

func createDraft(t *testing.T, f *managerFixture) *workflow.Submission {
	sub, err := f.manager.Create(&integration.CreateSubmissionInput{
		Title: "New ERP rollout",
		SponsorContacts: workflow.SponsorContacts{
			BusinessSponsor: &workflow.Person{ID: "biz-1", DisplayName: "Biz Sponsor", Email: "biz@example.com"},
			FinanceSponsor:  &workflow.Person{ID: "fin-1", DisplayName: "Fin Sponsor", Email: "fin@example.com"},
		},
		CreatedBy: "author@example.com",
	}, workflow.Actor{ID: "u1", Name: "Author", Email: "author@example.com"})
	require.NoError(t, err)
	return sub
}

// TestManagerCreate 测试创建提案分配案件号并写入首条审计
func TestManagerCreate(t *testing.T) {
	f := setupManager(t)
	sub := createDraft(t, f)

	assert.Regexp(t, `^SP-\d{4}-0001$`, sub.ID)
	assert.Equal(t, workflow.LifecycleDraft, sub.Workflow.LifecycleStatus)
	assert.Equal(t, workflow.StageProposal, sub.Stage)
	assert.Equal(t, "Draft", sub.Status)

	require.Len(t, sub.AuditTrail, 1)
	assert.Equal(t, workflow.ActionCreate, sub.AuditTrail[0].Action)

	// 第二个提案序号递增
	second := createDraft(t, f)
	assert.Regexp(t, `^SP-\d{4}-0002$`, second.ID)

	// 可以读回且与写入一致
	loaded, err := f.manager.Get(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, loaded.ID)
	assert.Equal(t, "New ERP rollout", loaded.Title)
}

// TestManagerGetNotFound 测试读取不存在的提案
func TestManagerGetNotFound(t *testing.T) {
	f := setupManager(t)

	_, err := f.manager.Get("SP-2025-9999")
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

// TestManagerSendToSponsorCreatesRequests 测试提交评审创建审批请求
func TestManagerSendToSponsorCreatesRequests(t *testing.T) {
	f := setupManager(t)
	sub := createDraft(t, f)

	next, err := f.manager.RunAction(sub.ID, workflow.ActionSendToSponsor, workflow.Actor{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleAtSponsorReview, next.Workflow.LifecycleStatus)

	requests, err := f.registry.ListRequests(sub.ID)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	for _, req := range requests {
		assert.Equal(t, model.RequestStatusPending, req.Status)
	}

	// 状态转换触发一次通知
	assert.Len(t, f.notifier.titles, 1)
}

// TestManagerIllegalActionNoSideEffects 测试非法动作不产生副作用
func TestManagerIllegalActionNoSideEffects(t *testing.T) {
	f := setupManager(t)
	sub := createDraft(t, f)

	_, err := f.manager.RunAction(sub.ID, workflow.ActionSPOApprove, workflow.Actor{})
	require.Error(t, err)
	assert.True(t, workflow.IsIllegalTransition(err))

	loaded, err := f.manager.Get(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleDraft, loaded.Workflow.LifecycleStatus)
	require.Len(t, loaded.AuditTrail, 1)

	requests, err := f.registry.ListRequests(sub.ID)
	require.NoError(t, err)
	assert.Empty(t, requests)
	assert.Empty(t, f.notifier.titles)
}

// TestManagerApprovalDecisionErrors 测试审批决定的错误分支
func TestManagerApprovalDecisionErrors(t *testing.T) {
	f := setupManager(t)
	sub := createDraft(t, f)
	_, err := f.manager.RunAction(sub.ID, workflow.ActionSendToSponsor, workflow.Actor{ID: "u1"})
	require.NoError(t, err)

	// 未配置的环节
	_, err = f.manager.RecordApprovalDecision(sub.ID, workflow.StageCodeBenefits, workflow.StageApproved, "", workflow.Actor{ID: "fin-1"})
	assert.ErrorIs(t, err, workflow.ErrUnknownStage)

	// 非法决定取值
	_, err = f.manager.RecordApprovalDecision(sub.ID, workflow.StageCodeBusiness, workflow.StagePending, "", workflow.Actor{ID: "biz-1"})
	assert.Error(t, err)

	// 重复决定
	_, err = f.manager.RecordApprovalDecision(sub.ID, workflow.StageCodeBusiness, workflow.StageApproved, "ok", workflow.Actor{ID: "biz-1"})
	require.NoError(t, err)
	_, err = f.manager.RecordApprovalDecision(sub.ID, workflow.StageCodeBusiness, workflow.StageApproved, "again", workflow.Actor{ID: "biz-1"})
	assert.ErrorIs(t, err, workflow.ErrStageNotPending)
}

// TestManagerProposalTrack 测试提案轨道从草稿推进到委员会决定
func TestManagerProposalTrack(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()
	sub := createDraft(t, f)

	_, err := f.manager.RunAction(sub.ID, workflow.ActionSendToSponsor, workflow.Actor{ID: "u1"})
	require.NoError(t, err)

	// 只有一个环节批准时对账不推进
	_, err = f.manager.RecordApprovalDecision(sub.ID, workflow.StageCodeBusiness, workflow.StageApproved, "", workflow.Actor{ID: "biz-1"})
	require.NoError(t, err)
	current, err := f.manager.Reconcile(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleAtSponsorReview, current.Workflow.LifecycleStatus)

	// 全部批准后进入 PGO/FGO 评审
	_, err = f.manager.RecordApprovalDecision(sub.ID, workflow.StageCodeFinance, workflow.StageApproved, "", workflow.Actor{ID: "fin-1"})
	require.NoError(t, err)
	current, err = f.manager.Reconcile(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleAtPGOFGOReview, current.Workflow.LifecycleStatus)

	// 门禁未完成时停留
	current, err = f.manager.Reconcile(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleAtPGOFGOReview, current.Workflow.LifecycleStatus)

	// 双门禁完成后进入 SPO 评审
	f.board.gates[workflow.GateLaneFinance] = true
	f.board.gates[workflow.GateLaneGovernance] = true
	current, err = f.manager.Reconcile(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleAtSPOReview, current.Workflow.LifecycleStatus)

	// 委员会批准进入资金轨道草稿
	current, err = f.manager.RunAction(sub.ID, workflow.ActionSPOApprove, workflow.Actor{Name: "SPO Chair"})
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleFRDraft, current.Workflow.LifecycleStatus)
	assert.Equal(t, workflow.CommitteeApproved, current.CommitteeDecision)
}

// TestManagerNeedMoreInfoReturnsToDraft 测试补充材料请求回退草稿并取消旧请求
func TestManagerNeedMoreInfoReturnsToDraft(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()
	sub := createDraft(t, f)

	_, err := f.manager.RunAction(sub.ID, workflow.ActionSendToSponsor, workflow.Actor{ID: "u1"})
	require.NoError(t, err)
	_, err = f.manager.RecordApprovalDecision(sub.ID, workflow.StageCodeBusiness, workflow.StageNeedMoreInfo, "need numbers", workflow.Actor{ID: "biz-1"})
	require.NoError(t, err)

	current, err := f.manager.Reconcile(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleDraft, current.Workflow.LifecycleStatus)
	assert.Equal(t, workflow.DecisionNeedMoreInfo, current.Workflow.SponsorDecision)

	// 旧请求全部取消
	requests, err := f.registry.ListRequests(sub.ID)
	require.NoError(t, err)
	for _, req := range requests {
		assert.NotEqual(t, model.RequestStatusPending, req.Status)
	}

	// 重新提交开启新一轮,旧轮次的迟到决定不参与汇总
	_, err = f.manager.RunAction(sub.ID, workflow.ActionSendToSponsor, workflow.Actor{ID: "u1"})
	require.NoError(t, err)
	current, err = f.manager.Reconcile(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleAtSponsorReview, current.Workflow.LifecycleStatus)
}

// TestManagerFundingTrack 测试资金轨道直到获批与项目经理任务
func TestManagerFundingTrack(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()
	sub := createDraft(t, f)

	// 直接把提案推到资金草稿
	_, err := f.manager.RunAction(sub.ID, workflow.ActionSendToSponsor, workflow.Actor{ID: "u1"})
	require.NoError(t, err)
	_, err = f.manager.RecordApprovalDecision(sub.ID, workflow.StageCodeBusiness, workflow.StageApproved, "", workflow.Actor{ID: "biz-1"})
	require.NoError(t, err)
	_, err = f.manager.RecordApprovalDecision(sub.ID, workflow.StageCodeFinance, workflow.StageApproved, "", workflow.Actor{ID: "fin-1"})
	require.NoError(t, err)
	_, err = f.manager.Reconcile(ctx, sub.ID)
	require.NoError(t, err)
	f.board.gates[workflow.GateLaneFinance] = true
	f.board.gates[workflow.GateLaneGovernance] = true
	_, err = f.manager.Reconcile(ctx, sub.ID)
	require.NoError(t, err)
	_, err = f.manager.RunAction(sub.ID, workflow.ActionSPOApprove, workflow.Actor{})
	require.NoError(t, err)

	// 提交资金申请开启新一轮发起人审批
	current, err := f.manager.RunAction(sub.ID, workflow.ActionSubmitFundingRequest, workflow.Actor{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleFRSponsorApprovals, current.Workflow.LifecycleStatus)

	_, err = f.manager.RecordApprovalDecision(sub.ID, workflow.StageCodeBusiness, workflow.StageApproved, "", workflow.Actor{ID: "biz-1"})
	require.NoError(t, err)
	_, err = f.manager.RecordApprovalDecision(sub.ID, workflow.StageCodeFinance, workflow.StageApproved, "", workflow.Actor{ID: "fin-1"})
	require.NoError(t, err)

	current, err = f.manager.Reconcile(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleFRAtPGOFGOReview, current.Workflow.LifecycleStatus)

	// 门禁已在前一阶段标记完成,直接获批
	current, err = f.manager.Reconcile(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleFRApproved, current.Workflow.LifecycleStatus)
	assert.Equal(t, workflow.FundingStatusFunded, current.Workflow.FundingStatus)

	// 下游"指派项目经理"任务已创建
	assert.Contains(t, f.board.tasks, "Assign project manager")

	// 获批后的重复对账是 no-op: 任务不重复创建,审计轨迹不变
	trailLen := len(current.AuditTrail)
	current, err = f.manager.Reconcile(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleFRApproved, current.Workflow.LifecycleStatus)
	assert.Equal(t, []string{"Assign project manager"}, f.board.tasks)
	assert.Len(t, current.AuditTrail, trailLen)
}

// TestManagerReconcileAll 测试批量对账统计推进数量
func TestManagerReconcileAll(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	first := createDraft(t, f)
	second := createDraft(t, f)

	// first 全部批准,second 留在草稿
	_, err := f.manager.RunAction(first.ID, workflow.ActionSendToSponsor, workflow.Actor{ID: "u1"})
	require.NoError(t, err)
	_, err = f.manager.RecordApprovalDecision(first.ID, workflow.StageCodeBusiness, workflow.StageApproved, "", workflow.Actor{ID: "biz-1"})
	require.NoError(t, err)
	_, err = f.manager.RecordApprovalDecision(first.ID, workflow.StageCodeFinance, workflow.StageApproved, "", workflow.Actor{ID: "fin-1"})
	require.NoError(t, err)

	advanced, err := f.manager.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, advanced)

	loaded, err := f.manager.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleAtPGOFGOReview, loaded.Workflow.LifecycleStatus)

	unchanged, err := f.manager.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LifecycleDraft, unchanged.Workflow.LifecycleStatus)

	// 再跑一遍是 no-op
	advanced, err = f.manager.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, advanced)
}
