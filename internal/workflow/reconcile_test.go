package workflow_test

import (
	"testing"
	"time"

	"github.com/mautops/governance-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submissionAt(status workflow.LifecycleStatus) *workflow.Submission {
	sub := newDraftSubmission()
	sub.Workflow.LifecycleStatus = status
	return sub
}

// TestReconcileNoOpWhenPending 测试信号不满足时对账原样返回
func TestReconcileNoOpWhenPending(t *testing.T) {
	sub := submissionAt(workflow.LifecycleAtSponsorReview)
	now := time.Now()

	result := workflow.Reconcile(sub, workflow.ApprovalSummary{}, workflow.GateSignals{}, now)

	assert.False(t, result.Changed)
	assert.Equal(t, workflow.LifecycleAtSponsorReview, result.Submission.Workflow.LifecycleStatus)
	assert.Empty(t, result.Submission.AuditTrail)
	assert.False(t, result.EnsurePMTask)
}

// TestReconcileSponsorAllApproved 测试发起人全批后进入 PGO/FGO 评审
func TestReconcileSponsorAllApproved(t *testing.T) {
	sub := submissionAt(workflow.LifecycleAtSponsorReview)
	now := time.Now()

	result := workflow.Reconcile(sub, workflow.ApprovalSummary{AllRequiredApproved: true}, workflow.GateSignals{}, now)

	assert.True(t, result.Changed)
	out := result.Submission
	assert.Equal(t, workflow.LifecycleAtPGOFGOReview, out.Workflow.LifecycleStatus)
	assert.Equal(t, workflow.DecisionApproved, out.Workflow.SponsorDecision)
	assert.Empty(t, result.CancelReason)

	// 自动推进写入一条 RECONCILE 审计条目
	require.Len(t, out.AuditTrail, 1)
	assert.Equal(t, workflow.ActionReconcile, out.AuditTrail[0].Action)
}

// TestReconcileSponsorRejected 测试任一发起人否决直接进入终态
func TestReconcileSponsorRejected(t *testing.T) {
	sub := submissionAt(workflow.LifecycleAtSponsorReview)
	now := time.Now()

	result := workflow.Reconcile(sub, workflow.ApprovalSummary{AnyRejected: true}, workflow.GateSignals{}, now)

	assert.True(t, result.Changed)
	out := result.Submission
	assert.Equal(t, workflow.LifecycleSPORejected, out.Workflow.LifecycleStatus)
	assert.Equal(t, workflow.DecisionRejected, out.Workflow.SponsorDecision)
	assert.Equal(t, workflow.CommitteeRejected, out.CommitteeDecision)
	assert.True(t, workflow.IsTerminal(out.Workflow.LifecycleStatus))
}

// TestReconcileSponsorNeedMoreInfo 测试补充材料请求回退草稿并要求取消旧请求
func TestReconcileSponsorNeedMoreInfo(t *testing.T) {
	sub := submissionAt(workflow.LifecycleAtSponsorReview)
	now := time.Now()

	// NMI 优先级高于 Rejected
	result := workflow.Reconcile(sub, workflow.ApprovalSummary{AnyRejected: true, AnyNeedMoreInfo: true}, workflow.GateSignals{}, now)

	assert.True(t, result.Changed)
	out := result.Submission
	assert.Equal(t, workflow.LifecycleDraft, out.Workflow.LifecycleStatus)
	assert.Equal(t, workflow.DecisionNeedMoreInfo, out.Workflow.SponsorDecision)
	assert.NotEmpty(t, result.CancelReason)

	// 回到草稿后可再次编辑
	assert.Nil(t, out.Workflow.LockedAt)
}

// TestReconcilePGOFGOGates 测试治理看板双门禁推进 SPO 评审
func TestReconcilePGOFGOGates(t *testing.T) {
	now := time.Now()

	// 单个门禁完成不推进
	for _, gates := range []workflow.GateSignals{
		{FinanceDone: true},
		{GovernanceDone: true},
		{},
	} {
		sub := submissionAt(workflow.LifecycleAtPGOFGOReview)
		result := workflow.Reconcile(sub, workflow.ApprovalSummary{}, gates, now)
		assert.False(t, result.Changed)
		assert.Equal(t, workflow.LifecycleAtPGOFGOReview, result.Submission.Workflow.LifecycleStatus)
	}

	// 双门禁齐备才推进
	sub := submissionAt(workflow.LifecycleAtPGOFGOReview)
	result := workflow.Reconcile(sub, workflow.ApprovalSummary{}, workflow.GateSignals{FinanceDone: true, GovernanceDone: true}, now)
	assert.True(t, result.Changed)
	out := result.Submission
	assert.Equal(t, workflow.LifecycleAtSPOReview, out.Workflow.LifecycleStatus)
	assert.Equal(t, workflow.DecisionApproved, out.Workflow.PGODecision)
	assert.Equal(t, workflow.DecisionApproved, out.Workflow.FinanceDecision)
}

// TestReconcileFundingSponsorApprovals 测试资金轨道发起人审批的三个分支
func TestReconcileFundingSponsorApprovals(t *testing.T) {
	now := time.Now()

	t.Run("approved", func(t *testing.T) {
		sub := submissionAt(workflow.LifecycleFRSponsorApprovals)
		result := workflow.Reconcile(sub, workflow.ApprovalSummary{AllRequiredApproved: true}, workflow.GateSignals{}, now)
		assert.True(t, result.Changed)
		assert.Equal(t, workflow.LifecycleFRAtPGOFGOReview, result.Submission.Workflow.LifecycleStatus)
		assert.Empty(t, result.CancelReason)
	})

	t.Run("rejected returns to draft", func(t *testing.T) {
		sub := submissionAt(workflow.LifecycleFRSponsorApprovals)
		result := workflow.Reconcile(sub, workflow.ApprovalSummary{AnyRejected: true}, workflow.GateSignals{}, now)
		assert.True(t, result.Changed)
		assert.Equal(t, workflow.LifecycleFRDraft, result.Submission.Workflow.LifecycleStatus)
		assert.Equal(t, workflow.DecisionRejected, result.Submission.Workflow.SponsorDecision)
		assert.NotEmpty(t, result.CancelReason)
	})

	t.Run("need more info returns to draft", func(t *testing.T) {
		sub := submissionAt(workflow.LifecycleFRSponsorApprovals)
		result := workflow.Reconcile(sub, workflow.ApprovalSummary{AnyNeedMoreInfo: true}, workflow.GateSignals{}, now)
		assert.True(t, result.Changed)
		assert.Equal(t, workflow.LifecycleFRDraft, result.Submission.Workflow.LifecycleStatus)
		assert.Equal(t, workflow.DecisionNeedMoreInfo, result.Submission.Workflow.SponsorDecision)
		assert.NotEmpty(t, result.CancelReason)
	})
}

// TestReconcileFundingApproved 测试资金申请获批与项目经理任务信号
func TestReconcileFundingApproved(t *testing.T) {
	sub := submissionAt(workflow.LifecycleFRAtPGOFGOReview)
	now := time.Now()

	result := workflow.Reconcile(sub, workflow.ApprovalSummary{}, workflow.GateSignals{FinanceDone: true, GovernanceDone: true}, now)

	assert.True(t, result.Changed)
	assert.True(t, result.EnsurePMTask)
	out := result.Submission
	assert.Equal(t, workflow.LifecycleFRApproved, out.Workflow.LifecycleStatus)
	assert.Equal(t, workflow.FundingStatusFunded, out.Workflow.FundingStatus)
	assert.Equal(t, workflow.StageLive, out.Stage)
	assert.Equal(t, "Funded", out.Status)
}

// TestReconcileFundingReviewReturned 测试资金轨道评审失败回退草稿而非终态
func TestReconcileFundingReviewReturned(t *testing.T) {
	sub := submissionAt(workflow.LifecycleFRAtPGOFGOReview)
	now := time.Now()

	result := workflow.Reconcile(sub, workflow.ApprovalSummary{AnyRejected: true}, workflow.GateSignals{}, now)

	assert.True(t, result.Changed)
	assert.Equal(t, workflow.LifecycleFRDraft, result.Submission.Workflow.LifecycleStatus)
	assert.NotEmpty(t, result.CancelReason)
	assert.False(t, result.EnsurePMTask)
}

// TestReconcileTerminalAndDraftStates 测试终态与草稿态对账恒为 no-op
func TestReconcileTerminalAndDraftStates(t *testing.T) {
	states := []workflow.LifecycleStatus{
		workflow.LifecycleDraft,
		workflow.LifecycleFRDraft,
		workflow.LifecycleAtSPOReview,
		workflow.LifecycleSPORejected,
		workflow.LifecycleFRApproved,
		workflow.LifecycleFRRejected,
		workflow.LifecycleArchived,
		workflow.LifecycleClosed,
	}
	summary := workflow.ApprovalSummary{AllRequiredApproved: true, AnyRejected: true, AnyNeedMoreInfo: true}
	gates := workflow.GateSignals{FinanceDone: true, GovernanceDone: true}

	for _, status := range states {
		t.Run(string(status), func(t *testing.T) {
			sub := submissionAt(status)
			result := workflow.Reconcile(sub, summary, gates, time.Now())
			assert.False(t, result.Changed)
			assert.Equal(t, status, result.Submission.Workflow.LifecycleStatus)
		})
	}
}

// TestReconcileSingleStep 测试单次对账至多推进一条边
func TestReconcileSingleStep(t *testing.T) {
	sub := submissionAt(workflow.LifecycleAtSponsorReview)
	summary := workflow.ApprovalSummary{AllRequiredApproved: true}
	gates := workflow.GateSignals{FinanceDone: true, GovernanceDone: true}
	now := time.Now()

	first := workflow.Reconcile(sub, summary, gates, now)
	require.True(t, first.Changed)
	assert.Equal(t, workflow.LifecycleAtPGOFGOReview, first.Submission.Workflow.LifecycleStatus)

	// 第二次调用才走下一条边
	second := workflow.Reconcile(first.Submission, summary, gates, now)
	require.True(t, second.Changed)
	assert.Equal(t, workflow.LifecycleAtSPOReview, second.Submission.Workflow.LifecycleStatus)

	// AT_SPO_REVIEW 只接受手动动作,继续对账不再推进
	third := workflow.Reconcile(second.Submission, summary, gates, now)
	assert.False(t, third.Changed)
}

// TestReconcileDoesNotMutateInput 测试对账不修改输入提案
func TestReconcileDoesNotMutateInput(t *testing.T) {
	sub := submissionAt(workflow.LifecycleAtSponsorReview)
	workflow.Reconcile(sub, workflow.ApprovalSummary{AllRequiredApproved: true}, workflow.GateSignals{}, time.Now())

	assert.Equal(t, workflow.LifecycleAtSponsorReview, sub.Workflow.LifecycleStatus)
	assert.Empty(t, sub.AuditTrail)
}
