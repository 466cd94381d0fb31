package workflow

import (
	"time"
)

// ReconcileResult 对账结果
type ReconcileResult struct {
	Submission *Submission
	// Changed 本次调用是否推进了生命周期
	Changed bool
	// EnsurePMTask 到达 FR_APPROVED 时要求下游存在"指派项目经理"任务
	EnsurePMTask bool
	// CancelReason 回退到草稿时取消旧审批请求的原因,空串表示无需取消
	CancelReason string
}

// Reconcile 依据当前生命周期与外部信号计算下一个状态
// 单次调用至多推进一条边,可在任意时刻安全重复调用;
// 条件不满足时原样返回,从不产生领域错误。
func Reconcile(s *Submission, summary ApprovalSummary, gates GateSignals, now time.Time) *ReconcileResult {
	out := s.Clone()
	result := &ReconcileResult{Submission: out}

	switch out.Workflow.LifecycleStatus {
	case LifecycleAtSponsorReview:
		switch {
		case summary.AnyNeedMoreInfo:
			out.Workflow.LifecycleStatus = LifecycleDraft
			out.Workflow.SponsorDecision = DecisionNeedMoreInfo
			result.CancelReason = "sponsor requested more information"
		case summary.AnyRejected:
			out.Workflow.LifecycleStatus = LifecycleSPORejected
			out.Workflow.SponsorDecision = DecisionRejected
			out.CommitteeDecision = CommitteeRejected
		case summary.AllRequiredApproved:
			out.Workflow.LifecycleStatus = LifecycleAtPGOFGOReview
			out.Workflow.SponsorDecision = DecisionApproved
		default:
			return result
		}

	case LifecycleAtPGOFGOReview:
		if !gates.FinanceDone || !gates.GovernanceDone {
			return result
		}
		out.Workflow.LifecycleStatus = LifecycleAtSPOReview
		out.Workflow.PGODecision = DecisionApproved
		out.Workflow.FinanceDecision = DecisionApproved

	case LifecycleFRSponsorApprovals:
		switch {
		case summary.AnyNeedMoreInfo:
			out.Workflow.LifecycleStatus = LifecycleFRDraft
			out.Workflow.SponsorDecision = DecisionNeedMoreInfo
			result.CancelReason = "sponsor requested more information on funding request"
		case summary.AnyRejected:
			out.Workflow.LifecycleStatus = LifecycleFRDraft
			out.Workflow.SponsorDecision = DecisionRejected
			result.CancelReason = "funding request rejected by sponsor"
		case summary.AllRequiredApproved:
			out.Workflow.LifecycleStatus = LifecycleFRAtPGOFGOReview
			out.Workflow.SponsorDecision = DecisionApproved
		default:
			return result
		}

	case LifecycleFRAtPGOFGOReview:
		switch {
		case summary.AnyRejected || summary.AnyNeedMoreInfo:
			// 资金轨道的评审失败回退到草稿而非死路,保证可以重新提交
			out.Workflow.LifecycleStatus = LifecycleFRDraft
			result.CancelReason = "funding request returned from PGO/FGO review"
		case gates.FinanceDone && gates.GovernanceDone:
			out.Workflow.LifecycleStatus = LifecycleFRApproved
			out.Workflow.PGODecision = DecisionApproved
			out.Workflow.FinanceDecision = DecisionApproved
			out.Workflow.FundingStatus = FundingStatusFunded
			result.EnsurePMTask = true
		default:
			return result
		}

	default:
		// 其余状态对账一律 no-op
		return result
	}

	syncDerived(out, now)
	out = AppendAudit(out, &AuditEntry{
		Action:    ActionReconcile,
		Note:      actionNote(ActionReconcile, s.Workflow.LifecycleStatus, out.Workflow.LifecycleStatus),
		CreatedAt: now,
	})

	result.Submission = out
	result.Changed = true
	return result
}
