package workflow

import (
	"strings"
)

// legacyStageNames 旧版阶段名到规范阶段的查表
// 未命中的值兜底为 PROPOSAL,本层是尽力而为的兼容层而非校验器
var legacyStageNames = map[string]Stage{
	"proposal":        StageProposal,
	"idea":            StageProposal,
	"concept":         StageProposal,
	"business case":   StageProposal,
	"funding":         StageFunding,
	"funding request": StageFunding,
	"live":            StageLive,
	"delivery":        StageLive,
	"in delivery":     StageLive,
}

// legacyStatusNames 旧版状态串到规范状态串的查表
var legacyStatusNames = map[string]string{
	"draft":                "Draft",
	"new":                  "Draft",
	"in progress":          "Draft",
	"submitted":            "At Sponsor Review",
	"at sponsor review":    "At Sponsor Review",
	"sponsor review":       "At Sponsor Review",
	"at pgo/fgo review":    "At PGO/FGO Review",
	"pgo review":           "At PGO/FGO Review",
	"at spo review":        "At SPO Review",
	"spo review":           "At SPO Review",
	"at sponsor approvals": "At Sponsor Approvals",
	"approved":             "Funded",
	"funded":               "Funded",
	"rejected":             "Rejected",
	"declined":             "Rejected",
	"archived":             "Archived",
	"closed":               "Closed",
}

// lifecycleFromLegacy 从旧版二元组反推生命周期状态
// 仅用于尚未写入 lifecycle_status 的历史数据
var lifecycleFromLegacy = map[legacyPair]LifecycleStatus{
	{StageProposal, "Draft"}:              LifecycleDraft,
	{StageProposal, "At Sponsor Review"}:  LifecycleAtSponsorReview,
	{StageProposal, "At PGO/FGO Review"}:  LifecycleAtPGOFGOReview,
	{StageProposal, "At SPO Review"}:      LifecycleAtSPOReview,
	{StageProposal, "Rejected"}:           LifecycleSPORejected,
	{StageFunding, "Draft"}:               LifecycleFRDraft,
	{StageFunding, "At Sponsor Approvals"}: LifecycleFRSponsorApprovals,
	{StageFunding, "At PGO/FGO Review"}:   LifecycleFRAtPGOFGOReview,
	{StageFunding, "Rejected"}:            LifecycleFRRejected,
	{StageLive, "Funded"}:                 LifecycleFRApproved,
	{StageLive, "Archived"}:               LifecycleArchived,
	{StageLive, "Closed"}:                 LifecycleClosed,
}

// Normalize 把旧版/不完整的提案记录迁移为当前模式
// 纯函数: 相同输入产出相同输出;对已规范记录是幂等的 no-op。
// 每条读取路径都会先经过这里,保证旧数据兼容。
func Normalize(s *Submission) *Submission {
	out := s.Clone()

	// 1. 旧版阶段/状态翻译
	out.Stage = normalizeStage(string(out.Stage))
	out.Status = normalizeStatus(out.Status)

	// 2. 生命周期状态: 缺失或未知时从旧版二元组反推,再兜底 DRAFT
	if !IsKnownLifecycle(out.Workflow.LifecycleStatus) {
		if ls, ok := lifecycleFromLegacy[legacyPair{out.Stage, out.Status}]; ok {
			out.Workflow.LifecycleStatus = ls
		} else {
			out.Workflow.LifecycleStatus = LifecycleDraft
		}
	}

	// 3. 旧版二元组始终由生命周期状态派生,消除双写漂移
	out.Stage, out.Status = DeriveLegacy(out.Workflow.LifecycleStatus)
	out.Workflow.EntityType = entityTypeFor(out.Workflow.LifecycleStatus)

	// 4. 决定字段默认值
	out.Workflow.SponsorDecision = defaultDecision(out.Workflow.SponsorDecision)
	out.Workflow.PGODecision = defaultDecision(out.Workflow.PGODecision)
	out.Workflow.FinanceDecision = defaultDecision(out.Workflow.FinanceDecision)
	out.Workflow.SPODecision = defaultDecision(out.Workflow.SPODecision)

	// 5. 锁标记与可编辑表保持一致,原因与时间总是成对出现
	if IsEditable(out.Workflow.LifecycleStatus) {
		out.Workflow.LockedAt = nil
		out.Workflow.LockReason = ""
	} else {
		if out.Workflow.LockReason == "" {
			out.Workflow.LockReason = lockReasons[out.Workflow.LifecycleStatus]
		}
		// 历史数据缺少锁时间时取最后保存时间,不引入当前时钟
		if out.Workflow.LockedAt == nil {
			lockedAt := out.Workflow.LastSavedAt
			out.Workflow.LockedAt = &lockedAt
		}
	}

	// 6. 审批环节: 按发起人槽位重算,保留已有记录
	out.ApprovalStages = ComputeApplicableStages(out.SponsorContacts, out.Workflow, out.ApprovalStages)

	if out.AuditTrail == nil {
		out.AuditTrail = []AuditEntry{}
	}
	return out
}

func normalizeStage(raw string) Stage {
	if stage, ok := legacyStageNames[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return stage
	}
	return StageProposal
}

func normalizeStatus(raw string) string {
	if status, ok := legacyStatusNames[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return status
	}
	return "Draft"
}

func defaultDecision(d Decision) Decision {
	switch d {
	case DecisionApproved, DecisionRejected, DecisionNeedMoreInfo, DecisionPending:
		return d
	}
	return DecisionPending
}
