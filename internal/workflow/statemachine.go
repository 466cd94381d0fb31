package workflow

import (
	"time"
)

// legalActions 每个生命周期状态下允许的动作集
var legalActions = map[LifecycleStatus][]Action{
	LifecycleDraft:              {ActionSendToSponsor},
	LifecycleAtSponsorReview:    {},
	LifecycleAtPGOFGOReview:     {},
	LifecycleAtSPOReview:        {ActionSPOApprove, ActionSPOReject},
	LifecycleSPORejected:        {},
	LifecycleFRDraft:            {ActionSubmitFundingRequest, ActionWithdrawFundingRequest},
	LifecycleFRSponsorApprovals: {},
	LifecycleFRAtPGOFGOReview:   {},
	LifecycleFRApproved:         {ActionRaiseChangeRequest, ActionCloseProject},
	LifecycleFRRejected:         {},
	LifecycleArchived:           {},
	LifecycleClosed:             {},
}

// legacyPair 旧版 stage/status 二元组
type legacyPair struct {
	Stage  Stage
	Status string
}

// legacyByLifecycle 生命周期状态到旧版二元组的派生表
// 旧版字段永远是生命周期状态的纯函数,不允许独立赋值
var legacyByLifecycle = map[LifecycleStatus]legacyPair{
	LifecycleDraft:              {StageProposal, "Draft"},
	LifecycleAtSponsorReview:    {StageProposal, "At Sponsor Review"},
	LifecycleAtPGOFGOReview:     {StageProposal, "At PGO/FGO Review"},
	LifecycleAtSPOReview:        {StageProposal, "At SPO Review"},
	LifecycleSPORejected:        {StageProposal, "Rejected"},
	LifecycleFRDraft:            {StageFunding, "Draft"},
	LifecycleFRSponsorApprovals: {StageFunding, "At Sponsor Approvals"},
	LifecycleFRAtPGOFGOReview:   {StageFunding, "At PGO/FGO Review"},
	LifecycleFRApproved:         {StageLive, "Funded"},
	LifecycleFRRejected:         {StageFunding, "Rejected"},
	LifecycleArchived:           {StageLive, "Archived"},
	LifecycleClosed:             {StageLive, "Closed"},
}

// editableStates 可编辑状态表,其余状态一律加锁
var editableStates = map[LifecycleStatus]bool{
	LifecycleDraft:   true,
	LifecycleFRDraft: true,
}

// lockReasons 非可编辑状态的锁定原因
var lockReasons = map[LifecycleStatus]string{
	LifecycleAtSponsorReview:    "submission is under sponsor review",
	LifecycleAtPGOFGOReview:     "submission is under PGO/FGO review",
	LifecycleAtSPOReview:        "submission is under SPO review",
	LifecycleSPORejected:        "submission was rejected by the SPO committee",
	LifecycleFRSponsorApprovals: "funding request is collecting sponsor approvals",
	LifecycleFRAtPGOFGOReview:   "funding request is under PGO/FGO review",
	LifecycleFRApproved:         "funding request has been approved",
	LifecycleFRRejected:         "funding request was rejected",
	LifecycleArchived:           "submission is archived",
	LifecycleClosed:             "project is closed",
}

// LegalActions 返回指定状态下允许的动作列表
func LegalActions(status LifecycleStatus) []Action {
	actions, ok := legalActions[status]
	if !ok {
		return nil
	}
	return append([]Action(nil), actions...)
}

// IsLegalAction 判断动作在当前状态下是否合法
func IsLegalAction(status LifecycleStatus, action Action) bool {
	for _, a := range legalActions[status] {
		if a == action {
			return true
		}
	}
	return false
}

// IsEditable 判断生命周期状态是否允许编辑
// 核心只维护锁标记,写入拦截由外部 API 层负责
func IsEditable(status LifecycleStatus) bool {
	return editableStates[status]
}

// IsKnownLifecycle 判断是否为已知生命周期状态
func IsKnownLifecycle(status LifecycleStatus) bool {
	_, ok := legacyByLifecycle[status]
	return ok
}

// IsTerminal 判断状态是否为终态(无任何合法动作且对账不再推进)
func IsTerminal(status LifecycleStatus) bool {
	switch status {
	case LifecycleSPORejected, LifecycleFRRejected, LifecycleArchived, LifecycleClosed:
		return true
	}
	return false
}

// DeriveLegacy 从生命周期状态派生旧版 stage/status 二元组
// 未知状态按 PROPOSAL/Draft 兜底
func DeriveLegacy(status LifecycleStatus) (Stage, string) {
	if pair, ok := legacyByLifecycle[status]; ok {
		return pair.Stage, pair.Status
	}
	return StageProposal, "Draft"
}

// entityTypeFor 生命周期状态对应的实体类型
func entityTypeFor(status LifecycleStatus) EntityType {
	switch status {
	case LifecycleFRDraft, LifecycleFRSponsorApprovals, LifecycleFRAtPGOFGOReview,
		LifecycleFRApproved, LifecycleFRRejected, LifecycleArchived, LifecycleClosed:
		return EntityTypeFundingRequest
	}
	return EntityTypeProposal
}

// syncDerived 按生命周期状态同步所有派生字段: 旧版二元组、实体类型、锁标记
func syncDerived(s *Submission, now time.Time) {
	s.Stage, s.Status = DeriveLegacy(s.Workflow.LifecycleStatus)
	s.Workflow.EntityType = entityTypeFor(s.Workflow.LifecycleStatus)
	if IsEditable(s.Workflow.LifecycleStatus) {
		s.Workflow.LockedAt = nil
		s.Workflow.LockReason = ""
	} else {
		t := now
		s.Workflow.LockedAt = &t
		s.Workflow.LockReason = lockReasons[s.Workflow.LifecycleStatus]
	}
	s.Workflow.LastSavedAt = now
	s.UpdatedAt = now
}

// ApplyResult 动作执行结果
type ApplyResult struct {
	Submission *Submission
	// OpensReviewRound 动作是否开启了新一轮发起人审批
	// 为 true 时调用方需取消旧的待处理审批请求并创建新一轮
	OpensReviewRound bool
	// CancelReason 需要取消旧请求时使用的原因
	CancelReason string
}

// ApplyAction 对提案执行命名动作
// 校验合法性、推进生命周期、重算派生字段并写入一条审计条目
// 非法动作返回 IllegalTransitionError,提案保持原样
func ApplyAction(s *Submission, action Action, actor Actor, now time.Time) (*ApplyResult, error) {
	from := s.Workflow.LifecycleStatus
	if !IsLegalAction(from, action) {
		return nil, &IllegalTransitionError{Action: action, From: from, Legal: LegalActions(from)}
	}

	out := s.Clone()
	result := &ApplyResult{}

	switch action {
	case ActionSendToSponsor:
		out.Workflow.LifecycleStatus = LifecycleAtSponsorReview
		out.Workflow.SponsorDecision = DecisionPending
		out.ApprovalStages = ResetStages(out.SponsorContacts)
		result.OpensReviewRound = true
		result.CancelReason = "submission sent to sponsor review"

	case ActionSubmitFundingRequest:
		out.Workflow.LifecycleStatus = LifecycleFRSponsorApprovals
		out.Workflow.SponsorDecision = DecisionPending
		out.ApprovalStages = ResetStages(out.SponsorContacts)
		result.OpensReviewRound = true
		result.CancelReason = "funding request submitted for sponsor approvals"

	case ActionSPOApprove:
		out.Workflow.LifecycleStatus = LifecycleFRDraft
		out.CommitteeDecision = CommitteeApproved
		out.Workflow.SPODecision = DecisionApproved
		// 进入资金轨道,审批相关决定字段复位待下一轮使用
		out.Workflow.SponsorDecision = DecisionPending
		out.Workflow.PGODecision = DecisionPending
		out.Workflow.FinanceDecision = DecisionPending

	case ActionSPOReject:
		out.Workflow.LifecycleStatus = LifecycleSPORejected
		out.CommitteeDecision = CommitteeRejected
		out.Workflow.SPODecision = DecisionRejected

	case ActionWithdrawFundingRequest:
		out.Workflow.LifecycleStatus = LifecycleFRRejected

	case ActionRaiseChangeRequest:
		out.Workflow.LifecycleStatus = LifecycleArchived

	case ActionCloseProject:
		out.Workflow.LifecycleStatus = LifecycleClosed
	}

	syncDerived(out, now)

	out = AppendAudit(out, &AuditEntry{
		Action:     action,
		Note:       actionNote(action, from, out.Workflow.LifecycleStatus),
		ActorName:  actor.Name,
		ActorEmail: actor.Email,
		CreatedAt:  now,
	})

	result.Submission = out
	return result, nil
}

func actionNote(action Action, from, to LifecycleStatus) string {
	return string(action) + ": " + string(from) + " -> " + string(to)
}
