package workflow

// stageOrder 审批环节固定顺序
var stageOrder = []StageCode{StageCodeBusiness, StageCodeTechnology, StageCodeFinance, StageCodeBenefits}

// StageOrder 返回固定环节顺序的副本
func StageOrder() []StageCode {
	return append([]StageCode(nil), stageOrder...)
}

// stageApplicable 环节是否适用: 对应发起人槽位已配置
// BUSINESS 环节认可业务发起人或其代理任意一方
func stageApplicable(code StageCode, contacts SponsorContacts) bool {
	switch code {
	case StageCodeBusiness:
		return contacts.BusinessSponsor != nil || contacts.BusinessDelegate != nil
	case StageCodeTechnology:
		return contacts.TechnologySponsor != nil
	case StageCodeFinance:
		return contacts.FinanceSponsor != nil
	case StageCodeBenefits:
		return contacts.BenefitsSponsor != nil
	}
	return false
}

// ApplicableStageCodes 返回适用环节代码,按固定顺序
func ApplicableStageCodes(contacts SponsorContacts) []StageCode {
	var codes []StageCode
	for _, code := range stageOrder {
		if stageApplicable(code, contacts) {
			codes = append(codes, code)
		}
	}
	return codes
}

// ComputeApplicableStages 重算提案的审批环节列表
// 已有记录按环节代码保留(状态、决定、意见不丢失),缺失的环节以 PENDING 补齐;
// 不适用的环节绝不实例化。
// 当提案没有任何原生环节历史时,第一个适用环节继承旧版单一 SponsorDecision,
// 以兼容多环节审批之前的数据。
func ComputeApplicableStages(contacts SponsorContacts, wf Workflow, existing []ApprovalStageRecord) []ApprovalStageRecord {
	byCode := make(map[StageCode]ApprovalStageRecord, len(existing))
	for _, rec := range existing {
		byCode[rec.Code] = rec
	}

	var stages []ApprovalStageRecord
	first := true
	for _, code := range stageOrder {
		if !stageApplicable(code, contacts) {
			continue
		}
		if rec, ok := byCode[code]; ok {
			stages = append(stages, rec)
		} else {
			rec := ApprovalStageRecord{Code: code, Status: StagePending}
			if first && len(existing) == 0 {
				rec.Status = stageStatusFromDecision(wf.SponsorDecision)
			}
			stages = append(stages, rec)
		}
		first = false
	}
	return stages
}

// ResetStages 为新一轮审批生成全 PENDING 的环节列表
func ResetStages(contacts SponsorContacts) []ApprovalStageRecord {
	var stages []ApprovalStageRecord
	for _, code := range stageOrder {
		if stageApplicable(code, contacts) {
			stages = append(stages, ApprovalStageRecord{Code: code, Status: StagePending})
		}
	}
	return stages
}

// stageStatusFromDecision 旧版决定值到环节状态的映射
func stageStatusFromDecision(d Decision) StageStatus {
	switch d {
	case DecisionApproved:
		return StageApproved
	case DecisionRejected:
		return StageRejected
	case DecisionNeedMoreInfo:
		return StageNeedMoreInfo
	}
	return StagePending
}
