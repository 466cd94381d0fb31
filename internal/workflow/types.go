package workflow

import (
	"encoding/json"
	"time"
)

// EntityType 提案实体类型
type EntityType string

const (
	EntityTypeProposal       EntityType = "PROPOSAL"
	EntityTypeFundingRequest EntityType = "FUNDING_REQUEST"
)

// Stage 旧版粗粒度阶段
type Stage string

const (
	StageProposal Stage = "PROPOSAL"
	StageFunding  Stage = "FUNDING"
	StageLive     Stage = "LIVE"
)

// LifecycleStatus 生命周期状态(唯一权威状态,旧版 stage/status 由此派生)
type LifecycleStatus string

const (
	LifecycleDraft               LifecycleStatus = "DRAFT"
	LifecycleAtSponsorReview     LifecycleStatus = "AT_SPONSOR_REVIEW"
	LifecycleAtPGOFGOReview      LifecycleStatus = "AT_PGO_FGO_REVIEW"
	LifecycleAtSPOReview         LifecycleStatus = "AT_SPO_REVIEW"
	LifecycleSPORejected         LifecycleStatus = "SPO_DECISION_REJECTED"
	LifecycleFRDraft             LifecycleStatus = "FR_DRAFT"
	LifecycleFRSponsorApprovals  LifecycleStatus = "FR_AT_SPONSOR_APPROVALS"
	LifecycleFRAtPGOFGOReview    LifecycleStatus = "FR_AT_PGO_FGO_REVIEW"
	LifecycleFRApproved          LifecycleStatus = "FR_APPROVED"
	LifecycleFRRejected          LifecycleStatus = "FR_REJECTED"
	LifecycleArchived            LifecycleStatus = "ARCHIVED"
	LifecycleClosed              LifecycleStatus = "CLOSED"
)

// Action 生命周期动作
type Action string

const (
	ActionSendToSponsor          Action = "SEND_TO_SPONSOR"
	ActionSubmitFundingRequest   Action = "SUBMIT_FUNDING_REQUEST"
	ActionSPOApprove             Action = "SPO_APPROVE"
	ActionSPOReject              Action = "SPO_REJECT"
	ActionWithdrawFundingRequest Action = "WITHDRAW_FUNDING_REQUEST"
	ActionRaiseChangeRequest     Action = "RAISE_CHANGE_REQUEST"
	ActionCloseProject           Action = "CLOSE_PROJECT"

	// ActionReconcile 非用户动作,仅用于审计条目标记自动推进
	ActionReconcile Action = "RECONCILE"
	// ActionCreate 创建提案时写入的首条审计动作
	ActionCreate Action = "CREATE"
	// ActionApprovalDecision 记录审批决定时写入的审计动作
	ActionApprovalDecision Action = "APPROVAL_DECISION"
)

// StageCode 审批环节代码
type StageCode string

const (
	StageCodeBusiness   StageCode = "BUSINESS"
	StageCodeTechnology StageCode = "TECHNOLOGY"
	StageCodeFinance    StageCode = "FINANCE"
	StageCodeBenefits   StageCode = "BENEFITS"
)

// StageStatus 审批环节状态
type StageStatus string

const (
	StagePending      StageStatus = "PENDING"
	StageApproved     StageStatus = "APPROVED"
	StageRejected     StageStatus = "REJECTED"
	StageNeedMoreInfo StageStatus = "NEED_MORE_INFO"
)

// ActingAs 决定人身份
type ActingAs string

const (
	ActingAsSponsor  ActingAs = "SPONSOR"
	ActingAsDelegate ActingAs = "DELEGATE"
)

// Decision 工作流决定字段取值
type Decision string

const (
	DecisionPending      Decision = "Pending"
	DecisionApproved     Decision = "Approved"
	DecisionRejected     Decision = "Rejected"
	DecisionNeedMoreInfo Decision = "Need More Info"
)

// CommitteeDecision 委员会终审结论
type CommitteeDecision string

const (
	CommitteeApproved CommitteeDecision = "APPROVED"
	CommitteeRejected CommitteeDecision = "REJECTED"
)

// FundingStatusFunded 资金状态: 已获批
const FundingStatusFunded = "Funded"

// GateLane 治理看板门禁任务所属泳道
type GateLane string

const (
	GateLaneFinance    GateLane = "Finance"
	GateLaneGovernance GateLane = "Project Governance"
)

// Person 人员引用
type Person struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	JobTitle    string `json:"job_title,omitempty"`
	Photo       string `json:"photo,omitempty"`
}

// SponsorContacts 发起人角色槽位,未配置的槽位为 nil
type SponsorContacts struct {
	BusinessSponsor   *Person `json:"business_sponsor,omitempty"`
	BusinessDelegate  *Person `json:"business_delegate,omitempty"`
	TechnologySponsor *Person `json:"technology_sponsor,omitempty"`
	FinanceSponsor    *Person `json:"finance_sponsor,omitempty"`
	BenefitsSponsor   *Person `json:"benefits_sponsor,omitempty"`
}

// Workflow 工作流状态块
type Workflow struct {
	EntityType      EntityType      `json:"entity_type"`
	LifecycleStatus LifecycleStatus `json:"lifecycle_status"`
	SponsorDecision Decision        `json:"sponsor_decision"`
	PGODecision     Decision        `json:"pgo_decision"`
	FinanceDecision Decision        `json:"finance_decision"`
	SPODecision     Decision        `json:"spo_decision"`
	FundingStatus   string          `json:"funding_status,omitempty"`
	LastSavedAt     time.Time       `json:"last_saved_at"`
	LockedAt        *time.Time      `json:"locked_at,omitempty"`
	LockReason      string          `json:"lock_reason,omitempty"`
}

// ApprovalStageRecord 单个审批环节记录
// 仅当对应发起人槽位已配置时存在,缺席的环节不会以占位形式出现
type ApprovalStageRecord struct {
	Code            StageCode   `json:"code"`
	Status          StageStatus `json:"status"`
	DecidedByUserID string      `json:"decided_by_user_id,omitempty"`
	ActingAs        ActingAs    `json:"acting_as,omitempty"`
	Comment         string      `json:"comment,omitempty"`
	DecidedAt       *time.Time  `json:"decided_at,omitempty"`
}

// AuditEntry 审计条目,记录转换后的快照,只增不改
type AuditEntry struct {
	ID         string    `json:"id"`
	Action     Action    `json:"action"`
	Stage      Stage     `json:"stage"`
	Status     string    `json:"status"`
	Workflow   Workflow  `json:"workflow"`
	Note       string    `json:"note,omitempty"`
	ActorName  string    `json:"actor_name,omitempty"`
	ActorEmail string    `json:"actor_email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Actor 操作者身份
type Actor struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Submission 提案聚合根
type Submission struct {
	ID             string `json:"id"`
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	Classification string `json:"classification,omitempty"`
	// Financials 财务指标网格,核心不解释其内容
	Financials json.RawMessage `json:"financials,omitempty"`

	Stage  Stage  `json:"stage"`
	Status string `json:"status"`

	Workflow          Workflow              `json:"workflow"`
	SponsorContacts   SponsorContacts       `json:"sponsor_contacts"`
	ApprovalStages    []ApprovalStageRecord `json:"approval_stages"`
	CommitteeDecision CommitteeDecision     `json:"committee_decision,omitempty"`
	AuditTrail        []AuditEntry          `json:"audit_trail"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}

// Clone 深拷贝提案,保证读改写过程中不会共享可变切片
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	out := *s

	if s.Financials != nil {
		out.Financials = append(json.RawMessage(nil), s.Financials...)
	}
	// 空切片保持非 nil,拷贝后的序列化结果与输入一致
	if s.ApprovalStages != nil {
		out.ApprovalStages = append(make([]ApprovalStageRecord, 0, len(s.ApprovalStages)), s.ApprovalStages...)
	}
	if s.AuditTrail != nil {
		out.AuditTrail = append(make([]AuditEntry, 0, len(s.AuditTrail)), s.AuditTrail...)
	}

	out.SponsorContacts = SponsorContacts{
		BusinessSponsor:   clonePerson(s.SponsorContacts.BusinessSponsor),
		BusinessDelegate:  clonePerson(s.SponsorContacts.BusinessDelegate),
		TechnologySponsor: clonePerson(s.SponsorContacts.TechnologySponsor),
		FinanceSponsor:    clonePerson(s.SponsorContacts.FinanceSponsor),
		BenefitsSponsor:   clonePerson(s.SponsorContacts.BenefitsSponsor),
	}
	if s.Workflow.LockedAt != nil {
		t := *s.Workflow.LockedAt
		out.Workflow.LockedAt = &t
	}
	return &out
}

func clonePerson(p *Person) *Person {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// FindStage 按环节代码查找审批记录
func (s *Submission) FindStage(code StageCode) *ApprovalStageRecord {
	for i := range s.ApprovalStages {
		if s.ApprovalStages[i].Code == code {
			return &s.ApprovalStages[i]
		}
	}
	return nil
}

// ApprovalSummary 审批请求汇总,仅供对账引擎读取
type ApprovalSummary struct {
	AllRequiredApproved bool
	AnyRejected         bool
	AnyNeedMoreInfo     bool
	Rows                []ApprovalSummaryRow
}

// ApprovalSummaryRow 汇总明细行
type ApprovalSummaryRow struct {
	StageCode StageCode `json:"stage_code"`
	Status    string    `json:"status"`
	Recipient string    `json:"recipient,omitempty"`
	DecidedBy string    `json:"decided_by,omitempty"`
}

// GateSignals 治理看板门禁任务完成信号
type GateSignals struct {
	FinanceDone    bool
	GovernanceDone bool
}
