package workflow_test

import (
	"testing"
	"time"

	"github.com/mautops/governance-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNormalizeLegacyNames 测试旧版阶段/状态名的翻译
func TestNormalizeLegacyNames(t *testing.T) {
	tests := []struct {
		name      string
		stage     string
		status    string
		lifecycle workflow.LifecycleStatus
	}{
		{"idea draft", "idea", "new", workflow.LifecycleDraft},
		{"business case submitted", "Business Case", "Submitted", workflow.LifecycleAtSponsorReview},
		{"funding request draft", "Funding Request", "draft", workflow.LifecycleFRDraft},
		{"delivery funded", "Delivery", "Approved", workflow.LifecycleFRApproved},
		{"live closed", "live", "closed", workflow.LifecycleClosed},
		{"proposal declined", "proposal", "Declined", workflow.LifecycleSPORejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &workflow.Submission{
				ID:     "SP-2025-0001",
				Stage:  workflow.Stage(tt.stage),
				Status: tt.status,
			}
			out := workflow.Normalize(sub)
			assert.Equal(t, tt.lifecycle, out.Workflow.LifecycleStatus)

			// 旧版字段由生命周期重新派生
			stage, status := workflow.DeriveLegacy(tt.lifecycle)
			assert.Equal(t, stage, out.Stage)
			assert.Equal(t, status, out.Status)
		})
	}
}

// TestNormalizeUnknownFallsBackToDraft 测试未知取值兜底为草稿
func TestNormalizeUnknownFallsBackToDraft(t *testing.T) {
	sub := &workflow.Submission{
		ID:     "SP-2025-0001",
		Stage:  "whatever",
		Status: "no idea",
	}
	out := workflow.Normalize(sub)

	assert.Equal(t, workflow.LifecycleDraft, out.Workflow.LifecycleStatus)
	assert.Equal(t, workflow.StageProposal, out.Stage)
	assert.Equal(t, "Draft", out.Status)
	assert.Equal(t, workflow.EntityTypeProposal, out.Workflow.EntityType)
}

// TestNormalizeLifecycleWins 测试已写入的生命周期状态优先于旧版二元组
func TestNormalizeLifecycleWins(t *testing.T) {
	sub := &workflow.Submission{
		ID:     "SP-2025-0001",
		Stage:  "proposal",
		Status: "draft",
		Workflow: workflow.Workflow{
			LifecycleStatus: workflow.LifecycleFRApproved,
		},
	}
	out := workflow.Normalize(sub)

	assert.Equal(t, workflow.LifecycleFRApproved, out.Workflow.LifecycleStatus)
	assert.Equal(t, workflow.StageLive, out.Stage)
	assert.Equal(t, "Funded", out.Status)
	assert.Equal(t, workflow.EntityTypeFundingRequest, out.Workflow.EntityType)
}

// TestNormalizeDecisionDefaults 测试决定字段的默认值补齐
func TestNormalizeDecisionDefaults(t *testing.T) {
	sub := &workflow.Submission{
		ID: "SP-2025-0001",
		Workflow: workflow.Workflow{
			LifecycleStatus: workflow.LifecycleDraft,
			SponsorDecision: workflow.DecisionApproved,
			PGODecision:     "garbage",
		},
	}
	out := workflow.Normalize(sub)

	assert.Equal(t, workflow.DecisionApproved, out.Workflow.SponsorDecision)
	assert.Equal(t, workflow.DecisionPending, out.Workflow.PGODecision)
	assert.Equal(t, workflow.DecisionPending, out.Workflow.FinanceDecision)
	assert.Equal(t, workflow.DecisionPending, out.Workflow.SPODecision)
}

// TestNormalizeLockConsistency 测试锁标记与可编辑表保持一致
func TestNormalizeLockConsistency(t *testing.T) {
	t.Run("editable state clears lock", func(t *testing.T) {
		sub := &workflow.Submission{
			ID: "SP-2025-0001",
			Workflow: workflow.Workflow{
				LifecycleStatus: workflow.LifecycleDraft,
				LockReason:      "stale lock",
			},
		}
		out := workflow.Normalize(sub)
		assert.Nil(t, out.Workflow.LockedAt)
		assert.Empty(t, out.Workflow.LockReason)
	})

	t.Run("locked state gets a reason", func(t *testing.T) {
		sub := &workflow.Submission{
			ID: "SP-2025-0001",
			Workflow: workflow.Workflow{
				LifecycleStatus: workflow.LifecycleAtSponsorReview,
			},
		}
		out := workflow.Normalize(sub)
		assert.NotEmpty(t, out.Workflow.LockReason)
	})

	t.Run("locked state gets a timestamp alongside the reason", func(t *testing.T) {
		savedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		sub := &workflow.Submission{
			ID: "SP-2025-0001",
			Workflow: workflow.Workflow{
				LifecycleStatus: workflow.LifecycleAtSponsorReview,
				LastSavedAt:     savedAt,
			},
		}
		out := workflow.Normalize(sub)
		require.NotNil(t, out.Workflow.LockedAt)
		assert.Equal(t, savedAt, *out.Workflow.LockedAt)

		// 已有锁时间的记录不被覆盖
		lockedAt := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
		sub.Workflow.LockedAt = &lockedAt
		out = workflow.Normalize(sub)
		require.NotNil(t, out.Workflow.LockedAt)
		assert.Equal(t, lockedAt, *out.Workflow.LockedAt)
	})
}

// TestNormalizeComputesStages 测试规范化按槽位补齐审批环节
func TestNormalizeComputesStages(t *testing.T) {
	person := &workflow.Person{ID: "u1", DisplayName: "Someone", Email: "someone@example.com"}
	sub := &workflow.Submission{
		ID: "SP-2025-0001",
		Workflow: workflow.Workflow{
			LifecycleStatus: workflow.LifecycleAtSponsorReview,
		},
		SponsorContacts: workflow.SponsorContacts{
			BusinessSponsor: person,
			FinanceSponsor:  person,
		},
	}
	out := workflow.Normalize(sub)

	require.Len(t, out.ApprovalStages, 2)
	assert.Equal(t, workflow.StageCodeBusiness, out.ApprovalStages[0].Code)
	assert.Equal(t, workflow.StageCodeFinance, out.ApprovalStages[1].Code)
	assert.NotNil(t, out.AuditTrail)
}

// TestNormalizeIdempotent 测试规范化的幂等性
func TestNormalizeIdempotent(t *testing.T) {
	person := &workflow.Person{ID: "u1", DisplayName: "Someone", Email: "someone@example.com"}
	sub := &workflow.Submission{
		ID:     "SP-2025-0001",
		Stage:  "funding",
		Status: "at sponsor approvals",
		SponsorContacts: workflow.SponsorContacts{
			BusinessSponsor: person,
		},
	}

	once := workflow.Normalize(sub)
	twice := workflow.Normalize(once)

	assert.Equal(t, once.Workflow, twice.Workflow)
	assert.Equal(t, once.Stage, twice.Stage)
	assert.Equal(t, once.Status, twice.Status)
	assert.Equal(t, once.ApprovalStages, twice.ApprovalStages)
}

// TestNormalizeDoesNotMutateInput 测试规范化不修改输入
func TestNormalizeDoesNotMutateInput(t *testing.T) {
	sub := &workflow.Submission{
		ID:     "SP-2025-0001",
		Stage:  "idea",
		Status: "new",
	}
	workflow.Normalize(sub)

	assert.Equal(t, workflow.Stage("idea"), sub.Stage)
	assert.Equal(t, "new", sub.Status)
}
