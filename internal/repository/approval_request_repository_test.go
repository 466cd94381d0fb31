package repository_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/governance-gin/internal/model"
	"github.com/mautops/governance-gin/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func saveRequest(t *testing.T, repo repository.ApprovalRequestRepository, submissionID, stageCode, status string) *model.ApprovalRequestModel {
	t.Helper()
	now := time.Now()
	req := &model.ApprovalRequestModel{
		ID:           uuid.NewString(),
		SubmissionID: submissionID,
		StageCode:    stageCode,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Save(req))
	return req
}

// TestFindPendingByStage 测试按环节查找待处理请求
func TestFindPendingByStage(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewApprovalRequestRepository(db)

	saveRequest(t, repo, "SP-2025-0001", "BUSINESS", model.RequestStatusPending)
	saveRequest(t, repo, "SP-2025-0001", "FINANCE", model.RequestStatusApproved)

	req, err := repo.FindPendingByStage("SP-2025-0001", "BUSINESS")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, req.Status)

	// 已落定的环节没有待处理请求
	_, err = repo.FindPendingByStage("SP-2025-0001", "FINANCE")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.FindPendingByStage("SP-2025-0001", "BENEFITS")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// TestFindPendingBySubmission 测试查找提案的全部待处理请求
func TestFindPendingBySubmission(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewApprovalRequestRepository(db)

	saveRequest(t, repo, "SP-2025-0001", "BUSINESS", model.RequestStatusPending)
	saveRequest(t, repo, "SP-2025-0001", "FINANCE", model.RequestStatusPending)
	saveRequest(t, repo, "SP-2025-0001", "TECHNOLOGY", model.RequestStatusCancelled)
	saveRequest(t, repo, "SP-2025-0002", "BUSINESS", model.RequestStatusPending)

	pending, err := repo.FindPendingBySubmission("SP-2025-0001")
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

// TestFindBySubmissionOrdering 测试请求列表按创建时间升序
func TestFindBySubmissionOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewApprovalRequestRepository(db)

	first := &model.ApprovalRequestModel{
		ID:           uuid.NewString(),
		SubmissionID: "SP-2025-0001",
		StageCode:    "BUSINESS",
		Status:       model.RequestStatusCancelled,
		CreatedAt:    time.Now().Add(-time.Hour),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, repo.Save(first))
	second := saveRequest(t, repo, "SP-2025-0001", "BUSINESS", model.RequestStatusPending)

	all, err := repo.FindBySubmission("SP-2025-0001")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
}

// TestAuditLogRepository 测试运维审计日志的写入与查询
func TestAuditLogRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewAuditLogRepository(db)

	require.NoError(t, repo.Save(&model.AuditLogModel{
		ID:           uuid.NewString(),
		UserID:       "u1",
		Action:       "create",
		ResourceType: "submission",
		ResourceID:   "SP-2025-0001",
		CreatedAt:    time.Now(),
	}))
	require.NoError(t, repo.Save(&model.AuditLogModel{
		ID:           uuid.NewString(),
		UserID:       "u2",
		Action:       "run_action",
		ResourceType: "submission",
		ResourceID:   "SP-2025-0001",
		CreatedAt:    time.Now(),
	}))

	byResource, err := repo.FindByResource("submission", "SP-2025-0001")
	require.NoError(t, err)
	assert.Len(t, byResource, 2)

	byUser, err := repo.FindByUserID("u1")
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "create", byUser[0].Action)
}
