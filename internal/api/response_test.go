package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mautops/governance-gin/internal/api"
	"github.com/mautops/governance-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

// TestSuccessResponse 测试成功响应格式
func TestSuccessResponse(t *testing.T) {
	c, w := newTestContext()

	api.Success(c, gin.H{"id": "SP-2025-0001"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.NotNil(t, resp.Data)
}

// TestErrorResponse 测试错误响应格式
func TestErrorResponse(t *testing.T) {
	c, w := newTestContext()

	api.Error(c, http.StatusBadRequest, "invalid request", "title missing")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid request", resp.Message)
	assert.Equal(t, "title missing", resp.Detail)
}

// TestErrorResponseBadCode 测试非法状态码兜底为 500
func TestErrorResponseBadCode(t *testing.T) {
	c, w := newTestContext()

	api.Error(c, 42, "weird", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// TestPaginatedResponse 测试分页响应格式
func TestPaginatedResponse(t *testing.T) {
	c, w := newTestContext()

	api.Paginated(c, []string{"a", "b"}, api.PaginationInfo{
		Page:      1,
		PageSize:  20,
		Total:     2,
		TotalPage: 1,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.PaginatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, int64(2), resp.Pagination.Total)
}

// TestWriteWorkflowError 测试工作流错误到 HTTP 状态码的映射
func TestWriteWorkflowError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{
			"illegal transition maps to 409",
			&workflow.IllegalTransitionError{Action: workflow.ActionSPOApprove, From: workflow.LifecycleDraft},
			http.StatusConflict,
		},
		{"not found maps to 404", workflow.ErrNotFound, http.StatusNotFound},
		{"unknown stage maps to 400", workflow.ErrUnknownStage, http.StatusBadRequest},
		{"stage not pending maps to 409", workflow.ErrStageNotPending, http.StatusConflict},
		{"unexpected error maps to 500", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()
			api.WriteWorkflowError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

// TestWriteWorkflowErrorWrapped 测试包装过的工作流错误仍可识别
func TestWriteWorkflowErrorWrapped(t *testing.T) {
	c, w := newTestContext()

	wrapped := errors.Join(errors.New("context"), workflow.ErrNotFound)
	api.WriteWorkflowError(c, wrapped)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
