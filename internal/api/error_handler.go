package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/governance-gin/internal/workflow"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			} else {
				Error(c, http.StatusInternalServerError, "internal server error", err.Error())
			}
		}
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// WriteWorkflowError 把工作流错误翻译为 HTTP 响应
// 非法动作与环节冲突返回 409,未配置环节返回 400,缺失返回 404
func WriteWorkflowError(c *gin.Context, err error) {
	var illegal *workflow.IllegalTransitionError
	switch {
	case errors.As(err, &illegal):
		Error(c, http.StatusConflict, "illegal transition", illegal.Error())
	case errors.Is(err, workflow.ErrNotFound):
		Error(c, http.StatusNotFound, "submission not found", err.Error())
	case errors.Is(err, workflow.ErrUnknownStage):
		Error(c, http.StatusBadRequest, "unknown approval stage", err.Error())
	case errors.Is(err, workflow.ErrStageNotPending):
		Error(c, http.StatusConflict, "stage already decided", err.Error())
	default:
		Error(c, http.StatusInternalServerError, "internal server error", err.Error())
	}
}
