package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 提案不存在
	ErrNotFound = errors.New("submission not found")
	// ErrUnknownStage 审批决定引用了未配置的环节
	ErrUnknownStage = errors.New("approval stage not configured for this submission")
	// ErrStageNotPending 审批环节已有结论,拒绝重复决定
	ErrStageNotPending = errors.New("approval stage is not pending")
)

// IllegalTransitionError 当前生命周期状态下不允许执行该动作
// 携带尝试的动作与当前合法动作集,便于调用方提示
type IllegalTransitionError struct {
	Action Action
	From   LifecycleStatus
	Legal  []Action
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("action %s is not legal in state %s (legal actions: %v)", e.Action, e.From, e.Legal)
}

// IsIllegalTransition 判断错误是否为非法转换
func IsIllegalTransition(err error) bool {
	var ite *IllegalTransitionError
	return errors.As(err, &ite)
}
