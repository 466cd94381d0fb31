package workflow

import (
	"time"

	"github.com/google/uuid"
)

// AppendAudit 追加一条审计条目并返回新的提案副本
// 历史条目永不改写、重排或删除;entry 为 nil 时原样返回(按调用选择是否审计)。
// 条目快照取转换后的 stage/status/workflow 字段。
func AppendAudit(s *Submission, entry *AuditEntry) *Submission {
	if entry == nil {
		return s
	}

	out := s.Clone()

	e := *entry
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	// 快照转换后的状态
	e.Stage = out.Stage
	e.Status = out.Status
	e.Workflow = out.Workflow

	out.AuditTrail = append(out.AuditTrail, e)
	return out
}
