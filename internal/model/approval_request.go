package model

import (
	"errors"
	"time"
)

// 审批请求状态常量
const (
	RequestStatusPending      = "PENDING"
	RequestStatusApproved     = "APPROVED"
	RequestStatusRejected     = "REJECTED"
	RequestStatusNeedMoreInfo = "NEED_MORE_INFO"
	RequestStatusCancelled    = "CANCELLED"
)

// ApprovalRequestModel 审批请求数据模型
// 每条记录对应一个提案在某个环节上的一次审批询问
type ApprovalRequestModel struct {
	ID             string     `gorm:"primaryKey;type:varchar(64)"`
	SubmissionID   string     `gorm:"type:varchar(64);not null;index"`
	StageCode      string     `gorm:"type:varchar(32);not null"`
	RecipientID    string     `gorm:"type:varchar(64);index"`
	RecipientEmail string     `gorm:"type:varchar(255)"`
	Status         string     `gorm:"type:varchar(32);not null;index"` // PENDING/APPROVED/REJECTED/NEED_MORE_INFO/CANCELLED
	RequestedBy    string     `gorm:"type:varchar(64)"`
	DecidedBy      string     `gorm:"type:varchar(64)"`
	Comment        string     `gorm:"type:text"`
	CancelReason   string     `gorm:"type:text"`
	DecidedAt      *time.Time `gorm:"index"`
	CreatedAt      time.Time  `gorm:"not null;index"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

// TableName 指定表名
func (ApprovalRequestModel) TableName() string {
	return "approval_requests"
}

// Validate 验证审批请求模型
func (arm *ApprovalRequestModel) Validate() error {
	if arm.ID == "" {
		return errors.New("request ID is required")
	}
	if arm.SubmissionID == "" {
		return errors.New("submission ID is required")
	}
	if arm.StageCode == "" {
		return errors.New("stage code is required")
	}
	if arm.Status == "" {
		return errors.New("request status is required")
	}
	return nil
}
