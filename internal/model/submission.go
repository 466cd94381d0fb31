package model

import (
	"errors"
	"time"
)

// SubmissionModel 提案数据模型
// Data 保存完整的 Submission 聚合(含审计轨迹),标量列用于索引查询
type SubmissionModel struct {
	ID              string    `gorm:"primaryKey;type:varchar(64)"` // 案件号 SP-<year>-<seq>
	Year            int       `gorm:"type:int;not null;index"`
	Seq             int       `gorm:"type:int;not null"`
	Stage           string    `gorm:"type:varchar(32);not null;index"`
	Status          string    `gorm:"type:varchar(64);not null;index"`
	LifecycleStatus string    `gorm:"type:varchar(64);not null;index"`
	EntityType      string    `gorm:"type:varchar(32);not null"`
	Data            []byte    `gorm:"type:jsonb;not null"` // 序列化后的 Submission 聚合
	CreatedAt       time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time `gorm:"not null;index"`
	CreatedBy       string    `gorm:"type:varchar(64);index"`
}

// TableName 指定表名
func (SubmissionModel) TableName() string {
	return "submissions"
}

// Validate 验证提案模型
func (sm *SubmissionModel) Validate() error {
	if sm.ID == "" {
		return errors.New("submission ID is required")
	}
	if sm.LifecycleStatus == "" {
		return errors.New("lifecycle status is required")
	}
	if len(sm.Data) == 0 {
		return errors.New("submission data is required")
	}
	return nil
}
