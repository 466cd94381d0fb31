package model

import "errors"

// CaseCounterModel 案件号计数器数据模型
// 每个年份一行,Seq 单调递增,案件号一经分配不再复用
type CaseCounterModel struct {
	Year int `gorm:"primaryKey;type:int"`
	Seq  int `gorm:"type:int;not null"`
}

// TableName 指定表名
func (CaseCounterModel) TableName() string {
	return "case_counters"
}

// Validate 验证计数器模型
func (ccm *CaseCounterModel) Validate() error {
	if ccm.Year <= 0 {
		return errors.New("counter year is required")
	}
	if ccm.Seq < 0 {
		return errors.New("counter seq must not be negative")
	}
	return nil
}
