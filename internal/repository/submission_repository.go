package repository

import (
	"fmt"
	"time"

	"github.com/mautops/governance-gin/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmissionRepository 提案仓储接口
type SubmissionRepository interface {
	Save(sub *model.SubmissionModel) error
	FindByID(id string) (*model.SubmissionModel, error)
	FindAll() ([]*model.SubmissionModel, error)
	FindByFilter(filter *SubmissionFilter) ([]*model.SubmissionModel, error)
	FindActive() ([]*model.SubmissionModel, error)
	NextCaseID(year int) (string, error)
}

// SubmissionFilter 提案查询过滤器
type SubmissionFilter struct {
	Stage           *string
	Status          *string
	LifecycleStatus *string
	EntityType      *string
	CreatedBy       *string
	StartTime       *time.Time
	EndTime         *time.Time
}

// submissionRepository 提案仓储实现
type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository 创建提案仓储
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// Save 保存提案
func (r *submissionRepository) Save(sub *model.SubmissionModel) error {
	return r.db.Save(sub).Error
}

// FindByID 根据 ID 查找提案
func (r *submissionRepository) FindByID(id string) (*model.SubmissionModel, error) {
	var sub model.SubmissionModel
	if err := r.db.Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindAll 查找所有提案
func (r *submissionRepository) FindAll() ([]*model.SubmissionModel, error) {
	var subs []*model.SubmissionModel
	err := r.db.Order("created_at DESC").Find(&subs).Error
	return subs, err
}

// FindByFilter 根据过滤器查找提案
func (r *submissionRepository) FindByFilter(filter *SubmissionFilter) ([]*model.SubmissionModel, error) {
	var subs []*model.SubmissionModel
	query := r.db.Model(&model.SubmissionModel{})

	if filter != nil {
		if filter.Stage != nil {
			query = query.Where("stage = ?", *filter.Stage)
		}
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.LifecycleStatus != nil {
			query = query.Where("lifecycle_status = ?", *filter.LifecycleStatus)
		}
		if filter.EntityType != nil {
			query = query.Where("entity_type = ?", *filter.EntityType)
		}
		if filter.CreatedBy != nil {
			query = query.Where("created_by = ?", *filter.CreatedBy)
		}
		if filter.StartTime != nil {
			query = query.Where("created_at >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			query = query.Where("created_at <= ?", *filter.EndTime)
		}
	}

	err := query.Order("created_at DESC").Find(&subs).Error
	return subs, err
}

// FindActive 查找所有非终态提案,供批量对账使用
func (r *submissionRepository) FindActive() ([]*model.SubmissionModel, error) {
	var subs []*model.SubmissionModel
	err := r.db.
		Where("lifecycle_status NOT IN ?", []string{
			"SPO_DECISION_REJECTED", "FR_REJECTED", "ARCHIVED", "CLOSED",
		}).
		Order("created_at ASC").
		Find(&subs).Error
	return subs, err
}

// NextCaseID 分配下一个案件号,格式 SP-<year>-<seq>
// 同一年内序号严格递增,已分配的序号绝不复用
func (r *submissionRepository) NextCaseID(year int) (string, error) {
	var seq int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var counter model.CaseCounterModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("year = ?", year).
			First(&counter).Error
		if err == gorm.ErrRecordNotFound {
			counter = model.CaseCounterModel{Year: year, Seq: 0}
			if err := tx.Create(&counter).Error; err != nil {
				return fmt.Errorf("failed to create case counter: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to load case counter: %w", err)
		}

		counter.Seq++
		if err := tx.Save(&counter).Error; err != nil {
			return fmt.Errorf("failed to advance case counter: %w", err)
		}
		seq = counter.Seq
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SP-%d-%04d", year, seq), nil
}
