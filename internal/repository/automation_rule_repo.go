package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	pkgerrors "github.com/edmundobop/plataforma-bravo-web-sub000/pkg/errors"
)

// AutomationRuleFilter 规则列表查询条件
type AutomationRuleFilter struct {
	UnitID    string
	VehicleID string
	Active    *bool
	Page
}

// AutomationRuleRepository 自动生成规则数据访问接口
type AutomationRuleRepository interface {
	Create(ctx context.Context, rule *model.AutomationRule) error
	GetByID(ctx context.Context, id string) (*model.AutomationRule, error)
	List(ctx context.Context, f AutomationRuleFilter) ([]model.AutomationRule, int64, error)
	// ListActive 返回所有单位的激活规则（生成器使用）
	ListActive(ctx context.Context) ([]model.AutomationRule, error)
	// Update 乐观锁更新，版本不一致返回 ErrOptimisticLock
	Update(ctx context.Context, rule *model.AutomationRule) error
	// Delete 软删除，不影响已生成的巡检单
	Delete(ctx context.Context, id string, deletedBy string) error
	// TouchGenerated 记录最近一次生成时间，只前进不后退，不递增版本
	TouchGenerated(ctx context.Context, id string, at time.Time) error
}

type automationRuleRepo struct {
	db *gorm.DB
}

// NewAutomationRuleRepo 创建 AutomationRuleRepository 实例
func NewAutomationRuleRepo(db *gorm.DB) AutomationRuleRepository {
	return &automationRuleRepo{db: db}
}

func (r *automationRuleRepo) Create(ctx context.Context, rule *model.AutomationRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *automationRuleRepo) GetByID(ctx context.Context, id string) (*model.AutomationRule, error) {
	var rule model.AutomationRule
	err := r.db.WithContext(ctx).
		Preload("Vehicle").
		Where("rule_id = ?", id).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *automationRuleRepo) List(ctx context.Context, f AutomationRuleFilter) ([]model.AutomationRule, int64, error) {
	var rules []model.AutomationRule
	var total int64

	db := r.db.WithContext(ctx).Model(&model.AutomationRule{}).
		Where("unit_id = ?", f.UnitID)
	if f.VehicleID != "" {
		db = db.Where("vehicle_id = ?", f.VehicleID)
	}
	if f.Active != nil {
		db = db.Where("is_active = ?", *f.Active)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := paginate(db.Preload("Vehicle"), f.Page).
		Order("name ASC").
		Find(&rules).Error; err != nil {
		return nil, 0, err
	}

	return rules, total, nil
}

func (r *automationRuleRepo) ListActive(ctx context.Context) ([]model.AutomationRule, error) {
	var rules []model.AutomationRule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("unit_id ASC, rule_id ASC").
		Find(&rules).Error
	return rules, err
}

func (r *automationRuleRepo) Update(ctx context.Context, rule *model.AutomationRule) error {
	oldVersion := rule.Version
	result := r.db.WithContext(ctx).
		Model(&model.AutomationRule{}).
		Where("rule_id = ? AND version = ?", rule.RuleID, oldVersion).
		Updates(map[string]interface{}{
			"name":           rule.Name,
			"is_active":      rule.IsActive,
			"vehicle_id":     rule.VehicleID,
			"template_id":    rule.TemplateID,
			"time_of_day":    rule.TimeOfDay,
			"weekdays":       rule.Weekdays,
			"shift":          rule.Shift,
			"checklist_type": rule.ChecklistType,
			"updated_by":     rule.UpdatedBy,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	rule.Version = oldVersion + 1
	return nil
}

func (r *automationRuleRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.AutomationRule{}).
			Where("rule_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		result := tx.Where("rule_id = ?", id).Delete(&model.AutomationRule{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *automationRuleRepo) TouchGenerated(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.AutomationRule{}).
		Where("rule_id = ? AND (last_generated_at IS NULL OR last_generated_at < ?)", id, at).
		UpdateColumn("last_generated_at", at).Error
}
