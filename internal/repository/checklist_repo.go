package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
)

// ChecklistFilter 检查表列表查询条件
type ChecklistFilter struct {
	UnitID    string
	Status    model.ChecklistStatus
	VehicleID string
	Page
}

// ChecklistRepository 检查表数据访问接口
type ChecklistRepository interface {
	// Create 在同一事务中写入检查表及其明细
	Create(ctx context.Context, c *model.Checklist) error
	GetByID(ctx context.Context, id string) (*model.Checklist, error)
	List(ctx context.Context, f ChecklistFilter) ([]model.Checklist, int64, error)
	// UpdateInProgress 覆盖字段与明细；仅 in_progress 状态生效
	UpdateInProgress(ctx context.Context, c *model.Checklist) (bool, error)
	// Finalize in_progress → finalized
	Finalize(ctx context.Context, id, authenticatedBy string, at time.Time) (bool, error)
	// Cancel 任意非 cancelled 状态 → cancelled
	Cancel(ctx context.Context, id, reason, cancelledBy string, at time.Time) (bool, error)
}

type checklistRepo struct {
	db *gorm.DB
}

// NewChecklistRepo 创建 ChecklistRepository 实例
func NewChecklistRepo(db *gorm.DB) ChecklistRepository {
	return &checklistRepo{db: db}
}

func (r *checklistRepo) Create(ctx context.Context, c *model.Checklist) error {
	return r.db.WithContext(ctx).Omit("Vehicle").Create(c).Error
}

func (r *checklistRepo) GetByID(ctx context.Context, id string) (*model.Checklist, error) {
	var c model.Checklist
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Vehicle").
		Where("checklist_id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *checklistRepo) List(ctx context.Context, f ChecklistFilter) ([]model.Checklist, int64, error) {
	var list []model.Checklist
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Checklist{}).
		Where("unit_id = ?", f.UnitID)
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.VehicleID != "" {
		db = db.Where("vehicle_id = ?", f.VehicleID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := paginate(db.Preload("Vehicle"), f.Page).
		Order("performed_at DESC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *checklistRepo) UpdateInProgress(ctx context.Context, c *model.Checklist) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Checklist{}).
			Where("checklist_id = ? AND status = ?", c.ChecklistID, model.ChecklistInProgress).
			Updates(map[string]interface{}{
				"vehicle_id":             c.VehicleID,
				"template_id":            c.TemplateID,
				"checklist_type":         c.ChecklistType,
				"shift":                  c.Shift,
				"performed_at":           c.PerformedAt,
				"km_inicial":             c.OdometerStart,
				"combustivel_percentual": c.FuelPercent,
				"observations":           c.Observations,
				"updated_by":             c.UpdatedBy,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if err := tx.Where("checklist_id = ?", c.ChecklistID).
			Delete(&model.ChecklistItem{}).Error; err != nil {
			return err
		}
		for i := range c.Items {
			c.Items[i].ChecklistID = c.ChecklistID
			c.Items[i].ChecklistItemID = ""
		}
		if len(c.Items) > 0 {
			if err := tx.Create(&c.Items).Error; err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	return applied, err
}

func (r *checklistRepo) Finalize(ctx context.Context, id, authenticatedBy string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Checklist{}).
		Where("checklist_id = ? AND status = ?", id, model.ChecklistInProgress).
		Updates(map[string]interface{}{
			"status":           model.ChecklistFinalized,
			"authenticated_by": authenticatedBy,
			"finalized_at":     at,
			"updated_by":       authenticatedBy,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *checklistRepo) Cancel(ctx context.Context, id, reason, cancelledBy string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Checklist{}).
		Where("checklist_id = ? AND status <> ?", id, model.ChecklistCancelled).
		Updates(map[string]interface{}{
			"status":        model.ChecklistCancelled,
			"cancel_reason": reason,
			"cancelled_at":  at,
			"cancelled_by":  cancelledBy,
			"updated_by":    cancelledBy,
		})
	return result.RowsAffected > 0, result.Error
}
