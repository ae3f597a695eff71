package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
)

// TemplateRepository 检查表模板数据访问接口（只读）
type TemplateRepository interface {
	// GetWithStructure 返回模板及按 position 排序的分类与检查项
	GetWithStructure(ctx context.Context, unitID, id string) (*model.ChecklistTemplate, error)
	List(ctx context.Context, unitID string) ([]model.ChecklistTemplate, error)
}

type templateRepo struct {
	db *gorm.DB
}

// NewTemplateRepo 创建 TemplateRepository 实例
func NewTemplateRepo(db *gorm.DB) TemplateRepository {
	return &templateRepo{db: db}
}

func (r *templateRepo) GetWithStructure(ctx context.Context, unitID, id string) (*model.ChecklistTemplate, error) {
	var tpl model.ChecklistTemplate
	err := r.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Categories.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("template_id = ? AND unit_id = ?", id, unitID).
		First(&tpl).Error
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *templateRepo) List(ctx context.Context, unitID string) ([]model.ChecklistTemplate, error) {
	var templates []model.ChecklistTemplate
	err := r.db.WithContext(ctx).
		Where("unit_id = ? AND is_active = ?", unitID, true).
		Order("name ASC").
		Find(&templates).Error
	return templates, err
}
