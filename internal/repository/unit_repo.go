package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
)

// UnitRepository 单位（营区/分队）数据访问接口
type UnitRepository interface {
	Create(ctx context.Context, unit *model.Unit) error
	GetByID(ctx context.Context, id string) (*model.Unit, error)
	GetByName(ctx context.Context, name string) (*model.Unit, error)
	List(ctx context.Context) ([]model.Unit, error)
	CountUsers(ctx context.Context, unitID string) (int64, error)
}

// unitRepo UnitRepository 的 GORM 实现
type unitRepo struct {
	db *gorm.DB
}

// NewUnitRepo 创建 UnitRepository 实例
func NewUnitRepo(db *gorm.DB) UnitRepository {
	return &unitRepo{db: db}
}

func (r *unitRepo) Create(ctx context.Context, unit *model.Unit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *unitRepo) GetByID(ctx context.Context, id string) (*model.Unit, error) {
	var unit model.Unit
	err := r.db.WithContext(ctx).
		Where("unit_id = ?", id).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *unitRepo) GetByName(ctx context.Context, name string) (*model.Unit, error) {
	var unit model.Unit
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *unitRepo) List(ctx context.Context) ([]model.Unit, error) {
	var units []model.Unit
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&units).Error
	return units, err
}

// CountUsers 单位内未删除的用户数
func (r *unitRepo) CountUsers(ctx context.Context, unitID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("unit_id = ? AND deleted_at IS NULL", unitID).
		Count(&count).Error
	return count, err
}
