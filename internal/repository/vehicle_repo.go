package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
)

// VehicleFilter 车辆查询条件
type VehicleFilter struct {
	UnitID string
	Search string // 匹配编号、车型或车牌
	Type   string
}

// VehicleRepository 车辆数据访问接口（只读）
type VehicleRepository interface {
	GetByID(ctx context.Context, unitID, id string) (*model.Vehicle, error)
	List(ctx context.Context, f VehicleFilter) ([]model.Vehicle, error)
}

type vehicleRepo struct {
	db *gorm.DB
}

// NewVehicleRepo 创建 VehicleRepository 实例
func NewVehicleRepo(db *gorm.DB) VehicleRepository {
	return &vehicleRepo{db: db}
}

func (r *vehicleRepo) GetByID(ctx context.Context, unitID, id string) (*model.Vehicle, error) {
	var v model.Vehicle
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND unit_id = ?", id, unitID).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vehicleRepo) List(ctx context.Context, f VehicleFilter) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	db := r.db.WithContext(ctx).
		Where("unit_id = ? AND is_active = ?", f.UnitID, true)

	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		db = db.Where("LOWER(prefix) LIKE ? OR LOWER(model) LIKE ? OR LOWER(plate) LIKE ?", like, like, like)
	}
	if f.Type != "" {
		db = db.Where("type = ?", f.Type)
	}

	err := db.Order("prefix ASC").Find(&vehicles).Error
	return vehicles, err
}
