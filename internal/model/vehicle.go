package model

import "gorm.io/gorm"

// Vehicle 车辆表，对应 vehicles（仅供巡检流程查询，增删改不在本服务范围）
type Vehicle struct {
	VehicleID string `gorm:"type:uuid;primaryKey"            json:"vehicle_id"`
	UnitID    string `gorm:"type:uuid;not null;index"        json:"unit_id"`
	Prefix    string `gorm:"type:varchar(20);not null"       json:"prefix"` // 车辆编号，如 ABT-12
	Model     string `gorm:"type:varchar(100)"               json:"model"`
	Plate     string `gorm:"type:varchar(10);not null"       json:"plate"`
	Type      string `gorm:"type:varchar(40)"                json:"type"`
	IsActive  bool   `gorm:"not null;default:true"           json:"is_active"`
	BaseModel
}

func (Vehicle) TableName() string { return "vehicles" }

func (v *Vehicle) BeforeCreate(_ *gorm.DB) error {
	ensureID(&v.VehicleID)
	return nil
}
