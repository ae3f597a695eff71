package model

import "gorm.io/gorm"

// Unit 单位（租户）表，对应 units
type Unit struct {
	UnitID string `gorm:"type:uuid;primaryKey"       json:"unit_id"`
	Name   string `gorm:"type:varchar(120);not null" json:"name"`
	BaseModel
}

func (Unit) TableName() string { return "units" }

func (u *Unit) BeforeCreate(_ *gorm.DB) error {
	ensureID(&u.UnitID)
	return nil
}

// User 用户表，对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey"                         json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                   json:"name"`
	Username     string `gorm:"type:varchar(50);not null;uniqueIndex"        json:"username"` // 登录名/工号，凭据复核使用
	PasswordHash string `gorm:"type:varchar(255);not null"                   json:"-"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'operator'" json:"role"`
	UnitID       string `gorm:"type:uuid;not null;index"                     json:"unit_id"`
	IsActive     bool   `gorm:"not null;default:true"                        json:"is_active"`
	VersionedModel

	// 关联
	Unit *Unit `gorm:"foreignKey:UnitID;references:UnitID" json:"unit,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(_ *gorm.DB) error {
	ensureID(&u.UserID)
	return nil
}
