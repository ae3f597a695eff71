package model

import (
	"time"

	"gorm.io/gorm"
)

// Solicitation 巡检单（待完成的检查表工作项），对应 solicitations
//
// (automation_rule_id, occurrence_date) 在 status IN ('pending','fulfilled') 范围内唯一，
// 由数据库部分唯一索引保证，生成器依赖该索引实现幂等。
type Solicitation struct {
	SolicitationID   string             `gorm:"type:uuid;primaryKey"                       json:"solicitation_id"`
	UnitID           string             `gorm:"type:uuid;not null;index"                   json:"unit_id"`
	VehicleID        string             `gorm:"type:uuid;not null;index"                   json:"vehicle_id"`
	TemplateID       *string            `gorm:"type:uuid"                                  json:"template_id,omitempty"`
	ChecklistType    ChecklistType      `gorm:"type:varchar(40);not null"                  json:"checklist_type"`
	Shift            Shift              `gorm:"type:varchar(20);not null"                  json:"shift"`
	ExpectedAt       time.Time          `gorm:"not null"                                   json:"expected_at"`
	OccurrenceDate   string             `gorm:"type:varchar(10);not null"                  json:"occurrence_date"` // YYYY-MM-DD
	AutomationRuleID *string            `gorm:"type:uuid;index"                            json:"automation_rule_id,omitempty"`
	Status           SolicitationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Notes            string             `gorm:"type:varchar(500)"                          json:"notes,omitempty"`
	StartedAt        *time.Time         `json:"started_at,omitempty"` // 仅提示“已有人开始”，不构成状态
	StartedBy        *string            `gorm:"type:uuid"                                  json:"started_by,omitempty"`
	FulfilledAt      *time.Time         `json:"fulfilled_at,omitempty"`
	ChecklistID      *string            `gorm:"type:uuid"                                  json:"checklist_id,omitempty"`
	CancelReason     string             `gorm:"type:varchar(500)"                          json:"cancel_reason,omitempty"`
	CancelledAt      *time.Time         `json:"cancelled_at,omitempty"`
	CancelledBy      *string            `gorm:"type:uuid"                                  json:"cancelled_by,omitempty"`
	BaseModel

	// 关联
	Vehicle  *Vehicle           `gorm:"foreignKey:VehicleID;references:VehicleID"   json:"vehicle,omitempty"`
	Template *ChecklistTemplate `gorm:"foreignKey:TemplateID;references:TemplateID" json:"template,omitempty"`
}

func (Solicitation) TableName() string { return "solicitations" }

func (s *Solicitation) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.SolicitationID)
	if s.Status == "" {
		s.Status = SolicitationPending
	}
	return nil
}
