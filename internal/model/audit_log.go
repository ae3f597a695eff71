package model

import (
	"time"

	"gorm.io/gorm"
)

// AuditLog 巡检流程审计日志，对应 audit_logs（纯追加）
type AuditLog struct {
	AuditLogID string    `gorm:"type:uuid;primaryKey"              json:"audit_log_id"`
	UnitID     string    `gorm:"type:uuid;not null;index"          json:"unit_id"`
	Entity     string    `gorm:"type:varchar(40);not null"         json:"entity"`    // solicitation | checklist | automation_rule
	EntityID   string    `gorm:"type:uuid;not null;index"          json:"entity_id"` // 被删除的记录同样保留 ID
	Action     string    `gorm:"type:varchar(40);not null"         json:"action"`    // generate | cancel | delete | finalize ...
	Reason     string    `gorm:"type:varchar(500)"                 json:"reason,omitempty"`
	OperatorID *string   `gorm:"type:uuid"                         json:"operator_id,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	ensureID(&a.AuditLogID)
	return nil
}
