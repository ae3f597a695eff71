package dto

import "time"

// ── 巡检单 DTO ──

// SolicitationListRequest 巡检单列表查询参数
type SolicitationListRequest struct {
	PaginationRequest
	Status    string `form:"status"     binding:"omitempty,oneof=pending fulfilled cancelled"`
	VehicleID string `form:"vehicle_id" binding:"omitempty,uuid"`
	From      string `form:"from"       binding:"omitempty,datetime=2006-01-02"`
	To        string `form:"to"         binding:"omitempty,datetime=2006-01-02"` // 含当天
}

// CreateSolicitationRequest 手动创建巡检单
type CreateSolicitationRequest struct {
	VehicleID     string    `json:"vehicle_id"     binding:"required,uuid"`
	TemplateID    *string   `json:"template_id"    binding:"omitempty,uuid"`
	ChecklistType string    `json:"checklist_type" binding:"required,oneof=daily weekly monthly pre_operational post_operational preventive_maintenance safety_inspection technical_inspection"`
	Shift         string    `json:"shift"          binding:"required,oneof=alpha bravo charlie delta adm"`
	ExpectedAt    time.Time `json:"expected_at"    binding:"required"`
	Notes         string    `json:"notes"          binding:"max=500"`
}

// SolicitationResponse 巡检单信息
type SolicitationResponse struct {
	ID               string           `json:"id"`
	VehicleID        string           `json:"vehicle_id"`
	Vehicle          *VehicleResponse `json:"vehicle,omitempty"`
	TemplateID       *string          `json:"template_id"`
	ChecklistType    string           `json:"checklist_type"`
	Shift            string           `json:"shift"`
	ExpectedAt       string           `json:"expected_at"`
	OccurrenceDate   string           `json:"occurrence_date"`
	AutomationRuleID *string          `json:"automation_rule_id"`
	Status           string           `json:"status"`
	Started          bool             `json:"started"`
	StartedAt        *string          `json:"started_at,omitempty"`
	StartedBy        *string          `json:"started_by,omitempty"`
	FulfilledAt      *string          `json:"fulfilled_at,omitempty"`
	ChecklistID      *string          `json:"checklist_id,omitempty"`
	CancelReason     string           `json:"cancel_reason,omitempty"`
	CancelledAt      *string          `json:"cancelled_at,omitempty"`
	CancelledBy      *string          `json:"cancelled_by,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        string           `json:"created_at"`
}

// SolicitationEvent 巡检单变更事件（SSE 推送）
type SolicitationEvent struct {
	Type           string `json:"type"` // created | started | fulfilled | cancelled | deleted
	SolicitationID string `json:"solicitation_id"`
	UnitID         string `json:"unit_id"`
	Status         string `json:"status,omitempty"`
	At             string `json:"at"`
}
