package dto

import "time"

// ── 检查表 DTO ──

// ChecklistItemRequest 检查项
type ChecklistItemRequest struct {
	ItemName     string            `json:"item_name"     binding:"required,max=200"`
	CategoryName string            `json:"category_name" binding:"required,max=120"`
	ItemType     string            `json:"item_type"     binding:"required,oneof=checkbox text number photo rating"`
	Required     bool              `json:"required"`
	Status       string            `json:"status"        binding:"required,oneof=ok with_alteration"`
	Note         string            `json:"note"`
	Value        string            `json:"value"         binding:"max=200"`
	Photos       []PhotoAttachment `json:"photos"        binding:"omitempty,dive"`
}

// ChecklistRequest 创建/更新检查表（仅 in_progress 可更新）
type ChecklistRequest struct {
	VehicleID      string                 `json:"vehicle_id"             binding:"required,uuid"`
	TemplateID     string                 `json:"template_id"            binding:"required,uuid"`
	SolicitationID *string                `json:"solicitation_id"        binding:"omitempty,uuid"` // 仅创建时生效
	ChecklistType  string                 `json:"checklist_type"         binding:"required,oneof=daily weekly monthly pre_operational post_operational preventive_maintenance safety_inspection technical_inspection"`
	Shift          string                 `json:"shift"                  binding:"required,oneof=alpha bravo charlie delta adm"`
	PerformedAt    *time.Time             `json:"performed_at"`
	KmInicial      *int64                 `json:"km_inicial"             binding:"required,min=0"`
	Combustivel    *int                   `json:"combustivel_percentual" binding:"required,min=0,max=100"`
	Observations   string                 `json:"observations"           binding:"max=2000"`
	Items          []ChecklistItemRequest `json:"items"                  binding:"required,min=1,dive"`
}

// FinalizeChecklistRequest 定稿请求（凭据复核）
type FinalizeChecklistRequest struct {
	Identity string `json:"identity" binding:"required,max=50"`
	Password string `json:"password" binding:"required"`
}

// ChecklistListRequest 检查表列表查询参数
type ChecklistListRequest struct {
	PaginationRequest
	Status    string `form:"status"     binding:"omitempty,oneof=in_progress finalized cancelled"`
	VehicleID string `form:"vehicle_id" binding:"omitempty,uuid"`
}

// ChecklistItemResponse 检查项
type ChecklistItemResponse struct {
	ID           string            `json:"id"`
	ItemName     string            `json:"item_name"`
	CategoryName string            `json:"category_name"`
	ItemType     string            `json:"item_type"`
	Required     bool              `json:"required"`
	Status       string            `json:"status"`
	Note         string            `json:"note,omitempty"`
	Value        string            `json:"value,omitempty"`
	Photos       []PhotoAttachment `json:"photos"`
	Position     int               `json:"position"`
}

// ChecklistResponse 检查表信息
type ChecklistResponse struct {
	ID              string                  `json:"id"`
	VehicleID       string                  `json:"vehicle_id"`
	Vehicle         *VehicleResponse        `json:"vehicle,omitempty"`
	TemplateID      string                  `json:"template_id"`
	SolicitationID  *string                 `json:"solicitation_id"`
	ChecklistType   string                  `json:"checklist_type"`
	Shift           string                  `json:"shift"`
	PerformedAt     string                  `json:"performed_at"`
	KmInicial       int64                   `json:"km_inicial"`
	Combustivel     int                     `json:"combustivel_percentual"`
	Observations    string                  `json:"observations,omitempty"`
	Status          string                  `json:"status"`
	AuthenticatedBy *string                 `json:"authenticated_by,omitempty"`
	FinalizedAt     *string                 `json:"finalized_at,omitempty"`
	CancelReason    string                  `json:"cancel_reason,omitempty"`
	CancelledAt     *string                 `json:"cancelled_at,omitempty"`
	Items           []ChecklistItemResponse `json:"items,omitempty"`
	CreatedAt       string                  `json:"created_at"`
}
