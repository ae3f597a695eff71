package dto

// ── 自动生成规则 DTO ──

// AutomationRuleRequest 创建/更新规则请求
// 草稿允许缺少车辆、时间与星期；激活时由业务层校验完整性
type AutomationRuleRequest struct {
	Name          string  `json:"name"           binding:"required,max=120"`
	IsActive      bool    `json:"is_active"`
	VehicleID     *string `json:"vehicle_id"     binding:"omitempty,uuid"`
	TemplateID    *string `json:"template_id"    binding:"omitempty,uuid"`
	TimeOfDay     *string `json:"time_of_day"    binding:"omitempty,hhmm"`
	Weekdays      []int   `json:"weekdays"       binding:"omitempty,weekdays"`
	Shift         string  `json:"shift"          binding:"required,oneof=alpha bravo charlie delta adm"`
	ChecklistType string  `json:"checklist_type" binding:"required,oneof=daily weekly monthly pre_operational post_operational preventive_maintenance safety_inspection technical_inspection"`
	Version       int     `json:"version"` // 更新时必填
}

// ToggleAutomationRequest 启用/停用请求
type ToggleAutomationRequest struct {
	Active  *bool `json:"active"  binding:"required"`
	Version int   `json:"version" binding:"required,min=1"`
}

// AutomationListRequest 规则列表查询参数
type AutomationListRequest struct {
	PaginationRequest
	VehicleID string `form:"vehicle_id" binding:"omitempty,uuid"`
	Active    *bool  `form:"active"`
}

// AutomationRuleResponse 规则信息
type AutomationRuleResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	IsActive        bool             `json:"is_active"`
	Complete        bool             `json:"complete"`
	VehicleID       *string          `json:"vehicle_id"`
	Vehicle         *VehicleResponse `json:"vehicle,omitempty"`
	TemplateID      *string          `json:"template_id"`
	TimeOfDay       *string          `json:"time_of_day"`
	Weekdays        []int            `json:"weekdays"`
	Shift           string           `json:"shift"`
	ChecklistType   string           `json:"checklist_type"`
	LastGeneratedAt *string          `json:"last_generated_at,omitempty"`
	Version         int              `json:"version"`
	CreatedAt       string           `json:"created_at"`
}

// GenerationFailure 单条规则生成失败
type GenerationFailure struct {
	RuleID string `json:"rule_id"`
	Error  string `json:"error"`
}

// GenerationReportResponse 一次生成批次的结果
type GenerationReportResponse struct {
	Date         string              `json:"date"`
	Created      []string            `json:"created"` // 新建的巡检单 ID
	Skipped      []string            `json:"skipped"` // 当日已存在而跳过的规则 ID
	NotScheduled int                 `json:"not_scheduled"`
	Failures     []GenerationFailure `json:"failures"`
}

// GenerateNowResponse 立即生成结果；created=false 表示当日已存在
type GenerateNowResponse struct {
	Created      bool                  `json:"created"`
	Solicitation *SolicitationResponse `json:"solicitation,omitempty"`
}
