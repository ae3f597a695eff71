package dto

// ── 认证模块响应 ──

// TokenResponse Token 响应
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int          `json:"expires_in"` // Access Token 有效期（秒）
	User        UserResponse `json:"user"`
}

// ── 用户模块响应 ──

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Username string        `json:"username"`
	Role     string        `json:"role"`
	Unit     *UnitResponse `json:"unit,omitempty"`
}

// UnitResponse 单位简要信息
type UnitResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// CancelRequest 取消请求（巡检单 / 检查表），原因由业务层校验
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// AuditLogResponse 审计日志
type AuditLogResponse struct {
	ID         string `json:"id"`
	Entity     string `json:"entity"`
	EntityID   string `json:"entity_id"`
	Action     string `json:"action"`
	Reason     string `json:"reason,omitempty"`
	OperatorID string `json:"operator_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// AuditLogListRequest 审计日志查询参数
type AuditLogListRequest struct {
	Entity   string `form:"entity"    binding:"required,oneof=solicitation checklist automation_rule"`
	EntityID string `form:"entity_id" binding:"required,uuid"`
}
