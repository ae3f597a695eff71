package dto

import (
	"bytes"
	"encoding/json"
)

// ── 检查表填写会话 DTO ──

// FlexString 同时接受 JSON 字符串与数字，交由业务层解析；
// 前端输入框原样提交，非数字内容在录入阶段即被拒绝
type FlexString string

// UnmarshalJSON 实现 json.Unmarshaler
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = FlexString(b)
	return nil
}

// OpenSessionRequest 打开填写会话；两者均为空时为临时检查
type OpenSessionRequest struct {
	SolicitationID *string `json:"solicitation_id" binding:"omitempty,uuid"`
	ChecklistID    *string `json:"checklist_id"    binding:"omitempty,uuid"` // 继续填写进行中的检查表
}

// SessionContextRequest 第一步字段；为空的字段保持原值
type SessionContextRequest struct {
	VehicleID     *string     `json:"vehicle_id"             binding:"omitempty,uuid"`
	KmInicial     *FlexString `json:"km_inicial"`
	Combustivel   *FlexString `json:"combustivel_percentual"`
	Shift         *string     `json:"shift"`
	ChecklistType *string     `json:"checklist_type"`
	TemplateID    *string     `json:"template_id"            binding:"omitempty,uuid"`
	Observations  *string     `json:"observations"           binding:"omitempty,max=2000"`
}

// ItemUpdateRequest 更新当前分类中的检查项
type ItemUpdateRequest struct {
	Status *string `json:"status" binding:"omitempty,oneof=ok with_alteration"`
	Note   *string `json:"note"   binding:"omitempty,max=2000"`
	Value  *string `json:"value"  binding:"omitempty,max=200"`
}

// SubmitRequest 第三步：凭据复核并提交
type SubmitRequest struct {
	Identity     string  `json:"identity"     binding:"required,max=50"`
	Password     string  `json:"password"     binding:"required"`
	Observations *string `json:"observations" binding:"omitempty,max=2000"`
}

// SessionContextResponse 第一步字段
type SessionContextResponse struct {
	VehicleID     string `json:"vehicle_id"`
	KmInicial     *int64 `json:"km_inicial"`
	Combustivel   *int   `json:"combustivel_percentual"`
	Shift         string `json:"shift"`
	ChecklistType string `json:"checklist_type"`
	TemplateID    string `json:"template_id"`
}

// SessionItemResponse 会话中的检查项
type SessionItemResponse struct {
	Index         int               `json:"index"`
	Name          string            `json:"name"`
	Category      string            `json:"category"`
	CategoryIndex int               `json:"category_index"`
	Type          string            `json:"type"`
	Required      bool              `json:"required"`
	ImageURL      string            `json:"image_url,omitempty"`
	Status        string            `json:"status"`
	Note          string            `json:"note,omitempty"`
	Value         string            `json:"value,omitempty"`
	Photos        []PhotoAttachment `json:"photos"`
}

// SessionResponse 会话完整状态
type SessionResponse struct {
	ID             string                 `json:"id"`
	Step           string                 `json:"step"`
	Category       int                    `json:"category"`
	Categories     []string               `json:"categories"`
	SolicitationID string                 `json:"solicitation_id,omitempty"`
	ChecklistID    string                 `json:"checklist_id,omitempty"`
	VehicleLocked  bool                   `json:"vehicle_locked"`
	TypeLocked     bool                   `json:"type_locked"`
	Context        SessionContextResponse `json:"context"`
	Observations   string                 `json:"observations,omitempty"`
	Items          []SessionItemResponse  `json:"items"`
	Identity       string                 `json:"identity,omitempty"`
	ExpiresAt      string                 `json:"expires_at"`
}
