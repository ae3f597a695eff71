package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Checklist 车辆检查表，对应 checklists
type Checklist struct {
	ChecklistID     string          `gorm:"type:uuid;primaryKey"                           json:"checklist_id"`
	UnitID          string          `gorm:"type:uuid;not null;index"                       json:"unit_id"`
	VehicleID       string          `gorm:"type:uuid;not null;index"                       json:"vehicle_id"`
	TemplateID      string          `gorm:"type:uuid;not null"                             json:"template_id"`
	SolicitationID  *string         `gorm:"type:uuid;index"                                json:"solicitation_id,omitempty"`
	ChecklistType   ChecklistType   `gorm:"type:varchar(40);not null"                      json:"checklist_type"`
	Shift           Shift           `gorm:"type:varchar(20);not null"                      json:"shift"`
	PerformedAt     time.Time       `gorm:"not null"                                       json:"performed_at"`
	OdometerStart   int64           `gorm:"column:km_inicial;not null"                     json:"km_inicial"`
	FuelPercent     int             `gorm:"column:combustivel_percentual;not null"         json:"combustivel_percentual"`
	Observations    string          `gorm:"type:text"                                      json:"observations,omitempty"`
	Status          ChecklistStatus `gorm:"type:varchar(20);not null;default:'in_progress'" json:"status"`
	AuthenticatedBy *string         `gorm:"type:uuid"                                      json:"authenticated_by,omitempty"`
	FinalizedAt     *time.Time      `json:"finalized_at,omitempty"`
	CancelReason    string          `gorm:"type:varchar(500)"                              json:"cancel_reason,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CancelledBy     *string         `gorm:"type:uuid"                                      json:"cancelled_by,omitempty"`
	BaseModel

	// 关联
	Items   []ChecklistItem `gorm:"foreignKey:ChecklistID"                    json:"items,omitempty"`
	Vehicle *Vehicle        `gorm:"foreignKey:VehicleID;references:VehicleID" json:"vehicle,omitempty"`
}

func (Checklist) TableName() string { return "checklists" }

func (c *Checklist) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.ChecklistID)
	if c.Status == "" {
		c.Status = ChecklistInProgress
	}
	return nil
}

// PhotoAttachment 上传后的照片元数据（存储只保存 URL 与元信息，不保存字节）
type PhotoAttachment struct {
	URL          string `json:"url"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	Filename     string `json:"filename"`
}

// ChecklistItem 检查表明细，对应 checklist_items
type ChecklistItem struct {
	ChecklistItemID string                             `gorm:"type:uuid;primaryKey"                  json:"checklist_item_id"`
	ChecklistID     string                             `gorm:"type:uuid;not null;index"              json:"checklist_id"`
	ItemName        string                             `gorm:"type:varchar(200);not null"            json:"item_name"`
	CategoryName    string                             `gorm:"type:varchar(120);not null"            json:"category_name"`
	ItemType        ItemType                           `gorm:"type:varchar(20);not null"             json:"item_type"`
	Required        bool                               `gorm:"not null;default:false"                json:"required"`
	Status          ItemStatus                         `gorm:"type:varchar(20);not null;default:'ok'" json:"status"`
	Note            string                             `gorm:"type:text"                             json:"note,omitempty"`
	Value           string                             `gorm:"type:varchar(200)"                     json:"value,omitempty"`
	Photos          datatypes.JSONSlice[PhotoAttachment] `gorm:"type:jsonb"                          json:"photos"`
	Position        int                                `gorm:"not null;default:0"                    json:"position"`
}

func (ChecklistItem) TableName() string { return "checklist_items" }

func (i *ChecklistItem) BeforeCreate(_ *gorm.DB) error {
	ensureID(&i.ChecklistItemID)
	return nil
}
