package model

import "gorm.io/gorm"

// ChecklistTemplate 检查表模板，对应 checklist_templates
type ChecklistTemplate struct {
	TemplateID string `gorm:"type:uuid;primaryKey"       json:"template_id"`
	UnitID     string `gorm:"type:uuid;not null;index"   json:"unit_id"`
	Name       string `gorm:"type:varchar(120);not null" json:"name"`
	IsActive   bool   `gorm:"not null;default:true"      json:"is_active"`
	BaseModel

	// 关联（按 position 排序加载）
	Categories []TemplateCategory `gorm:"foreignKey:TemplateID" json:"categories,omitempty"`
}

func (ChecklistTemplate) TableName() string { return "checklist_templates" }

func (t *ChecklistTemplate) BeforeCreate(_ *gorm.DB) error {
	ensureID(&t.TemplateID)
	return nil
}

// TemplateCategory 模板分类，对应 template_categories
type TemplateCategory struct {
	CategoryID string `gorm:"type:uuid;primaryKey"       json:"category_id"`
	TemplateID string `gorm:"type:uuid;not null;index"   json:"template_id"`
	Name       string `gorm:"type:varchar(120);not null" json:"name"`
	Position   int    `gorm:"not null;default:0"         json:"position"`

	Items []TemplateItem `gorm:"foreignKey:CategoryID" json:"items,omitempty"`
}

func (TemplateCategory) TableName() string { return "template_categories" }

func (c *TemplateCategory) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.CategoryID)
	return nil
}

// TemplateItem 模板检查项，对应 template_items
type TemplateItem struct {
	ItemID     string   `gorm:"type:uuid;primaryKey"                         json:"item_id"`
	CategoryID string   `gorm:"type:uuid;not null;index"                     json:"category_id"`
	Name       string   `gorm:"type:varchar(200);not null"                   json:"name"`
	Type       ItemType `gorm:"type:varchar(20);not null;default:'checkbox'" json:"type"`
	Required   bool     `gorm:"not null;default:false"                       json:"required"`
	ImageURL   string   `gorm:"type:varchar(500)"                            json:"image_url,omitempty"`
	Position   int      `gorm:"not null;default:0"                           json:"position"`
}

func (TemplateItem) TableName() string { return "template_items" }

func (i *TemplateItem) BeforeCreate(_ *gorm.DB) error {
	ensureID(&i.ItemID)
	return nil
}
