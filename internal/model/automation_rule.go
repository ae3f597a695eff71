package model

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// AutomationRule 巡检自动生成规则，对应 automation_rules
// 草稿态允许缺少车辆/时间/星期；激活或生成前必须补全（见 Complete）
type AutomationRule struct {
	RuleID          string        `gorm:"type:uuid;primaryKey"                      json:"rule_id"`
	UnitID          string        `gorm:"type:uuid;not null;index"                  json:"unit_id"`
	Name            string        `gorm:"type:varchar(120);not null"                json:"name"`
	IsActive        bool          `gorm:"not null;default:false"                    json:"is_active"`
	VehicleID       *string       `gorm:"type:uuid"                                 json:"vehicle_id,omitempty"`
	TemplateID      *string       `gorm:"type:uuid"                                 json:"template_id,omitempty"`
	TimeOfDay       *string       `gorm:"type:varchar(5)"                           json:"time_of_day,omitempty"` // "HH:MM"
	Weekdays        WeekdaySet    `gorm:"type:int[]"                                json:"weekdays"`              // 0=周日 … 6=周六
	Shift           Shift         `gorm:"type:varchar(20);not null"                 json:"shift"`
	ChecklistType   ChecklistType `gorm:"type:varchar(40);not null;default:'daily'" json:"checklist_type"`
	LastGeneratedAt *time.Time    `json:"last_generated_at,omitempty"`
	VersionedModel

	// 关联
	Vehicle  *Vehicle           `gorm:"foreignKey:VehicleID;references:VehicleID"   json:"vehicle,omitempty"`
	Template *ChecklistTemplate `gorm:"foreignKey:TemplateID;references:TemplateID" json:"template,omitempty"`
}

func (AutomationRule) TableName() string { return "automation_rules" }

func (r *AutomationRule) BeforeCreate(_ *gorm.DB) error {
	ensureID(&r.RuleID)
	return nil
}

// Complete 车辆、执行时间与至少一个星期均已设置
func (r *AutomationRule) Complete() bool {
	return r.VehicleID != nil && *r.VehicleID != "" &&
		r.TimeOfDay != nil && *r.TimeOfDay != "" &&
		len(r.Weekdays) > 0
}

// RunsOn 判断规则是否在指定星期执行
func (r *AutomationRule) RunsOn(day time.Weekday) bool {
	return r.Weekdays.Has(day)
}

// ── WeekdaySet ──

// WeekdaySet 执行星期集合（0=周日 … 6=周六），存储为 PostgreSQL INT[]
type WeekdaySet []int

// Scan 解析 PostgreSQL 返回的 {1,3,5} 文本
func (w *WeekdaySet) Scan(src interface{}) error {
	if src == nil {
		*w = nil
		return nil
	}
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("WeekdaySet.Scan: unsupported type %T", src)
	}
	s = strings.Trim(s, "{}")
	if s == "" {
		*w = WeekdaySet{}
		return nil
	}
	parts := strings.Split(s, ",")
	days := make(WeekdaySet, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("WeekdaySet.Scan: invalid element %q: %w", p, err)
		}
		days = append(days, n)
	}
	*w = days
	return nil
}

func (w WeekdaySet) Value() (driver.Value, error) {
	if w == nil {
		return "{}", nil
	}
	parts := make([]string, len(w))
	for i, n := range w {
		parts[i] = strconv.Itoa(n)
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

func (w WeekdaySet) Has(day time.Weekday) bool {
	for _, d := range w {
		if d == int(day) {
			return true
		}
	}
	return false
}

// Valid 所有元素都在 0..6 内
func (w WeekdaySet) Valid() bool {
	for _, d := range w {
		if d < int(time.Sunday) || d > int(time.Saturday) {
			return false
		}
	}
	return true
}

// Normalize 去重并升序
func (w WeekdaySet) Normalize() WeekdaySet {
	seen := make(map[int]bool, len(w))
	out := make(WeekdaySet, 0, len(w))
	for _, d := range w {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}
