package model

// ── 角色 ──

// Role 用户角色
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleChief      Role = "chief"
	RoleSupervisor Role = "supervisor"
	RoleOperator   Role = "operator"
)

// Valid 校验角色取值
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleChief, RoleSupervisor, RoleOperator:
		return true
	}
	return false
}

// CanCreateSolicitation 可手动创建巡检单的角色
func (r Role) CanCreateSolicitation() bool {
	return r == RoleAdmin || r == RoleChief || r == RoleSupervisor
}

// CanCancelSolicitation 可取消巡检单的角色（基础操作员除外）
func (r Role) CanCancelSolicitation() bool {
	return r == RoleAdmin || r == RoleChief || r == RoleSupervisor
}

// CanDeleteSolicitation 仅管理员与主管可硬删除
func (r Role) CanDeleteSolicitation() bool {
	return r == RoleAdmin || r == RoleChief
}

// CanCancelChecklist 可取消已提交检查表的角色
func (r Role) CanCancelChecklist() bool {
	return r == RoleAdmin || r == RoleChief
}

// ── 值班班组 ──

// Shift 值班班组（ala de serviço）
type Shift string

const (
	ShiftAlpha   Shift = "alpha"
	ShiftBravo   Shift = "bravo"
	ShiftCharlie Shift = "charlie"
	ShiftDelta   Shift = "delta"
	ShiftADM     Shift = "adm"
)

// Valid 校验班组取值
func (s Shift) Valid() bool {
	switch s {
	case ShiftAlpha, ShiftBravo, ShiftCharlie, ShiftDelta, ShiftADM:
		return true
	}
	return false
}

// ── 检查表类型 ──

// ChecklistType 检查表类型
type ChecklistType string

const (
	ChecklistDaily                 ChecklistType = "daily"
	ChecklistWeekly                ChecklistType = "weekly"
	ChecklistMonthly               ChecklistType = "monthly"
	ChecklistPreOperational        ChecklistType = "pre_operational"
	ChecklistPostOperational       ChecklistType = "post_operational"
	ChecklistPreventiveMaintenance ChecklistType = "preventive_maintenance"
	ChecklistSafetyInspection      ChecklistType = "safety_inspection"
	ChecklistTechnicalInspection   ChecklistType = "technical_inspection"
)

// Valid 校验检查表类型取值
func (t ChecklistType) Valid() bool {
	switch t {
	case ChecklistDaily, ChecklistWeekly, ChecklistMonthly,
		ChecklistPreOperational, ChecklistPostOperational,
		ChecklistPreventiveMaintenance, ChecklistSafetyInspection, ChecklistTechnicalInspection:
		return true
	}
	return false
}

// ── 巡检单状态 ──

// SolicitationStatus 巡检单状态；删除为物理删除，不是状态
type SolicitationStatus string

const (
	SolicitationPending   SolicitationStatus = "pending"
	SolicitationFulfilled SolicitationStatus = "fulfilled"
	SolicitationCancelled SolicitationStatus = "cancelled"
)

// Terminal fulfilled / cancelled 为终态
func (s SolicitationStatus) Terminal() bool {
	return s == SolicitationFulfilled || s == SolicitationCancelled
}

// ── 检查表状态 ──

// ChecklistStatus 检查表状态
type ChecklistStatus string

const (
	ChecklistInProgress ChecklistStatus = "in_progress"
	ChecklistFinalized  ChecklistStatus = "finalized"
	ChecklistCancelled  ChecklistStatus = "cancelled"
)

// ── 检查项 ──

// ItemStatus 检查项结果
type ItemStatus string

const (
	ItemOK             ItemStatus = "ok"
	ItemWithAlteration ItemStatus = "with_alteration"
)

// Valid 校验检查项结果取值
func (s ItemStatus) Valid() bool {
	return s == ItemOK || s == ItemWithAlteration
}

// ItemType 模板检查项类型
type ItemType string

const (
	ItemTypeCheckbox ItemType = "checkbox"
	ItemTypeText     ItemType = "text"
	ItemTypeNumber   ItemType = "number"
	ItemTypePhoto    ItemType = "photo"
	ItemTypeRating   ItemType = "rating"
)

// Valid 校验检查项类型取值
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeCheckbox, ItemTypeText, ItemTypeNumber, ItemTypePhoto, ItemTypeRating:
		return true
	}
	return false
}
