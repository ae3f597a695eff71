package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Unit           UnitRepository
	User           UserRepository
	Vehicle        VehicleRepository
	Template       TemplateRepository
	AutomationRule AutomationRuleRepository
	Solicitation   SolicitationRepository
	Checklist      ChecklistRepository
	AuditLog       AuditLogRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Unit:           NewUnitRepo(db),
		User:           NewUserRepo(db),
		Vehicle:        NewVehicleRepo(db),
		Template:       NewTemplateRepo(db),
		AutomationRule: NewAutomationRuleRepo(db),
		Solicitation:   NewSolicitationRepo(db),
		Checklist:      NewChecklistRepo(db),
		AuditLog:       NewAuditLogRepo(db),
	}
}

// Page 通用分页参数
type Page struct {
	Offset int
	Limit  int
}

func paginate(db *gorm.DB, p Page) *gorm.DB {
	if p.Limit <= 0 {
		return db
	}
	return db.Offset(p.Offset).Limit(p.Limit)
}
