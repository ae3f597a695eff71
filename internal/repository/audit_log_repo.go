package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
)

// AuditLogRepository 审计日志数据访问接口（仅追加）
type AuditLogRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	ListByEntity(ctx context.Context, unitID, entity, entityID string) ([]model.AuditLog, error)
}

type auditLogRepo struct {
	db *gorm.DB
}

// NewAuditLogRepo 创建 AuditLogRepository 实例
func NewAuditLogRepo(db *gorm.DB) AuditLogRepository {
	return &auditLogRepo{db: db}
}

func (r *auditLogRepo) Create(ctx context.Context, log *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *auditLogRepo) ListByEntity(ctx context.Context, unitID, entity, entityID string) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := r.db.WithContext(ctx).
		Where("unit_id = ? AND entity = ? AND entity_id = ?", unitID, entity, entityID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
