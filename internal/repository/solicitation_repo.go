package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
)

// SolicitationFilter 巡检单列表查询条件
type SolicitationFilter struct {
	UnitID    string
	Status    model.SolicitationStatus
	VehicleID string
	From      *time.Time // expected_at >= From
	To        *time.Time // expected_at < To
	Page
}

// SolicitationRepository 巡检单数据访问接口
//
// 状态迁移方法均为带条件的单条 UPDATE/DELETE（WHERE status='pending'），
// 返回 applied=false 表示记录不存在或已不处于 pending，调用方需重新读取判断。
type SolicitationRepository interface {
	Create(ctx context.Context, s *model.Solicitation) error
	// CreateIfAbsent 依赖 (automation_rule_id, occurrence_date) 部分唯一索引；冲突时不插入并返回 false
	CreateIfAbsent(ctx context.Context, s *model.Solicitation) (bool, error)
	ExistsOpenOccurrence(ctx context.Context, ruleID, occurrenceDate string) (bool, error)
	// ExistsOccurrence 不区分状态，已取消的也计入
	ExistsOccurrence(ctx context.Context, ruleID, occurrenceDate string) (bool, error)
	GetByID(ctx context.Context, id string) (*model.Solicitation, error)
	List(ctx context.Context, f SolicitationFilter) ([]model.Solicitation, int64, error)

	MarkStarted(ctx context.Context, id, userID string, at time.Time) (bool, error)
	Fulfill(ctx context.Context, id, checklistID string, at time.Time) (bool, error)
	Cancel(ctx context.Context, id, reason, cancelledBy string, at time.Time) (bool, error)
	DeletePending(ctx context.Context, id string) (bool, error)
}

type solicitationRepo struct {
	db *gorm.DB
}

// NewSolicitationRepo 创建 SolicitationRepository 实例
func NewSolicitationRepo(db *gorm.DB) SolicitationRepository {
	return &solicitationRepo{db: db}
}

func (r *solicitationRepo) Create(ctx context.Context, s *model.Solicitation) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *solicitationRepo) CreateIfAbsent(ctx context.Context, s *model.Solicitation) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(s)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *solicitationRepo) ExistsOpenOccurrence(ctx context.Context, ruleID, occurrenceDate string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Solicitation{}).
		Where("automation_rule_id = ? AND occurrence_date = ? AND status IN ?",
			ruleID, occurrenceDate,
			[]model.SolicitationStatus{model.SolicitationPending, model.SolicitationFulfilled}).
		Count(&count).Error
	return count > 0, err
}

func (r *solicitationRepo) ExistsOccurrence(ctx context.Context, ruleID, occurrenceDate string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Solicitation{}).
		Where("automation_rule_id = ? AND occurrence_date = ?", ruleID, occurrenceDate).
		Count(&count).Error
	return count > 0, err
}

func (r *solicitationRepo) GetByID(ctx context.Context, id string) (*model.Solicitation, error) {
	var s model.Solicitation
	err := r.db.WithContext(ctx).
		Preload("Vehicle").
		Where("solicitation_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *solicitationRepo) List(ctx context.Context, f SolicitationFilter) ([]model.Solicitation, int64, error) {
	var list []model.Solicitation
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Solicitation{}).
		Where("unit_id = ?", f.UnitID)
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.VehicleID != "" {
		db = db.Where("vehicle_id = ?", f.VehicleID)
	}
	if f.From != nil {
		db = db.Where("expected_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("expected_at < ?", *f.To)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := paginate(db.Preload("Vehicle"), f.Page).
		Order("expected_at ASC, solicitation_id ASC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *solicitationRepo) pending(ctx context.Context, id string) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Solicitation{}).
		Where("solicitation_id = ? AND status = ?", id, model.SolicitationPending)
}

func (r *solicitationRepo) MarkStarted(ctx context.Context, id, userID string, at time.Time) (bool, error) {
	result := r.pending(ctx, id).Updates(map[string]interface{}{
		"started_at": at,
		"started_by": userID,
		"updated_by": userID,
	})
	return result.RowsAffected > 0, result.Error
}

func (r *solicitationRepo) Fulfill(ctx context.Context, id, checklistID string, at time.Time) (bool, error) {
	result := r.pending(ctx, id).Updates(map[string]interface{}{
		"status":       model.SolicitationFulfilled,
		"fulfilled_at": at,
		"checklist_id": checklistID,
	})
	return result.RowsAffected > 0, result.Error
}

func (r *solicitationRepo) Cancel(ctx context.Context, id, reason, cancelledBy string, at time.Time) (bool, error) {
	result := r.pending(ctx, id).Updates(map[string]interface{}{
		"status":        model.SolicitationCancelled,
		"cancel_reason": reason,
		"cancelled_at":  at,
		"cancelled_by":  cancelledBy,
		"updated_by":    cancelledBy,
	})
	return result.RowsAffected > 0, result.Error
}

func (r *solicitationRepo) DeletePending(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("solicitation_id = ? AND status = ?", id, model.SolicitationPending).
		Delete(&model.Solicitation{})
	return result.RowsAffected > 0, result.Error
}
