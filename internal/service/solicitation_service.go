package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/repository"
)

// ── 巡检单模块业务错误 ──

var (
	ErrSolicitationNotFound   = errors.New("巡检单不存在")
	ErrSolicitationNotPending = errors.New("巡检单已完成或已取消，无法执行该操作")
	ErrAlreadyFulfilled       = errors.New("巡检单已完成")
	ErrReasonRequired         = errors.New("请填写取消原因")
	ErrPermissionDenied       = errors.New("无权执行该操作")
	ErrInvalidDateRange       = errors.New("日期范围无效")
)

// SolicitationService 巡检单生命周期业务接口
//
// 状态迁移 pending → fulfilled | cancelled 均为带条件的单条更新，
// 未生效时重新读取最新状态判断原因，不依赖调用方持有的旧数据。
type SolicitationService interface {
	List(ctx context.Context, unitID string, req *dto.SolicitationListRequest) ([]dto.SolicitationResponse, int64, error)
	Get(ctx context.Context, unitID, id string) (*dto.SolicitationResponse, error)
	Create(ctx context.Context, unitID, callerID string, role model.Role, req *dto.CreateSolicitationRequest) (*dto.SolicitationResponse, error)
	// Start 标记“已有人开始”并返回最新数据；非独占，不改变状态
	Start(ctx context.Context, unitID, id, callerID string) (*dto.SolicitationResponse, error)
	Cancel(ctx context.Context, unitID, id, callerID string, role model.Role, reason string) (*dto.SolicitationResponse, error)
	Delete(ctx context.Context, unitID, id, callerID string, role model.Role) error
	// Fulfill 首次完成生效；重复完成返回 ErrAlreadyFulfilled，调用方视为幂等
	Fulfill(ctx context.Context, id, checklistID string) error
}

type solicitationService struct {
	repo   *repository.Repository
	loc    *time.Location
	events *eventNotifier
	now    func() time.Time
	logger *zap.Logger
}

// NewSolicitationService 创建 SolicitationService 实例；loc 用于解析日期筛选与计算发生日期
func NewSolicitationService(repo *repository.Repository, loc *time.Location, events *eventNotifier, logger *zap.Logger) SolicitationService {
	return &solicitationService{repo: repo, loc: loc, events: events, now: time.Now, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *solicitationService) List(ctx context.Context, unitID string, req *dto.SolicitationListRequest) ([]dto.SolicitationResponse, int64, error) {
	filter := repository.SolicitationFilter{
		UnitID:    unitID,
		Status:    model.SolicitationStatus(req.Status),
		VehicleID: req.VehicleID,
		Page:      repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()},
	}
	if req.From != "" {
		from, err := time.ParseInLocation(dateLayout, req.From, s.loc)
		if err != nil {
			return nil, 0, ErrInvalidDateRange
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.ParseInLocation(dateLayout, req.To, s.loc)
		if err != nil {
			return nil, 0, ErrInvalidDateRange
		}
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		return nil, 0, ErrInvalidDateRange
	}

	list, total, err := s.repo.Solicitation.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出巡检单失败", zap.Error(err))
		return nil, 0, storeErr(err)
	}

	result := make([]dto.SolicitationResponse, 0, len(list))
	for i := range list {
		result = append(result, *toSolicitationResponse(&list[i]))
	}
	return result, total, nil
}

// ────────────────────── Get ──────────────────────

func (s *solicitationService) Get(ctx context.Context, unitID, id string) (*dto.SolicitationResponse, error) {
	sol, err := s.load(ctx, unitID, id)
	if err != nil {
		return nil, err
	}
	return toSolicitationResponse(sol), nil
}

// ────────────────────── Create ──────────────────────

func (s *solicitationService) Create(ctx context.Context, unitID, callerID string, role model.Role, req *dto.CreateSolicitationRequest) (*dto.SolicitationResponse, error) {
	if !role.CanCreateSolicitation() {
		return nil, ErrPermissionDenied
	}
	shift := model.Shift(req.Shift)
	if !shift.Valid() {
		return nil, ErrInvalidShift
	}
	typ := model.ChecklistType(req.ChecklistType)
	if !typ.Valid() {
		return nil, ErrInvalidRuleType
	}

	vehicle, err := s.repo.Vehicle.GetByID(ctx, unitID, req.VehicleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		s.logger.Error("查询车辆失败", zap.String("vehicle_id", req.VehicleID), zap.Error(err))
		return nil, storeErr(err)
	}
	templateID := trimmedPtr(req.TemplateID)
	if templateID != nil {
		if _, err := s.repo.Template.GetWithStructure(ctx, unitID, *templateID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTemplateNotFound
			}
			s.logger.Error("查询模板失败", zap.String("template_id", *templateID), zap.Error(err))
			return nil, storeErr(err)
		}
	}

	sol := &model.Solicitation{
		UnitID:         unitID,
		VehicleID:      vehicle.VehicleID,
		TemplateID:     templateID,
		ChecklistType:  typ,
		Shift:          shift,
		ExpectedAt:     req.ExpectedAt,
		OccurrenceDate: req.ExpectedAt.In(s.loc).Format(dateLayout),
		Status:         model.SolicitationPending,
		Notes:          strings.TrimSpace(req.Notes),
	}
	sol.CreatedBy = &callerID
	sol.UpdatedBy = &callerID

	if err := s.repo.Solicitation.Create(ctx, sol); err != nil {
		s.logger.Error("创建巡检单失败", zap.Error(err))
		return nil, storeErr(err)
	}
	sol.Vehicle = vehicle
	s.events.notify(ctx, EventSolicitationCreated, sol)
	return toSolicitationResponse(sol), nil
}

// ────────────────────── Start ──────────────────────

func (s *solicitationService) Start(ctx context.Context, unitID, id, callerID string) (*dto.SolicitationResponse, error) {
	if _, err := s.load(ctx, unitID, id); err != nil {
		return nil, err
	}

	applied, err := s.repo.Solicitation.MarkStarted(ctx, id, callerID, s.now())
	if err != nil {
		s.logger.Error("标记巡检单开始失败", zap.String("id", id), zap.Error(err))
		return nil, storeErr(err)
	}

	// 无论是否生效都重新读取，返回服务端最新状态
	sol, err := s.load(ctx, unitID, id)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, s.terminalErr(sol)
	}
	s.events.notify(ctx, EventSolicitationStarted, sol)
	return toSolicitationResponse(sol), nil
}

// ────────────────────── Cancel ──────────────────────

func (s *solicitationService) Cancel(ctx context.Context, unitID, id, callerID string, role model.Role, reason string) (*dto.SolicitationResponse, error) {
	if !role.CanCancelSolicitation() {
		return nil, ErrPermissionDenied
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if _, err := s.load(ctx, unitID, id); err != nil {
		return nil, err
	}

	applied, err := s.repo.Solicitation.Cancel(ctx, id, reason, callerID, s.now())
	if err != nil {
		s.logger.Error("取消巡检单失败", zap.String("id", id), zap.Error(err))
		return nil, storeErr(err)
	}
	sol, err := s.load(ctx, unitID, id)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrSolicitationNotPending
	}

	recordAudit(ctx, s.repo, s.logger, model.AuditLog{
		UnitID:     unitID,
		Entity:     "solicitation",
		EntityID:   id,
		Action:     "cancel",
		Reason:     reason,
		OperatorID: &callerID,
	})
	s.events.notify(ctx, EventSolicitationCancelled, sol)
	return toSolicitationResponse(sol), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 物理删除，仅 pending 可删除
func (s *solicitationService) Delete(ctx context.Context, unitID, id, callerID string, role model.Role) error {
	if !role.CanDeleteSolicitation() {
		return ErrPermissionDenied
	}
	sol, err := s.load(ctx, unitID, id)
	if err != nil {
		return err
	}

	applied, err := s.repo.Solicitation.DeletePending(ctx, id)
	if err != nil {
		s.logger.Error("删除巡检单失败", zap.String("id", id), zap.Error(err))
		return storeErr(err)
	}
	if !applied {
		current, err := s.load(ctx, unitID, id)
		if err != nil {
			return err
		}
		return s.terminalErr(current)
	}

	recordAudit(ctx, s.repo, s.logger, model.AuditLog{
		UnitID:     unitID,
		Entity:     "solicitation",
		EntityID:   id,
		Action:     "delete",
		OperatorID: &callerID,
	})
	s.events.notify(ctx, EventSolicitationDeleted, sol)
	return nil
}

// ────────────────────── Fulfill ──────────────────────

func (s *solicitationService) Fulfill(ctx context.Context, id, checklistID string) error {
	applied, err := s.repo.Solicitation.Fulfill(ctx, id, checklistID, s.now())
	if err != nil {
		s.logger.Error("完成巡检单失败", zap.String("id", id), zap.Error(err))
		return storeErr(err)
	}

	sol, err := s.repo.Solicitation.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSolicitationNotFound
		}
		s.logger.Error("查询巡检单失败", zap.String("id", id), zap.Error(err))
		return storeErr(err)
	}
	if !applied {
		return s.terminalErr(sol)
	}

	s.events.notify(ctx, EventSolicitationFulfilled, sol)
	return nil
}

// ── 内部方法 ──

func (s *solicitationService) load(ctx context.Context, unitID, id string) (*model.Solicitation, error) {
	sol, err := s.repo.Solicitation.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSolicitationNotFound
		}
		s.logger.Error("查询巡检单失败", zap.String("id", id), zap.Error(err))
		return nil, storeErr(err)
	}
	if sol.UnitID != unitID {
		return nil, ErrSolicitationNotFound
	}
	return sol, nil
}

// terminalErr 带条件更新未生效时，根据最新状态给出原因
func (s *solicitationService) terminalErr(sol *model.Solicitation) error {
	if sol.Status == model.SolicitationFulfilled {
		return ErrAlreadyFulfilled
	}
	return ErrSolicitationNotPending
}
