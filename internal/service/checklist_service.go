package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/fillout"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/repository"
)

// ── 检查表模块业务错误 ──

var (
	ErrChecklistNotFound         = errors.New("检查表不存在")
	ErrChecklistNotEditable      = errors.New("检查表已定稿或已取消，无法修改")
	ErrChecklistAlreadyFinalized = errors.New("检查表已定稿")
	ErrChecklistCancelled        = errors.New("检查表已取消")
	ErrSolicitationMismatch      = errors.New("车辆或检查类型与巡检单不一致")
	ErrChecklistItemsRequired    = errors.New("检查表至少需要一个检查项")
)

// SolicitationFulfiller 检查表定稿后完成关联巡检单
type SolicitationFulfiller interface {
	Fulfill(ctx context.Context, id, checklistID string) error
}

// ChecklistService 检查表业务接口
type ChecklistService interface {
	Create(ctx context.Context, unitID, callerID string, req *dto.ChecklistRequest) (*dto.ChecklistResponse, error)
	Update(ctx context.Context, unitID, id, callerID string, req *dto.ChecklistRequest) (*dto.ChecklistResponse, error)
	// Finalize 先复核凭据，通过后 in_progress → finalized
	Finalize(ctx context.Context, unitID, id, callerID, identity, password string) (*dto.ChecklistResponse, error)
	// FinalizeAs 凭据已由调用方复核；重复定稿返回 ErrChecklistAlreadyFinalized
	FinalizeAs(ctx context.Context, unitID, id, authenticatedBy string) (*dto.ChecklistResponse, error)
	Cancel(ctx context.Context, unitID, id, callerID string, role model.Role, reason string) (*dto.ChecklistResponse, error)
	Get(ctx context.Context, unitID, id string) (*dto.ChecklistResponse, error)
	List(ctx context.Context, unitID string, req *dto.ChecklistListRequest) ([]dto.ChecklistResponse, int64, error)
}

type checklistService struct {
	repo      *repository.Repository
	gate      CredentialGate
	fulfiller SolicitationFulfiller
	now       func() time.Time
	logger    *zap.Logger
}

// NewChecklistService 创建 ChecklistService 实例
func NewChecklistService(repo *repository.Repository, gate CredentialGate, fulfiller SolicitationFulfiller, logger *zap.Logger) ChecklistService {
	return &checklistService{repo: repo, gate: gate, fulfiller: fulfiller, now: time.Now, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *checklistService) Create(ctx context.Context, unitID, callerID string, req *dto.ChecklistRequest) (*dto.ChecklistResponse, error) {
	c, err := s.build(ctx, unitID, req)
	if err != nil {
		return nil, err
	}

	if id := trimmedPtr(req.SolicitationID); id != nil {
		sol, err := s.repo.Solicitation.GetByID(ctx, *id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSolicitationNotFound
			}
			s.logger.Error("查询巡检单失败", zap.String("id", *id), zap.Error(err))
			return nil, storeErr(err)
		}
		if sol.UnitID != unitID {
			return nil, ErrSolicitationNotFound
		}
		if sol.Status != model.SolicitationPending {
			return nil, s.solicitationTerminalErr(sol)
		}
		if sol.VehicleID != c.VehicleID || sol.ChecklistType != c.ChecklistType {
			return nil, ErrSolicitationMismatch
		}
		c.SolicitationID = id
	}

	c.UnitID = unitID
	c.Status = model.ChecklistInProgress
	c.CreatedBy = &callerID
	c.UpdatedBy = &callerID

	if err := s.repo.Checklist.Create(ctx, c); err != nil {
		s.logger.Error("创建检查表失败", zap.Error(err))
		return nil, storeErr(err)
	}
	return s.Get(ctx, unitID, c.ChecklistID)
}

// ────────────────────── Update ──────────────────────

func (s *checklistService) Update(ctx context.Context, unitID, id, callerID string, req *dto.ChecklistRequest) (*dto.ChecklistResponse, error) {
	current, err := s.load(ctx, unitID, id)
	if err != nil {
		return nil, err
	}
	if current.Status != model.ChecklistInProgress {
		return nil, ErrChecklistNotEditable
	}

	c, err := s.build(ctx, unitID, req)
	if err != nil {
		return nil, err
	}
	// 关联巡检单创建后不可更改，锁定字段同样不可更改
	if current.SolicitationID != nil &&
		(c.VehicleID != current.VehicleID || c.ChecklistType != current.ChecklistType) {
		return nil, ErrSolicitationMismatch
	}
	c.ChecklistID = id
	c.UpdatedBy = &callerID

	applied, err := s.repo.Checklist.UpdateInProgress(ctx, c)
	if err != nil {
		s.logger.Error("更新检查表失败", zap.String("id", id), zap.Error(err))
		return nil, storeErr(err)
	}
	if !applied {
		return nil, ErrChecklistNotEditable
	}
	return s.Get(ctx, unitID, id)
}

// ────────────────────── Finalize ──────────────────────

func (s *checklistService) Finalize(ctx context.Context, unitID, id, callerID, identity, password string) (*dto.ChecklistResponse, error) {
	if _, err := s.load(ctx, unitID, id); err != nil {
		return nil, err
	}
	user, err := s.gate.Validate(ctx, callerID, identity, password)
	if err != nil {
		return nil, err
	}
	return s.FinalizeAs(ctx, unitID, id, user.UserID)
}

func (s *checklistService) FinalizeAs(ctx context.Context, unitID, id, authenticatedBy string) (*dto.ChecklistResponse, error) {
	c, err := s.load(ctx, unitID, id)
	if err != nil {
		return nil, err
	}

	applied, err := s.repo.Checklist.Finalize(ctx, id, authenticatedBy, s.now())
	if err != nil {
		s.logger.Error("检查表定稿失败", zap.String("id", id), zap.Error(err))
		return nil, storeErr(err)
	}

	var already bool
	if !applied {
		current, err := s.load(ctx, unitID, id)
		if err != nil {
			return nil, err
		}
		if current.Status != model.ChecklistFinalized {
			return nil, ErrChecklistCancelled
		}
		already = true
	}

	// 重复定稿同样尝试完成巡检单，上次完成步骤失败时由此补齐
	if c.SolicitationID != nil {
		if err := s.fulfill(ctx, *c.SolicitationID, id); err != nil {
			return nil, err
		}
	}

	resp, err := s.Get(ctx, unitID, id)
	if err != nil {
		return nil, err
	}
	if already {
		return resp, ErrChecklistAlreadyFinalized
	}

	recordAudit(ctx, s.repo, s.logger, model.AuditLog{
		UnitID:     unitID,
		Entity:     "checklist",
		EntityID:   id,
		Action:     "finalize",
		OperatorID: &authenticatedBy,
	})
	return resp, nil
}

// fulfill 已完成视为成功；巡检单已被取消或删除时检查表仍然有效，仅记录告警
func (s *checklistService) fulfill(ctx context.Context, solicitationID, checklistID string) error {
	err := s.fulfiller.Fulfill(ctx, solicitationID, checklistID)
	switch {
	case err == nil, errors.Is(err, ErrAlreadyFulfilled):
		return nil
	case errors.Is(err, ErrSolicitationNotPending), errors.Is(err, ErrSolicitationNotFound):
		s.logger.Warn("巡检单已不处于待处理状态，检查表定稿不受影响",
			zap.String("solicitation_id", solicitationID),
			zap.String("checklist_id", checklistID),
			zap.Error(err),
		)
		return nil
	default:
		return err
	}
}

// ────────────────────── Cancel ──────────────────────

func (s *checklistService) Cancel(ctx context.Context, unitID, id, callerID string, role model.Role, reason string) (*dto.ChecklistResponse, error) {
	if !role.CanCancelChecklist() {
		return nil, ErrPermissionDenied
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if _, err := s.load(ctx, unitID, id); err != nil {
		return nil, err
	}

	applied, err := s.repo.Checklist.Cancel(ctx, id, reason, callerID, s.now())
	if err != nil {
		s.logger.Error("取消检查表失败", zap.String("id", id), zap.Error(err))
		return nil, storeErr(err)
	}
	if !applied {
		return nil, ErrChecklistCancelled
	}

	recordAudit(ctx, s.repo, s.logger, model.AuditLog{
		UnitID:     unitID,
		Entity:     "checklist",
		EntityID:   id,
		Action:     "cancel",
		Reason:     reason,
		OperatorID: &callerID,
	})
	return s.Get(ctx, unitID, id)
}

// ────────────────────── Get / List ──────────────────────

func (s *checklistService) Get(ctx context.Context, unitID, id string) (*dto.ChecklistResponse, error) {
	c, err := s.load(ctx, unitID, id)
	if err != nil {
		return nil, err
	}
	return toChecklistResponse(c), nil
}

func (s *checklistService) List(ctx context.Context, unitID string, req *dto.ChecklistListRequest) ([]dto.ChecklistResponse, int64, error) {
	list, total, err := s.repo.Checklist.List(ctx, repository.ChecklistFilter{
		UnitID:    unitID,
		Status:    model.ChecklistStatus(req.Status),
		VehicleID: req.VehicleID,
		Page:      repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()},
	})
	if err != nil {
		s.logger.Error("列出检查表失败", zap.Error(err))
		return nil, 0, storeErr(err)
	}

	result := make([]dto.ChecklistResponse, 0, len(list))
	for i := range list {
		result = append(result, *toChecklistResponse(&list[i]))
	}
	return result, total, nil
}

// ── 内部方法 ──

func (s *checklistService) load(ctx context.Context, unitID, id string) (*model.Checklist, error) {
	c, err := s.repo.Checklist.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChecklistNotFound
		}
		s.logger.Error("查询检查表失败", zap.String("id", id), zap.Error(err))
		return nil, storeErr(err)
	}
	if c.UnitID != unitID {
		return nil, ErrChecklistNotFound
	}
	return c, nil
}

func (s *checklistService) solicitationTerminalErr(sol *model.Solicitation) error {
	if sol.Status == model.SolicitationFulfilled {
		return ErrAlreadyFulfilled
	}
	return ErrSolicitationNotPending
}

// build 校验请求并组装检查表（不含 ID、状态与巡检单关联）
func (s *checklistService) build(ctx context.Context, unitID string, req *dto.ChecklistRequest) (*model.Checklist, error) {
	shift := model.Shift(req.Shift)
	if !shift.Valid() {
		return nil, fillout.ErrInvalidShift
	}
	typ := model.ChecklistType(req.ChecklistType)
	if !typ.Valid() {
		return nil, fillout.ErrInvalidChecklistType
	}
	if req.KmInicial == nil || *req.KmInicial < 0 {
		return nil, fillout.ErrInvalidOdometer
	}
	if req.Combustivel == nil || *req.Combustivel < 0 || *req.Combustivel > 100 {
		return nil, fillout.ErrFuelOutOfRange
	}
	if len(req.Items) == 0 {
		return nil, ErrChecklistItemsRequired
	}

	if _, err := s.repo.Vehicle.GetByID(ctx, unitID, req.VehicleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		s.logger.Error("查询车辆失败", zap.String("vehicle_id", req.VehicleID), zap.Error(err))
		return nil, storeErr(err)
	}
	if _, err := s.repo.Template.GetWithStructure(ctx, unitID, req.TemplateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		s.logger.Error("查询模板失败", zap.String("template_id", req.TemplateID), zap.Error(err))
		return nil, storeErr(err)
	}

	items, err := buildChecklistItems(req.Items)
	if err != nil {
		return nil, err
	}

	performedAt := s.now()
	if req.PerformedAt != nil && !req.PerformedAt.IsZero() {
		performedAt = *req.PerformedAt
	}

	return &model.Checklist{
		VehicleID:     req.VehicleID,
		TemplateID:    req.TemplateID,
		ChecklistType: typ,
		Shift:         shift,
		PerformedAt:   performedAt,
		OdometerStart: *req.KmInicial,
		FuelPercent:   *req.Combustivel,
		Observations:  strings.TrimSpace(req.Observations),
		Items:         items,
	}, nil
}

// buildChecklistItems 按检查项类型校验；“正常”项的说明一律清空
func buildChecklistItems(reqs []dto.ChecklistItemRequest) ([]model.ChecklistItem, error) {
	items := make([]model.ChecklistItem, 0, len(reqs))
	for i, r := range reqs {
		typ := model.ItemType(r.ItemType)
		kind, err := fillout.KindOf(typ)
		if err != nil {
			return nil, &fillout.ItemError{Index: i, Name: r.ItemName, Err: err}
		}
		status := model.ItemStatus(r.Status)
		if !status.Valid() {
			return nil, &fillout.ItemError{Index: i, Name: r.ItemName, Err: fillout.ErrInvalidItemStatus}
		}
		note := strings.TrimSpace(r.Note)
		if status == model.ItemOK {
			note = ""
		}

		it := fillout.Item{
			Name:     r.ItemName,
			Category: r.CategoryName,
			Kind:     kind,
			Required: r.Required,
			Status:   status,
			Note:     note,
			Value:    strings.TrimSpace(r.Value),
			Photos:   toPhotoModels(r.Photos),
		}
		if err := it.Validate(); err != nil {
			return nil, &fillout.ItemError{Index: i, Name: r.ItemName, Err: err}
		}

		items = append(items, model.ChecklistItem{
			ItemName:     it.Name,
			CategoryName: it.Category,
			ItemType:     kind.Type(),
			Required:     it.Required,
			Status:       it.Status,
			Note:         it.Note,
			Value:        it.Value,
			Photos:       it.Photos,
			Position:     i,
		})
	}
	return items, nil
}
