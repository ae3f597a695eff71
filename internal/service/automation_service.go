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

// ── 自动规则模块业务错误 ──

var (
	ErrRuleNotFound     = errors.New("自动规则不存在")
	ErrVehicleNotFound  = errors.New("车辆不存在")
	ErrTemplateNotFound = errors.New("检查表模板不存在")
	ErrInvalidTimeOfDay = errors.New("执行时间格式必须为 HH:MM")
	ErrInvalidWeekday   = errors.New("星期取值必须在 0-6 之间")
	ErrInvalidShift     = errors.New("班组取值无效")
	ErrInvalidRuleType  = errors.New("检查类型取值无效")
	ErrVersionRequired  = errors.New("更新时必须提供版本号")
)

// AutomationService 自动规则业务接口
type AutomationService interface {
	List(ctx context.Context, unitID string, req *dto.AutomationListRequest) ([]dto.AutomationRuleResponse, int64, error)
	Get(ctx context.Context, unitID, id string) (*dto.AutomationRuleResponse, error)
	Create(ctx context.Context, unitID, callerID string, req *dto.AutomationRuleRequest) (*dto.AutomationRuleResponse, error)
	Update(ctx context.Context, unitID, id, callerID string, req *dto.AutomationRuleRequest) (*dto.AutomationRuleResponse, error)
	Toggle(ctx context.Context, unitID, id, callerID string, req *dto.ToggleAutomationRequest) (*dto.AutomationRuleResponse, error)
	Delete(ctx context.Context, unitID, id, callerID string) error
	// GenerateNow 忽略星期为当天生成；停用但已补全的规则同样允许
	GenerateNow(ctx context.Context, unitID, id, callerID string) (*dto.GenerateNowResponse, error)
}

type automationService struct {
	repo      *repository.Repository
	generator *SolicitationGenerator
	now       func() time.Time
	logger    *zap.Logger
}

// NewAutomationService 创建 AutomationService 实例
func NewAutomationService(repo *repository.Repository, generator *SolicitationGenerator, logger *zap.Logger) AutomationService {
	return &automationService{repo: repo, generator: generator, now: time.Now, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *automationService) List(ctx context.Context, unitID string, req *dto.AutomationListRequest) ([]dto.AutomationRuleResponse, int64, error) {
	rules, total, err := s.repo.AutomationRule.List(ctx, repository.AutomationRuleFilter{
		UnitID:    unitID,
		VehicleID: req.VehicleID,
		Active:    req.Active,
		Page:      repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()},
	})
	if err != nil {
		s.logger.Error("列出自动规则失败", zap.Error(err))
		return nil, 0, storeErr(err)
	}

	result := make([]dto.AutomationRuleResponse, 0, len(rules))
	for i := range rules {
		result = append(result, *toAutomationRuleResponse(&rules[i]))
	}
	return result, total, nil
}

// ────────────────────── Get ──────────────────────

func (s *automationService) Get(ctx context.Context, unitID, id string) (*dto.AutomationRuleResponse, error) {
	rule, err := s.load(ctx, unitID, id)
	if err != nil {
		return nil, err
	}
	return toAutomationRuleResponse(rule), nil
}

// ────────────────────── Create ──────────────────────

func (s *automationService) Create(ctx context.Context, unitID, callerID string, req *dto.AutomationRuleRequest) (*dto.AutomationRuleResponse, error) {
	rule := &model.AutomationRule{UnitID: unitID}
	if err := s.apply(ctx, rule, req); err != nil {
		return nil, err
	}
	rule.CreatedBy = &callerID
	rule.UpdatedBy = &callerID

	if err := s.repo.AutomationRule.Create(ctx, rule); err != nil {
		s.logger.Error("创建自动规则失败", zap.Error(err))
		return nil, storeErr(err)
	}
	return s.Get(ctx, unitID, rule.RuleID)
}

// ────────────────────── Update ──────────────────────

func (s *automationService) Update(ctx context.Context, unitID, id, callerID string, req *dto.AutomationRuleRequest) (*dto.AutomationRuleResponse, error) {
	if req.Version <= 0 {
		return nil, ErrVersionRequired
	}
	rule, err := s.load(ctx, unitID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, rule, req); err != nil {
		return nil, err
	}
	rule.Version = req.Version
	rule.UpdatedBy = &callerID

	if err := s.repo.AutomationRule.Update(ctx, rule); err != nil {
		s.logger.Error("更新自动规则失败", zap.String("id", id), zap.Error(err))
		return nil, storeErr(err)
	}
	return s.Get(ctx, unitID, id)
}

// ────────────────────── Toggle ──────────────────────

func (s *automationService) Toggle(ctx context.Context, unitID, id, callerID string, req *dto.ToggleAutomationRequest) (*dto.AutomationRuleResponse, error) {
	rule, err := s.load(ctx, unitID, id)
	if err != nil {
		return nil, err
	}
	if *req.Active && !rule.Complete() {
		return nil, ErrRuleIncomplete
	}
	rule.IsActive = *req.Active
	rule.Version = req.Version
	rule.UpdatedBy = &callerID

	if err := s.repo.AutomationRule.Update(ctx, rule); err != nil {
		s.logger.Error("切换自动规则状态失败", zap.String("id", id), zap.Error(err))
		return nil, storeErr(err)
	}
	return toAutomationRuleResponse(rule), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 软删除规则；已生成的巡检单保留
func (s *automationService) Delete(ctx context.Context, unitID, id, callerID string) error {
	if _, err := s.load(ctx, unitID, id); err != nil {
		return err
	}
	if err := s.repo.AutomationRule.Delete(ctx, id, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRuleNotFound
		}
		s.logger.Error("删除自动规则失败", zap.String("id", id), zap.Error(err))
		return storeErr(err)
	}
	recordAudit(ctx, s.repo, s.logger, model.AuditLog{
		UnitID:     unitID,
		Entity:     "automation_rule",
		EntityID:   id,
		Action:     "delete",
		OperatorID: &callerID,
	})
	return nil
}

// ────────────────────── GenerateNow ──────────────────────

func (s *automationService) GenerateNow(ctx context.Context, unitID, id, callerID string) (*dto.GenerateNowResponse, error) {
	rule, err := s.load(ctx, unitID, id)
	if err != nil {
		return nil, err
	}

	sol, err := s.generator.GenerateForRule(ctx, rule, s.now())
	if err != nil {
		return nil, err
	}
	if sol == nil {
		return &dto.GenerateNowResponse{Created: false}, nil
	}

	s.logger.Info("手动生成巡检单",
		zap.String("rule_id", id),
		zap.String("solicitation_id", sol.SolicitationID),
		zap.String("operator_id", callerID),
	)
	sol.Vehicle = rule.Vehicle
	return &dto.GenerateNowResponse{Created: true, Solicitation: toSolicitationResponse(sol)}, nil
}

// ── 内部方法 ──

// load 查询规则并校验单位归属；跨单位访问视为不存在
func (s *automationService) load(ctx context.Context, unitID, id string) (*model.AutomationRule, error) {
	rule, err := s.repo.AutomationRule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		s.logger.Error("查询自动规则失败", zap.String("id", id), zap.Error(err))
		return nil, storeErr(err)
	}
	if rule.UnitID != unitID {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

// apply 将请求写入规则并校验；激活状态要求规则完整
func (s *automationService) apply(ctx context.Context, rule *model.AutomationRule, req *dto.AutomationRuleRequest) error {
	shift := model.Shift(req.Shift)
	if !shift.Valid() {
		return ErrInvalidShift
	}
	typ := model.ChecklistType(req.ChecklistType)
	if !typ.Valid() {
		return ErrInvalidRuleType
	}

	weekdays := model.WeekdaySet(req.Weekdays).Normalize()
	if !weekdays.Valid() {
		return ErrInvalidWeekday
	}

	timeOfDay := trimmedPtr(req.TimeOfDay)
	if timeOfDay != nil {
		if _, _, err := parseTimeOfDay(*timeOfDay); err != nil {
			return ErrInvalidTimeOfDay
		}
	}

	vehicleID := trimmedPtr(req.VehicleID)
	if vehicleID != nil {
		v, err := s.repo.Vehicle.GetByID(ctx, rule.UnitID, *vehicleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVehicleNotFound
			}
			s.logger.Error("查询车辆失败", zap.String("vehicle_id", *vehicleID), zap.Error(err))
			return storeErr(err)
		}
		rule.Vehicle = v
	} else {
		rule.Vehicle = nil
	}

	templateID := trimmedPtr(req.TemplateID)
	if templateID != nil {
		if _, err := s.repo.Template.GetWithStructure(ctx, rule.UnitID, *templateID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTemplateNotFound
			}
			s.logger.Error("查询模板失败", zap.String("template_id", *templateID), zap.Error(err))
			return storeErr(err)
		}
	}

	rule.Name = strings.TrimSpace(req.Name)
	rule.IsActive = req.IsActive
	rule.VehicleID = vehicleID
	rule.TemplateID = templateID
	rule.TimeOfDay = timeOfDay
	rule.Weekdays = weekdays
	rule.Shift = shift
	rule.ChecklistType = typ

	if rule.IsActive && !rule.Complete() {
		return ErrRuleIncomplete
	}
	return nil
}

func trimmedPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
