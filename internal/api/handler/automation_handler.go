package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/service"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/response"
)

// AutomationHandler 自动生成规则 HTTP 处理器
type AutomationHandler struct {
	automationSvc service.AutomationService
}

// NewAutomationHandler 创建 AutomationHandler
func NewAutomationHandler(automationSvc service.AutomationService) *AutomationHandler {
	return &AutomationHandler{automationSvc: automationSvc}
}

// ListAutomations 规则列表
// GET /api/v1/automations
func (h *AutomationHandler) ListAutomations(c *gin.Context) {
	unitID, ok := MustGetUnitID(c)
	if !ok {
		return
	}

	var req dto.AutomationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	list, total, err := h.automationSvc.List(c.Request.Context(), unitID, &req)
	if err != nil {
		h.handleAutomationError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetAutomation 规则详情
// GET /api/v1/automations/:id
func (h *AutomationHandler) GetAutomation(c *gin.Context) {
	unitID, ok := MustGetUnitID(c)
	if !ok {
		return
	}

	rule, err := h.automationSvc.Get(c.Request.Context(), unitID, c.Param("id"))
	if err != nil {
		h.handleAutomationError(c, err)
		return
	}

	response.OK(c, rule)
}

// CreateAutomation 创建规则
// POST /api/v1/automations
func (h *AutomationHandler) CreateAutomation(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.AutomationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rule, err := h.automationSvc.Create(c.Request.Context(), who.UnitID, who.UserID, &req)
	if err != nil {
		h.handleAutomationError(c, err)
		return
	}

	response.Created(c, rule)
}

// UpdateAutomation 更新规则（需携带 version）
// PUT /api/v1/automations/:id
func (h *AutomationHandler) UpdateAutomation(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.AutomationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rule, err := h.automationSvc.Update(c.Request.Context(), who.UnitID, c.Param("id"), who.UserID, &req)
	if err != nil {
		h.handleAutomationError(c, err)
		return
	}

	response.OK(c, rule)
}

// ToggleAutomation 启用/停用
// PATCH /api/v1/automations/:id/active
func (h *AutomationHandler) ToggleAutomation(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.ToggleAutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rule, err := h.automationSvc.Toggle(c.Request.Context(), who.UnitID, c.Param("id"), who.UserID, &req)
	if err != nil {
		h.handleAutomationError(c, err)
		return
	}

	response.OK(c, rule)
}

// DeleteAutomation 删除规则，已生成的巡检单保留
// DELETE /api/v1/automations/:id
func (h *AutomationHandler) DeleteAutomation(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	if err := h.automationSvc.Delete(c.Request.Context(), who.UnitID, c.Param("id"), who.UserID); err != nil {
		h.handleAutomationError(c, err)
		return
	}

	response.OK(c, nil)
}

// GenerateNow 立即为今天生成巡检单
// POST /api/v1/automations/:id/generate
func (h *AutomationHandler) GenerateNow(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.automationSvc.GenerateNow(c.Request.Context(), who.UnitID, c.Param("id"), who.UserID)
	if err != nil {
		h.handleAutomationError(c, err)
		return
	}

	if result.Created {
		response.Created(c, result)
		return
	}
	response.OK(c, result)
}

// handleAutomationError 统一处理自动规则模块业务错误
func (h *AutomationHandler) handleAutomationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRuleNotFound):
		response.NotFound(c, 22001, "自动规则不存在")
	case errors.Is(err, service.ErrVehicleNotFound):
		response.NotFound(c, 22002, "车辆不存在")
	case errors.Is(err, service.ErrTemplateNotFound):
		response.NotFound(c, 22003, "检查表模板不存在")
	case errors.Is(err, service.ErrRuleIncomplete):
		response.BadRequest(c, 22004, err.Error())
	case errors.Is(err, service.ErrInvalidTimeOfDay),
		errors.Is(err, service.ErrInvalidWeekday),
		errors.Is(err, service.ErrInvalidShift),
		errors.Is(err, service.ErrInvalidRuleType),
		errors.Is(err, service.ErrVersionRequired):
		response.BadRequest(c, 22005, err.Error())
	default:
		writeError(c, err)
	}
}
