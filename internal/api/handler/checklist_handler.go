package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/service"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/response"
)

// ChecklistHandler 检查表 HTTP 处理器
type ChecklistHandler struct {
	checklistSvc service.ChecklistService
}

// NewChecklistHandler 创建 ChecklistHandler
func NewChecklistHandler(checklistSvc service.ChecklistService) *ChecklistHandler {
	return &ChecklistHandler{checklistSvc: checklistSvc}
}

// ListChecklists 检查表列表
// GET /api/v1/checklists
func (h *ChecklistHandler) ListChecklists(c *gin.Context) {
	unitID, ok := MustGetUnitID(c)
	if !ok {
		return
	}

	var req dto.ChecklistListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	list, total, err := h.checklistSvc.List(c.Request.Context(), unitID, &req)
	if err != nil {
		h.handleChecklistError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetChecklist 检查表详情（含检查项）
// GET /api/v1/checklists/:id
func (h *ChecklistHandler) GetChecklist(c *gin.Context) {
	unitID, ok := MustGetUnitID(c)
	if !ok {
		return
	}

	cl, err := h.checklistSvc.Get(c.Request.Context(), unitID, c.Param("id"))
	if err != nil {
		h.handleChecklistError(c, err)
		return
	}

	response.OK(c, cl)
}

// CreateChecklist 保存进行中的检查表
// POST /api/v1/checklists
func (h *ChecklistHandler) CreateChecklist(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.ChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cl, err := h.checklistSvc.Create(c.Request.Context(), who.UnitID, who.UserID, &req)
	if err != nil {
		h.handleChecklistError(c, err)
		return
	}

	response.Created(c, cl)
}

// UpdateChecklist 更新进行中的检查表
// PUT /api/v1/checklists/:id
func (h *ChecklistHandler) UpdateChecklist(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.ChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cl, err := h.checklistSvc.Update(c.Request.Context(), who.UnitID, c.Param("id"), who.UserID, &req)
	if err != nil {
		h.handleChecklistError(c, err)
		return
	}

	response.OK(c, cl)
}

// FinalizeChecklist 复核凭据后定稿
// POST /api/v1/checklists/:id/finalize
func (h *ChecklistHandler) FinalizeChecklist(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.FinalizeChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cl, err := h.checklistSvc.Finalize(c.Request.Context(), who.UnitID, c.Param("id"), who.UserID, req.Identity, req.Password)
	if err != nil {
		h.handleChecklistError(c, err)
		return
	}

	response.OK(c, cl)
}

// CancelChecklist 取消检查表
// POST /api/v1/checklists/:id/cancel
func (h *ChecklistHandler) CancelChecklist(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cl, err := h.checklistSvc.Cancel(c.Request.Context(), who.UnitID, c.Param("id"), who.UserID, who.Role, req.Reason)
	if err != nil {
		h.handleChecklistError(c, err)
		return
	}

	response.OK(c, cl)
}

// handleChecklistError 统一处理检查表模块业务错误
func (h *ChecklistHandler) handleChecklistError(c *gin.Context, err error) {
	if handleChecklistDomainError(c, err) {
		return
	}
	writeError(c, err)
}

// handleChecklistDomainError 检查表保存、定稿相关错误；填写会话提交时同样会遇到
func handleChecklistDomainError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrChecklistNotFound):
		response.NotFound(c, 24001, "检查表不存在")
	case errors.Is(err, service.ErrVehicleNotFound):
		response.NotFound(c, 24002, "车辆不存在")
	case errors.Is(err, service.ErrTemplateNotFound):
		response.NotFound(c, 24003, "检查表模板不存在")
	case errors.Is(err, service.ErrSolicitationNotFound):
		response.NotFound(c, 24004, "巡检单不存在")
	case errors.Is(err, service.ErrChecklistAlreadyFinalized):
		response.Conflict(c, 24005, err.Error())
	case errors.Is(err, service.ErrChecklistNotEditable):
		response.Conflict(c, 24006, err.Error())
	case errors.Is(err, service.ErrChecklistCancelled):
		response.Conflict(c, 24007, err.Error())
	case errors.Is(err, service.ErrSolicitationNotPending),
		errors.Is(err, service.ErrAlreadyFulfilled):
		response.Conflict(c, 24008, err.Error())
	case errors.Is(err, service.ErrSolicitationMismatch):
		response.BadRequest(c, 24009, err.Error())
	case errors.Is(err, service.ErrChecklistItemsRequired):
		response.BadRequest(c, 24010, err.Error())
	case errors.Is(err, service.ErrReasonRequired):
		response.BadRequest(c, 24011, err.Error())
	default:
		return false
	}
	return true
}
