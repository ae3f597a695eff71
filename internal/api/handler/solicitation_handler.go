package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/service"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/response"
)

// EventSubscriber 订阅单位内的巡检单变更事件
type EventSubscriber interface {
	SubscribeSolicitationEvents(ctx context.Context, unitID string) (<-chan []byte, error)
}

// sseKeepAlive SSE 心跳间隔
const sseKeepAlive = 25 * time.Second

// SolicitationHandler 巡检单 HTTP 处理器
type SolicitationHandler struct {
	solicitationSvc service.SolicitationService
	events          EventSubscriber // nil 表示未启用 Redis，事件流不可用
}

// NewSolicitationHandler 创建 SolicitationHandler
func NewSolicitationHandler(solicitationSvc service.SolicitationService, events EventSubscriber) *SolicitationHandler {
	return &SolicitationHandler{solicitationSvc: solicitationSvc, events: events}
}

// ListSolicitations 巡检单列表（可按状态、车辆、日期筛选）
// GET /api/v1/solicitations
func (h *SolicitationHandler) ListSolicitations(c *gin.Context) {
	unitID, ok := MustGetUnitID(c)
	if !ok {
		return
	}

	var req dto.SolicitationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	list, total, err := h.solicitationSvc.List(c.Request.Context(), unitID, &req)
	if err != nil {
		h.handleSolicitationError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetSolicitation 巡检单详情
// GET /api/v1/solicitations/:id
func (h *SolicitationHandler) GetSolicitation(c *gin.Context) {
	unitID, ok := MustGetUnitID(c)
	if !ok {
		return
	}

	sol, err := h.solicitationSvc.Get(c.Request.Context(), unitID, c.Param("id"))
	if err != nil {
		h.handleSolicitationError(c, err)
		return
	}

	response.OK(c, sol)
}

// CreateSolicitation 手动创建巡检单
// POST /api/v1/solicitations
func (h *SolicitationHandler) CreateSolicitation(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateSolicitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sol, err := h.solicitationSvc.Create(c.Request.Context(), who.UnitID, who.UserID, who.Role, &req)
	if err != nil {
		h.handleSolicitationError(c, err)
		return
	}

	response.Created(c, sol)
}

// StartSolicitation 标记开始填写
// POST /api/v1/solicitations/:id/start
func (h *SolicitationHandler) StartSolicitation(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	sol, err := h.solicitationSvc.Start(c.Request.Context(), who.UnitID, c.Param("id"), who.UserID)
	if err != nil {
		h.handleSolicitationError(c, err)
		return
	}

	response.OK(c, sol)
}

// CancelSolicitation 取消巡检单（需填写原因）
// POST /api/v1/solicitations/:id/cancel
func (h *SolicitationHandler) CancelSolicitation(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sol, err := h.solicitationSvc.Cancel(c.Request.Context(), who.UnitID, c.Param("id"), who.UserID, who.Role, req.Reason)
	if err != nil {
		h.handleSolicitationError(c, err)
		return
	}

	response.OK(c, sol)
}

// DeleteSolicitation 删除巡检单
// DELETE /api/v1/solicitations/:id
func (h *SolicitationHandler) DeleteSolicitation(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	if err := h.solicitationSvc.Delete(c.Request.Context(), who.UnitID, c.Param("id"), who.UserID, who.Role); err != nil {
		h.handleSolicitationError(c, err)
		return
	}

	response.OK(c, nil)
}

// Events 以 SSE 推送本单位巡检单变更，客户端据此刷新列表
// GET /api/v1/solicitations/events
func (h *SolicitationHandler) Events(c *gin.Context) {
	unitID, ok := MustGetUnitID(c)
	if !ok {
		return
	}
	if h.events == nil {
		response.Error(c, http.StatusServiceUnavailable, 23008, "事件推送未启用")
		return
	}

	ctx := c.Request.Context()
	ch, err := h.events.SubscribeSolicitationEvents(ctx, unitID)
	if err != nil {
		c.Error(err)
		response.ServiceUnavailable(c)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case payload, open := <-ch:
			if !open {
				return false
			}
			var evt dto.SolicitationEvent
			if err := json.Unmarshal(payload, &evt); err != nil {
				return true
			}
			c.SSEvent(evt.Type, evt)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}

// handleSolicitationError 统一处理巡检单模块业务错误
func (h *SolicitationHandler) handleSolicitationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSolicitationNotFound):
		response.NotFound(c, 23001, "巡检单不存在")
	case errors.Is(err, service.ErrVehicleNotFound):
		response.NotFound(c, 23002, "车辆不存在")
	case errors.Is(err, service.ErrTemplateNotFound):
		response.NotFound(c, 23003, "检查表模板不存在")
	case errors.Is(err, service.ErrSolicitationNotPending):
		response.Conflict(c, 23004, err.Error())
	case errors.Is(err, service.ErrAlreadyFulfilled):
		response.Conflict(c, 23005, err.Error())
	case errors.Is(err, service.ErrReasonRequired):
		response.BadRequest(c, 23006, err.Error())
	case errors.Is(err, service.ErrInvalidDateRange),
		errors.Is(err, service.ErrInvalidShift),
		errors.Is(err, service.ErrInvalidRuleType):
		response.BadRequest(c, 23007, err.Error())
	default:
		writeError(c, err)
	}
}
