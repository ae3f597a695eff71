package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/service"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/response"
)

// LookupHandler 车辆、模板、照片上传与审计日志
type LookupHandler struct {
	lookupSvc service.LookupService
}

// NewLookupHandler 创建 LookupHandler
func NewLookupHandler(lookupSvc service.LookupService) *LookupHandler {
	return &LookupHandler{lookupSvc: lookupSvc}
}

// ListVehicles GET /api/v1/vehicles
func (h *LookupHandler) ListVehicles(c *gin.Context) {
	unitID, ok := MustGetUnitID(c)
	if !ok {
		return
	}

	var req dto.VehicleListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	list, err := h.lookupSvc.ListVehicles(c.Request.Context(), unitID, &req)
	if err != nil {
		h.handleLookupError(c, err)
		return
	}

	response.OK(c, list)
}

// ListTemplates GET /api/v1/templates
func (h *LookupHandler) ListTemplates(c *gin.Context) {
	unitID, ok := MustGetUnitID(c)
	if !ok {
		return
	}

	list, err := h.lookupSvc.ListTemplates(c.Request.Context(), unitID)
	if err != nil {
		h.handleLookupError(c, err)
		return
	}

	response.OK(c, list)
}

// GetTemplate GET /api/v1/templates/:id
func (h *LookupHandler) GetTemplate(c *gin.Context) {
	unitID, ok := MustGetUnitID(c)
	if !ok {
		return
	}

	tpl, err := h.lookupSvc.GetTemplate(c.Request.Context(), unitID, c.Param("id"))
	if err != nil {
		h.handleLookupError(c, err)
		return
	}

	response.OK(c, tpl)
}

// UploadPhotos POST /api/v1/uploads/photos
func (h *LookupHandler) UploadPhotos(c *gin.Context) {
	files, cleanup, ok := formFiles(c)
	if !ok {
		return
	}
	defer cleanup()

	photos, err := h.lookupSvc.UploadPhotos(c.Request.Context(), files)
	if err != nil {
		h.handleLookupError(c, err)
		return
	}

	response.Created(c, photos)
}

// ListAuditLogs GET /api/v1/audit-logs
func (h *LookupHandler) ListAuditLogs(c *gin.Context) {
	unitID, ok := MustGetUnitID(c)
	if !ok {
		return
	}

	var req dto.AuditLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	list, err := h.lookupSvc.ListAuditLogs(c.Request.Context(), unitID, &req)
	if err != nil {
		h.handleLookupError(c, err)
		return
	}

	response.OK(c, list)
}

func (h *LookupHandler) handleLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTemplateNotFound):
		response.NotFound(c, 26001, "检查表模板不存在")
	case errors.Is(err, service.ErrTooManyPhotos), errors.Is(err, service.ErrNoFiles):
		response.BadRequest(c, 26004, err.Error())
	default:
		writeError(c, err)
	}
}
