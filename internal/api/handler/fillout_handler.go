package handler

import (
	"errors"
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/fillout"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/service"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/response"
)

// FilloutHandler 检查表填写会话 HTTP 处理器
type FilloutHandler struct {
	filloutSvc service.FilloutService
}

// NewFilloutHandler 创建 FilloutHandler
func NewFilloutHandler(filloutSvc service.FilloutService) *FilloutHandler {
	return &FilloutHandler{filloutSvc: filloutSvc}
}

// OpenSession 打开填写会话（巡检单 / 继续填写 / 临时检查）
// POST /api/v1/fillout-sessions
func (h *FilloutHandler) OpenSession(c *gin.Context) {
	who, ok := mustGetCaller(c)
	if !ok {
		return
	}

	var req dto.OpenSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	sess, err := h.filloutSvc.Open(c.Request.Context(), who.UnitID, who.UserID, &req)
	if err != nil {
		h.handleFilloutError(c, err)
		return
	}

	response.Created(c, sess)
}

// GetSession 会话当前状态
// GET /api/v1/fillout-sessions/:id
func (h *FilloutHandler) GetSession(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	sess, err := h.filloutSvc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleFilloutError(c, err)
		return
	}

	response.OK(c, sess)
}

// SetContext 更新第一步字段
// PUT /api/v1/fillout-sessions/:id/context
func (h *FilloutHandler) SetContext(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SessionContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, err := h.filloutSvc.SetContext(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleFilloutError(c, err)
		return
	}

	response.OK(c, sess)
}

// UpdateItem 更新检查项状态、备注或取值
// PUT /api/v1/fillout-sessions/:id/items/:index
func (h *FilloutHandler) UpdateItem(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	index, ok := paramIndex(c)
	if !ok {
		return
	}

	var req dto.ItemUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, err := h.filloutSvc.UpdateItem(c.Request.Context(), userID, c.Param("id"), index, &req)
	if err != nil {
		h.handleFilloutError(c, err)
		return
	}

	response.OK(c, sess)
}

// AttachPhotos 为检查项上传照片（multipart 字段 files）
// POST /api/v1/fillout-sessions/:id/items/:index/photos
func (h *FilloutHandler) AttachPhotos(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	index, ok := paramIndex(c)
	if !ok {
		return
	}

	files, cleanup, ok := formFiles(c)
	if !ok {
		return
	}
	defer cleanup()

	sess, err := h.filloutSvc.AttachPhotos(c.Request.Context(), userID, c.Param("id"), index, files)
	if err != nil {
		h.handleFilloutError(c, err)
		return
	}

	response.OK(c, sess)
}

// RemovePhoto 删除检查项中的照片
// DELETE /api/v1/fillout-sessions/:id/items/:index/photos?filename=
func (h *FilloutHandler) RemovePhoto(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	index, ok := paramIndex(c)
	if !ok {
		return
	}
	filename := c.Query("filename")
	if filename == "" {
		response.BadRequest(c, 10001, "缺少 filename 参数")
		return
	}

	sess, err := h.filloutSvc.RemovePhoto(c.Request.Context(), userID, c.Param("id"), index, filename)
	if err != nil {
		h.handleFilloutError(c, err)
		return
	}

	response.OK(c, sess)
}

// Next 进入下一分类或下一步
// POST /api/v1/fillout-sessions/:id/next
func (h *FilloutHandler) Next(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	sess, err := h.filloutSvc.Next(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleFilloutError(c, err)
		return
	}

	response.OK(c, sess)
}

// Back 返回上一分类或上一步
// POST /api/v1/fillout-sessions/:id/back
func (h *FilloutHandler) Back(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	sess, err := h.filloutSvc.Back(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleFilloutError(c, err)
		return
	}

	response.OK(c, sess)
}

// Submit 复核凭据并提交检查表
// POST /api/v1/fillout-sessions/:id/submit
func (h *FilloutHandler) Submit(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, err := h.filloutSvc.Submit(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleFilloutError(c, err)
		return
	}

	response.OK(c, sess)
}

// CloseSession 关闭会话；关联巡检单保持待处理
// DELETE /api/v1/fillout-sessions/:id
func (h *FilloutHandler) CloseSession(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.filloutSvc.Close(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleFilloutError(c, err)
		return
	}

	response.OK(c, nil)
}

// formFiles 读取 multipart 中的 files 字段；cleanup 关闭已打开的文件
func formFiles(c *gin.Context) ([]service.UploadFile, func(), bool) {
	form, err := c.MultipartForm()
	if err != nil {
		if bodyTooLarge(c, err) {
			return nil, nil, false
		}
		response.BadRequest(c, 10001, "请使用 multipart/form-data 上传")
		return nil, nil, false
	}

	headers := form.File["files"]
	opened := make([]multipart.File, 0, len(headers))
	cleanup := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			cleanup()
			response.BadRequest(c, 10001, "读取上传文件失败")
			return nil, nil, false
		}
		opened = append(opened, f)
		files = append(files, service.UploadFile{Name: fh.Filename, Reader: f})
	}
	return files, cleanup, true
}

// handleFilloutError 统一处理填写会话模块业务错误
func (h *FilloutHandler) handleFilloutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 25003, "填写会话不存在或已过期")
	case errors.Is(err, service.ErrSubmitInProgress):
		response.Conflict(c, 25004, err.Error())
	case errors.Is(err, fillout.ErrSessionFinalized):
		response.Conflict(c, 25005, err.Error())
	case errors.Is(err, service.ErrTooManyPhotos), errors.Is(err, service.ErrNoFiles):
		response.BadRequest(c, 25006, err.Error())
	default:
		if handleChecklistDomainError(c, err) {
			return
		}
		writeError(c, err)
	}
}
