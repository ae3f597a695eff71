package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/fillout"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/service"
	pkgerrors "github.com/edmundobop/plataforma-bravo-web-sub000/pkg/errors"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/response"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/storage"
)

// 检查表字段与检查项校验错误（填写会话与检查表接口共用）
var fieldErrors = []error{
	fillout.ErrFieldLocked,
	fillout.ErrContextIncomplete,
	fillout.ErrInvalidFuel,
	fillout.ErrFuelOutOfRange,
	fillout.ErrInvalidOdometer,
	fillout.ErrInvalidShift,
	fillout.ErrInvalidChecklistType,
	fillout.ErrTemplateMismatch,
	fillout.ErrTemplateNotLoaded,
	fillout.ErrTemplateEmpty,
	fillout.ErrItemNotFound,
	fillout.ErrItemNotInCategory,
	fillout.ErrInvalidItemStatus,
	fillout.ErrNoteRequiresAlteration,
	fillout.ErrPhotoNotFound,
	fillout.ErrCredentialsRequired,
	fillout.ErrUnknownItemKind,
	fillout.ErrWrongStep,
}

// handleCommonError 处理跨模块共用的错误；已写入响应时返回 true
func handleCommonError(c *gin.Context, err error) bool {
	var itemErr *fillout.ItemError
	switch {
	case errors.Is(err, pkgerrors.ErrStoreUnavailable):
		response.ServiceUnavailable(c)
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, "数据已被他人修改，请刷新后重试")
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, 10003, err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		response.Unauthorized(c, 20401, err.Error())
	case errors.As(err, &itemErr):
		response.ErrorWithDetails(c, http.StatusBadRequest, 25002, itemErr.Err.Error(), itemErr.Error())
	case errors.Is(err, storage.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, 26002, err.Error())
	case errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrInvalidFilename):
		response.BadRequest(c, 26003, err.Error())
	default:
		for _, fe := range fieldErrors {
			if errors.Is(err, fe) {
				response.BadRequest(c, 25001, err.Error())
				return true
			}
		}
		return false
	}
	return true
}

// writeError 模块错误未命中时的兜底
func writeError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	_ = c.Error(err)
	response.InternalError(c)
}

// badRequest 参数绑定失败；校验错误附带字段明细
func badRequest(c *gin.Context, err error) {
	if bodyTooLarge(c, err) {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+":"+fe.Tag())
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", strings.Join(fields, ", "))
}

// bodyTooLarge 请求体超过 BodyLimit 时写入 413
func bodyTooLarge(c *gin.Context, err error) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	response.PayloadTooLarge(c)
	return true
}
