package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/service"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	gate    service.CredentialGate
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService, gate service.CredentialGate) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, gate: gate}
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

// Logout 用户登出，当前 Token 加入黑名单
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, exp := tokenInfo(c)
	if err := h.authSvc.Logout(c.Request.Context(), jti, exp); err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.OK(c, nil)
}

// GetCurrentUser 获取当前登录用户
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.Me(c.Request.Context(), userID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, user)
}

// ValidateCredentials 定稿前复核当前用户的凭据
// POST /api/v1/auth/validate-credentials
func (h *AuthHandler) ValidateCredentials(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ValidateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.gate.Validate(c.Request.Context(), userID, req.Identity, req.Password)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, dto.ValidateCredentialsResponse{Valid: true, UserID: user.UserID})
}

// handleAuthError 统一处理认证模块业务错误
func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, 21001, "用户名或密码错误")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 21002, "用户不存在")
	default:
		writeError(c, err)
	}
}
