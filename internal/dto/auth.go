package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required"`
}

// ValidateCredentialsRequest 凭据复核请求（定稿前二次确认）
type ValidateCredentialsRequest struct {
	Identity string `json:"identity" binding:"required,max=50"`
	Password string `json:"password" binding:"required"`
}

// ValidateCredentialsResponse 凭据复核结果
type ValidateCredentialsResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id"`
}
