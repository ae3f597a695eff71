package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/response"
)

// mustGetString 从 Gin 上下文中提取 JWT 中间件注入的字符串值。
// 缺失时写入 401 响应并返回 false，调用方应直接 return。
func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (model.Role, bool) {
	s, ok := mustGetString(c, "role")
	return model.Role(s), ok
}

// MustGetUnitID 从 Gin 上下文中安全提取 unit_id；所有业务数据按单位隔离。
func MustGetUnitID(c *gin.Context) (string, bool) {
	return mustGetString(c, "unit_id")
}

// caller 当前登录用户
type caller struct {
	UserID string
	Role   model.Role
	UnitID string
}

// mustGetCaller 一次提取 user_id、role、unit_id
func mustGetCaller(c *gin.Context) (caller, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return caller{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return caller{}, false
	}
	unitID, ok := MustGetUnitID(c)
	if !ok {
		return caller{}, false
	}
	return caller{UserID: userID, Role: role, UnitID: unitID}, true
}

// tokenInfo 返回当前 Access Token 的 jti 与过期时间（登出时使用）
func tokenInfo(c *gin.Context) (string, time.Time) {
	jti := c.GetString("token_jti")
	exp, _ := c.Get("token_exp")
	t, _ := exp.(time.Time)
	return jti, t
}

// paramIndex 解析路径中的检查项序号
func paramIndex(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("index"))
	if err != nil || n < 0 {
		response.BadRequest(c, 10001, "检查项序号无效")
		return 0, false
	}
	return n, true
}
