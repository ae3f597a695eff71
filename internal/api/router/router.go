package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edmundobop/plataforma-bravo-web-sub000/config"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/api/handler"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/api/middleware"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/jwt"
)

// 普通请求体上限；照片上传另按 upload 配置计算
const jsonBodyLimit = 1 << 20

// Deps 路由依赖的可选组件；Redis 未启用时保持 nil 接口
type Deps struct {
	Blacklist middleware.TokenChecker
	Limiter   middleware.RateLimiter
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, deps Deps, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(jsonBodyLimit, cfg.Upload.MaxBytes*int64(cfg.Upload.MaxFiles)+jsonBodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── 照片静态文件 ──
	r.Static(uploadsPrefix(cfg.Upload.BaseURL), cfg.Upload.Dir)

	credentialLimit := middleware.RateLimit(deps.Limiter, cfg.RateLimit.CredentialLimit, cfg.RateLimit.CredentialWindow)
	managers := middleware.RoleAuth(model.RoleAdmin, model.RoleChief)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		v1.POST("/auth/login", credentialLimit, h.Auth.Login)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, deps.Blacklist))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.POST("/auth/validate-credentials", credentialLimit, h.Auth.ValidateCredentials)

			// 车辆 / 模板 / 上传
			authorized.GET("/vehicles", h.Lookup.ListVehicles)
			authorized.GET("/templates", h.Lookup.ListTemplates)
			authorized.GET("/templates/:id", h.Lookup.GetTemplate)
			authorized.POST("/uploads/photos", h.Lookup.UploadPhotos)
			authorized.GET("/audit-logs", managers, h.Lookup.ListAuditLogs)

			// 巡检单（角色校验在 Service 层）
			solicitations := authorized.Group("/solicitations")
			{
				solicitations.GET("", h.Solicitation.ListSolicitations)
				solicitations.POST("", h.Solicitation.CreateSolicitation)
				solicitations.GET("/events", h.Solicitation.Events)
				solicitations.GET("/:id", h.Solicitation.GetSolicitation)
				solicitations.POST("/:id/start", h.Solicitation.StartSolicitation)
				solicitations.POST("/:id/cancel", h.Solicitation.CancelSolicitation)
				solicitations.DELETE("/:id", h.Solicitation.DeleteSolicitation)
			}

			// 自动生成规则
			automations := authorized.Group("/automations")
			automations.Use(managers)
			{
				automations.GET("", h.Automation.ListAutomations)
				automations.POST("", h.Automation.CreateAutomation)
				automations.GET("/:id", h.Automation.GetAutomation)
				automations.PUT("/:id", h.Automation.UpdateAutomation)
				automations.PATCH("/:id/active", h.Automation.ToggleAutomation)
				automations.DELETE("/:id", h.Automation.DeleteAutomation)
				automations.POST("/:id/generate", h.Automation.GenerateNow)
			}

			// 检查表
			checklists := authorized.Group("/checklists")
			{
				checklists.GET("", h.Checklist.ListChecklists)
				checklists.POST("", h.Checklist.CreateChecklist)
				checklists.GET("/:id", h.Checklist.GetChecklist)
				checklists.PUT("/:id", h.Checklist.UpdateChecklist)
				checklists.POST("/:id/finalize", credentialLimit, h.Checklist.FinalizeChecklist)
				checklists.POST("/:id/cancel", h.Checklist.CancelChecklist)
			}

			// 填写会话
			sessions := authorized.Group("/fillout-sessions")
			{
				sessions.POST("", h.Fillout.OpenSession)
				sessions.GET("/:id", h.Fillout.GetSession)
				sessions.PUT("/:id/context", h.Fillout.SetContext)
				sessions.PUT("/:id/items/:index", h.Fillout.UpdateItem)
				sessions.POST("/:id/items/:index/photos", h.Fillout.AttachPhotos)
				sessions.DELETE("/:id/items/:index/photos", h.Fillout.RemovePhoto)
				sessions.POST("/:id/next", h.Fillout.Next)
				sessions.POST("/:id/back", h.Fillout.Back)
				sessions.POST("/:id/submit", credentialLimit, h.Fillout.Submit)
				sessions.DELETE("/:id", h.Fillout.CloseSession)
			}
		}
	}

	return r
}

// uploadsPrefix 取 upload.base_url 的路径部分作为静态路由前缀
func uploadsPrefix(baseURL string) string {
	p := baseURL
	if i := strings.Index(p, "://"); i >= 0 {
		p = p[i+3:]
		if j := strings.Index(p, "/"); j >= 0 {
			p = p[j:]
		} else {
			p = ""
		}
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/uploads"
	}
	return p
}
