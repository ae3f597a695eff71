package handler

import "github.com/edmundobop/plataforma-bravo-web-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Automation   *AutomationHandler
	Solicitation *SolicitationHandler
	Checklist    *ChecklistHandler
	Fillout      *FilloutHandler
	Lookup       *LookupHandler
}

// NewHandler 创建 Handler 聚合；events 为 nil 时巡检单事件流返回 503
func NewHandler(svc *service.Service, events EventSubscriber) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, svc.Gate),
		Automation:   NewAutomationHandler(svc.Automation),
		Solicitation: NewSolicitationHandler(svc.Solicitation, events),
		Checklist:    NewChecklistHandler(svc.Checklist),
		Fillout:      NewFilloutHandler(svc.Fillout),
		Lookup:       NewLookupHandler(svc.Lookup),
	}
}
