package service

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/edmundobop/plataforma-bravo-web-sub000/config"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/repository"
	pkgerrors "github.com/edmundobop/plataforma-bravo-web-sub000/pkg/errors"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/jwt"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/redis"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/storage"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Gate         CredentialGate
	Automation   AutomationService
	Generator    *SolicitationGenerator
	Solicitation SolicitationService
	Checklist    ChecklistService
	Fillout      FilloutService
	Lookup       LookupService
}

// ── 外部依赖（可选组件以接口注入，便于测试与降级） ──

// TokenBlacklist 登出时拉黑 Access Token
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// EventPublisher 巡检单变更事件发布
type EventPublisher interface {
	PublishSolicitationEvent(ctx context.Context, unitID string, payload []byte) error
}

// PhotoStore 照片存储
type PhotoStore interface {
	Save(ctx context.Context, r io.Reader, originalName string) (*storage.StoredFile, error)
	Delete(ctx context.Context, filename string) error
}

// NewService 创建 Service 聚合；rdb 为 nil 时登出拉黑与事件推送降级为空操作
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	photos PhotoStore,
	logger *zap.Logger,
) *Service {
	var (
		blacklist TokenBlacklist
		publisher EventPublisher
	)
	if rdb != nil {
		blacklist = rdb
		publisher = rdb
	}

	events := newEventNotifier(publisher, logger)
	gate := NewCredentialGate(repo, logger)
	generator := NewSolicitationGenerator(repo, &cfg.Scheduler, events, logger)
	solicitations := NewSolicitationService(repo, cfg.Scheduler.Location(), events, logger)
	checklists := NewChecklistService(repo, gate, solicitations, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		Gate:         gate,
		Automation:   NewAutomationService(repo, generator, logger),
		Generator:    generator,
		Solicitation: solicitations,
		Checklist:    checklists,
		Fillout:      NewFilloutService(&cfg.Fillout, cfg.Upload.MaxFiles, repo, solicitations, checklists, gate, photos, logger),
		Lookup:       NewLookupService(repo, photos, cfg.Upload.MaxFiles, logger),
	}
}

// storeErr 将连接层故障统一为 ErrStoreUnavailable，其余错误原样返回
func storeErr(err error) error {
	if pkgerrors.IsUnavailable(err) {
		return pkgerrors.ErrStoreUnavailable
	}
	return err
}

// ── 审计日志 ──

// recordAudit 写入审计日志；失败仅记录告警，不影响主流程
func recordAudit(ctx context.Context, repo *repository.Repository, logger *zap.Logger, entry model.AuditLog) {
	if err := repo.AuditLog.Create(ctx, &entry); err != nil {
		logger.Warn("写入审计日志失败",
			zap.String("entity", entry.Entity),
			zap.String("entity_id", entry.EntityID),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

// ── 巡检单事件 ──

const (
	EventSolicitationCreated   = "created"
	EventSolicitationStarted   = "started"
	EventSolicitationFulfilled = "fulfilled"
	EventSolicitationCancelled = "cancelled"
	EventSolicitationDeleted   = "deleted"
)

type eventNotifier struct {
	publisher EventPublisher
	logger    *zap.Logger
}

func newEventNotifier(publisher EventPublisher, logger *zap.Logger) *eventNotifier {
	return &eventNotifier{publisher: publisher, logger: logger}
}

// notify 推送失败只记录日志；客户端仍可通过轮询获取最新状态
func (n *eventNotifier) notify(ctx context.Context, typ string, s *model.Solicitation) {
	if n == nil || n.publisher == nil {
		return
	}
	payload, err := json.Marshal(dto.SolicitationEvent{
		Type:           typ,
		SolicitationID: s.SolicitationID,
		UnitID:         s.UnitID,
		Status:         string(s.Status),
		At:             time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		n.logger.Warn("序列化巡检单事件失败", zap.Error(err))
		return
	}
	if err := n.publisher.PublishSolicitationEvent(ctx, s.UnitID, payload); err != nil {
		n.logger.Warn("发布巡检单事件失败",
			zap.String("solicitation_id", s.SolicitationID),
			zap.String("type", typ),
			zap.Error(err),
		)
	}
}
