package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edmundobop/plataforma-bravo-web-sub000/config"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/repository"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/logger"
)

// ErrRuleIncomplete 规则缺少车辆、执行时间或星期，不能激活或生成
var ErrRuleIncomplete = errors.New("规则未设置车辆、执行时间或执行星期")

const dateLayout = "2006-01-02"

var tracer = otel.Tracer("fleet-checklist/service")

type generateOutcome int

const (
	outcomeCreated generateOutcome = iota
	outcomeSkipped
	outcomeNotScheduled
)

// SolicitationGenerator 按自动规则生成巡检单
//
// 同一规则同一日期最多存在一张 pending/fulfilled 巡检单：先查重，再以
// ON CONFLICT DO NOTHING 插入，并发竞争失败的一方计为 skipped。
// 定时生成每条规则每天至多一次，当日被取消或删除后不再补生成；
// 需要重新生成时走 GenerateForRule。
type SolicitationGenerator struct {
	repo        *repository.Repository
	loc         *time.Location
	concurrency int
	events      *eventNotifier
	logger      *zap.Logger
}

// NewSolicitationGenerator 创建生成器；日期与星期按 cfg.Timezone 计算
func NewSolicitationGenerator(
	repo *repository.Repository,
	cfg *config.SchedulerConfig,
	events *eventNotifier,
	logger *zap.Logger,
) *SolicitationGenerator {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &SolicitationGenerator{
		repo:        repo,
		loc:         cfg.Location(),
		concurrency: concurrency,
		events:      events,
		logger:      logger,
	}
}

// ────────────────────── RunPass ──────────────────────

// RunPass 对所有激活规则执行一次生成。单条规则失败写入报告，不影响其他规则。
func (g *SolicitationGenerator) RunPass(ctx context.Context, now time.Time) (*dto.GenerationReportResponse, error) {
	ctx, span := tracer.Start(ctx, "generator.RunPass")
	defer span.End()
	log := logger.WithTrace(ctx, g.logger)

	local := now.In(g.loc)
	report := &dto.GenerationReportResponse{
		Date:     local.Format(dateLayout),
		Created:  []string{},
		Skipped:  []string{},
		Failures: []dto.GenerationFailure{},
	}

	rules, err := g.repo.AutomationRule.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list active rules")
		log.Error("查询激活规则失败", zap.Error(err))
		return nil, storeErr(err)
	}

	var (
		mu  sync.Mutex
		grp errgroup.Group
	)
	grp.SetLimit(g.concurrency)

	for i := range rules {
		rule := &rules[i]
		grp.Go(func() error {
			outcome, s, err := g.generate(ctx, rule, local, true)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failures = append(report.Failures, dto.GenerationFailure{
					RuleID: rule.RuleID,
					Error:  err.Error(),
				})
			case outcome == outcomeCreated:
				report.Created = append(report.Created, s.SolicitationID)
			case outcome == outcomeSkipped:
				report.Skipped = append(report.Skipped, rule.RuleID)
			default:
				report.NotScheduled++
			}
			return nil
		})
	}
	_ = grp.Wait()

	sort.Strings(report.Created)
	sort.Strings(report.Skipped)
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].RuleID < report.Failures[j].RuleID
	})

	span.SetAttributes(
		attribute.Int("rules", len(rules)),
		attribute.Int("created", len(report.Created)),
		attribute.Int("skipped", len(report.Skipped)),
		attribute.Int("failures", len(report.Failures)),
	)
	log.Info("巡检单生成完成",
		zap.String("date", report.Date),
		zap.Int("rules", len(rules)),
		zap.Int("created", len(report.Created)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("not_scheduled", report.NotScheduled),
		zap.Int("failures", len(report.Failures)),
	)
	return report, nil
}

// ────────────────────── GenerateForRule ──────────────────────

// GenerateForRule 立即为当天生成，忽略星期匹配但仍然查重。
// 返回 nil 巡检单表示当天已存在。
func (g *SolicitationGenerator) GenerateForRule(ctx context.Context, rule *model.AutomationRule, now time.Time) (*model.Solicitation, error) {
	outcome, s, err := g.generate(ctx, rule, now.In(g.loc), false)
	if err != nil {
		return nil, err
	}
	if outcome != outcomeCreated {
		return nil, nil
	}
	return s, nil
}

func (g *SolicitationGenerator) generate(
	ctx context.Context,
	rule *model.AutomationRule,
	local time.Time,
	matchWeekday bool,
) (generateOutcome, *model.Solicitation, error) {
	ctx, span := tracer.Start(ctx, "generator.rule")
	defer span.End()
	span.SetAttributes(attribute.String("rule_id", rule.RuleID))
	log := logger.WithTrace(ctx, g.logger).With(zap.String("rule_id", rule.RuleID))

	if !rule.Complete() {
		return 0, nil, ErrRuleIncomplete
	}
	if matchWeekday && !rule.RunsOn(local.Weekday()) {
		return outcomeNotScheduled, nil, nil
	}

	hour, minute, err := parseTimeOfDay(*rule.TimeOfDay)
	if err != nil {
		return 0, nil, err
	}
	date := local.Format(dateLayout)

	// 定时生成：当日已生成过（含随后被取消或删除的）即跳过；手动生成只看未取消的
	if matchWeekday && rule.LastGeneratedAt != nil && rule.LastGeneratedAt.In(g.loc).Format(dateLayout) == date {
		return outcomeSkipped, nil, nil
	}
	exists, err := g.occurrenceExists(ctx, rule.RuleID, date, matchWeekday)
	if err != nil {
		span.RecordError(err)
		log.Error("巡检单查重失败", zap.Error(err))
		return 0, nil, storeErr(err)
	}
	if exists {
		return outcomeSkipped, nil, nil
	}

	ruleID := rule.RuleID
	s := &model.Solicitation{
		UnitID:           rule.UnitID,
		VehicleID:        *rule.VehicleID,
		TemplateID:       rule.TemplateID,
		ChecklistType:    rule.ChecklistType,
		Shift:            rule.Shift,
		ExpectedAt:       time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, g.loc),
		OccurrenceDate:   date,
		AutomationRuleID: &ruleID,
		Status:           model.SolicitationPending,
		Notes:            rule.Name,
	}

	created, err := g.repo.Solicitation.CreateIfAbsent(ctx, s)
	if err != nil {
		span.RecordError(err)
		log.Error("生成巡检单失败", zap.Error(err))
		return 0, nil, storeErr(err)
	}
	if !created {
		return outcomeSkipped, nil, nil
	}

	if err := g.repo.AutomationRule.TouchGenerated(ctx, rule.RuleID, local); err != nil {
		log.Warn("更新规则生成时间失败", zap.Error(err))
	}
	recordAudit(ctx, g.repo, g.logger, model.AuditLog{
		UnitID:   s.UnitID,
		Entity:   "solicitation",
		EntityID: s.SolicitationID,
		Action:   "generate",
		Reason:   "rule:" + rule.RuleID,
	})
	g.events.notify(ctx, EventSolicitationCreated, s)
	return outcomeCreated, s, nil
}

func (g *SolicitationGenerator) occurrenceExists(ctx context.Context, ruleID, date string, scheduled bool) (bool, error) {
	if scheduled {
		return g.repo.Solicitation.ExistsOccurrence(ctx, ruleID, date)
	}
	return g.repo.Solicitation.ExistsOpenOccurrence(ctx, ruleID, date)
}

// parseTimeOfDay 解析 "HH:MM"
func parseTimeOfDay(v string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", v)
	if err != nil || len(v) != 5 {
		return 0, 0, fmt.Errorf("执行时间格式无效: %q", v)
	}
	return t.Hour(), t.Minute(), nil
}
