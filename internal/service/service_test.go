package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edmundobop/plataforma-bravo-web-sub000/config"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/repository"
)

// ── 测试夹具 ──

const (
	testUnit      = "unit-1"
	otherUnit     = "unit-2"
	operatorID    = "user-op"
	supervisorID  = "user-sup"
	chiefID       = "user-chief"
	vehicleID     = "veh-abt12"
	otherVehicle  = "veh-ur03"
	foreignVeh    = "veh-foreign"
	templateID    = "tpl-daily"
	testPassword  = "senha-forte-1"
	testTimezone  = "America/Sao_Paulo"
	operatorLogin = "op.silva"
)

type testEnv struct {
	repo          *repository.Repository
	users         *mockUserRepo
	vehicles      *mockVehicleRepo
	templates     *mockTemplateRepo
	rules         *mockAutomationRuleRepo
	solicitations *mockSolicitationRepo
	checklists    *mockChecklistRepo
	audit         *mockAuditLogRepo
	publisher     *mockPublisher
	photos        *mockPhotoStore
	loc           *time.Location

	gate         CredentialGate
	generator    *SolicitationGenerator
	automation   AutomationService
	solicitation SolicitationService
	checklist    ChecklistService
	fillout      FilloutService
	lookup       LookupService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	loc, err := time.LoadLocation(testTimezone)
	if err != nil {
		t.Fatalf("加载时区失败: %v", err)
	}

	env := &testEnv{
		users:         newMockUserRepo(),
		vehicles:      newMockVehicleRepo(),
		templates:     newMockTemplateRepo(),
		rules:         newMockAutomationRuleRepo(),
		solicitations: newMockSolicitationRepo(),
		checklists:    newMockChecklistRepo(),
		audit:         newMockAuditLogRepo(),
		publisher:     &mockPublisher{},
		photos:        newMockPhotoStore(),
		loc:           loc,
	}
	env.repo = &repository.Repository{
		User:           env.users,
		Vehicle:        env.vehicles,
		Template:       env.templates,
		AutomationRule: env.rules,
		Solicitation:   env.solicitations,
		Checklist:      env.checklists,
		AuditLog:       env.audit,
	}
	env.seed(t)

	logger := zap.NewNop()
	events := newEventNotifier(env.publisher, logger)
	schedCfg := &config.SchedulerConfig{Timezone: testTimezone, Concurrency: 4}

	env.gate = NewCredentialGate(env.repo, logger)
	env.generator = NewSolicitationGenerator(env.repo, schedCfg, events, logger)
	env.automation = NewAutomationService(env.repo, env.generator, logger)
	env.solicitation = NewSolicitationService(env.repo, loc, events, logger)
	env.checklist = NewChecklistService(env.repo, env.gate, env.solicitation, logger)
	env.fillout = NewFilloutService(&config.FilloutConfig{SessionTTL: time.Hour}, 5, env.repo,
		env.solicitation, env.checklist, env.gate, env.photos, logger)
	env.lookup = NewLookupService(env.repo, env.photos, 5, logger)
	return env
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	for _, u := range []*model.User{
		{UserID: operatorID, Username: operatorLogin, Name: "Operador Silva", Role: model.RoleOperator},
		{UserID: supervisorID, Username: "sup.costa", Name: "Supervisor Costa", Role: model.RoleSupervisor},
		{UserID: chiefID, Username: "chefe.lima", Name: "Chefe Lima", Role: model.RoleChief},
	} {
		u.PasswordHash = string(hash)
		u.UnitID = testUnit
		u.IsActive = true
		u.Unit = &model.Unit{UnitID: testUnit, Name: "1º GBM"}
		_ = e.users.Create(context.Background(), u)
	}

	e.vehicles.vehicles[vehicleID] = &model.Vehicle{VehicleID: vehicleID, UnitID: testUnit, Prefix: "ABT-12", Plate: "QWE1A23", Type: "ABT", IsActive: true}
	e.vehicles.vehicles[otherVehicle] = &model.Vehicle{VehicleID: otherVehicle, UnitID: testUnit, Prefix: "UR-03", Plate: "RTY4B56", Type: "UR", IsActive: true}
	e.vehicles.vehicles[foreignVeh] = &model.Vehicle{VehicleID: foreignVeh, UnitID: otherUnit, Prefix: "ABT-90", Plate: "ZXC7C89", IsActive: true}

	e.templates.templates[templateID] = &model.ChecklistTemplate{
		TemplateID: templateID,
		UnitID:     testUnit,
		Name:       "Checklist diário",
		Categories: []model.TemplateCategory{
			{Name: "Motor", Position: 0, Items: []model.TemplateItem{
				{Name: "Nível de óleo", Type: model.ItemTypeCheckbox, Required: true},
				{Name: "Nível de água", Type: model.ItemTypeCheckbox},
			}},
			{Name: "Segurança", Position: 1, Items: []model.TemplateItem{
				{Name: "Extintor", Type: model.ItemTypeCheckbox},
				{Name: "Foto do painel", Type: model.ItemTypePhoto},
			}},
		},
	}
}

func (e *testEnv) at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, e.loc)
}

// addRule 直接写入规则（绕过业务校验，用于构造不完整的激活规则等场景）
func (e *testEnv) addRule(t *testing.T, rule *model.AutomationRule) *model.AutomationRule {
	t.Helper()
	if rule.UnitID == "" {
		rule.UnitID = testUnit
	}
	if rule.Shift == "" {
		rule.Shift = model.ShiftAlpha
	}
	if rule.ChecklistType == "" {
		rule.ChecklistType = model.ChecklistDaily
	}
	if err := e.rules.Create(context.Background(), rule); err != nil {
		t.Fatalf("写入规则失败: %v", err)
	}
	return rule
}

// addPending 写入一张待处理巡检单
func (e *testEnv) addPending(t *testing.T) *model.Solicitation {
	t.Helper()
	tpl := templateID
	s := &model.Solicitation{
		UnitID:         testUnit,
		VehicleID:      vehicleID,
		TemplateID:     &tpl,
		ChecklistType:  model.ChecklistDaily,
		Shift:          model.ShiftAlpha,
		ExpectedAt:     e.at(2026, 10, 12, 7, 0),
		OccurrenceDate: "2026-10-12",
		Status:         model.SolicitationPending,
	}
	if err := e.solicitations.Create(context.Background(), s); err != nil {
		t.Fatalf("写入巡检单失败: %v", err)
	}
	return s
}

func strp(v string) *string { return &v }
func int64p(v int64) *int64 { return &v }
func intp(v int) *int       { return &v }
func boolp(v bool) *bool    { return &v }

// validChecklistRequest 与夹具模板一致的完整检查表
func validChecklistRequest() *dto.ChecklistRequest {
	return &dto.ChecklistRequest{
		VehicleID:     vehicleID,
		TemplateID:    templateID,
		ChecklistType: string(model.ChecklistDaily),
		Shift:         string(model.ShiftAlpha),
		KmInicial:     int64p(15000),
		Combustivel:   intp(80),
		Items: []dto.ChecklistItemRequest{
			{ItemName: "Nível de óleo", CategoryName: "Motor", ItemType: "checkbox", Required: true, Status: "ok"},
			{ItemName: "Nível de água", CategoryName: "Motor", ItemType: "checkbox", Status: "with_alteration", Note: "Abaixo do mínimo"},
			{ItemName: "Extintor", CategoryName: "Segurança", ItemType: "checkbox", Status: "ok"},
			{ItemName: "Foto do painel", CategoryName: "Segurança", ItemType: "photo", Status: "ok"},
		},
	}
}
