package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	pkgerrors "github.com/edmundobop/plataforma-bravo-web-sub000/pkg/errors"
)

// 与 PostgreSQL 迁移等价的 SQLite 表结构（类型降级为 TEXT/INTEGER/DATETIME）
var sqliteSchema = []string{
	`CREATE TABLE units (unit_id TEXT PRIMARY KEY, name TEXT NOT NULL,
		created_at DATETIME, created_by TEXT, updated_at DATETIME, updated_by TEXT)`,
	`CREATE TABLE users (user_id TEXT PRIMARY KEY, name TEXT NOT NULL, username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL, role TEXT NOT NULL DEFAULT 'operator', unit_id TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME, created_by TEXT, updated_at DATETIME, updated_by TEXT,
		deleted_at DATETIME, deleted_by TEXT, version INTEGER NOT NULL DEFAULT 1)`,
	`CREATE TABLE vehicles (vehicle_id TEXT PRIMARY KEY, unit_id TEXT NOT NULL, prefix TEXT NOT NULL,
		model TEXT, plate TEXT NOT NULL, type TEXT, is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME, created_by TEXT, updated_at DATETIME, updated_by TEXT)`,
	`CREATE TABLE checklist_templates (template_id TEXT PRIMARY KEY, unit_id TEXT NOT NULL, name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME, created_by TEXT, updated_at DATETIME, updated_by TEXT)`,
	`CREATE TABLE template_categories (category_id TEXT PRIMARY KEY, template_id TEXT NOT NULL,
		name TEXT NOT NULL, position INTEGER NOT NULL DEFAULT 0)`,
	`CREATE TABLE template_items (item_id TEXT PRIMARY KEY, category_id TEXT NOT NULL, name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'checkbox', required BOOLEAN NOT NULL DEFAULT 0, image_url TEXT,
		position INTEGER NOT NULL DEFAULT 0)`,
	`CREATE TABLE automation_rules (rule_id TEXT PRIMARY KEY, unit_id TEXT NOT NULL, name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 0, vehicle_id TEXT, template_id TEXT, time_of_day TEXT,
		weekdays TEXT, shift TEXT NOT NULL, checklist_type TEXT NOT NULL DEFAULT 'daily',
		last_generated_at DATETIME,
		created_at DATETIME, created_by TEXT, updated_at DATETIME, updated_by TEXT,
		deleted_at DATETIME, deleted_by TEXT, version INTEGER NOT NULL DEFAULT 1)`,
	`CREATE TABLE solicitations (solicitation_id TEXT PRIMARY KEY, unit_id TEXT NOT NULL, vehicle_id TEXT NOT NULL,
		template_id TEXT, checklist_type TEXT NOT NULL, shift TEXT NOT NULL, expected_at DATETIME NOT NULL,
		occurrence_date TEXT NOT NULL, automation_rule_id TEXT, status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT, started_at DATETIME, started_by TEXT, fulfilled_at DATETIME, checklist_id TEXT,
		cancel_reason TEXT, cancelled_at DATETIME, cancelled_by TEXT,
		created_at DATETIME, created_by TEXT, updated_at DATETIME, updated_by TEXT)`,
	`CREATE UNIQUE INDEX uq_solicitations_rule_occurrence ON solicitations (automation_rule_id, occurrence_date)
		WHERE status IN ('pending', 'fulfilled')`,
	`CREATE TABLE checklists (checklist_id TEXT PRIMARY KEY, unit_id TEXT NOT NULL, vehicle_id TEXT NOT NULL,
		template_id TEXT NOT NULL, solicitation_id TEXT, checklist_type TEXT NOT NULL, shift TEXT NOT NULL,
		performed_at DATETIME NOT NULL, km_inicial INTEGER NOT NULL, combustivel_percentual INTEGER NOT NULL,
		observations TEXT, status TEXT NOT NULL DEFAULT 'in_progress', authenticated_by TEXT,
		finalized_at DATETIME, cancel_reason TEXT, cancelled_at DATETIME, cancelled_by TEXT,
		created_at DATETIME, created_by TEXT, updated_at DATETIME, updated_by TEXT)`,
	`CREATE TABLE checklist_items (checklist_item_id TEXT PRIMARY KEY, checklist_id TEXT NOT NULL,
		item_name TEXT NOT NULL, category_name TEXT NOT NULL, item_type TEXT NOT NULL,
		required BOOLEAN NOT NULL DEFAULT 0, status TEXT NOT NULL DEFAULT 'ok', note TEXT, value TEXT,
		photos TEXT NOT NULL DEFAULT '[]', position INTEGER NOT NULL DEFAULT 0)`,
	`CREATE TABLE audit_logs (audit_log_id TEXT PRIMARY KEY, unit_id TEXT NOT NULL, entity TEXT NOT NULL,
		entity_id TEXT NOT NULL, action TEXT NOT NULL, reason TEXT, operator_id TEXT, created_at DATETIME)`,
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("打开 SQLite 失败: %v", err)
	}
	sqlDB, _ := db.DB()
	// 内存库按连接隔离，固定单连接
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	for _, stmt := range sqliteSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("建表失败: %v\n%s", err, stmt)
		}
	}
	return db
}

type fixture struct {
	unit     *model.Unit
	user     *model.User
	vehicle  *model.Vehicle
	template *model.ChecklistTemplate
}

func seed(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	f := &fixture{
		unit: &model.Unit{Name: "1º BBM"},
	}
	mustCreate(t, db, f.unit)

	f.user = &model.User{Name: "Op. Silva", Username: "op.silva", PasswordHash: "$2a$10$x", Role: model.RoleOperator, UnitID: f.unit.UnitID, IsActive: true}
	mustCreate(t, db, f.user)

	f.vehicle = &model.Vehicle{UnitID: f.unit.UnitID, Prefix: "ABT-12", Model: "Mercedes Atego", Plate: "ABC1D23", Type: "ABT", IsActive: true}
	mustCreate(t, db, f.vehicle)
	mustCreate(t, db, &model.Vehicle{UnitID: f.unit.UnitID, Prefix: "UR-03", Model: "Sprinter", Plate: "XYZ9K88", Type: "UR", IsActive: true})
	mustCreate(t, db, &model.Vehicle{UnitID: "other-unit", Prefix: "ABT-99", Plate: "OTH0A00", Type: "ABT", IsActive: true})

	f.template = &model.ChecklistTemplate{
		UnitID: f.unit.UnitID, Name: "Diário ABT", IsActive: true,
		Categories: []model.TemplateCategory{
			{Name: "Cabine", Position: 2, Items: []model.TemplateItem{
				{Name: "Painel", Type: model.ItemTypePhoto, Required: true, Position: 1},
			}},
			{Name: "Motor", Position: 1, Items: []model.TemplateItem{
				{Name: "Água", Type: model.ItemTypeCheckbox, Position: 2},
				{Name: "Óleo", Type: model.ItemTypeCheckbox, Position: 1},
			}},
		},
	}
	mustCreate(t, db, f.template)
	return f
}

func mustCreate(t *testing.T, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("创建测试数据失败: %v", err)
	}
}

func strp(s string) *string { return &s }

// ── User / Vehicle / Template ──

func TestUserRepo_GetByUsername(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	got, err := repo.User.GetByUsername(ctx, "op.silva")
	if err != nil {
		t.Fatalf("GetByUsername 失败: %v", err)
	}
	if got.UserID != f.user.UserID {
		t.Errorf("期望 UserID=%s，实际=%s", f.user.UserID, got.UserID)
	}

	if _, err := repo.User.GetByUsername(ctx, "ninguem"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际: %v", err)
	}
}

func TestUserRepo_ListAndSetActive(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	users, err := repo.User.ListByUnit(ctx, f.unit.UnitID)
	if err != nil {
		t.Fatalf("ListByUnit 失败: %v", err)
	}
	if len(users) != 1 || users[0].UserID != f.user.UserID {
		t.Errorf("期望 1 个用户，实际: %+v", users)
	}

	if err := repo.User.SetActive(ctx, "op.silva", false); err != nil {
		t.Fatalf("SetActive 失败: %v", err)
	}
	got, _ := repo.User.GetByUsername(ctx, "op.silva")
	if got.IsActive {
		t.Error("期望账号已停用")
	}
	if got.Version != 2 {
		t.Errorf("期望 version=2，实际=%d", got.Version)
	}

	if err := repo.User.SetActive(ctx, "ninguem", true); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际: %v", err)
	}
}

func TestUnitRepo(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	if err := repo.Unit.Create(ctx, &model.Unit{Name: "2º BBM"}); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}

	units, err := repo.Unit.List(ctx)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if len(units) != 2 || units[0].Name != "1º BBM" {
		t.Errorf("期望按名称排序的 2 个单位，实际: %+v", units)
	}

	got, err := repo.Unit.GetByName(ctx, "1º BBM")
	if err != nil || got.UnitID != f.unit.UnitID {
		t.Errorf("GetByName 结果不符: %v", err)
	}

	n, err := repo.Unit.CountUsers(ctx, f.unit.UnitID)
	if err != nil || n != 1 {
		t.Errorf("期望 1 个用户，实际 %d (%v)", n, err)
	}

	if _, err := repo.Unit.GetByID(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际: %v", err)
	}
}

func TestVehicleRepo_ListScopedAndSearch(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	all, err := repo.Vehicle.List(ctx, VehicleFilter{UnitID: f.unit.UnitID})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("期望本单位 2 辆车，实际 %d", len(all))
	}

	found, _ := repo.Vehicle.List(ctx, VehicleFilter{UnitID: f.unit.UnitID, Search: "atego"})
	if len(found) != 1 || found[0].Prefix != "ABT-12" {
		t.Errorf("按车型搜索期望 ABT-12，实际 %+v", found)
	}

	byType, _ := repo.Vehicle.List(ctx, VehicleFilter{UnitID: f.unit.UnitID, Type: "UR"})
	if len(byType) != 1 || byType[0].Prefix != "UR-03" {
		t.Errorf("按类型过滤期望 UR-03，实际 %+v", byType)
	}

	if _, err := repo.Vehicle.GetByID(ctx, "other-unit", f.vehicle.VehicleID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("跨单位查询车辆应返回 ErrRecordNotFound，实际: %v", err)
	}
}

func TestTemplateRepo_StructureOrdered(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)

	tpl, err := repo.Template.GetWithStructure(context.Background(), f.unit.UnitID, f.template.TemplateID)
	if err != nil {
		t.Fatalf("GetWithStructure 失败: %v", err)
	}
	if len(tpl.Categories) != 2 || tpl.Categories[0].Name != "Motor" {
		t.Fatalf("分类应按 position 排序，实际 %+v", tpl.Categories)
	}
	if items := tpl.Categories[0].Items; len(items) != 2 || items[0].Name != "Óleo" {
		t.Errorf("检查项应按 position 排序，实际 %+v", items)
	}
}

// ── AutomationRule ──

func TestAutomationRuleRepo_OptimisticLock(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	rule := &model.AutomationRule{
		UnitID: f.unit.UnitID, Name: "ABT-12 diário", Shift: model.ShiftAlpha,
		ChecklistType: model.ChecklistDaily, Weekdays: model.WeekdaySet{1},
	}
	rule.Version = 1
	if err := repo.AutomationRule.Create(ctx, rule); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}

	copy1, _ := repo.AutomationRule.GetByID(ctx, rule.RuleID)
	copy2, _ := repo.AutomationRule.GetByID(ctx, rule.RuleID)

	copy1.VehicleID = strp(f.vehicle.VehicleID)
	copy1.TimeOfDay = strp("07:00")
	copy1.IsActive = true
	if err := repo.AutomationRule.Update(ctx, copy1); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}
	if copy1.Version != 2 {
		t.Errorf("期望 version=2，实际 %d", copy1.Version)
	}

	copy2.Name = "stale"
	if err := repo.AutomationRule.Update(ctx, copy2); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}

	got, _ := repo.AutomationRule.GetByID(ctx, rule.RuleID)
	if !got.Complete() || !got.RunsOn(time.Monday) {
		t.Errorf("更新后的规则应完整且周一执行: %+v", got)
	}
}

func TestAutomationRuleRepo_TouchGeneratedOnlyAdvances(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	rule := &model.AutomationRule{
		UnitID: f.unit.UnitID, Name: "r", IsActive: true, VehicleID: strp(f.vehicle.VehicleID),
		TimeOfDay: strp("07:00"), Weekdays: model.WeekdaySet{1}, Shift: model.ShiftAlpha, ChecklistType: model.ChecklistDaily,
	}
	mustCreate(t, db, rule)

	monday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if err := repo.AutomationRule.TouchGenerated(ctx, rule.RuleID, monday); err != nil {
		t.Fatalf("TouchGenerated 失败: %v", err)
	}
	// 补生成更早的日期不回退
	if err := repo.AutomationRule.TouchGenerated(ctx, rule.RuleID, monday.AddDate(0, 0, -3)); err != nil {
		t.Fatalf("TouchGenerated 失败: %v", err)
	}

	got, _ := repo.AutomationRule.GetByID(ctx, rule.RuleID)
	if got.LastGeneratedAt == nil || !got.LastGeneratedAt.Equal(monday) {
		t.Errorf("期望 last_generated_at=%v，实际 %v", monday, got.LastGeneratedAt)
	}
}

func TestAutomationRuleRepo_SoftDeleteKeepsSolicitations(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	rule := &model.AutomationRule{
		UnitID: f.unit.UnitID, Name: "r", IsActive: true, VehicleID: strp(f.vehicle.VehicleID),
		TimeOfDay: strp("07:00"), Weekdays: model.WeekdaySet{1}, Shift: model.ShiftAlpha, ChecklistType: model.ChecklistDaily,
	}
	mustCreate(t, db, rule)
	sol := newSolicitation(f, &rule.RuleID, "2026-03-02")
	mustCreate(t, db, sol)

	if err := repo.AutomationRule.Delete(ctx, rule.RuleID, f.user.UserID); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if _, err := repo.AutomationRule.GetByID(ctx, rule.RuleID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("软删除后应查不到规则，实际: %v", err)
	}
	active, _ := repo.AutomationRule.ListActive(ctx)
	if len(active) != 0 {
		t.Errorf("软删除的规则不应出现在激活列表中")
	}
	if _, err := repo.Solicitation.GetByID(ctx, sol.SolicitationID); err != nil {
		t.Errorf("删除规则不应影响已生成的巡检单: %v", err)
	}
	if err := repo.AutomationRule.Delete(ctx, rule.RuleID, f.user.UserID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("重复删除期望 ErrRecordNotFound，实际: %v", err)
	}
}

// ── Solicitation ──

func newSolicitation(f *fixture, ruleID *string, date string) *model.Solicitation {
	day, _ := time.Parse("2006-01-02", date)
	return &model.Solicitation{
		UnitID:           f.unit.UnitID,
		VehicleID:        f.vehicle.VehicleID,
		TemplateID:       strp(f.template.TemplateID),
		ChecklistType:    model.ChecklistDaily,
		Shift:            model.ShiftAlpha,
		ExpectedAt:       day.Add(7 * time.Hour),
		OccurrenceDate:   date,
		AutomationRuleID: ruleID,
	}
}

func TestSolicitationRepo_CreateIfAbsent_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()
	ruleID := "rule-1"

	created, err := repo.Solicitation.CreateIfAbsent(ctx, newSolicitation(f, &ruleID, "2026-03-02"))
	if err != nil || !created {
		t.Fatalf("首次创建应成功: created=%v err=%v", created, err)
	}

	created, err = repo.Solicitation.CreateIfAbsent(ctx, newSolicitation(f, &ruleID, "2026-03-02"))
	if err != nil {
		t.Fatalf("重复创建不应报错: %v", err)
	}
	if created {
		t.Error("同一规则同一天不应重复创建")
	}

	exists, _ := repo.Solicitation.ExistsOpenOccurrence(ctx, ruleID, "2026-03-02")
	if !exists {
		t.Error("ExistsOpenOccurrence 应返回 true")
	}

	// 不同日期不冲突
	created, _ = repo.Solicitation.CreateIfAbsent(ctx, newSolicitation(f, &ruleID, "2026-03-09"))
	if !created {
		t.Error("不同日期应可创建")
	}

	var count int64
	db.Model(&model.Solicitation{}).Where("automation_rule_id = ?", ruleID).Count(&count)
	if count != 2 {
		t.Errorf("期望 2 条巡检单，实际 %d", count)
	}
}

func TestSolicitationRepo_CancelledOccurrenceAllowsRegeneration(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()
	ruleID := "rule-1"

	first := newSolicitation(f, &ruleID, "2026-03-02")
	mustCreate(t, db, first)
	if ok, _ := repo.Solicitation.Cancel(ctx, first.SolicitationID, "Viatura baixada", f.user.UserID, time.Now()); !ok {
		t.Fatal("取消应生效")
	}

	exists, _ := repo.Solicitation.ExistsOpenOccurrence(ctx, ruleID, "2026-03-02")
	if exists {
		t.Error("已取消的巡检单不应计入占用")
	}
	if found, _ := repo.Solicitation.ExistsOccurrence(ctx, ruleID, "2026-03-02"); !found {
		t.Error("ExistsOccurrence 应计入已取消的巡检单")
	}
	if found, _ := repo.Solicitation.ExistsOccurrence(ctx, ruleID, "2026-03-03"); found {
		t.Error("其他日期不应计入")
	}
	created, err := repo.Solicitation.CreateIfAbsent(ctx, newSolicitation(f, &ruleID, "2026-03-02"))
	if err != nil || !created {
		t.Errorf("取消后同日应可重新生成: created=%v err=%v", created, err)
	}
}

func TestSolicitationRepo_GuardedTransitions(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	sol := newSolicitation(f, nil, "2026-03-02")
	mustCreate(t, db, sol)

	if ok, err := repo.Solicitation.MarkStarted(ctx, sol.SolicitationID, f.user.UserID, now); err != nil || !ok {
		t.Fatalf("MarkStarted 应生效: ok=%v err=%v", ok, err)
	}
	if ok, _ := repo.Solicitation.Fulfill(ctx, sol.SolicitationID, "chk-1", now); !ok {
		t.Fatal("首次 Fulfill 应生效")
	}
	if ok, _ := repo.Solicitation.Fulfill(ctx, sol.SolicitationID, "chk-2", now); ok {
		t.Error("第二次 Fulfill 不应生效")
	}
	if ok, _ := repo.Solicitation.Cancel(ctx, sol.SolicitationID, "x", f.user.UserID, now); ok {
		t.Error("已完成的巡检单不应被取消")
	}
	if ok, _ := repo.Solicitation.DeletePending(ctx, sol.SolicitationID); ok {
		t.Error("已完成的巡检单不应被删除")
	}
	if ok, _ := repo.Solicitation.MarkStarted(ctx, sol.SolicitationID, f.user.UserID, now); ok {
		t.Error("已完成的巡检单不应再被开始")
	}

	got, _ := repo.Solicitation.GetByID(ctx, sol.SolicitationID)
	if got.Status != model.SolicitationFulfilled || got.ChecklistID == nil || *got.ChecklistID != "chk-1" {
		t.Errorf("第一次完成应为权威结果，实际 status=%s checklist=%v", got.Status, got.ChecklistID)
	}
	if got.StartedBy == nil || *got.StartedBy != f.user.UserID {
		t.Error("started_by 应被记录")
	}
}

func TestSolicitationRepo_DeletePending(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	sol := newSolicitation(f, nil, "2026-03-02")
	mustCreate(t, db, sol)

	if ok, err := repo.Solicitation.DeletePending(ctx, sol.SolicitationID); err != nil || !ok {
		t.Fatalf("删除 pending 巡检单应生效: ok=%v err=%v", ok, err)
	}
	if _, err := repo.Solicitation.GetByID(ctx, sol.SolicitationID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("删除后应查不到，实际: %v", err)
	}
}

func TestSolicitationRepo_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	for _, d := range []string{"2026-03-02", "2026-03-03", "2026-03-04"} {
		mustCreate(t, db, newSolicitation(f, nil, d))
	}
	cancelled := newSolicitation(f, nil, "2026-03-05")
	cancelled.Status = model.SolicitationCancelled
	cancelled.CancelReason = "x"
	mustCreate(t, db, cancelled)

	list, total, err := repo.Solicitation.List(ctx, SolicitationFilter{
		UnitID: f.unit.UnitID, Status: model.SolicitationPending, Page: Page{Limit: 2},
	})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total != 3 || len(list) != 2 {
		t.Errorf("期望 total=3 当前页 2 条，实际 total=%d len=%d", total, len(list))
	}
	if list[0].OccurrenceDate != "2026-03-02" {
		t.Errorf("应按 expected_at 升序，首条为 %s", list[0].OccurrenceDate)
	}

	from := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	ranged, _, _ := repo.Solicitation.List(ctx, SolicitationFilter{UnitID: f.unit.UnitID, From: &from, To: &to})
	if len(ranged) != 1 || ranged[0].OccurrenceDate != "2026-03-03" {
		t.Errorf("日期范围过滤期望仅 2026-03-03，实际 %d 条", len(ranged))
	}
}

// ── Checklist ──

func newChecklist(f *fixture) *model.Checklist {
	return &model.Checklist{
		UnitID:        f.unit.UnitID,
		VehicleID:     f.vehicle.VehicleID,
		TemplateID:    f.template.TemplateID,
		ChecklistType: model.ChecklistDaily,
		Shift:         model.ShiftAlpha,
		PerformedAt:   time.Now().UTC(),
		OdometerStart: 15000,
		FuelPercent:   80,
		Items: []model.ChecklistItem{
			{ItemName: "Óleo", CategoryName: "Motor", ItemType: model.ItemTypeCheckbox, Status: model.ItemOK, Position: 0},
			{ItemName: "Painel", CategoryName: "Cabine", ItemType: model.ItemTypePhoto, Status: model.ItemWithAlteration,
				Note: "trincado", Position: 1,
				Photos: []model.PhotoAttachment{{URL: "/uploads/p.jpg", OriginalName: "p.jpg", Size: 10, Filename: "p.jpg"}}},
		},
	}
}

func TestChecklistRepo_CreateUpdateFinalize(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	c := newChecklist(f)
	if err := repo.Checklist.Create(ctx, c); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}

	got, err := repo.Checklist.GetByID(ctx, c.ChecklistID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if got.Status != model.ChecklistInProgress || got.OdometerStart != 15000 || got.FuelPercent != 80 {
		t.Errorf("字段不符: %+v", got)
	}
	if len(got.Items) != 2 || len(got.Items[1].Photos) != 1 || got.Items[1].Photos[0].URL != "/uploads/p.jpg" {
		t.Fatalf("明细或照片未正确保存: %+v", got.Items)
	}

	c.FuelPercent = 75
	c.Items = c.Items[:1]
	if ok, err := repo.Checklist.UpdateInProgress(ctx, c); err != nil || !ok {
		t.Fatalf("UpdateInProgress 应生效: ok=%v err=%v", ok, err)
	}
	got, _ = repo.Checklist.GetByID(ctx, c.ChecklistID)
	if got.FuelPercent != 75 || len(got.Items) != 1 {
		t.Errorf("更新后期望油量 75、明细 1 条，实际 %d / %d", got.FuelPercent, len(got.Items))
	}

	if ok, _ := repo.Checklist.Finalize(ctx, c.ChecklistID, f.user.UserID, time.Now()); !ok {
		t.Fatal("首次 Finalize 应生效")
	}
	if ok, _ := repo.Checklist.Finalize(ctx, c.ChecklistID, f.user.UserID, time.Now()); ok {
		t.Error("重复 Finalize 不应生效")
	}
	if ok, _ := repo.Checklist.UpdateInProgress(ctx, c); ok {
		t.Error("已定稿的检查表不应被更新")
	}

	got, _ = repo.Checklist.GetByID(ctx, c.ChecklistID)
	if got.Status != model.ChecklistFinalized || got.AuthenticatedBy == nil || *got.AuthenticatedBy != f.user.UserID {
		t.Errorf("定稿后状态或复核人不符: %+v", got)
	}
}

func TestChecklistRepo_CancelTerminal(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	c := newChecklist(f)
	mustCreate(t, db, c)

	if ok, _ := repo.Checklist.Cancel(ctx, c.ChecklistID, "Preenchido na viatura errada", f.user.UserID, time.Now()); !ok {
		t.Fatal("取消应生效")
	}
	if ok, _ := repo.Checklist.Cancel(ctx, c.ChecklistID, "again", f.user.UserID, time.Now()); ok {
		t.Error("已取消的检查表不应再次取消")
	}
	if ok, _ := repo.Checklist.Finalize(ctx, c.ChecklistID, f.user.UserID, time.Now()); ok {
		t.Error("已取消的检查表不应被定稿")
	}

	list, total, _ := repo.Checklist.List(ctx, ChecklistFilter{UnitID: f.unit.UnitID, Status: model.ChecklistCancelled})
	if total != 1 || list[0].CancelReason != "Preenchido na viatura errada" {
		t.Errorf("取消原因应被保存，实际 total=%d", total)
	}
}

// ── AuditLog ──

func TestAuditLogRepo(t *testing.T) {
	db := setupTestDB(t)
	f := seed(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	for _, action := range []string{"generate", "cancel"} {
		if err := repo.AuditLog.Create(ctx, &model.AuditLog{
			UnitID: f.unit.UnitID, Entity: "solicitation", EntityID: "sol-1", Action: action, OperatorID: strp(f.user.UserID),
		}); err != nil {
			t.Fatalf("写入审计日志失败: %v", err)
		}
	}

	logs, err := repo.AuditLog.ListByEntity(ctx, f.unit.UnitID, "solicitation", "sol-1")
	if err != nil {
		t.Fatalf("ListByEntity 失败: %v", err)
	}
	if len(logs) != 2 {
		t.Errorf("期望 2 条审计日志，实际 %d", len(logs))
	}
}
