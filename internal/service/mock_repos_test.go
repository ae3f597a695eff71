package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/repository"
	pkgerrors "github.com/edmundobop/plataforma-bravo-web-sub000/pkg/errors"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/storage"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id 与 username
	err   error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Username
	}
	m.users[user.UserID] = user
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok && u.UserID == id {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[username]; ok && u.Username == username {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByUnit(_ context.Context, unitID string) ([]model.User, error) {
	var out []model.User
	for key, u := range m.users {
		if key == u.UserID && u.UnitID == unitID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) SetActive(_ context.Context, username string, active bool) error {
	u, ok := m.users[username]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsActive = active
	return nil
}

// ── Mock VehicleRepository ──

type mockVehicleRepo struct {
	vehicles map[string]*model.Vehicle
}

func newMockVehicleRepo() *mockVehicleRepo {
	return &mockVehicleRepo{vehicles: make(map[string]*model.Vehicle)}
}

func (m *mockVehicleRepo) GetByID(_ context.Context, unitID, id string) (*model.Vehicle, error) {
	if v, ok := m.vehicles[id]; ok && v.UnitID == unitID {
		return v, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockVehicleRepo) List(_ context.Context, f repository.VehicleFilter) ([]model.Vehicle, error) {
	var result []model.Vehicle
	for _, v := range m.vehicles {
		if v.UnitID == f.UnitID && v.IsActive {
			result = append(result, *v)
		}
	}
	return result, nil
}

// ── Mock TemplateRepository ──

type mockTemplateRepo struct {
	templates map[string]*model.ChecklistTemplate
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{templates: make(map[string]*model.ChecklistTemplate)}
}

func (m *mockTemplateRepo) GetWithStructure(_ context.Context, unitID, id string) (*model.ChecklistTemplate, error) {
	if t, ok := m.templates[id]; ok && t.UnitID == unitID {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTemplateRepo) List(_ context.Context, unitID string) ([]model.ChecklistTemplate, error) {
	var result []model.ChecklistTemplate
	for _, t := range m.templates {
		if t.UnitID == unitID {
			result = append(result, *t)
		}
	}
	return result, nil
}

// ── Mock AutomationRuleRepository ──

type mockAutomationRuleRepo struct {
	mu    sync.Mutex
	rules map[string]*model.AutomationRule
	seq   int
}

func newMockAutomationRuleRepo() *mockAutomationRuleRepo {
	return &mockAutomationRuleRepo{rules: make(map[string]*model.AutomationRule)}
}

func (m *mockAutomationRuleRepo) Create(_ context.Context, rule *model.AutomationRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rule.RuleID == "" {
		m.seq++
		rule.RuleID = fmt.Sprintf("rule-%d", m.seq)
	}
	if rule.Version == 0 {
		rule.Version = 1
	}
	cp := *rule
	m.rules[rule.RuleID] = &cp
	return nil
}

func (m *mockAutomationRuleRepo) GetByID(_ context.Context, id string) (*model.AutomationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rules[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAutomationRuleRepo) List(_ context.Context, f repository.AutomationRuleFilter) ([]model.AutomationRule, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AutomationRule
	for _, r := range m.rules {
		if r.UnitID != f.UnitID {
			continue
		}
		if f.Active != nil && r.IsActive != *f.Active {
			continue
		}
		result = append(result, *r)
	}
	return result, int64(len(result)), nil
}

func (m *mockAutomationRuleRepo) ListActive(_ context.Context) ([]model.AutomationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AutomationRule
	for _, r := range m.rules {
		if r.IsActive {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockAutomationRuleRepo) Update(_ context.Context, rule *model.AutomationRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.rules[rule.RuleID]
	if !ok || current.Version != rule.Version {
		return pkgerrors.ErrOptimisticLock
	}
	rule.Version++
	cp := *rule
	m.rules[rule.RuleID] = &cp
	return nil
}

func (m *mockAutomationRuleRepo) Delete(_ context.Context, id string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rules, id)
	return nil
}

func (m *mockAutomationRuleRepo) TouchGenerated(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rules[id]; ok && (r.LastGeneratedAt == nil || r.LastGeneratedAt.Before(at)) {
		r.LastGeneratedAt = &at
	}
	return nil
}

// ── Mock SolicitationRepository ──

// mockSolicitationRepo 模拟 (automation_rule_id, occurrence_date) 部分唯一索引与带条件更新
type mockSolicitationRepo struct {
	mu           sync.Mutex
	items        map[string]*model.Solicitation
	seq          int
	fulfillCalls int
	err          error // 非 nil 时所有写操作返回该错误
}

func newMockSolicitationRepo() *mockSolicitationRepo {
	return &mockSolicitationRepo{items: make(map[string]*model.Solicitation)}
}

func (m *mockSolicitationRepo) insert(s *model.Solicitation) {
	if s.SolicitationID == "" {
		m.seq++
		s.SolicitationID = fmt.Sprintf("sol-%d", m.seq)
	}
	if s.Status == "" {
		s.Status = model.SolicitationPending
	}
	cp := *s
	m.items[s.SolicitationID] = &cp
}

func (m *mockSolicitationRepo) Create(_ context.Context, s *model.Solicitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.insert(s)
	return nil
}

func (m *mockSolicitationRepo) openOccurrence(ruleID, date string) bool {
	for _, s := range m.items {
		if s.AutomationRuleID != nil && *s.AutomationRuleID == ruleID &&
			s.OccurrenceDate == date && s.Status != model.SolicitationCancelled {
			return true
		}
	}
	return false
}

func (m *mockSolicitationRepo) CreateIfAbsent(_ context.Context, s *model.Solicitation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if s.AutomationRuleID != nil && m.openOccurrence(*s.AutomationRuleID, s.OccurrenceDate) {
		return false, nil
	}
	m.insert(s)
	return true, nil
}

func (m *mockSolicitationRepo) ExistsOpenOccurrence(_ context.Context, ruleID, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.openOccurrence(ruleID, date), nil
}

func (m *mockSolicitationRepo) ExistsOccurrence(_ context.Context, ruleID, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, s := range m.items {
		if s.AutomationRuleID != nil && *s.AutomationRuleID == ruleID && s.OccurrenceDate == date {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSolicitationRepo) GetByID(_ context.Context, id string) (*model.Solicitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSolicitationRepo) List(_ context.Context, f repository.SolicitationFilter) ([]model.Solicitation, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Solicitation
	for _, s := range m.items {
		if s.UnitID != f.UnitID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.From != nil && s.ExpectedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !s.ExpectedAt.Before(*f.To) {
			continue
		}
		result = append(result, *s)
	}
	return result, int64(len(result)), nil
}

func (m *mockSolicitationRepo) pending(id string) (*model.Solicitation, bool) {
	s, ok := m.items[id]
	return s, ok && s.Status == model.SolicitationPending
}

func (m *mockSolicitationRepo) MarkStarted(_ context.Context, id, userID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	s, ok := m.pending(id)
	if !ok {
		return false, nil
	}
	s.StartedAt = &at
	s.StartedBy = &userID
	return true, nil
}

func (m *mockSolicitationRepo) Fulfill(_ context.Context, id, checklistID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	s, ok := m.pending(id)
	if !ok {
		return false, nil
	}
	m.fulfillCalls++
	s.Status = model.SolicitationFulfilled
	s.FulfilledAt = &at
	s.ChecklistID = &checklistID
	return true, nil
}

func (m *mockSolicitationRepo) Cancel(_ context.Context, id, reason, cancelledBy string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	s, ok := m.pending(id)
	if !ok {
		return false, nil
	}
	s.Status = model.SolicitationCancelled
	s.CancelReason = reason
	s.CancelledAt = &at
	s.CancelledBy = &cancelledBy
	return true, nil
}

func (m *mockSolicitationRepo) DeletePending(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.pending(id); !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

// ── Mock ChecklistRepository ──

type mockChecklistRepo struct {
	mu            sync.Mutex
	items         map[string]*model.Checklist
	seq           int
	createCalls   int
	finalizeCalls int
	createErr     error
	finalizeErr   error
}

func newMockChecklistRepo() *mockChecklistRepo {
	return &mockChecklistRepo{items: make(map[string]*model.Checklist)}
}

func (m *mockChecklistRepo) Create(_ context.Context, c *model.Checklist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	if c.ChecklistID == "" {
		m.seq++
		c.ChecklistID = fmt.Sprintf("chk-%d", m.seq)
	}
	cp := *c
	cp.Items = append([]model.ChecklistItem(nil), c.Items...)
	m.items[c.ChecklistID] = &cp
	return nil
}

func (m *mockChecklistRepo) GetByID(_ context.Context, id string) (*model.Checklist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.items[id]; ok {
		cp := *c
		cp.Items = append([]model.ChecklistItem(nil), c.Items...)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockChecklistRepo) List(_ context.Context, f repository.ChecklistFilter) ([]model.Checklist, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Checklist
	for _, c := range m.items {
		if c.UnitID == f.UnitID && (f.Status == "" || c.Status == f.Status) {
			result = append(result, *c)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockChecklistRepo) UpdateInProgress(_ context.Context, c *model.Checklist) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.items[c.ChecklistID]
	if !ok || current.Status != model.ChecklistInProgress {
		return false, nil
	}
	current.VehicleID = c.VehicleID
	current.TemplateID = c.TemplateID
	current.ChecklistType = c.ChecklistType
	current.Shift = c.Shift
	current.OdometerStart = c.OdometerStart
	current.FuelPercent = c.FuelPercent
	current.Observations = c.Observations
	current.Items = append([]model.ChecklistItem(nil), c.Items...)
	return true, nil
}

func (m *mockChecklistRepo) Finalize(_ context.Context, id, authenticatedBy string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalizeErr != nil {
		return false, m.finalizeErr
	}
	c, ok := m.items[id]
	if !ok || c.Status != model.ChecklistInProgress {
		return false, nil
	}
	m.finalizeCalls++
	c.Status = model.ChecklistFinalized
	c.AuthenticatedBy = &authenticatedBy
	c.FinalizedAt = &at
	return true, nil
}

func (m *mockChecklistRepo) Cancel(_ context.Context, id, reason, cancelledBy string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok || c.Status == model.ChecklistCancelled {
		return false, nil
	}
	c.Status = model.ChecklistCancelled
	c.CancelReason = reason
	c.CancelledAt = &at
	c.CancelledBy = &cancelledBy
	return true, nil
}

// ── Mock AuditLogRepository ──

type mockAuditLogRepo struct {
	mu   sync.Mutex
	logs []model.AuditLog
}

func newMockAuditLogRepo() *mockAuditLogRepo {
	return &mockAuditLogRepo{}
}

func (m *mockAuditLogRepo) Create(_ context.Context, log *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockAuditLogRepo) ListByEntity(_ context.Context, unitID, entity, entityID string) ([]model.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AuditLog
	for _, l := range m.logs {
		if l.UnitID == unitID && l.Entity == entity && l.EntityID == entityID {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *mockAuditLogRepo) actions(entityID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []string
	for _, l := range m.logs {
		if l.EntityID == entityID {
			result = append(result, l.Action)
		}
	}
	return result
}

// ── Mock 外部依赖 ──

type mockPublisher struct {
	mu     sync.Mutex
	events []string
}

func (m *mockPublisher) PublishSolicitationEvent(_ context.Context, unitID string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, unitID+":"+string(payload))
	return nil
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type mockPhotoStore struct {
	mu      sync.Mutex
	saved   map[string]int64
	deleted []string
	seq     int
}

func newMockPhotoStore() *mockPhotoStore {
	return &mockPhotoStore{saved: make(map[string]int64)}
}

func (m *mockPhotoStore) Save(_ context.Context, r io.Reader, originalName string) (*storage.StoredFile, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		return nil, storage.ErrUnsupportedType
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	name := fmt.Sprintf("2026/10/photo-%d.png", m.seq)
	m.saved[name] = n
	return &storage.StoredFile{
		URL:          "/uploads/" + name,
		OriginalName: originalName,
		Size:         n,
		Filename:     name,
	}, nil
}

func (m *mockPhotoStore) Delete(_ context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saved, filename)
	m.deleted = append(m.deleted, filename)
	return nil
}
