// Package fillout 检查表填写向导的纯状态机。
//
// Session 不做任何 I/O：模板、车辆、凭据校验与持久化均由宿主（service.FilloutService）
// 完成后再调用相应的状态转换方法。步骤严格顺序推进：
//
//	StepContext → StepInspection(分类 0..N-1) → StepFinalize → StepFinalized
package fillout

import (
	"errors"
	"strconv"
	"strings"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
)

// Step 向导步骤
type Step int

const (
	StepContext Step = iota + 1
	StepInspection
	StepFinalize
	StepFinalized
)

func (s Step) String() string {
	switch s {
	case StepContext:
		return "context"
	case StepInspection:
		return "inspection"
	case StepFinalize:
		return "finalize"
	case StepFinalized:
		return "finalized"
	}
	return "unknown"
}

var (
	ErrWrongStep              = errors.New("当前步骤不允许该操作")
	ErrSessionFinalized       = errors.New("检查表已完成，会话已关闭")
	ErrFieldLocked            = errors.New("车辆与检查类型由巡检单指定，不可修改")
	ErrContextIncomplete      = errors.New("车辆、里程、油量、班组、检查类型与模板均为必填")
	ErrInvalidFuel            = errors.New("油量只能输入数字")
	ErrFuelOutOfRange         = errors.New("油量百分比必须在 0-100 之间")
	ErrInvalidOdometer        = errors.New("里程必须为非负整数")
	ErrInvalidShift           = errors.New("班组取值无效")
	ErrInvalidChecklistType   = errors.New("检查类型取值无效")
	ErrTemplateMismatch       = errors.New("模板与当前选择不一致")
	ErrTemplateNotLoaded      = errors.New("模板结构尚未加载")
	ErrTemplateEmpty          = errors.New("模板没有任何检查项")
	ErrItemNotFound           = errors.New("检查项不存在")
	ErrItemNotInCategory      = errors.New("检查项不属于当前分类")
	ErrInvalidItemStatus      = errors.New("检查项状态取值无效")
	ErrNoteRequiresAlteration = errors.New("仅“有异常”的检查项可填写说明")
	ErrPhotoNotFound          = errors.New("照片不存在")
	ErrCredentialsRequired    = errors.New("请输入用户名与密码")
)

// ── 输入类型 ──

// Context 第一步的上下文字段；指针字段为空表示尚未填写
type Context struct {
	VehicleID     string
	Odometer      *int64
	FuelPercent   *int
	Shift         model.Shift
	ChecklistType model.ChecklistType
	TemplateID    string
}

// Prefill 从巡检单打开会话时的预填值
type Prefill struct {
	SolicitationID string
	VehicleID      string
	ChecklistType  model.ChecklistType
	Shift          model.Shift
	TemplateID     string
}

// Template 模板结构（分类与检查项均已按 position 排序）
type Template struct {
	ID         string
	Categories []TemplateCategory
}

type TemplateCategory struct {
	Name  string
	Items []TemplateItem
}

type TemplateItem struct {
	Name     string
	Type     model.ItemType
	Required bool
	ImageURL string
}

// Resumed 继续填写一份已持久化但未完成的检查表
type Resumed struct {
	ChecklistID    string
	SolicitationID string
	Context        Context
	Observations   string
	Items          []Item // 已按分类与 position 排序
}

// ── 会话 ──

// Session 一次填写向导的全部状态。非并发安全，由宿主加锁。
type Session struct {
	ID      string
	OwnerID string
	UnitID  string

	solicitationID string
	lockVehicle    bool
	lockType       bool

	ctx            Context
	loadedTemplate string
	categories     []string
	items          []Item
	observations   string

	step     Step
	category int

	identity string
	password string

	checklistID string
}

// New 创建临时（非巡检单）会话
func New(id, ownerID, unitID string) *Session {
	return &Session{ID: id, OwnerID: ownerID, UnitID: unitID, step: StepContext}
}

// FromSolicitation 从巡检单打开：预填上下文并锁定车辆与检查类型
func FromSolicitation(id, ownerID, unitID string, p Prefill) *Session {
	s := New(id, ownerID, unitID)
	s.solicitationID = p.SolicitationID
	s.ctx = Context{
		VehicleID:     p.VehicleID,
		Shift:         p.Shift,
		ChecklistType: p.ChecklistType,
		TemplateID:    p.TemplateID,
	}
	s.lockVehicle = p.VehicleID != ""
	s.lockType = p.ChecklistType != ""
	return s
}

// Resume 从进行中的检查表恢复会话；关联巡检单时同样锁定车辆与类型
func Resume(id, ownerID, unitID string, r Resumed) (*Session, error) {
	s := New(id, ownerID, unitID)
	s.checklistID = r.ChecklistID
	s.solicitationID = r.SolicitationID
	s.ctx = r.Context
	s.observations = r.Observations
	if r.SolicitationID != "" {
		s.lockVehicle = true
		s.lockType = true
	}
	if len(r.Items) == 0 {
		return s, nil
	}

	s.items = make([]Item, 0, len(r.Items))
	for _, it := range r.Items {
		if it.Kind == nil {
			return nil, ErrUnknownItemKind
		}
		if n := len(s.categories); n == 0 || s.categories[n-1] != it.Category {
			s.categories = append(s.categories, it.Category)
		}
		it = it.clone()
		it.CategoryIndex = len(s.categories) - 1
		if it.Status == "" {
			it.Status = model.ItemOK
		}
		s.items = append(s.items, it)
	}
	s.loadedTemplate = r.Context.TemplateID
	return s, nil
}

// ── 读取 ──

func (s *Session) Step() Step                  { return s.step }
func (s *Session) Category() int               { return s.category }
func (s *Session) CategoryCount() int          { return len(s.categories) }
func (s *Session) Context() Context            { return s.ctx }
func (s *Session) Observations() string        { return s.observations }
func (s *Session) SolicitationID() string      { return s.solicitationID }
func (s *Session) ChecklistID() string         { return s.checklistID }
func (s *Session) Identity() string            { return s.identity }
func (s *Session) HasPassword() bool           { return s.password != "" }
func (s *Session) Locked() (vehicle, typ bool) { return s.lockVehicle, s.lockType }

// Credentials 返回提交用的身份与密码
func (s *Session) Credentials() (identity, password string) {
	return s.identity, s.password
}

// CategoryName 返回第 i 个分类名
func (s *Session) CategoryName(i int) string {
	if i < 0 || i >= len(s.categories) {
		return ""
	}
	return s.categories[i]
}

// Items 返回全部检查项的副本
func (s *Session) Items() []Item {
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = it.clone()
	}
	return out
}

// NeedsTemplate 已选模板但结构尚未加载（或已切换模板）
func (s *Session) NeedsTemplate() bool {
	return s.ctx.TemplateID != "" && s.ctx.TemplateID != s.loadedTemplate
}

// ── 第一步：上下文 ──

// ParseFuelPercent 解析用户输入的油量百分比，非数字与越界输入在录入时即拒绝
func ParseFuelPercent(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrInvalidFuel
	}
	if err := checkFuel(n); err != nil {
		return 0, err
	}
	return n, nil
}

// ParseOdometer 解析里程读数
func ParseOdometer(raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return 0, ErrInvalidOdometer
	}
	return n, nil
}

func checkFuel(n int) error {
	if n < 0 || n > 100 {
		return ErrFuelOutOfRange
	}
	return nil
}

// SetContext 更新第一步字段。锁定字段为空时保留原值，不同值返回 ErrFieldLocked。
// 更换模板会清空已加载的检查项。
func (s *Session) SetContext(in Context) error {
	if err := s.requireStep(StepContext); err != nil {
		return err
	}

	if s.lockVehicle {
		if in.VehicleID != "" && in.VehicleID != s.ctx.VehicleID {
			return ErrFieldLocked
		}
		in.VehicleID = s.ctx.VehicleID
	}
	if s.lockType {
		if in.ChecklistType != "" && in.ChecklistType != s.ctx.ChecklistType {
			return ErrFieldLocked
		}
		in.ChecklistType = s.ctx.ChecklistType
	}

	if in.FuelPercent != nil {
		if err := checkFuel(*in.FuelPercent); err != nil {
			return err
		}
	}
	if in.Odometer != nil && *in.Odometer < 0 {
		return ErrInvalidOdometer
	}
	if in.Shift != "" && !in.Shift.Valid() {
		return ErrInvalidShift
	}
	if in.ChecklistType != "" && !in.ChecklistType.Valid() {
		return ErrInvalidChecklistType
	}

	in.VehicleID = strings.TrimSpace(in.VehicleID)
	in.TemplateID = strings.TrimSpace(in.TemplateID)
	if in.TemplateID != s.loadedTemplate {
		s.items = nil
		s.categories = nil
		s.loadedTemplate = ""
	}
	s.ctx = in
	return nil
}

// SetObservations 更新总体备注
func (s *Session) SetObservations(text string) error {
	if s.step == StepFinalized {
		return ErrSessionFinalized
	}
	s.observations = strings.TrimSpace(text)
	return nil
}

// ApplyTemplate 以模板结构替换工作集，所有检查项默认“正常”
func (s *Session) ApplyTemplate(t Template) error {
	if err := s.requireStep(StepContext); err != nil {
		return err
	}
	if t.ID != s.ctx.TemplateID {
		return ErrTemplateMismatch
	}

	var (
		categories []string
		items      []Item
	)
	for _, c := range t.Categories {
		if len(c.Items) == 0 {
			continue
		}
		categories = append(categories, c.Name)
		for _, ti := range c.Items {
			kind, err := KindOf(ti.Type)
			if err != nil {
				return err
			}
			items = append(items, Item{
				Name:          ti.Name,
				Category:      c.Name,
				CategoryIndex: len(categories) - 1,
				Kind:          kind,
				Required:      ti.Required,
				ImageURL:      ti.ImageURL,
				Status:        model.ItemOK,
			})
		}
	}
	if len(items) == 0 {
		return ErrTemplateEmpty
	}

	s.categories = categories
	s.items = items
	s.loadedTemplate = t.ID
	s.category = 0
	return nil
}

func (s *Session) contextComplete() error {
	c := s.ctx
	if c.VehicleID == "" || c.Odometer == nil || c.FuelPercent == nil ||
		c.Shift == "" || c.ChecklistType == "" || c.TemplateID == "" {
		return ErrContextIncomplete
	}
	if s.NeedsTemplate() || len(s.items) == 0 {
		return ErrTemplateNotLoaded
	}
	return nil
}

// ── 第二步：逐分类检查 ──

func (s *Session) itemInCurrentCategory(index int) (*Item, error) {
	if err := s.requireStep(StepInspection); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(s.items) {
		return nil, ErrItemNotFound
	}
	it := &s.items[index]
	if it.CategoryIndex != s.category {
		return nil, ErrItemNotInCategory
	}
	return it, nil
}

// CheckItem 检查项存在且属于当前分类，写入附件等外部资源前调用
func (s *Session) CheckItem(index int) error {
	_, err := s.itemInCurrentCategory(index)
	return err
}

// SetItemStatus 切换检查项状态；恢复为“正常”时清空说明
func (s *Session) SetItemStatus(index int, status model.ItemStatus) error {
	if !status.Valid() {
		return ErrInvalidItemStatus
	}
	it, err := s.itemInCurrentCategory(index)
	if err != nil {
		return err
	}
	it.Status = status
	if status == model.ItemOK {
		it.Note = ""
	}
	return nil
}

// SetItemNote 填写异常说明
func (s *Session) SetItemNote(index int, note string) error {
	it, err := s.itemInCurrentCategory(index)
	if err != nil {
		return err
	}
	if it.Status != model.ItemWithAlteration {
		return ErrNoteRequiresAlteration
	}
	it.Note = note
	return nil
}

// SetItemValue 填写文本/数值/评分类检查项的值
func (s *Session) SetItemValue(index int, value string) error {
	it, err := s.itemInCurrentCategory(index)
	if err != nil {
		return err
	}
	it.Value = strings.TrimSpace(value)
	return nil
}

// AttachPhotos 追加已上传照片的元数据
func (s *Session) AttachPhotos(index int, photos ...model.PhotoAttachment) error {
	it, err := s.itemInCurrentCategory(index)
	if err != nil {
		return err
	}
	it.Photos = append(it.Photos, photos...)
	return nil
}

// RemovePhoto 按文件名移除照片，返回被移除的元数据
func (s *Session) RemovePhoto(index int, filename string) (model.PhotoAttachment, error) {
	it, err := s.itemInCurrentCategory(index)
	if err != nil {
		return model.PhotoAttachment{}, err
	}
	for i, p := range it.Photos {
		if p.Filename == filename {
			it.Photos = append(it.Photos[:i:i], it.Photos[i+1:]...)
			return p, nil
		}
	}
	return model.PhotoAttachment{}, ErrPhotoNotFound
}

// ValidateCategory 校验某一分类的全部检查项，返回第一个错误
func (s *Session) ValidateCategory(category int) error {
	for i := range s.items {
		it := &s.items[i]
		if it.CategoryIndex != category {
			continue
		}
		if err := it.Validate(); err != nil {
			return &ItemError{Index: i, Name: it.Name, Err: err}
		}
	}
	return nil
}

// ── 步骤切换 ──

// Advance 前进一步：离开第一步校验上下文，离开分类校验该分类
func (s *Session) Advance() error {
	switch s.step {
	case StepContext:
		if err := s.contextComplete(); err != nil {
			return err
		}
		s.step = StepInspection
		s.category = 0
	case StepInspection:
		if err := s.ValidateCategory(s.category); err != nil {
			return err
		}
		if s.category == len(s.categories)-1 {
			s.step = StepFinalize
		} else {
			s.category++
		}
	case StepFinalized:
		return ErrSessionFinalized
	default:
		return ErrWrongStep
	}
	return nil
}

// Back 后退一步：第一个分类回到第一步，第三步回到最后一个分类
func (s *Session) Back() error {
	switch s.step {
	case StepInspection:
		if s.category == 0 {
			s.step = StepContext
		} else {
			s.category--
		}
	case StepFinalize:
		s.step = StepInspection
		s.category = len(s.categories) - 1
	case StepFinalized:
		return ErrSessionFinalized
	default:
		return ErrWrongStep
	}
	return nil
}

// ── 第三步：凭据与提交 ──

// SetCredentials 录入复核身份与密码
func (s *Session) SetCredentials(identity, password string) error {
	if err := s.requireStep(StepFinalize); err != nil {
		return err
	}
	identity = strings.TrimSpace(identity)
	if identity == "" || password == "" {
		return ErrCredentialsRequired
	}
	s.identity = identity
	s.password = password
	return nil
}

// ReadyToSubmit 提交前的最终检查：处于第三步、凭据齐全、全部检查项有效
func (s *Session) ReadyToSubmit() error {
	if err := s.requireStep(StepFinalize); err != nil {
		return err
	}
	if s.identity == "" || s.password == "" {
		return ErrCredentialsRequired
	}
	if err := s.contextComplete(); err != nil {
		return err
	}
	for c := range s.categories {
		if err := s.ValidateCategory(c); err != nil {
			return err
		}
	}
	return nil
}

// AuthFailed 凭据被拒：仅清空密码，其余状态保留以便重试
func (s *Session) AuthFailed() {
	s.password = ""
}

// MarkPersisted 记录已创建的检查表 ID，之后的重试改为更新
func (s *Session) MarkPersisted(checklistID string) {
	s.checklistID = checklistID
}

// MarkFinalized 检查表已定稿，会话进入终态并丢弃密码
func (s *Session) MarkFinalized() {
	s.step = StepFinalized
	s.password = ""
}

func (s *Session) requireStep(want Step) error {
	if s.step == StepFinalized {
		return ErrSessionFinalized
	}
	if s.step != want {
		return ErrWrongStep
	}
	return nil
}
