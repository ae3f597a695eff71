package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/config"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/fillout"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/repository"
	pkgerrors "github.com/edmundobop/plataforma-bravo-web-sub000/pkg/errors"
)

// ── 填写会话模块业务错误 ──

var (
	ErrSessionNotFound  = errors.New("填写会话不存在或已过期")
	ErrSubmitInProgress = errors.New("检查表正在提交，请勿重复操作")
	ErrTooManyPhotos    = errors.New("单次上传照片数量超过限制")
	ErrNoFiles          = errors.New("未选择任何文件")
)

// UploadFile 待保存的上传文件
type UploadFile struct {
	Name   string
	Reader io.Reader
}

// FilloutService 检查表填写会话（向导）业务接口
//
// 会话仅保存在内存中，归属打开它的用户；关闭会话不会修改巡检单。
type FilloutService interface {
	Open(ctx context.Context, unitID, callerID string, req *dto.OpenSessionRequest) (*dto.SessionResponse, error)
	Get(ctx context.Context, callerID, id string) (*dto.SessionResponse, error)
	SetContext(ctx context.Context, callerID, id string, req *dto.SessionContextRequest) (*dto.SessionResponse, error)
	UpdateItem(ctx context.Context, callerID, id string, index int, req *dto.ItemUpdateRequest) (*dto.SessionResponse, error)
	AttachPhotos(ctx context.Context, callerID, id string, index int, files []UploadFile) (*dto.SessionResponse, error)
	RemovePhoto(ctx context.Context, callerID, id string, index int, filename string) (*dto.SessionResponse, error)
	Next(ctx context.Context, callerID, id string) (*dto.SessionResponse, error)
	Back(ctx context.Context, callerID, id string) (*dto.SessionResponse, error)
	// Submit 复核凭据 → 保存检查表 → 定稿 → 完成巡检单
	Submit(ctx context.Context, callerID, id string, req *dto.SubmitRequest) (*dto.SessionResponse, error)
	Close(ctx context.Context, callerID, id string) error
	// RunJanitor 定期清理空闲超时的会话，直到 ctx 取消
	RunJanitor(ctx context.Context)
}

// hostedSession 会话及其锁：mu 保护状态，submit 保证同一时刻只有一次提交
type hostedSession struct {
	mu       sync.Mutex
	submit   sync.Mutex
	sess     *fillout.Session
	lastUsed time.Time
}

type filloutService struct {
	repo          *repository.Repository
	solicitations SolicitationService
	checklists    ChecklistService
	gate          CredentialGate
	photos        PhotoStore
	ttl           time.Duration
	maxFiles      int
	now           func() time.Time
	logger        *zap.Logger

	mu       sync.Mutex
	sessions map[string]*hostedSession
}

// NewFilloutService 创建 FilloutService 实例
func NewFilloutService(
	cfg *config.FilloutConfig,
	maxFiles int,
	repo *repository.Repository,
	solicitations SolicitationService,
	checklists ChecklistService,
	gate CredentialGate,
	photos PhotoStore,
	logger *zap.Logger,
) FilloutService {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &filloutService{
		repo:          repo,
		solicitations: solicitations,
		checklists:    checklists,
		gate:          gate,
		photos:        photos,
		ttl:           ttl,
		maxFiles:      maxFiles,
		now:           time.Now,
		logger:        logger,
		sessions:      make(map[string]*hostedSession),
	}
}

// ────────────────────── Open ──────────────────────

func (s *filloutService) Open(ctx context.Context, unitID, callerID string, req *dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	id := uuid.NewString()

	var (
		sess *fillout.Session
		err  error
	)
	switch {
	case req.ChecklistID != nil && *req.ChecklistID != "":
		sess, err = s.resume(ctx, id, unitID, callerID, *req.ChecklistID)
	case req.SolicitationID != nil && *req.SolicitationID != "":
		sess, err = s.fromSolicitation(ctx, id, unitID, callerID, *req.SolicitationID)
	default:
		sess = fillout.New(id, callerID, unitID)
	}
	if err != nil {
		return nil, err
	}

	h := &hostedSession{sess: sess, lastUsed: s.now()}
	s.mu.Lock()
	s.sessions[id] = h
	s.mu.Unlock()

	s.logger.Info("打开填写会话",
		zap.String("session_id", id),
		zap.String("user_id", callerID),
		zap.String("solicitation_id", sess.SolicitationID()),
		zap.String("checklist_id", sess.ChecklistID()),
	)
	return s.toResponse(h), nil
}

func (s *filloutService) fromSolicitation(ctx context.Context, id, unitID, callerID, solicitationID string) (*fillout.Session, error) {
	sol, err := s.solicitations.Start(ctx, unitID, solicitationID, callerID)
	if err != nil {
		return nil, err
	}

	prefill := fillout.Prefill{
		SolicitationID: sol.ID,
		VehicleID:      sol.VehicleID,
		ChecklistType:  model.ChecklistType(sol.ChecklistType),
		Shift:          model.Shift(sol.Shift),
	}
	if sol.TemplateID != nil {
		prefill.TemplateID = *sol.TemplateID
	}
	sess := fillout.FromSolicitation(id, callerID, unitID, prefill)

	if sess.NeedsTemplate() {
		if err := s.loadTemplate(ctx, sess); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

func (s *filloutService) resume(ctx context.Context, id, unitID, callerID, checklistID string) (*fillout.Session, error) {
	c, err := s.repo.Checklist.GetByID(ctx, checklistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChecklistNotFound
		}
		s.logger.Error("查询检查表失败", zap.String("id", checklistID), zap.Error(err))
		return nil, storeErr(err)
	}
	if c.UnitID != unitID {
		return nil, ErrChecklistNotFound
	}
	if c.Status != model.ChecklistInProgress {
		return nil, ErrChecklistNotEditable
	}
	if c.CreatedBy == nil || *c.CreatedBy != callerID {
		return nil, ErrPermissionDenied
	}

	odometer, fuel := c.OdometerStart, c.FuelPercent
	r := fillout.Resumed{
		ChecklistID: c.ChecklistID,
		Context: fillout.Context{
			VehicleID:     c.VehicleID,
			Odometer:      &odometer,
			FuelPercent:   &fuel,
			Shift:         c.Shift,
			ChecklistType: c.ChecklistType,
			TemplateID:    c.TemplateID,
		},
		Observations: c.Observations,
	}
	if c.SolicitationID != nil {
		r.SolicitationID = *c.SolicitationID
	}
	for _, it := range c.Items {
		kind, err := fillout.KindOf(it.ItemType)
		if err != nil {
			return nil, err
		}
		r.Items = append(r.Items, fillout.Item{
			Name:     it.ItemName,
			Category: it.CategoryName,
			Kind:     kind,
			Required: it.Required,
			Status:   it.Status,
			Note:     it.Note,
			Value:    it.Value,
			Photos:   it.Photos,
		})
	}
	return fillout.Resume(id, callerID, unitID, r)
}

// ────────────────────── Get ──────────────────────

func (s *filloutService) Get(_ context.Context, callerID, id string) (*dto.SessionResponse, error) {
	h, err := s.acquire(callerID, id)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()
	return s.toResponse(h), nil
}

// ────────────────────── SetContext ──────────────────────

func (s *filloutService) SetContext(ctx context.Context, callerID, id string, req *dto.SessionContextRequest) (*dto.SessionResponse, error) {
	h, err := s.acquire(callerID, id)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()
	sess := h.sess

	in := sess.Context()
	if req.VehicleID != nil {
		in.VehicleID = *req.VehicleID
	}
	if req.KmInicial != nil {
		in.Odometer = nil
		if *req.KmInicial != "" {
			n, err := fillout.ParseOdometer(string(*req.KmInicial))
			if err != nil {
				return nil, err
			}
			in.Odometer = &n
		}
	}
	if req.Combustivel != nil {
		in.FuelPercent = nil
		if *req.Combustivel != "" {
			n, err := fillout.ParseFuelPercent(string(*req.Combustivel))
			if err != nil {
				return nil, err
			}
			in.FuelPercent = &n
		}
	}
	if req.Shift != nil {
		in.Shift = model.Shift(*req.Shift)
	}
	if req.ChecklistType != nil {
		in.ChecklistType = model.ChecklistType(*req.ChecklistType)
	}
	if req.TemplateID != nil {
		in.TemplateID = *req.TemplateID
	}

	if vehicleLocked, _ := sess.Locked(); vehicleLocked && in.VehicleID != sess.Context().VehicleID {
		return nil, fillout.ErrFieldLocked
	}
	if in.VehicleID != "" && in.VehicleID != sess.Context().VehicleID {
		if _, err := s.repo.Vehicle.GetByID(ctx, sess.UnitID, in.VehicleID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrVehicleNotFound
			}
			s.logger.Error("查询车辆失败", zap.String("vehicle_id", in.VehicleID), zap.Error(err))
			return nil, storeErr(err)
		}
	}

	if err := sess.SetContext(in); err != nil {
		return nil, err
	}
	if req.Observations != nil {
		if err := sess.SetObservations(*req.Observations); err != nil {
			return nil, err
		}
	}
	if sess.NeedsTemplate() {
		if err := s.loadTemplate(ctx, sess); err != nil {
			return nil, err
		}
	}
	return s.toResponse(h), nil
}

// loadTemplate 按单位读取模板结构并应用到会话
func (s *filloutService) loadTemplate(ctx context.Context, sess *fillout.Session) error {
	templateID := sess.Context().TemplateID
	t, err := s.repo.Template.GetWithStructure(ctx, sess.UnitID, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTemplateNotFound
		}
		s.logger.Error("查询模板失败", zap.String("template_id", templateID), zap.Error(err))
		return storeErr(err)
	}

	ft := fillout.Template{ID: t.TemplateID}
	for _, c := range t.Categories {
		fc := fillout.TemplateCategory{Name: c.Name}
		for _, it := range c.Items {
			fc.Items = append(fc.Items, fillout.TemplateItem{
				Name:     it.Name,
				Type:     it.Type,
				Required: it.Required,
				ImageURL: it.ImageURL,
			})
		}
		ft.Categories = append(ft.Categories, fc)
	}
	return sess.ApplyTemplate(ft)
}

// ────────────────────── 检查项 ──────────────────────

func (s *filloutService) UpdateItem(_ context.Context, callerID, id string, index int, req *dto.ItemUpdateRequest) (*dto.SessionResponse, error) {
	h, err := s.acquire(callerID, id)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()
	sess := h.sess

	if req.Status != nil {
		if err := sess.SetItemStatus(index, model.ItemStatus(*req.Status)); err != nil {
			return nil, err
		}
	}
	if req.Note != nil {
		if err := sess.SetItemNote(index, *req.Note); err != nil {
			return nil, err
		}
	}
	if req.Value != nil {
		if err := sess.SetItemValue(index, *req.Value); err != nil {
			return nil, err
		}
	}
	return s.toResponse(h), nil
}

func (s *filloutService) AttachPhotos(ctx context.Context, callerID, id string, index int, files []UploadFile) (*dto.SessionResponse, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if s.maxFiles > 0 && len(files) > s.maxFiles {
		return nil, ErrTooManyPhotos
	}

	h, err := s.acquire(callerID, id)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()
	if err := h.sess.CheckItem(index); err != nil {
		return nil, err
	}

	photos, err := savePhotos(ctx, s.photos, files, s.logger)
	if err != nil {
		return nil, err
	}
	if err := h.sess.AttachPhotos(index, toPhotoModels(photos)...); err != nil {
		discardPhotos(ctx, s.photos, photos, s.logger)
		return nil, err
	}
	return s.toResponse(h), nil
}

func (s *filloutService) RemovePhoto(ctx context.Context, callerID, id string, index int, filename string) (*dto.SessionResponse, error) {
	h, err := s.acquire(callerID, id)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()

	removed, err := h.sess.RemovePhoto(index, filename)
	if err != nil {
		return nil, err
	}
	// 已持久化的检查表可能仍引用该文件，定稿前不删除磁盘文件
	if h.sess.ChecklistID() == "" {
		discardPhotos(ctx, s.photos, []dto.PhotoAttachment{{Filename: removed.Filename}}, s.logger)
	}
	return s.toResponse(h), nil
}

// ────────────────────── Next / Back ──────────────────────

func (s *filloutService) Next(_ context.Context, callerID, id string) (*dto.SessionResponse, error) {
	h, err := s.acquire(callerID, id)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()

	if h.sess.Step() == fillout.StepContext && h.sess.NeedsTemplate() {
		return nil, fillout.ErrTemplateNotLoaded
	}
	if err := h.sess.Advance(); err != nil {
		return nil, err
	}
	return s.toResponse(h), nil
}

func (s *filloutService) Back(_ context.Context, callerID, id string) (*dto.SessionResponse, error) {
	h, err := s.acquire(callerID, id)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()

	if err := h.sess.Back(); err != nil {
		return nil, err
	}
	return s.toResponse(h), nil
}

// ────────────────────── Submit ──────────────────────

func (s *filloutService) Submit(ctx context.Context, callerID, id string, req *dto.SubmitRequest) (*dto.SessionResponse, error) {
	h, err := s.lookup(callerID, id)
	if err != nil {
		return nil, err
	}
	if !h.submit.TryLock() {
		return nil, ErrSubmitInProgress
	}
	defer h.submit.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastUsed = s.now()
	sess := h.sess

	if req.Observations != nil {
		if err := sess.SetObservations(*req.Observations); err != nil {
			return nil, err
		}
	}
	if err := sess.SetCredentials(req.Identity, req.Password); err != nil {
		return nil, err
	}
	if err := sess.ReadyToSubmit(); err != nil {
		return nil, err
	}

	// 1. 凭据复核：失败时不写入任何数据，仅清空密码
	identity, password := sess.Credentials()
	user, err := s.gate.Validate(ctx, callerID, identity, password)
	if err != nil {
		if errors.Is(err, ErrAuthenticationFailed) {
			sess.AuthFailed()
		}
		return nil, submitErr(err)
	}

	// 2. 保存检查表：首次创建，重试时更新已创建的记录
	checklistReq := toChecklistRequest(sess)
	if sess.ChecklistID() == "" {
		created, err := s.checklists.Create(ctx, sess.UnitID, callerID, checklistReq)
		if err != nil {
			s.logger.Warn("提交检查表失败：创建", zap.String("session_id", id), zap.Error(err))
			return nil, submitErr(err)
		}
		sess.MarkPersisted(created.ID)
	} else {
		_, err := s.checklists.Update(ctx, sess.UnitID, sess.ChecklistID(), callerID, checklistReq)
		if err != nil && !errors.Is(err, ErrChecklistNotEditable) {
			s.logger.Warn("提交检查表失败：更新", zap.String("session_id", id), zap.Error(err))
			return nil, submitErr(err)
		}
	}

	// 3. 定稿并完成巡检单；已定稿说明上次提交在返回前中断
	if _, err := s.checklists.FinalizeAs(ctx, sess.UnitID, sess.ChecklistID(), user.UserID); err != nil &&
		!errors.Is(err, ErrChecklistAlreadyFinalized) {
		s.logger.Warn("提交检查表失败：定稿", zap.String("session_id", id), zap.Error(err))
		return nil, submitErr(err)
	}

	sess.MarkFinalized()
	s.logger.Info("检查表已提交",
		zap.String("session_id", id),
		zap.String("checklist_id", sess.ChecklistID()),
		zap.String("solicitation_id", sess.SolicitationID()),
	)
	return s.toResponse(h), nil
}

// submitErr 存储不可达与其他错误区分，避免被误认为凭据错误
func submitErr(err error) error {
	if errors.Is(err, pkgerrors.ErrStoreUnavailable) || pkgerrors.IsUnavailable(err) {
		return pkgerrors.ErrStoreUnavailable
	}
	return err
}

func toChecklistRequest(sess *fillout.Session) *dto.ChecklistRequest {
	c := sess.Context()
	req := &dto.ChecklistRequest{
		VehicleID:     c.VehicleID,
		TemplateID:    c.TemplateID,
		ChecklistType: string(c.ChecklistType),
		Shift:         string(c.Shift),
		KmInicial:     c.Odometer,
		Combustivel:   c.FuelPercent,
		Observations:  sess.Observations(),
	}
	if id := sess.SolicitationID(); id != "" {
		req.SolicitationID = &id
	}
	for _, it := range sess.Items() {
		req.Items = append(req.Items, dto.ChecklistItemRequest{
			ItemName:     it.Name,
			CategoryName: it.Category,
			ItemType:     string(it.Kind.Type()),
			Required:     it.Required,
			Status:       string(it.Status),
			Note:         it.Note,
			Value:        it.Value,
			Photos:       toPhotoDTOs(it.Photos),
		})
	}
	return req
}

// ────────────────────── Close ──────────────────────

// Close 丢弃内存中的会话；已开始的巡检单保持 pending
func (s *filloutService) Close(_ context.Context, callerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.sessions[id]
	if !ok || h.sess.OwnerID != callerID {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// ────────────────────── 会话管理 ──────────────────────

// lookup 按 ID 查找会话并校验归属；他人的会话视为不存在
func (s *filloutService) lookup(callerID, id string) (*hostedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.sessions[id]
	if !ok || h.sess.OwnerID != callerID {
		return nil, ErrSessionNotFound
	}
	return h, nil
}

// acquire 查找会话并加锁，调用方负责 h.mu.Unlock()
func (s *filloutService) acquire(callerID, id string) (*hostedSession, error) {
	h, err := s.lookup(callerID, id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.lastUsed = s.now()
	return h, nil
}

func (s *filloutService) RunJanitor(ctx context.Context) {
	interval := s.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				s.logger.Info("清理超时填写会话", zap.Int("count", n))
			}
		}
	}
}

// sweep 移除空闲超过 ttl 的会话；正在提交的会话跳过
func (s *filloutService) sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, h := range s.sessions {
		if !h.mu.TryLock() {
			continue
		}
		if h.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
		h.mu.Unlock()
	}
	return removed
}

// toResponse 调用方须持有 h.mu
func (s *filloutService) toResponse(h *hostedSession) *dto.SessionResponse {
	sess := h.sess
	c := sess.Context()
	vehicleLocked, typeLocked := sess.Locked()

	resp := &dto.SessionResponse{
		ID:             sess.ID,
		Step:           sess.Step().String(),
		Category:       sess.Category(),
		Categories:     make([]string, 0, sess.CategoryCount()),
		SolicitationID: sess.SolicitationID(),
		ChecklistID:    sess.ChecklistID(),
		VehicleLocked:  vehicleLocked,
		TypeLocked:     typeLocked,
		Context: dto.SessionContextResponse{
			VehicleID:     c.VehicleID,
			KmInicial:     c.Odometer,
			Combustivel:   c.FuelPercent,
			Shift:         string(c.Shift),
			ChecklistType: string(c.ChecklistType),
			TemplateID:    c.TemplateID,
		},
		Observations: sess.Observations(),
		Items:        []dto.SessionItemResponse{},
		Identity:     sess.Identity(),
		ExpiresAt:    formatTime(h.lastUsed.Add(s.ttl)),
	}
	for i := 0; i < sess.CategoryCount(); i++ {
		resp.Categories = append(resp.Categories, sess.CategoryName(i))
	}
	for i, it := range sess.Items() {
		resp.Items = append(resp.Items, dto.SessionItemResponse{
			Index:         i,
			Name:          it.Name,
			Category:      it.Category,
			CategoryIndex: it.CategoryIndex,
			Type:          string(it.Kind.Type()),
			Required:      it.Required,
			ImageURL:      it.ImageURL,
			Status:        string(it.Status),
			Note:          it.Note,
			Value:         it.Value,
			Photos:        toPhotoDTOs(it.Photos),
		})
	}
	return resp
}
