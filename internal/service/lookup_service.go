package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/dto"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/repository"
)

// LookupService 填写流程依赖的只读查询与照片上传
type LookupService interface {
	ListVehicles(ctx context.Context, unitID string, req *dto.VehicleListRequest) ([]dto.VehicleResponse, error)
	ListTemplates(ctx context.Context, unitID string) ([]dto.TemplateSummaryResponse, error)
	GetTemplate(ctx context.Context, unitID, id string) (*dto.TemplateResponse, error)
	UploadPhotos(ctx context.Context, files []UploadFile) ([]dto.PhotoAttachment, error)
	ListAuditLogs(ctx context.Context, unitID string, req *dto.AuditLogListRequest) ([]dto.AuditLogResponse, error)
}

type lookupService struct {
	repo     *repository.Repository
	photos   PhotoStore
	maxFiles int
	logger   *zap.Logger
}

// NewLookupService 创建 LookupService 实例
func NewLookupService(repo *repository.Repository, photos PhotoStore, maxFiles int, logger *zap.Logger) LookupService {
	return &lookupService{repo: repo, photos: photos, maxFiles: maxFiles, logger: logger}
}

func (s *lookupService) ListVehicles(ctx context.Context, unitID string, req *dto.VehicleListRequest) ([]dto.VehicleResponse, error) {
	vehicles, err := s.repo.Vehicle.List(ctx, repository.VehicleFilter{
		UnitID: unitID,
		Search: req.Search,
		Type:   req.Type,
	})
	if err != nil {
		s.logger.Error("查询车辆列表失败", zap.Error(err))
		return nil, storeErr(err)
	}

	result := make([]dto.VehicleResponse, 0, len(vehicles))
	for i := range vehicles {
		result = append(result, *toVehicleResponse(&vehicles[i]))
	}
	return result, nil
}

func (s *lookupService) ListTemplates(ctx context.Context, unitID string) ([]dto.TemplateSummaryResponse, error) {
	templates, err := s.repo.Template.List(ctx, unitID)
	if err != nil {
		s.logger.Error("查询模板列表失败", zap.Error(err))
		return nil, storeErr(err)
	}

	result := make([]dto.TemplateSummaryResponse, 0, len(templates))
	for _, t := range templates {
		result = append(result, dto.TemplateSummaryResponse{ID: t.TemplateID, Name: t.Name})
	}
	return result, nil
}

// GetTemplate 返回按 position 排序的分类与检查项
func (s *lookupService) GetTemplate(ctx context.Context, unitID, id string) (*dto.TemplateResponse, error) {
	t, err := s.repo.Template.GetWithStructure(ctx, unitID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		s.logger.Error("查询模板失败", zap.String("id", id), zap.Error(err))
		return nil, storeErr(err)
	}

	resp := &dto.TemplateResponse{
		ID:         t.TemplateID,
		Name:       t.Name,
		Categories: make([]dto.TemplateCategoryResponse, 0, len(t.Categories)),
	}
	for _, c := range t.Categories {
		cat := dto.TemplateCategoryResponse{
			Name:  c.Name,
			Items: make([]dto.TemplateItemResponse, 0, len(c.Items)),
		}
		for _, it := range c.Items {
			cat.Items = append(cat.Items, dto.TemplateItemResponse{
				Name:     it.Name,
				Type:     string(it.Type),
				Required: it.Required,
				ImageURL: it.ImageURL,
			})
		}
		resp.Categories = append(resp.Categories, cat)
	}
	return resp, nil
}

func (s *lookupService) UploadPhotos(ctx context.Context, files []UploadFile) ([]dto.PhotoAttachment, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if s.maxFiles > 0 && len(files) > s.maxFiles {
		return nil, ErrTooManyPhotos
	}
	return savePhotos(ctx, s.photos, files, s.logger)
}

func (s *lookupService) ListAuditLogs(ctx context.Context, unitID string, req *dto.AuditLogListRequest) ([]dto.AuditLogResponse, error) {
	logs, err := s.repo.AuditLog.ListByEntity(ctx, unitID, req.Entity, req.EntityID)
	if err != nil {
		s.logger.Error("查询审计日志失败", zap.Error(err))
		return nil, storeErr(err)
	}

	result := make([]dto.AuditLogResponse, 0, len(logs))
	for i := range logs {
		result = append(result, toAuditLogResponse(&logs[i]))
	}
	return result, nil
}

// savePhotos 依次保存；任一文件失败时删除本批已保存的文件
func savePhotos(ctx context.Context, store PhotoStore, files []UploadFile, logger *zap.Logger) ([]dto.PhotoAttachment, error) {
	saved := make([]dto.PhotoAttachment, 0, len(files))
	for _, f := range files {
		stored, err := store.Save(ctx, f.Reader, f.Name)
		if err != nil {
			discardPhotos(ctx, store, saved, logger)
			return nil, err
		}
		saved = append(saved, dto.PhotoAttachment{
			URL:          stored.URL,
			OriginalName: stored.OriginalName,
			Size:         stored.Size,
			Filename:     stored.Filename,
		})
	}
	return saved, nil
}

func discardPhotos(ctx context.Context, store PhotoStore, photos []dto.PhotoAttachment, logger *zap.Logger) {
	for _, p := range photos {
		if err := store.Delete(ctx, p.Filename); err != nil {
			logger.Warn("删除照片失败", zap.String("filename", p.Filename), zap.Error(err))
		}
	}
}
