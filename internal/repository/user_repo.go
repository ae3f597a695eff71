package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
)

// UserRepository 用户数据访问；用户由 fleetctl 维护，API 只读
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ListByUnit(ctx context.Context, unitID string) ([]model.User, error)
	// SetActive 启用/停用账号，停用后登录与凭据复核均失败
	SetActive(ctx context.Context, username string, active bool) error
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Unit").
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) ListByUnit(ctx context.Context, unitID string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("role, username").
		Find(&users).Error
	return users, err
}

func (r *userRepo) SetActive(ctx context.Context, username string, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"is_active": active,
			"version":   gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
