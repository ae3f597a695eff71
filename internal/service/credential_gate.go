package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/model"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/repository"
)

// ErrAuthenticationFailed 凭据复核失败（用户不存在、非当前登录用户、密码错误统一返回）
var ErrAuthenticationFailed = errors.New("身份验证失败，请检查用户名与密码")

// CredentialGate 检查表定稿前的凭据复核
//
// 每次调用独立校验，不保存任何状态；失败次数限制由路由层限流中间件负责。
type CredentialGate interface {
	Validate(ctx context.Context, callerID, identity, password string) (*model.User, error)
}

type credentialGate struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCredentialGate 创建凭据复核实例
func NewCredentialGate(repo *repository.Repository, logger *zap.Logger) CredentialGate {
	return &credentialGate{repo: repo, logger: logger}
}

// Validate 仅当 identity 对应当前登录用户且密码匹配时通过
func (g *credentialGate) Validate(ctx context.Context, callerID, identity, password string) (*model.User, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || password == "" {
		return nil, ErrAuthenticationFailed
	}

	user, err := g.repo.User.GetByUsername(ctx, identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			g.logger.Warn("凭据复核失败：用户不存在", zap.String("caller_id", callerID))
			return nil, ErrAuthenticationFailed
		}
		g.logger.Error("凭据复核查询用户失败", zap.Error(err))
		return nil, storeErr(err)
	}

	if !user.IsActive || user.UserID != callerID {
		g.logger.Warn("凭据复核失败：身份与当前登录用户不一致",
			zap.String("caller_id", callerID),
			zap.String("identity_user_id", user.UserID),
		)
		return nil, ErrAuthenticationFailed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		g.logger.Warn("凭据复核失败：密码错误", zap.String("caller_id", callerID))
		return nil, ErrAuthenticationFailed
	}

	return user, nil
}
