package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edmundobop/plataforma-bravo-web-sub000/config"
)

const generatorLockName = "generator:pass"

// PassLocker 多实例部署时的分布式锁
type PassLocker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// GeneratorScheduler 周期性触发生成任务
type GeneratorScheduler struct {
	gen      *SolicitationGenerator
	locker   PassLocker
	interval time.Duration
	lockTTL  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewGeneratorScheduler 创建调度器；locker 为 nil 时每个实例都在本地执行
func NewGeneratorScheduler(gen *SolicitationGenerator, locker PassLocker, cfg *config.SchedulerConfig, logger *zap.Logger) *GeneratorScheduler {
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = cfg.Interval
	}
	return &GeneratorScheduler{
		gen:      gen,
		locker:   locker,
		interval: cfg.Interval,
		lockTTL:  lockTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// Run 启动后立即执行一次，之后按间隔执行，直到 ctx 取消
func (s *GeneratorScheduler) Run(ctx context.Context) {
	s.logger.Info("巡检单生成调度已启动", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("巡检单生成调度已停止")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick 执行一次；获取不到锁说明其他实例正在执行
func (s *GeneratorScheduler) tick(ctx context.Context) {
	if s.locker != nil {
		token, ok, err := s.locker.AcquireLock(ctx, generatorLockName, s.lockTTL)
		if err != nil {
			s.logger.Warn("获取生成锁失败，本次在本地执行", zap.Error(err))
		} else if !ok {
			s.logger.Debug("其他实例正在执行生成，跳过本次")
			return
		} else {
			defer func() {
				if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), generatorLockName, token); err != nil {
					s.logger.Warn("释放生成锁失败", zap.Error(err))
				}
			}()
		}
	}

	if _, err := s.gen.RunPass(ctx, s.now()); err != nil {
		s.logger.Error("巡检单生成失败", zap.Error(err))
	}
}
