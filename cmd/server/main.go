package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 容器镜像不带时区库时仍可解析 America/Sao_Paulo

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edmundobop/plataforma-bravo-web-sub000/config"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/api/handler"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/api/router"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/api/validation"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/repository"
	"github.com/edmundobop/plataforma-bravo-web-sub000/internal/service"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/database"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/jwt"
	applogger "github.com/edmundobop/plataforma-bravo-web-sub000/pkg/logger"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/redis"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/storage"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/tracing"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("FLEET_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Scheduler.Timezone),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 链路追踪（未启用时为 noop）
	shutdownTracing, err := tracing.Init(rootCtx, &cfg.Tracing, logger)
	if err != nil {
		logger.Warn("链路追踪初始化失败，继续运行", zap.Error(err))
	}

	// 4. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 5. 连接 Redis（可选：失败时黑名单、事件推送、分布式锁降级）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，降级运行", zap.Error(err))
		rdb = nil
	}

	// 6. 照片存储
	photos, err := storage.NewLocalStorage(&cfg.Upload)
	if err != nil {
		logger.Fatal("初始化照片存储失败", zap.Error(err))
	}

	if err := validation.Register(); err != nil {
		logger.Fatal("注册校验规则失败", zap.Error(err))
	}

	// 7. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, rdb, photos, logger)

	// Redis 未启用时保持 nil 接口，避免 typed nil
	var (
		events handler.EventSubscriber
		deps   router.Deps
		locker service.PassLocker
	)
	if rdb != nil {
		events = rdb
		deps = router.Deps{Blacklist: rdb, Limiter: rdb}
		locker = rdb
	}
	h := handler.NewHandler(svc, events)
	engine := router.Setup(cfg, h, jwtMgr, deps, logger)

	// 8. 后台任务与 HTTP 服务器
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // 照片上传
		IdleTimeout:       120 * time.Second,
		// 事件流为长连接，不设置 WriteTimeout
	}

	g, ctx := errgroup.WithContext(rootCtx)

	if cfg.Scheduler.Enabled {
		scheduler := service.NewGeneratorScheduler(svc.Generator, locker, &cfg.Scheduler, logger)
		g.Go(func() error {
			scheduler.Run(ctx)
			return nil
		})
	} else {
		logger.Info("巡检单自动生成未启用")
	}

	g.Go(func() error {
		svc.Fillout.RunJanitor(ctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 服务器异常: %w", err)
		}
		return nil
	})

	// 9. 收到信号或任一任务失败时优雅关闭
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("开始优雅关闭...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("服务器关闭异常", zap.Error(err))
		}
		if shutdownTracing != nil {
			if err := shutdownTracing(shutdownCtx); err != nil {
				logger.Error("链路追踪关闭异常", zap.Error(err))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("服务异常退出", zap.Error(err))
	}

	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("服务器已关闭")
}
