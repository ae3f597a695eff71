package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edmundobop/plataforma-bravo-web-sub000/config"
	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/database"
	applogger "github.com/edmundobop/plataforma-bravo-web-sub000/pkg/logger"
)

// cliEnv 子命令共享的配置、日志与数据库连接，按需初始化
type cliEnv struct {
	configPath *string

	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func (e *cliEnv) load() error {
	if e.cfg != nil {
		return nil
	}
	cfg, err := config.Load(*e.configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	e.cfg, e.logger = cfg, logger
	return nil
}

func (e *cliEnv) openDB() (*gorm.DB, error) {
	if err := e.load(); err != nil {
		return nil, err
	}
	if e.db != nil {
		return e.db, nil
	}
	db, err := database.NewDB(&e.cfg.Database, e.cfg.Log.Level, e.logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	e.db = db
	return db, nil
}

func (e *cliEnv) close() {
	if e.db != nil {
		if sqlDB, err := e.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}
