package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bitfantasy/vgp/internal/config"
	"github.com/bitfantasy/vgp/internal/metrics"
	"github.com/bitfantasy/vgp/internal/vgp/entity"
	"github.com/bitfantasy/vgp/internal/vgp/repository"
	"github.com/bitfantasy/vgp/internal/vgp/service"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

// app wiring shared by the subcommands
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	redis   *redis.Client
	repos   *repository.Repositories
	metrics *metrics.Metrics
	svc     *service.Services
}

// bootstrap loads the config and opens the database; withRedis also connects
// the shared submission lock when redis is enabled.
func bootstrap(withRedis bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := initDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  zapLogger,
		db:      db,
		repos:   repository.NewRepositories(db),
		metrics: metrics.New(),
	}

	opts := service.Options{
		Logger:   zapLogger,
		Clock:    workflow.SystemClock{},
		Metrics:  a.metrics,
		Workflow: cfg.Workflow,
	}
	if withRedis && cfg.Redis.Enabled {
		a.redis = initRedis(cfg.Redis)
		opts.Locker = service.NewRedisRunLocker(a.redis, cfg.Workflow.SubmitLockTTL, zapLogger)
		zapLogger.Info("Using redis submission lock", zap.String("host", cfg.Redis.Host))
	}
	a.svc = service.NewServices(a.repos, opts)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	a.logger.Sync()
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(entity.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
