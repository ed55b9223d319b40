package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/qs3c/chart_editor_server/config"
	"github.com/qs3c/chart_editor_server/internal/database"
	"github.com/qs3c/chart_editor_server/internal/pkg/cron"
	"github.com/qs3c/chart_editor_server/internal/pkg/logger"
	"github.com/qs3c/chart_editor_server/internal/pkg/queue"
	"github.com/qs3c/chart_editor_server/internal/repository"
	"github.com/qs3c/chart_editor_server/internal/worker"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync()

	// 初始化数据库
	db, err := database.New(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		zl.Fatal("failed to connect database", zap.Error(err))
	}

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zl.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	activityRepo := repository.NewActivityRepository(db)
	activityQueue := queue.NewQueue(rdb, cfg.Queue.ActivityQueue)

	// 过期活动清理
	cronService := cron.NewService(activityRepo, cfg.Queue.RetentionDays, zl.Named("cron"))
	cronService.Start()
	defer cronService.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := worker.NewPool(activityQueue, worker.NewProcessor(activityRepo, zl), cfg.Queue.MaxWorkers, zl)

	zl.Info("worker started",
		zap.String("queue", cfg.Queue.ActivityQueue),
		zap.Int("max_workers", cfg.Queue.MaxWorkers))
	pool.Run(ctx)
	zl.Info("worker shutdown complete")
}
