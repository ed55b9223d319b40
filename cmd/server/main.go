package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/chart_editor_server/config"
	"github.com/qs3c/chart_editor_server/internal/api"
	"github.com/qs3c/chart_editor_server/internal/api/handler"
	"github.com/qs3c/chart_editor_server/internal/database"
	"github.com/qs3c/chart_editor_server/internal/pkg/draft"
	"github.com/qs3c/chart_editor_server/internal/pkg/logger"
	"github.com/qs3c/chart_editor_server/internal/pkg/oss"
	"github.com/qs3c/chart_editor_server/internal/pkg/pubsub"
	"github.com/qs3c/chart_editor_server/internal/pkg/queue"
	"github.com/qs3c/chart_editor_server/internal/pkg/ws"
	"github.com/qs3c/chart_editor_server/internal/repository"
	"github.com/qs3c/chart_editor_server/internal/service"
)

const shutdownTimeout = 10 * time.Second

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

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	// 初始化数据库
	db, err := database.New(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	zl.Info("database connected", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()
	zl.Info("redis connected")

	// 初始化 OSS（可选）
	var storage service.PreviewStorage
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			zl.Warn("failed to init OSS client, preview upload disabled", zap.Error(err))
		} else {
			storage = ossClient
			zl.Info("OSS client initialized", zap.String("bucket", cfg.OSS.BucketName))
		}
	}

	// 队列、事件、草稿
	activityQueue := queue.NewQueue(rdb, cfg.Queue.ActivityQueue)
	publisher := pubsub.NewPublisher(rdb, cfg.Events.Channel)
	drafts := draft.NewStore(rdb, cfg.Draft.TTL())

	// 初始化 WebSocket Hub
	hub := ws.NewHub(zl.Named("ws"))

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	chartRepo := repository.NewChartRepository(db)
	galleryRepo := repository.NewGalleryRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)

	// 初始化 Service
	quotaService := service.NewQuotaService(userRepo, cfg, zl)
	authService := service.NewAuthService(userRepo, drafts, cfg)
	userService := service.NewUserService(userRepo, quotaService)
	chartService := service.NewChartService(
		chartRepo,
		galleryRepo,
		quotaService,
		drafts,
		storage,
		activityQueue,
		publisher,
		cfg,
		zl,
	)
	galleryService := service.NewGalleryService(galleryRepo, favoriteRepo, cfg, zl)

	// 初始化 Router
	router := api.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewUserHandler(userService),
		handler.NewQuotaHandler(quotaService),
		handler.NewChartHandler(chartService, zl),
		handler.NewGalleryHandler(galleryService),
		handler.NewWebSocketHandler(hub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins, zl),
		quotaService,
		cfg,
		zl,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 图表事件转发到所有者的 WebSocket 连接
	subscriber := pubsub.NewSubscriber(rdb, cfg.Events.Channel)
	go func() {
		err := subscriber.Subscribe(ctx, func(event *pubsub.ChartEvent) {
			if err := hub.SendToUser(event.UserID, &ws.Message{Type: event.Type, Data: event}); err != nil {
				zl.Warn("failed to forward chart event", zap.Int64("user_id", event.UserID), zap.Error(err))
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("event subscriber stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router.Setup(),
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	hub.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
