package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitelink-data/internal/config"
	"sitelink-data/internal/events"
	httpapi "sitelink-data/internal/http"
	"sitelink-data/internal/repository"
	"sitelink-data/internal/service"
	"sitelink-data/internal/store"

	"sitelink-data/pkg/database"
	pkglogger "sitelink-data/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := pkglogger.NewLogger(cfg.Log.Level, cfg.Log.Format, "sitelink-data")
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	// Redis 可选：未启用时流程状态缓存和事件发布都降级为空实现
	var redisClient *redis.Client
	var kv store.KV
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv = store.NewRedisKV(redisClient)
		if cfg.Events.Stream != "" {
			publisher = events.NewStreamPublisher(redisClient, cfg.Events.Stream, logger)
		}
		logger.Info("Redis enabled for sitelink-data", zap.String("addr", cfg.Redis.Addr))
	}

	// Optional DB-backed repos; fall back to memory repos when DB is not available.
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			logger.Info("DB enabled for sitelink-data")
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}

	var (
		lotsRepo        repository.LotsRepository
		crewsRepo       repository.CrewsRepository
		assignmentsRepo repository.AssignmentsRepository
		itemsRepo       repository.HouseItemsRepository
		checksRepo      repository.GateChecksRepository
		templatesRepo   repository.TemplatesRepository
	)
	if db != nil {
		lotsRepo = repository.NewPostgresLotsRepository(db)
		crewsRepo = repository.NewPostgresCrewsRepository(db)
		assignmentsRepo = repository.NewPostgresAssignmentsRepository(db)
		itemsRepo = repository.NewPostgresHouseItemsRepository(db)
		checksRepo = repository.NewPostgresGateChecksRepository(db)
		templatesRepo = repository.NewPostgresTemplatesRepository(db)
	} else {
		// DB 未就绪：内存 repo 支持联测，模板用内置清单种子
		lotsRepo = repository.NewMemoryLotsRepository()
		crewsRepo = repository.NewMemoryCrewsRepository()
		assignmentsRepo = repository.NewMemoryAssignmentsRepository()
		itemsRepo = repository.NewMemoryHouseItemsRepository()
		checksRepo = repository.NewMemoryGateChecksRepository()
		templatesRepo = repository.NewMemoryTemplatesRepository()
	}

	routing := service.NewRoutingService(assignmentsRepo, logger)
	advancement := service.NewAdvancementService(itemsRepo, checksRepo, lotsRepo, kv, logger)
	lotService := service.NewLotService(lotsRepo, advancement, publisher, logger)
	houseItemService := service.NewHouseItemService(itemsRepo, lotsRepo, routing, advancement, publisher, logger)
	gateCheckService := service.NewGateCheckService(checksRepo, templatesRepo, lotsRepo, itemsRepo, advancement, publisher, logger)
	crewService := service.NewCrewService(crewsRepo, assignmentsRepo, lotsRepo, logger)

	router := httpapi.NewRouter(logger)
	router.RegisterSiteRoutes(
		httpapi.NewLotHandler(lotService, advancement, houseItemService, gateCheckService, logger),
		httpapi.NewHouseItemHandler(houseItemService, logger),
		httpapi.NewGateCheckHandler(gateCheckService, logger),
		httpapi.NewCrewHandler(crewService, routing, logger),
	)

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http server exited", zap.Error(err))
		}
	}

	// 退出上下文不能挂在已取消的信号上下文下，否则在途请求没有排空窗口
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	_ = database.Close(db)
}
