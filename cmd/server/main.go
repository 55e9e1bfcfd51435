package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/SlpAus/michelin-vote-backend/api"
	"github.com/SlpAus/michelin-vote-backend/internal/platform/config"
	"github.com/SlpAus/michelin-vote-backend/internal/platform/database"
	"github.com/SlpAus/michelin-vote-backend/internal/platform/health"
	"github.com/SlpAus/michelin-vote-backend/internal/platform/logging"
	"github.com/SlpAus/michelin-vote-backend/internal/platform/middleware"
	"github.com/SlpAus/michelin-vote-backend/internal/platform/shutdown"
	"github.com/SlpAus/michelin-vote-backend/internal/platform/startup"
	"github.com/SlpAus/michelin-vote-backend/internal/restaurant"
	"github.com/SlpAus/michelin-vote-backend/pkg/lifecycle"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径 (默认搜索 ./config/config.yaml 和 ./config.yaml)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("加载配置失败", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Logging)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("服务异常退出", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// 1. 初始化数据库和Redis
	db, err := database.OpenDB(cfg.Database, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	redisClient := database.NewRedisClient(cfg.Database.Redis)
	var redisStatus *database.RedisStatus
	if redisClient != nil {
		redisStatus = database.NewRedisStatus(logger)
	} else {
		logger.Info("未配置Redis地址，排行榜缓存已关闭")
	}

	closers := []shutdown.Closer{{Name: "database", Close: sqlDB.Close}}
	if redisClient != nil {
		closers = append([]shutdown.Closer{{Name: "redis", Close: redisClient.Close}}, closers...)
	}

	// 2. 执行应用启动初始化流程，首次运行时导入数据集
	store := restaurant.NewGormStore(db, cfg.Seed.BatchSize, logger)
	source := restaurant.CSVSource{Path: cfg.Seed.Path}
	if err := startup.InitializeApplication(context.Background(), store, source, logger); err != nil {
		for _, closer := range closers {
			closer.Close()
		}
		return err
	}

	cache := restaurant.NewRankingCache(redisClient, redisStatus, cfg.Database.Redis.LeaderboardTTL, logger)
	service := restaurant.NewService(store, cache, logger)
	handler := restaurant.NewHandler(service, logger)

	// 3. 启动后台的Redis健康检查器
	manager := lifecycle.NewManager(logger)
	if redisClient != nil {
		checker := health.NewChecker(health.RedisProber{Client: redisClient}, redisStatus, cache.Rebuild, logger)
		// 阻塞式执行一次启动后健康检查
		logger.Info("正在执行启动后健康检查...")
		checker.PerformCheck(context.Background())

		handle, err := manager.NewServiceHandle("redis-health")
		if err != nil {
			return err
		}
		go checker.Run(handle)
	}

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.Server.Cors.AllowedOrigins))

	api.SetupRoutes(r, handler, health.Handler(sqlDB, redisStatus))

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("服务器已准备就绪，开始监听", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	coordinator := shutdown.NewCoordinator(manager, logger, closers...)
	return coordinator.ListenForSignalsAndShutdown(server, serverErr)
}
