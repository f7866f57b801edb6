package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"brewfeed/internal/auth"
	"brewfeed/internal/config"
	"brewfeed/internal/handlers/apiserver"
	appKafka "brewfeed/internal/kafka"
	"brewfeed/internal/media"
	"brewfeed/internal/metrics"
	"brewfeed/internal/middleware"
	appRedis "brewfeed/internal/redis"
	"brewfeed/internal/services"
	"brewfeed/internal/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig(os.Getenv("BREWFEED_CONFIG"))
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("配置加载成功", "app", cfg.AppName, "version", cfg.AppVersion)

	if err := run(cfg, logger); err != nil {
		logger.Error("API 服务器异常退出", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 初始化数据库连接
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("无法初始化数据库: %w", err)
	}
	defer func() {
		if err := storage.Close(db); err != nil {
			logger.Warn("关闭数据库连接失败", "error", err)
		}
	}()
	if cfg.Database.AutoMigrate {
		if err := storage.AutoMigrateTables(db); err != nil {
			return fmt.Errorf("数据库表迁移失败: %w", err)
		}
		logger.Info("数据库表迁移完成")
	}

	// 3. 令牌黑名单：启用 Redis 时跨实例共享，否则仅在进程内有效
	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisClient, err := appRedis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("无法连接到 Redis: %w", err)
		}
		defer redisClient.Close()
		blacklist = appRedis.NewTokenBlacklist(redisClient, appRedis.DefaultKeyPrefix)
		logger.Info("成功连接到 Redis", "addr", cfg.Redis.Addr)
	} else {
		blacklist = auth.NewMemoryBlacklist()
		logger.Warn("Redis 未启用，令牌黑名单仅保存在内存中")
	}

	// 4. 初始化 Kafka Producer
	var producer appKafka.MessageProducer = appKafka.NewNoopProducer()
	if cfg.Kafka.Enabled {
		producer, err = appKafka.NewConfluentKafkaProducer(cfg.Kafka, logger)
		if err != nil {
			return fmt.Errorf("无法创建 Kafka 生产者: %w", err)
		}
		logger.Info("Kafka 生产者初始化成功", "brokers", cfg.Kafka.Brokers)
	}
	defer producer.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// 5. 初始化 Repositories 和 Services
	userRepo := storage.NewGormUserRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)
	postRepo := storage.NewGormPostRepository(db)
	tokenRepo := storage.NewGormTokenRepository(db)

	events := services.NewEventPublisher(producer, cfg.Kafka, m, logger)
	authService := services.NewAuthService(userRepo, tokenRepo, blacklist, cfg.Auth, logger)
	userService := services.NewUserService(userRepo)
	friendshipService := services.NewFriendshipService(userRepo, friendshipRepo, events, logger)
	feedService := services.NewFeedService(userRepo, friendshipRepo, postRepo, events, logger)

	// 6. 初始化存储服务
	var storageService media.StorageService
	switch cfg.Storage.Type {
	case "local":
		storageService, err = storage.NewLocalStorageService(cfg.Storage)
		if err != nil {
			return fmt.Errorf("无法初始化本地存储服务: %w", err)
		}
	default:
		return fmt.Errorf("不支持的存储类型: %s", cfg.Storage.Type)
	}

	// 7. 设置 HTTP 路由
	r := apiserver.NewRouter(apiserver.RouterDeps{
		AuthService:       authService,
		UserService:       userService,
		FriendshipService: friendshipService,
		FeedService:       feedService,
		Storage:           storageService,
		StorageConfig:     cfg.Storage,
		Metrics:           m,
		MetricsPath:       cfg.Metrics.Path,
		Logger:            logger,
	})

	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	handler := handlers.CORS(corsOptions...)(middleware.RequestLogger(logger)(r))

	// 8. 启动 HTTP 服务器并实现优雅关闭
	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  cfg.APIServer.ReadTimeout,
		WriteTimeout: cfg.APIServer.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("API 服务器启动", "addr", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("API 服务器启动失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("收到关闭信号，正在关闭 API 服务器...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.APIServer.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("API 服务器强制关闭: %w", err)
	}
	logger.Info("API 服务器已成功关闭")
	return nil
}
