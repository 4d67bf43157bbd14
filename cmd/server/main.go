// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"portfolio-assistant/internal/config"
	"portfolio-assistant/internal/model"
	"portfolio-assistant/internal/repository"
	"portfolio-assistant/internal/service"
	"portfolio-assistant/pkg/database"
	"portfolio-assistant/pkg/kafka"
	"portfolio-assistant/pkg/llm"
	"portfolio-assistant/pkg/log"
	"portfolio-assistant/pkg/storage"
	"portfolio-assistant/pkg/token"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	profile, err := config.LoadProfile(cfg.Profile.Path)
	if err != nil {
		log.Fatalf("加载个人资料失败: %v", err)
	}

	// 3. 初始化 Redis；MySQL、MinIO、Kafka 都是可选的
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	ttl := time.Duration(cfg.Database.Redis.TTLHours) * time.Hour

	var exchangeRepo repository.ExchangeRepository
	var recorder service.ExchangeRecorder
	if cfg.Database.MySQL.DSN != "" {
		database.InitMySQL(cfg.Database.MySQL.DSN, &model.Exchange{})
		exchangeRepo = repository.NewExchangeRepository(database.DB)
		recorder = service.NewExchangeRecorder(exchangeRepo)
	} else {
		log.Warn("未配置 MySQL，问答归档已禁用")
	}

	var files service.FileStore
	if cfg.MinIO.Endpoint != "" {
		storage.InitMinIO(cfg.MinIO)
		files = storage.NewBucket(storage.MinioClient, cfg.MinIO)
	} else {
		log.Warn("未配置 MinIO，分享链接与导出上传已禁用")
	}

	var producer *kafka.Producer
	var publisher service.EventPublisher
	if cfg.Kafka.Brokers != "" {
		producer = kafka.InitProducer(cfg.Kafka)
		publisher = producer
	}

	// 4. 初始化 Repository
	conversationRepo := repository.NewConversationRepository(database.RDB, ttl)
	analyticsRepo := repository.NewAnalyticsRepository(database.RDB, ttl)
	bookmarkRepo := repository.NewBookmarkRepository(database.RDB, ttl)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	llmClient := llm.NewClient(cfg.LLM)
	resolver, err := service.NewResponseResolver(profile, llmClient, llm.ParamsFromConfig(cfg.LLM.Generation), nil)
	if err != nil {
		log.Fatalf("构建回复解析器失败: %v", err)
	}
	analyticsService := service.NewAnalyticsService(analyticsRepo, publisher)
	chatService := service.NewChatService(profile, resolver, conversationRepo, analyticsService, recorder, files, service.ChatOptions{
		ContextWindow:     cfg.Chat.ContextWindow,
		MaxPersistedTurns: cfg.Chat.MaxPersistedTurns,
	})
	visitorService := service.NewVisitorService(jwtManager)
	bookmarkService := service.NewBookmarkService(bookmarkRepo, profile)
	adminService := service.NewAdminService(exchangeRepo, conversationRepo, analyticsService)

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := newRouter(routerDeps{
		jwtManager:      jwtManager,
		admin:           cfg.Admin,
		visitorService:  visitorService,
		chatService:     chatService,
		bookmarkService: bookmarkService,
		adminService:    adminService,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	// 7. 启动 HTTP 服务器、Kafka 消费者，并等待停机信号
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP 服务监听失败: %w", err)
		}
		return nil
	})

	if producer != nil {
		eg.Go(func() error {
			return kafka.StartConsumer(egCtx, cfg.Kafka, analyticsService)
		})
	}

	eg.Go(func() error {
		<-egCtx.Done()
		log.Info("接收到停机信号，正在关闭服务...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(egCtx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP 服务器关闭失败: %w", err)
		}
		if producer != nil {
			if err := producer.Close(); err != nil {
				log.Errorf("关闭 Kafka 生产者失败: %v", err)
			}
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		log.Errorf("服务异常退出: %v", err)
		log.Sync()
		os.Exit(1)
	}
	log.Info("服务已优雅关闭")
}
