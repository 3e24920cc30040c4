package main

import (
	"Jarvis_chat/backend/go/internal/chat_service/api"
	"Jarvis_chat/backend/go/internal/chat_service/service"
	"Jarvis_chat/backend/go/internal/chat_service/store"
	"Jarvis_chat/backend/go/internal/config"
	"Jarvis_chat/backend/go/internal/database/kafka"
	"Jarvis_chat/backend/go/internal/database/minio"
	"Jarvis_chat/backend/go/internal/database/mysql"
	"Jarvis_chat/backend/go/internal/database/redis"
	"Jarvis_chat/backend/go/internal/discovery/etcd"
	"Jarvis_chat/backend/go/internal/document"
	"Jarvis_chat/backend/go/internal/llm"
	"Jarvis_chat/backend/go/internal/memory"
	"Jarvis_chat/backend/go/internal/memory/dispatcher"
	"Jarvis_chat/backend/go/internal/websearch"
	apphttp "Jarvis_chat/backend/go/pkg/http"
	"Jarvis_chat/backend/go/pkg/logger"
	"Jarvis_chat/backend/go/pkg/ratelimiter"
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.InitFromString(cfg.Logger.Level)
	appLogger := logger.New("chat_service", "", "")
	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer mysql.Close()

	chatStore := store.NewStore(db)
	if err := chatStore.AutoMigrate(); err != nil {
		appLogger.Fatal(err.Error())
	}
	appLogger.Info("Database migration completed")

	healthChecks := map[string]api.HealthCheck{"mysql": mysql.HealthCheck}

	// LLM client, protected by the circuit breaker when enabled
	completer, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := apphttp.NewCircuitBreaker(cfg.Middleware.CircuitBreaker)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		completer = llm.WithBreaker(completer, breaker)
	}

	// Memory system
	mem, err := memory.Build(ctx, cfg, db, completer, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer mem.Close()
	for name, check := range mem.HealthChecks {
		healthChecks[name] = check
	}

	// Background extraction dispatcher
	jobTimeout := config.Duration(cfg.Memory.Dispatcher.JobTimeout, 30*time.Second)
	var jobs dispatcher.Dispatcher
	switch cfg.Memory.Dispatcher.Mode {
	case "kafka":
		kafkaClient, err := kafka.GetClient(&cfg.Databases.Kafka)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		defer kafkaClient.Close()
		healthChecks["kafka"] = kafkaClient.HealthCheck
		jobs = dispatcher.NewKafkaDispatcher(kafka.NewJSONPublisher(kafkaClient, cfg.Memory.Dispatcher.Topic), jobTimeout, appLogger)
	default:
		jobs = dispatcher.NewPool(mem.Service.ExtractMemoriesFromMessage, cfg.Memory.Dispatcher.Workers, cfg.Memory.Dispatcher.QueueSize, jobTimeout, appLogger)
	}

	// Web search goes through the circuit-breaking HTTP client
	httpClient, err := apphttp.NewClient(cfg.Middleware.CircuitBreaker, config.Duration(cfg.Search.Timeout, 10*time.Second))
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	searcher := websearch.NewClient(httpClient, cfg.Search)

	// Per-user rate limiting
	var limiter ratelimiter.KeyedLimiter
	if rl := cfg.Middleware.RateLimiter; rl.Enabled {
		switch rl.Algorithm {
		case "redisWindow":
			redisClient, err := redis.GetClient(ctx, &cfg.Databases.Redis)
			if err != nil {
				appLogger.Fatal(err.Error())
			}
			defer redis.Close()
			healthChecks["redis"] = redis.HealthCheck
			limiter = ratelimiter.NewRedisWindow(redisClient, rl.RedisWindow.Limit, config.Duration(rl.RedisWindow.Window, time.Minute), rl.RedisWindow.Prefix)
		default:
			limiter = ratelimiter.NewKeyedTokenBucket(rl.TokenBucket.Rate, rl.TokenBucket.Capacity, 0)
		}
	}

	// Documents
	if cfg.Documents.OfficeLicenseKey != "" {
		if err := document.SetOfficeLicense(cfg.Documents.OfficeLicenseKey); err != nil {
			appLogger.WithErr(err).Warn("failed to apply office license, docx parsing may be limited")
		}
	}
	parser := document.NewParser()
	if err := parser.RejectNames(cfg.Documents.RejectPatterns...); err != nil {
		appLogger.Fatal(err.Error())
	}
	var uploader api.Uploader
	if cfg.Documents.StoreUploads && cfg.Databases.MinIO.Endpoint != "" {
		minioClient, err := minio.GetClient(ctx, &cfg.Databases.MinIO)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		objects, err := store.NewObjectStore(ctx, minioClient, cfg.Databases.MinIO.Bucket)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		healthChecks["minio"] = minio.HealthCheck
		uploader = objects
	}

	// Initialize dependencies (Store -> Service -> Handler)
	chatService := service.NewChatService(completer, searcher, mem.Service, jobs, chatStore, service.ChatOptions{
		Model:         cfg.LLM.Model,
		MaxTokens:     cfg.LLM.MaxTokens,
		Temperature:   cfg.LLM.Temperature,
		SearchResults: cfg.Search.MaxResults,
	}, appLogger)

	handler := api.NewHandler(api.Deps{
		Auth:           service.NewAuthService(chatStore, cfg.Auth),
		Chat:           chatService,
		Memory:         mem.Service,
		Store:          chatStore,
		Searcher:       searcher,
		Parser:         parser,
		Uploader:       uploader,
		HealthChecks:   healthChecks,
		MaxUploadBytes: cfg.Documents.MaxUploadBytes,
		Development:    cfg.App.IsDevelopment(),
		Logger:         appLogger,
	})
	router := api.SetupRouter(handler, cfg.Auth.JwtSecret, limiter)

	srv, err := apphttp.NewServer(cfg)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	srv.Handle("/", router)

	// 服务登记
	if etcdCfg := cfg.Databases.Etcd; len(etcdCfg.Endpoints) > 0 {
		sd, err := etcd.NewServiceDiscovery(etcdCfg.Endpoints, appLogger)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to create service discovery client: %v", err))
		}
		defer sd.Close()
		reg, err := sd.Register(ctx, "chat_service", etcdCfg.AdvertiseAddr, etcdCfg.LeaseTTL)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to register service: %v", err))
		}
		defer reg.Stop(context.Background())
		healthChecks["etcd"] = sd.HealthCheck
	}

	appLogger.Info("Starting chat service on " + cfg.Server.Address)
	if err := srv.Run(ctx); err != nil {
		appLogger.WithErr(err).Error("server stopped with error")
	}

	// 等待后台提取任务收尾
	drainCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout, 10*time.Second))
	defer cancel()
	if err := jobs.Close(drainCtx); err != nil {
		appLogger.WithErr(err).Warn("extraction jobs did not drain before shutdown")
	}
	appLogger.Info("Chat service stopped")
}
