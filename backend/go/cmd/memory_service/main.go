package main

import (
	"Jarvis_chat/backend/go/internal/config"
	"Jarvis_chat/backend/go/internal/database/kafka"
	"Jarvis_chat/backend/go/internal/database/mysql"
	"Jarvis_chat/backend/go/internal/discovery/etcd"
	"Jarvis_chat/backend/go/internal/llm"
	"Jarvis_chat/backend/go/internal/memory"
	"Jarvis_chat/backend/go/internal/memory/consumer"
	apphttp "Jarvis_chat/backend/go/pkg/http"
	"Jarvis_chat/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

// memory_service 消费 chat_service 投递到 Kafka 的提取任务。
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
	appLogger := logger.New("memory_service", "", "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer mysql.Close()

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

	mem, err := memory.Build(ctx, cfg, db, completer, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer mem.Close()

	kafkaClient, err := kafka.GetClient(&cfg.Databases.Kafka)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer kafkaClient.Close()

	// Initialize and start Kafka consumer
	jobTimeout := config.Duration(cfg.Memory.Dispatcher.JobTimeout, 30*time.Second)
	reader := kafkaClient.OpenReader(cfg.Memory.Dispatcher.Topic)
	kafkaConsumer := consumer.NewKafkaConsumer(reader, mem.Service.ExtractMemoriesFromMessage, jobTimeout, appLogger)
	kafkaConsumer.Start(ctx)
	appLogger.WithField("topic", cfg.Memory.Dispatcher.Topic).Info("Memory service started")

	// 健康检查
	checks := map[string]func(context.Context) error{
		"mysql": mysql.HealthCheck,
		"kafka": kafkaClient.HealthCheck,
	}
	for name, check := range mem.HealthChecks {
		checks[name] = check
	}
	if etcdCfg := cfg.Databases.Etcd; len(etcdCfg.Endpoints) > 0 {
		sd, err := etcd.NewServiceDiscovery(etcdCfg.Endpoints, appLogger)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to create service discovery client: %v", err))
		}
		defer sd.Close()
		reg, err := sd.Register(ctx, "memory_service", etcdCfg.AdvertiseAddr, etcdCfg.LeaseTTL)
		if err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to register service: %v", err))
		}
		defer reg.Stop(context.Background())
		checks["etcd"] = sd.HealthCheck
	}

	srv, err := apphttp.NewServer(cfg)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	srv.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		result := map[string]string{}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(result)
	})
	if err := srv.Run(ctx); err != nil {
		appLogger.WithErr(err).Error("health server stopped with error")
	}
	stop()

	<-kafkaConsumer.Done()
	appLogger.Info("Memory service stopped")
}
