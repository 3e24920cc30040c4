// Package memory 按配置组装记忆系统：键值事实、语义记忆和提取器。
package memory

import (
	"Jarvis_chat/backend/go/internal/config"
	"Jarvis_chat/backend/go/internal/database/milvus"
	"Jarvis_chat/backend/go/internal/embedding"
	"Jarvis_chat/backend/go/internal/llm"
	"Jarvis_chat/backend/go/internal/memory/extractor"
	"Jarvis_chat/backend/go/internal/memory/service"
	"Jarvis_chat/backend/go/internal/memory/store"
	"Jarvis_chat/backend/go/pkg/logger"
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// System 是组装好的记忆系统。
type System struct {
	Service *service.MemoryService
	// HealthChecks 是语义存储等外部依赖的检查，key 为依赖名。
	HealthChecks map[string]func(ctx context.Context) error

	closers []func()
}

// Build 迁移事实表，创建向量化客户端、语义存储和提取器。
func Build(ctx context.Context, cfg *config.AppConfig, db *gorm.DB, completer llm.Completer, log *logger.Logger) (*System, error) {
	sys := &System{HealthChecks: map[string]func(ctx context.Context) error{}}

	facts := store.NewGormFactStore(db)
	if err := facts.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("迁移 user_memories 表失败: %w", err)
	}

	model, err := embedding.NewEmdModel(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("创建 embedding 模型失败: %w", err)
	}
	embedder, err := embedding.NewClient(model, cfg.Embedding)
	if err != nil {
		return nil, err
	}

	var semantic store.SemanticStore
	switch cfg.Memory.SemanticStore {
	case "milvus":
		mc, err := milvus.GetClient(ctx, &cfg.Databases.Milvus)
		if err != nil {
			return nil, err
		}
		if err := mc.EnsureCollection(ctx); err != nil {
			mc.Close()
			return nil, err
		}
		mc.StartAutoFlush(time.Minute)
		semantic = store.NewMilvusStore(mc, cfg.Memory.MaxEntriesPerUser, log)
		sys.HealthChecks["milvus"] = mc.HealthCheck
		sys.closers = append(sys.closers, mc.Close)
	case "chromem":
		cs, err := store.NewChromemStore(cfg.Memory.PersistPath, cfg.Memory.Collection, cfg.Memory.MaxEntriesPerUser, log)
		if err != nil {
			return nil, err
		}
		log.WithField("documents", cs.Count()).Info("chromem semantic store ready")
		semantic = cs
	default:
		return nil, fmt.Errorf("不支持的语义存储: %s", cfg.Memory.SemanticStore)
	}

	sys.Service = service.NewMemoryService(
		facts,
		semantic,
		embedder,
		extractor.NewLlmExtractor(completer, cfg.Extraction),
		service.Options{
			MatchThreshold: cfg.Memory.MatchThreshold,
			SearchLimit:    cfg.Memory.SearchLimit,
			ContextLimit:   cfg.Memory.ContextLimit,
		},
		log,
	)
	return sys, nil
}

// Close 释放外部连接。
func (s *System) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
