package minio

import (
	"Jarvis_chat/backend/go/internal/config"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	client  *minio.Client
	bucket  string
	once    sync.Once
	initErr error
)

// GetClient 返回上传存储用的 MinIO 单例客户端，首次调用时检查配置的存储桶是否可访问。
func GetClient(ctx context.Context, cfg *config.MinIOConfig) (*minio.Client, error) {
	once.Do(func() {
		if cfg.Endpoint == "" || cfg.Bucket == "" {
			initErr = fmt.Errorf("minio endpoint 和 bucket 不能为空")
			return
		}
		c, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
		})
		if err != nil {
			initErr = fmt.Errorf("无法创建 MinIO 客户端: %w", err)
			return
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, err := c.BucketExists(pingCtx, cfg.Bucket); err != nil {
			initErr = fmt.Errorf("MinIO 初始化健康检查失败: %w", err)
			return
		}

		log.Printf("✅ 成功连接到 MinIO, bucket=%s", cfg.Bucket)
		client = c
		bucket = cfg.Bucket
	})

	return client, initErr
}

// HealthCheck 确认上传用的存储桶仍然存在。
func HealthCheck(ctx context.Context) error {
	if client == nil {
		return fmt.Errorf("MinIO 客户端未初始化")
	}
	ok, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("MinIO 健康检查失败: %w", err)
	}
	if !ok {
		return fmt.Errorf("MinIO bucket '%s' 不存在", bucket)
	}
	return nil
}
