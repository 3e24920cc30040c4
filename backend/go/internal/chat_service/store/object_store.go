package store

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// ObjectStore 把上传的原始文件保存到 MinIO。
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// NewObjectStore 确保存储桶存在。
func NewObjectStore(ctx context.Context, client *minio.Client, bucket string) (*ObjectStore, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶 '%s' 失败: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建存储桶 '%s' 失败: %w", bucket, err)
		}
	}
	return &ObjectStore{client: client, bucket: bucket}, nil
}

// PutUpload 以 uploads/<userID>/<uuid>/<name> 为对象名保存文件，返回对象名。
func (o *ObjectStore) PutUpload(ctx context.Context, userID uint, name, contentType string, r io.Reader, size int64) (string, error) {
	object := path.Join("uploads", fmt.Sprint(userID), uuid.NewString(), path.Base(name))
	_, err := o.client.PutObject(ctx, o.bucket, object, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("上传对象 '%s' 失败: %w", object, err)
	}
	return object, nil
}

// PresignedURL 返回对象的临时下载地址。
func (o *ObjectStore) PresignedURL(ctx context.Context, object string, ttl time.Duration) (string, error) {
	u, err := o.client.PresignedGetObject(ctx, o.bucket, object, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("生成对象 '%s' 的下载地址失败: %w", object, err)
	}
	return u.String(), nil
}
