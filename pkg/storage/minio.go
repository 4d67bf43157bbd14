// Package storage 提供了与对象存储服务（MinIO）交互的功能，用于分享文件和导出对话记录。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"portfolio-assistant/internal/config"
	"portfolio-assistant/pkg/log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(cfg config.MinIOConfig) {
	var err error

	// 1. 初始化 MinIO 客户端
	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatal("初始化 MinIO 客户端失败", err)
	}

	log.Info("MinIO 客户端初始化成功")

	// 2. 检查存储桶是否存在，如果不存在则创建
	ctx := context.Background()
	exists, err := MinioClient.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		log.Fatal("检查 MinIO 存储桶失败", err)
	}

	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := MinioClient.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			log.Fatal("创建 MinIO 存储桶失败", err)
		}
		log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	} else {
		log.Infof("存储桶 '%s' 已存在", cfg.BucketName)
	}
}

// Bucket 绑定一个存储桶和预签名有效期，供业务层使用。
type Bucket struct {
	client *minio.Client
	name   string
	expiry time.Duration
}

// NewBucket 基于已初始化的客户端创建 Bucket。
func NewBucket(client *minio.Client, cfg config.MinIOConfig) *Bucket {
	expiry := time.Duration(cfg.PresignExpiryMinutes) * time.Minute
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &Bucket{client: client, name: cfg.BucketName, expiry: expiry}
}

// PresignedURL generates a presigned download URL for a given object.
func (b *Bucket) PresignedURL(ctx context.Context, objectName string) (string, error) {
	presignedURL, err := b.client.PresignedGetObject(ctx, b.name, objectName, b.expiry, nil)
	if err != nil {
		log.Errorf("Error generating presigned URL: %s", err)
		return "", fmt.Errorf("failed to presign %s: %w", objectName, err)
	}
	return presignedURL.String(), nil
}

// PutObject 上传一段内存中的数据。
func (b *Bucket) PutObject(ctx context.Context, objectName string, data []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, b.name, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}
