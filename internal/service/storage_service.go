package service

import (
	"context"
	"course_studio_backend/internal/config"
	"course_studio_backend/internal/model"
	"course_studio_backend/internal/util"
	"fmt"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// StorageProvider 对象存储：浏览器通过预签名 URL 直接上传，服务端只负责签名和删除
type StorageProvider interface {
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	// 显式指定 Region，签名时不会去请求 bucket location
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	u, err := p.Client.PresignedPutObject(ctx, p.Config.MinioBucket, key, expiry)
	if err != nil {
		return "", errors.Wrap(err, "minio presign")
	}
	return u.String(), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, key string) error {
	return errors.Wrap(p.Client.RemoveObject(ctx, p.Config.MinioBucket, key, minio.RemoveObjectOptions{}), "minio delete")
}

// OSSStorageProvider 阿里云OSS存储实现
type OSSStorageProvider struct {
	Config *config.StorageConfig
	Client *oss.Client
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Config: cfg, Client: client}, nil
}

func (p *OSSStorageProvider) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return "", errors.Wrap(err, "oss bucket")
	}
	signed, err := bucket.SignURL(key, oss.HTTPPut, int64(expiry.Seconds()), oss.ContentType(contentType))
	if err != nil {
		return "", errors.Wrap(err, "oss presign")
	}
	return signed, nil
}

func (p *OSSStorageProvider) Delete(ctx context.Context, key string) error {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return errors.Wrap(err, "oss bucket")
	}
	return errors.Wrap(bucket.DeleteObject(key), "oss delete")
}

type PresignUploadRequest struct {
	FileName    string `json:"fileName" validate:"required,min=1,max=200"`
	ContentType string `json:"contentType" validate:"required"`
	Size        int64  `json:"size" validate:"required,min=1"`
	IsImage     bool   `json:"isImage"`
}

type PresignUploadResponse struct {
	PresignedURL string `json:"presignedUrl"`
	Key          string `json:"key"`
}

type DeleteUploadRequest struct {
	Key string `json:"key" validate:"required"`
}

// StorageService 存储服务
type StorageService struct {
	gate
	Provider StorageProvider
	Expiry   time.Duration
}

// NewStorageService 未配置或创建失败时 Provider 为 nil，上传接口返回 "Failed to ..." 结果
func NewStorageService(cfg *config.Config, reporter Reporter) (*StorageService, error) {
	var (
		provider StorageProvider
		err      error
	)
	switch cfg.Storage.Type {
	case util.StorageMinio:
		provider, err = NewMinioStorageProvider(&cfg.Storage)
	case util.StorageOSS:
		provider, err = NewOSSStorageProvider(&cfg.Storage)
	default:
		err = fmt.Errorf("%w: %q", util.ErrStorageNotConfig, cfg.Storage.Type)
	}
	s := &StorageService{
		gate:   newGate(reporter, nil),
		Expiry: cfg.Storage.PresignExpiry(),
	}
	if err != nil {
		return s, err
	}
	s.Provider = provider
	return s, nil
}

func (s *StorageService) PresignUpload(ctx context.Context, actor *model.Actor, req PresignUploadRequest) (ActionResult, error) {
	const op = "PresignUpload"
	if err := s.requireAdmin(actor); err != nil {
		return ActionResult{}, err
	}
	ctx, span := s.startSpan(ctx, op, attribute.Bool("upload.image", req.IsImage))
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return s.record(op, validationResult(err)), nil
	}
	fileName := util.SanitizeFileName(req.FileName)
	if fileName == "" {
		return s.record(op, invalidResult("Invalid data", FieldError{Field: "fileName", Error: "is invalid"})), nil
	}
	if req.IsImage && !util.IsImage(req.ContentType) {
		return s.record(op, invalidResult("Invalid data", FieldError{Field: "contentType", Error: util.ErrInvalidFileType.Error()})), nil
	}
	if s.Provider == nil {
		return s.fail(ctx, op, actor, util.ErrStorageNotConfig, "Failed to generate presigned url", nil), nil
	}

	key := fmt.Sprintf("%s-%s", uuid.NewString(), fileName)
	signed, err := s.Provider.PresignPut(ctx, key, req.ContentType, s.Expiry)
	if err != nil {
		return s.fail(ctx, op, actor, err, "Failed to generate presigned url", map[string]interface{}{
			"key": key,
		}), nil
	}
	return s.record(op, successResult("Presigned url generated", PresignUploadResponse{
		PresignedURL: signed,
		Key:          key,
	})), nil
}

func (s *StorageService) DeleteUpload(ctx context.Context, actor *model.Actor, req DeleteUploadRequest) (ActionResult, error) {
	const op = "DeleteUpload"
	if err := s.requireAdmin(actor); err != nil {
		return ActionResult{}, err
	}
	ctx, span := s.startSpan(ctx, op, attribute.String("upload.key", req.Key))
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return s.record(op, validationResult(err)), nil
	}
	if s.Provider == nil {
		return s.fail(ctx, op, actor, util.ErrStorageNotConfig, "Failed to delete file", nil), nil
	}
	if err := s.Provider.Delete(ctx, req.Key); err != nil {
		return s.fail(ctx, op, actor, err, "Failed to delete file", map[string]interface{}{
			"key": req.Key,
		}), nil
	}
	return s.record(op, successResult("File deleted successfully", nil)), nil
}
