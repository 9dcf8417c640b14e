package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinioConfig holds the connection settings for an S3-compatible endpoint.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Minio stores objects in a single MinIO/S3 bucket.
type Minio struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewMinio connects to the endpoint and creates the bucket when missing.
func NewMinio(ctx context.Context, cfg MinioConfig, logger zerolog.Logger) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info().Str("bucket", cfg.Bucket).Msg("created object storage bucket")
	}

	return &Minio{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func (m *Minio) Put(ctx context.Context, key, contentType string, content io.Reader, size int64) (*Object, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if size > MaxObjectSize {
		return nil, ErrObjectTooLarge
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}
	m.logger.Debug().Str("key", key).Int64("size", info.Size).Msg("object stored")
	return &Object{
		Key:         key,
		ContentType: contentType,
		Size:        info.Size,
		Hash:        info.ETag,
		CreatedAt:   info.LastModified,
	}, nil
}

func (m *Minio) Get(ctx context.Context, key string) (io.ReadCloser, *Object, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, mapMinioError(err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, nil, mapMinioError(err)
	}
	return obj, toObject(info), nil
}

func (m *Minio) Stat(ctx context.Context, key string) (*Object, error) {
	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapMinioError(err)
	}
	return toObject(info), nil
}

// Delete removes the object. S3 deletes are idempotent, so a missing key is
// detected with a stat first.
func (m *Minio) Delete(ctx context.Context, key string) error {
	if _, err := m.Stat(ctx, key); err != nil {
		return err
	}
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func toObject(info minio.ObjectInfo) *Object {
	return &Object{
		Key:         info.Key,
		ContentType: info.ContentType,
		Size:        info.Size,
		Hash:        info.ETag,
		CreatedAt:   info.LastModified,
	}
}

func mapMinioError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrObjectNotFound
	}
	return err
}
