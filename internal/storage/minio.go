package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/persona/backend/internal/config"
	"github.com/persona/backend/pkg/logger"
)

// ObjectStore holds vault files and audit exports.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, objectName string) error
	PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration, contentType string) (string, error)
}

// MinIOClient talks to the bucket through client and signs browser URLs
// with publicClient, which targets the public endpoint when one is set.
type MinIOClient struct {
	client       *minio.Client
	publicClient *minio.Client
	bucket       string
}

func NewMinIOClient(cfg config.MinIOConfig) (*MinIOClient, error) {
	creds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	client, err := minio.New(cfg.Endpoint, &minio.Options{Creds: creds, Secure: cfg.UseSSL})
	if err != nil {
		return nil, err
	}

	m := &MinIOClient{client: client, publicClient: client, bucket: cfg.Bucket}
	if cfg.PublicEndpoint != "" && cfg.PublicEndpoint != cfg.Endpoint {
		public, err := minio.New(cfg.PublicEndpoint, &minio.Options{
			Creds:  creds,
			Secure: cfg.UseSSL,
			Region: "us-east-1",
		})
		if err != nil {
			return nil, fmt.Errorf("public endpoint: %w", err)
		}
		m.publicClient = public
	}
	return m, nil
}

func (m *MinIOClient) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	details := map[string]interface{}{
		"object_name":  objectName,
		"size":         size,
		"content_type": contentType,
		"bucket":       m.bucket,
	}
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		logger.Error("minio_upload_failed", err, details)
		return err
	}
	logger.Info("minio_upload_success", details)
	return nil
}

func (m *MinIOClient) Delete(ctx context.Context, objectName string) error {
	details := map[string]interface{}{"object_name": objectName, "bucket": m.bucket}
	if err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		logger.Error("minio_delete_failed", err, details)
		return err
	}
	logger.Info("minio_delete_success", details)
	return nil
}

// PresignedGetURL signs a short-lived GET URL. A non-empty contentType is
// forced on the response so media elements play uploads inline.
func (m *MinIOClient) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration, contentType string) (string, error) {
	query := make(url.Values)
	if contentType != "" {
		query.Set("response-content-type", contentType)
	}
	signed, err := m.publicClient.PresignedGetObject(ctx, m.bucket, objectName, expiry, query)
	if err != nil {
		return "", err
	}
	return signed.String(), nil
}

func (m *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed creating bucket %s: %w", m.bucket, err)
	}
	return nil
}
