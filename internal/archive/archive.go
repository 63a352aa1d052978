// Package archive stores catalog export snapshots in S3-compatible object
// storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"itemcatalog/internal/config"
	"itemcatalog/internal/export"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Store struct {
	client *minio.Client
	bucket string
}

// New connects to the configured endpoint and creates the bucket if needed.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg.MinioEndpoint == "" {
		return nil, fmt.Errorf("object storage is not configured")
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
	}

	return &Store{client: client, bucket: cfg.MinioBucket}, nil
}

// ObjectKey names a snapshot by its creation time, e.g.
// exports/2024/05/01/catalog-093000.json.
func ObjectKey(format export.Format, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("exports/%s/catalog-%s%s", at.Format("2006/01/02"), at.Format("150405"), format.Extension())
}

// Upload stores a snapshot and returns its object key.
func (s *Store) Upload(ctx context.Context, format export.Format, at time.Time, document []byte) (string, error) {
	key := ObjectKey(format, at)

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(document), int64(len(document)), minio.PutObjectOptions{
		ContentType: format.ContentType(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return key, nil
}

// Download retrieves a stored snapshot.
func (s *Store) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
