package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNoCredentials is returned when object storage is reached without
// configured credentials. Callers treat it like any other upload error,
// but it stays distinguishable for logs and tests.
var ErrNoCredentials = errors.New("object storage credentials not configured")

// ObjectStore is durable blob storage with time-limited retrieval links.
type ObjectStore interface {
	Upload(ctx context.Context, localPath, key string) error
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

type S3Opts struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store is an S3-compatible ObjectStore backed by minio-go.
type S3Store struct {
	client *minio.Client
	bucket string
	hasKey bool
}

func NewS3Store(opts S3Opts) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("empty storage bucket")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	return &S3Store{
		client: client,
		bucket: opts.Bucket,
		hasKey: opts.AccessKey != "" && opts.SecretKey != "",
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, localPath, key string) error {
	if !s.hasKey {
		return ErrNoCredentials
	}
	if _, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{}); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *S3Store) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
