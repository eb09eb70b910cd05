// Package objectstore keeps solution files in S3-compatible storage and mints temporary download links.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	apperrors "github.com/Proton-105/studyhelper-bot/internal/errors"
	"github.com/Proton-105/studyhelper-bot/pkg/config"
)

// Linker mints a temporary download link for a stored object.
type Linker interface {
	Link(ctx context.Context, key string) (string, error)
}

// Uploader stores an object under key.
type Uploader interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// Store is the minio-backed Linker and Uploader.
type Store struct {
	client  *minio.Client
	bucket  string
	expiry  time.Duration
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

// New connects to the configured bucket.
func New(cfg config.StorageConfig, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessID, cfg.AccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	expiry := cfg.LinkExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		expiry:  expiry,
		breaker: apperrors.NewCircuitBreaker(),
		log:     log,
	}, nil
}

// Expiry is how long minted links stay valid.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Link presigns a GET for key. Transient failures are retried.
func (s *Store) Link(ctx context.Context, key string) (string, error) {
	var link *url.URL

	err := apperrors.WithRetry(ctx, func() error {
		return s.breaker.Call(func() error {
			u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, nil)
			if err != nil {
				return apperrors.NewExternalAPIError("object storage", err)
			}
			link = u
			return nil
		})
	})
	if err != nil {
		s.log.Error("failed to presign object", slog.String("key", key), slog.Any("error", err))
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	return link.String(), nil
}

// Upload streams r into the bucket. It is not retried because r cannot be rewound.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	err := s.breaker.Call(func() error {
		_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
		return err
	})
	if err != nil {
		s.log.Error("failed to upload object", slog.String("key", key), slog.Any("error", err))
		return apperrors.NewExternalAPIError("object storage", err)
	}

	s.log.Info("object uploaded", slog.String("key", key), slog.Int64("size", size))
	return nil
}

// Ping checks that the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

// SolutionKey builds a unique object key for a student's upload to a task.
func SolutionKey(taskID, studentUserID int64, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "solution"
	}
	return fmt.Sprintf("solutions/%d/%d/%s-%s", taskID, studentUserID, uuid.NewString(), name)
}
