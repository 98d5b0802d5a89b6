// Package storage keeps generated documents and templates in an
// S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-cerfa/internal/config"
)

const (
	documentsDir   = "cerfas"
	pdfContentType = "application/pdf"
)

// StoredDocument is where a document was written.
type StoredDocument struct {
	Reference string `json:"reference"`
	URL       string `json:"url"`
}

// StoreWriteError means a document could not be written or its URL could
// not be issued. Retrying the whole generation is safe.
type StoreWriteError struct {
	Object string
	Err    error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("failed to store %s: %v", e.Object, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
	expiry time.Duration
	logger *zap.Logger
}

func NewMinioStore(cfg config.StorageConfig, logger *zap.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		// A fixed region lets presigning work without a location lookup.
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		expiry: cfg.URLExpiry,
		logger: logger,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		s.logger.Info("created storage bucket", zap.String("bucket", s.bucket))
	}

	return nil
}

// ObjectKey returns the key a document called name is stored under.
func (s *MinioStore) ObjectKey(name string) string {
	return path.Join(s.prefix, documentsDir, name)
}

// Store uploads a PDF with its metadata and returns its key and a presigned
// download URL.
func (s *MinioStore) Store(ctx context.Context, name string, data []byte, metadata map[string]string) (*StoredDocument, error) {
	key := s.ObjectKey(name)

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  pdfContentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return nil, &StoreWriteError{Object: key, Err: err}
	}

	url, err := s.PresignedURL(ctx, key)
	if err != nil {
		return nil, &StoreWriteError{Object: key, Err: err}
	}

	s.logger.Debug("stored document", zap.String("bucket", s.bucket), zap.String("object", key), zap.Int("bytes", len(data)))
	return &StoredDocument{Reference: key, URL: url}, nil
}

// PresignedURL issues a fresh time-limited GET URL for key.
func (s *MinioStore) PresignedURL(ctx context.Context, key string) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), nil
}

// Get downloads an object.
func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (s *MinioStore) String() string {
	return s.bucket
}
