package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"sipelan-service/internal/config"
)

type objectBucket interface {
	PutObject(objectKey string, reader io.Reader, options ...oss.Option) error
	DeleteObject(objectKey string, options ...oss.Option) error
}

// OSSStore keeps evidence in an Aliyun OSS bucket.
type OSSStore struct {
	bucket   objectBucket
	maxBytes int64
	now      func() time.Time
}

func NewOSSStore(cfg config.OSSConfig, maxBytes int64) (*OSSStore, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("oss bucket %q: %w", cfg.Bucket, err)
	}
	return &OSSStore{bucket: bucket, maxBytes: maxBytes, now: time.Now}, nil
}

func (s *OSSStore) Save(ctx context.Context, upload Upload) (string, error) {
	if s.maxBytes > 0 && upload.Size > s.maxBytes {
		return "", ErrTooLarge
	}
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := ObjectPath(s.now(), upload.Filename)
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.ContentDisposition("inline"),
	}
	if err := s.bucket.PutObject(key, upload.Body, opts...); err != nil {
		return "", fmt.Errorf("put evidence object: %w", err)
	}
	return key, nil
}

func (s *OSSStore) Delete(ctx context.Context, path string) error {
	return s.bucket.DeleteObject(path, oss.WithContext(ctx))
}
