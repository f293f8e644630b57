package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/starlow12/recipe/internal/config"
)

// Service stores story media in object storage. Uploads happen inside the
// publish flow; a failed upload aborts publish before any record is created.
type Service struct {
	client     *minio.Client
	bucketName string
	config     *config.Media
	useSSL     bool
}

// NewService creates a new media service instance
func NewService(cfg *config.Config) (*Service, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	service := &Service{
		client:     client,
		bucketName: cfg.MinIO.BucketName,
		config:     &cfg.Media,
		useSSL:     cfg.MinIO.UseSSL,
	}

	if err := service.ensureBucket(); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return service, nil
}

// ensureBucket creates the bucket if it doesn't exist
func (s *Service) ensureBucket() error {
	ctx := context.Background()

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// ValidateContentType checks the content type against the configured
// prefix allowlist (image/* and video/* by default).
func (s *Service) ValidateContentType(contentType string) bool {
	for _, prefix := range s.config.AllowedPrefixes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// ValidateSize enforces the overall media budget plus the tighter video one.
func (s *Service) ValidateSize(contentType string, size int64) error {
	if size > s.config.MaxFileSize {
		return fmt.Errorf("file size %d exceeds limit of %d bytes", size, s.config.MaxFileSize)
	}
	if strings.HasPrefix(contentType, "video/") && size > s.config.MaxVideoSize {
		return fmt.Errorf("video size %d exceeds limit of %d bytes", size, s.config.MaxVideoSize)
	}
	return nil
}

// ObjectKey builds a per-author key with a timestamp suffix so concurrent
// uploads never collide.
func (s *Service) ObjectKey(authorID, fileName, contentType string) string {
	ext := ""
	if idx := strings.LastIndex(fileName, "."); idx >= 0 {
		ext = fileName[idx:]
	} else if extensions, err := mime.ExtensionsByType(contentType); err == nil && len(extensions) > 0 {
		ext = extensions[0]
	}

	return fmt.Sprintf("stories/story-%s-%d%s", authorID, time.Now().UnixNano(), ext)
}

// UploadStoryMedia validates and stores a story's media file, returning its
// public URL.
func (s *Service) UploadStoryMedia(ctx context.Context, authorID, fileName, contentType string, size int64, r io.Reader) (string, error) {
	if !s.ValidateContentType(contentType) {
		return "", fmt.Errorf("content type %s is not allowed", contentType)
	}
	if err := s.ValidateSize(contentType, size); err != nil {
		return "", err
	}

	objectKey := s.ObjectKey(authorID, fileName, contentType)

	_, err := s.client.PutObject(ctx, s.bucketName, objectKey, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}

	return s.MediaURL(objectKey), nil
}

// PresignedDownloadURL creates a presigned URL for fetching media from a
// private bucket.
func (s *Service) PresignedDownloadURL(ctx context.Context, objectKey string, expiry time.Duration) (*url.URL, error) {
	return s.client.PresignedGetObject(ctx, s.bucketName, objectKey, expiry, nil)
}

// MediaURL returns the public URL for accessing media (if bucket is public)
func (s *Service) MediaURL(objectKey string) string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}

	endpoint := strings.TrimPrefix(s.client.EndpointURL().String(), scheme+"://")
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, s.bucketName, objectKey)
}

// DeleteObject removes an object from storage
func (s *Service) DeleteObject(ctx context.Context, objectKey string) error {
	return s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{})
}
