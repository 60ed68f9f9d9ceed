package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	maxCoverSize    = 8 * 1024 * 1024 // 8 MB
	presignedURLTTL = 15 * time.Minute
	coverPathPrefix = "covers"
)

var (
	ErrFileTooBig          = errors.New("file size exceeds 8MB limit")
	ErrInvalidFileType     = errors.New("invalid file type, only JPEG, PNG and WebP images are allowed")
	ErrBucketUnavailable   = errors.New("storage bucket unavailable")
	ErrUploadFailed        = errors.New("failed to upload file")
	ErrDeleteFailed        = errors.New("failed to delete file")
	ErrURLGenerationFailed = errors.New("failed to generate presigned URL")
	ErrUnownedObject       = errors.New("object key does not belong to this post")
	ErrStorageDisabled     = errors.New("cover uploads are disabled")

	allowedCoverTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
	}
)

// StorageService stores post cover images in S3-compatible object storage.
type StorageService interface {
	UploadCover(ctx context.Context, postID uint, file io.Reader, fileSize int64, contentType string) (string, error)
	DeleteCover(ctx context.Context, postID uint, objectKey string) error
	CoverURL(ctx context.Context, objectKey string) (string, error)
}

// MinIOStorageService defers the bucket check to first use so the process
// can start while MinIO is still coming up.
type MinIOStorageService struct {
	client     *minio.Client
	bucketName string

	bucketOnce sync.Once
	bucketErr  error
}

func NewMinIOStorageService(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOStorageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIOStorageService{client: client, bucketName: bucketName}, nil
}

func (s *MinIOStorageService) ensureBucket(ctx context.Context) error {
	s.bucketOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.bucketErr = fmt.Errorf("%w: check bucket: %v", ErrBucketUnavailable, err)
			return
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
				s.bucketErr = fmt.Errorf("%w: create bucket: %v", ErrBucketUnavailable, err)
			}
		}
	})
	return s.bucketErr
}

func (s *MinIOStorageService) UploadCover(ctx context.Context, postID uint, file io.Reader, fileSize int64, contentType string) (string, error) {
	if fileSize > maxCoverSize {
		return "", ErrFileTooBig
	}
	normalized := strings.ToLower(strings.TrimSpace(contentType))
	ext, allowed := allowedCoverTypes[normalized]
	if !allowed {
		return "", ErrInvalidFileType
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("%s/post-%d/%s%s", coverPathPrefix, postID, uuid.New().String(), ext)
	_, err := s.client.PutObject(ctx, s.bucketName, objectKey, file, fileSize, minio.PutObjectOptions{
		ContentType: normalized,
		UserMetadata: map[string]string{
			"Post-ID":     fmt.Sprintf("%d", postID),
			"Uploaded-At": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return objectKey, nil
}

// DeleteCover refuses keys outside the post's own namespace so stale or
// forged keys cannot remove another post's cover.
func (s *MinIOStorageService) DeleteCover(ctx context.Context, postID uint, objectKey string) error {
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return nil
	}
	expectedPrefix := fmt.Sprintf("%s/post-%d/", coverPathPrefix, postID)
	if !strings.HasPrefix(objectKey, expectedPrefix) {
		return ErrUnownedObject
	}
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}

func (s *MinIOStorageService) CoverURL(ctx context.Context, objectKey string) (string, error) {
	if strings.TrimSpace(objectKey) == "" {
		return "", fmt.Errorf("%w: empty object key", ErrURLGenerationFailed)
	}
	presigned, err := s.client.PresignedGetObject(ctx, s.bucketName, objectKey, presignedURLTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrURLGenerationFailed, err)
	}
	return presigned.String(), nil
}

// DisabledStorageService stands in when cover uploads are turned off so
// the rest of the wiring does not need nil checks.
type DisabledStorageService struct{}

func NewDisabledStorageService() *DisabledStorageService { return &DisabledStorageService{} }

func (DisabledStorageService) UploadCover(context.Context, uint, io.Reader, int64, string) (string, error) {
	return "", ErrStorageDisabled
}

func (DisabledStorageService) DeleteCover(context.Context, uint, string) error {
	return ErrStorageDisabled
}

func (DisabledStorageService) CoverURL(context.Context, string) (string, error) {
	return "", ErrStorageDisabled
}
