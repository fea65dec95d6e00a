// Package storage persists uploaded images in an S3-compatible object store.
// The core treats it as an external collaborator: hand it bytes, get back the
// object key the record stores.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	maxImageSize      = 5 * 1024 * 1024 // 5 MB
	profilePathPrefix = "profiles"
	productPathPrefix = "products"
)

var (
	// ErrFileTooBig rejects uploads over the size cap
	ErrFileTooBig = errors.New("file size exceeds 5MB limit")
	// ErrInvalidFileType rejects anything that is not a JPEG or PNG image
	ErrInvalidFileType = errors.New("invalid file type, only JPEG and PNG images are allowed")
	// ErrBucketCreationFailed wraps bucket setup failures
	ErrBucketCreationFailed = errors.New("failed to create storage bucket")
	// ErrUploadFailed wraps object write failures
	ErrUploadFailed = errors.New("failed to upload file")

	allowedContentTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
	}
)

// ImageStore defines the object storage operations the upload routes use.
type ImageStore interface {
	// UploadProfileImage stores a user's profile image and returns the object key.
	UploadProfileImage(ctx context.Context, userID uuid.UUID, file io.Reader, fileSize int64, contentType string) (string, error)

	// UploadProductImage stores a product image and returns the object key.
	UploadProductImage(ctx context.Context, productID uuid.UUID, file io.Reader, fileSize int64, contentType string) (string, error)

	// URL derives the public location of a stored object.
	URL(objectKey string) string
}

// MinIOImageStore implements ImageStore using MinIO/S3-compatible storage.
type MinIOImageStore struct {
	client     *minio.Client
	endpoint   string
	secure     bool
	bucketName string
}

var _ ImageStore = (*MinIOImageStore)(nil)

// NewMinIOImageStore creates a MinIO-backed image store and ensures the
// bucket exists.
func NewMinIOImageStore(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOImageStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	svc := &MinIOImageStore{
		client:     client,
		endpoint:   endpoint,
		secure:     useSSL,
		bucketName: bucketName,
	}

	if err := svc.ensureBucketExists(context.Background()); err != nil {
		return nil, err
	}

	return svc, nil
}

func (s *MinIOImageStore) ensureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("%w: check bucket existence: %v", ErrBucketCreationFailed, err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrBucketCreationFailed, err)
		}
	}

	return nil
}

// UploadProfileImage stores a user's profile image with validation.
func (s *MinIOImageStore) UploadProfileImage(ctx context.Context, userID uuid.UUID, file io.Reader, fileSize int64, contentType string) (string, error) {
	return s.upload(ctx, profilePathPrefix, userID, file, fileSize, contentType)
}

// UploadProductImage stores a product image with validation.
func (s *MinIOImageStore) UploadProductImage(ctx context.Context, productID uuid.UUID, file io.Reader, fileSize int64, contentType string) (string, error) {
	return s.upload(ctx, productPathPrefix, productID, file, fileSize, contentType)
}

func (s *MinIOImageStore) upload(ctx context.Context, prefix string, id uuid.UUID, file io.Reader, fileSize int64, contentType string) (string, error) {
	if fileSize > maxImageSize {
		return "", ErrFileTooBig
	}

	ext, err := ValidateContentType(contentType)
	if err != nil {
		return "", err
	}

	// One object per resource: re-uploads replace the previous image.
	objectKey := fmt.Sprintf("%s/%s%s", prefix, id.String(), ext)

	_, err = s.client.PutObject(ctx, s.bucketName, objectKey, file, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return objectKey, nil
}

// URL derives the public location of a stored object.
func (s *MinIOImageStore) URL(objectKey string) string {
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucketName, objectKey)
}

// ValidateContentType checks the declared type against the image allowlist
// and returns the canonical file extension.
func ValidateContentType(contentType string) (string, error) {
	ext, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrInvalidFileType
	}
	return ext, nil
}
