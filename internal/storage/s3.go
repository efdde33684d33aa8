package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/stagelink/backend/internal/config"
)

const avatarPrefix = "avatars"

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AvatarExtension returns the object suffix for an accepted avatar content type.
func AvatarExtension(contentType string) (string, bool) {
	ext, ok := avatarExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// AvatarKey builds a fresh object key for a user's avatar upload.
func AvatarKey(userID, contentType string) (string, error) {
	ext, ok := AvatarExtension(contentType)
	if !ok {
		return "", fmt.Errorf("unsupported avatar content type %q", contentType)
	}
	return path.Join(avatarPrefix, userID, uuid.NewString()+ext), nil
}

// S3Storage uploads avatars to an S3-compatible bucket.
type S3Storage struct {
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

// NewS3Storage configures an uploader targeting the provided object store. A
// custom endpoint switches to path-style addressing for MinIO and similar.
func NewS3Storage(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = manager.MinUploadPartSize
		u.LeavePartsOnError = false
	})

	return &S3Storage{
		uploader: uploader,
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// SaveAvatar uploads an avatar image for userID and returns its public location.
func (s *S3Storage) SaveAvatar(ctx context.Context, userID, contentType string, r io.Reader) (string, error) {
	key, err := AvatarKey(userID, contentType)
	if err != nil {
		return "", err
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("s3 storage upload %s: %w", key, err)
	}

	return PublicURL(s.baseURL, key), nil
}

// PublicURL joins an object key onto the configured public base URL. Without a
// base URL the key itself is returned.
func PublicURL(baseURL, key string) string {
	if baseURL == "" {
		return key
	}
	return baseURL + "/" + strings.TrimLeft(key, "/")
}
