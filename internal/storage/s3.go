// Package storage wraps S3 for resume file uploads.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/config"
)

const presignTTL = 15 * time.Minute

// FileStore is the surface services use; nil-safe wrapper below degrades
// gracefully when S3 is not configured.
type FileStore interface {
	UploadResume(ctx context.Context, userID uint, data []byte, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string) (string, error)
}

type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	log     *zap.SugaredLogger
}

// NewS3Store returns nil (not an error) when no bucket is configured so
// callers can treat storage as an optional integration.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		log.Warn("S3 bucket not configured; resume uploads disabled")
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		log:     log.Sugar(),
	}, nil
}

// UploadResume stores the file under resumes/<user>/<uuid>.pdf and returns the key.
func (s *S3Store) UploadResume(ctx context.Context, userID uint, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("resumes/%d/%s.pdf", userID, uuid.New().String())
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.log.Errorw("storage.upload.error", "key", key, "error", err)
		return "", fmt.Errorf("upload resume: %w", err)
	}
	s.log.Infow("storage.upload.ok", "key", key, "bytes", len(data))
	return key, nil
}

// PresignedURL returns a short-lived GET URL for a stored object.
func (s *S3Store) PresignedURL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
