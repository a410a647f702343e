package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Uploader 文件存储（KK 照片、信件文档）
type Uploader interface {
	Enabled() bool
	Store(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Uploader struct {
	Client  putObjectAPI
	Bucket  string
	BaseURL string
}

// NewS3Uploader returns a disabled uploader when no bucket is configured.
func NewS3Uploader(ctx context.Context, cfg *config.StorageConfig) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return &S3Uploader{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	base := cfg.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Uploader{Client: s3.NewFromConfig(awsCfg), Bucket: cfg.Bucket, BaseURL: base}, nil
}

func (u *S3Uploader) Enabled() bool { return u != nil && u.Client != nil && u.Bucket != "" }

// Store uploads body under key and returns its public URL.
func (u *S3Uploader) Store(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if !u.Enabled() {
		return "", fmt.Errorf("s3 uploader not configured")
	}
	key = strings.TrimPrefix(key, "/")
	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return u.BaseURL + "/" + key, nil
}

// ObjectKey builds "<prefix>/<yyyy>/<mm>/<uuid><ext>" from the uploaded file name.
func ObjectKey(prefix, filename string) string {
	now := time.Now().UTC()
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%04d/%02d/%s%s", strings.Trim(prefix, "/"), now.Year(), int(now.Month()), uuid.New().String(), ext)
}
