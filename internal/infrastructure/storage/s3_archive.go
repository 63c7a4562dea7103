// Package storage archives rendered trader QR codes in S3-compatible object
// storage (AWS S3, MinIO, RustFS).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	levyapp "github.com/marketlevy/backend/internal/application/levy"
	infraconfig "github.com/marketlevy/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const pngContentType = "image/png"

var _ levyapp.QRArchive = (*S3QRArchive)(nil)

// S3QRArchive stores QR PNGs under a key prefix and hands back presigned
// download links
type S3QRArchive struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	keyPrefix         string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3QRArchiveOption is a functional option for configuring S3QRArchive
type S3QRArchiveOption func(*S3QRArchive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3QRArchiveOption {
	return func(a *S3QRArchive) {
		a.logger = logger
	}
}

// NewS3QRArchive creates an archive from configuration
func NewS3QRArchive(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3QRArchiveOption) (*S3QRArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	archive := &S3QRArchive{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		keyPrefix:         strings.Trim(cfg.KeyPrefix, "/"),
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	if archive.presignExpiration <= 0 {
		archive.presignExpiration = 15 * time.Minute
	}

	return archive, nil
}

func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

// EnsureBucket creates the bucket if it doesn't exist. Call it at startup.
func (a *S3QRArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("Creating QR archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Put uploads a PNG and returns a presigned download URL for it
func (a *S3QRArchive) Put(ctx context.Context, key string, png []byte) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	objectKey := a.ObjectKey(key)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(png),
		ContentType: aws.String(pngContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload QR code: %w", err)
	}

	presigned, err := a.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(a.presignExpiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign QR code: %w", err)
	}

	a.logger.Debug("QR code archived",
		zap.String("bucket", a.bucket),
		zap.String("key", objectKey),
	)
	return presigned.URL, nil
}

// ObjectKey joins the configured prefix and key
func (a *S3QRArchive) ObjectKey(key string) string {
	if a.keyPrefix == "" {
		return strings.TrimPrefix(key, "/")
	}
	return path.Join(a.keyPrefix, key)
}

// Bucket returns the bucket name
func (a *S3QRArchive) Bucket() string {
	return a.bucket
}
