package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/config"
	"github.com/codyseavey/tcg-exchange/internal/metrics"
)

// MaxImageBytes caps a single upload.
const MaxImageBytes = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ImageBackend persists an image under name and returns its public URL.
type ImageBackend interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	Name() string
}

// ImageStorageService validates uploads for trade posts and offers and
// hands them to the configured backend.
type ImageStorageService struct {
	backend ImageBackend
	log     logrus.FieldLogger
}

func NewImageStorageService(backend ImageBackend, log logrus.FieldLogger) *ImageStorageService {
	return &ImageStorageService{backend: backend, log: log.WithField("component", "images")}
}

// NewImageBackend picks local disk or S3 from configuration.
func NewImageBackend(ctx context.Context, images config.ImagesConfig, s3cfg config.S3Config) (ImageBackend, error) {
	if images.Backend == "s3" {
		return NewS3ImageBackend(ctx, s3cfg)
	}
	return NewLocalImageBackend(images.Dir, images.BaseURL)
}

// SaveImage stores the image under a random name and returns its URL.
func (s *ImageStorageService) SaveImage(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.Input("empty image data")
	}
	if len(data) > MaxImageBytes {
		return "", apperrors.Input("image exceeds %d bytes", MaxImageBytes)
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", apperrors.Input("unsupported image type %s", contentType)
	}

	name := uuid.New().String() + ext
	url, err := s.backend.Put(ctx, name, contentType, data)
	if err != nil {
		metrics.ImageUploadsTotal.WithLabelValues(s.backend.Name(), "failed").Inc()
		return "", apperrors.Internal(err, "store image")
	}
	metrics.ImageUploadsTotal.WithLabelValues(s.backend.Name(), "success").Inc()
	s.log.WithFields(logrus.Fields{"name": name, "bytes": len(data)}).Debug("image stored")
	return url, nil
}

// LocalImageBackend writes images into a directory served by the router
type LocalImageBackend struct {
	dir     string
	baseURL string
}

func NewLocalImageBackend(dir, baseURL string) (*LocalImageBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &LocalImageBackend{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *LocalImageBackend) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	if err := os.WriteFile(filepath.Join(b.dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return b.baseURL + "/" + name, nil
}

func (b *LocalImageBackend) Name() string { return "local" }

// Dir is the directory the router serves statically.
func (b *LocalImageBackend) Dir() string { return b.dir }

// BaseURL is the path prefix the directory is served under.
func (b *LocalImageBackend) BaseURL() string { return b.baseURL }

// S3ImageBackend uploads to an S3-compatible bucket
type S3ImageBackend struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewS3ImageBackend(ctx context.Context, cfg config.S3Config) (*S3ImageBackend, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	if cfg.Endpoint != "" {
		publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return &S3ImageBackend{client: client, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

func (b *S3ImageBackend) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := "trade-images/" + name
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(b.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return b.publicURL + "/" + key, nil
}

func (b *S3ImageBackend) Name() string { return "s3" }
