package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
)

type s3ObjectDeleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3ObjectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3BlobStore keeps listing images in an S3 compatible bucket.
type S3BlobStore struct {
	client    s3ObjectDeleter
	uploader  s3ObjectUploader
	bucket    string
	keyPrefix string
	baseURL   string
}

var _ classifieds.BlobStore = (*S3BlobStore)(nil)

// NewS3BlobStore builds the store from configuration. Static credentials
// are used when both keys are set; otherwise the default AWS chain applies.
func NewS3BlobStore(ctx context.Context, cfg classifieds.BlobConfig) (*S3BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	if cfg.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(cfg.Endpoint))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return newS3BlobStore(client, manager.NewUploader(client), cfg.Bucket, cfg.KeyPrefix, s3PublicBaseURL(cfg, region)), nil
}

func newS3BlobStore(client s3ObjectDeleter, uploader s3ObjectUploader, bucket, keyPrefix, baseURL string) *S3BlobStore {
	return &S3BlobStore{
		client:    client,
		uploader:  uploader,
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

func s3PublicBaseURL(cfg classifieds.BlobConfig, region string) string {
	switch {
	case cfg.PublicBaseURL != "":
		return cfg.PublicBaseURL
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}

// objectKey names a new object after a fresh UUID, keeping the extension
// of the uploaded file name.
func objectKey(prefix, name string) string {
	key := uuid.Must(uuid.NewV7()).String() + strings.ToLower(path.Ext(name))
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func (s *S3BlobStore) Store(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := objectKey(s.keyPrefix, name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// Delete removes the object behind url. URLs outside the store's base URL
// are rejected; a missing object is not an error.
func (s *S3BlobStore) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || key == "" {
		return fmt.Errorf("url %q is not served by bucket %s", url, s.bucket)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
		return nil
	}
	return fmt.Errorf("s3 delete %s: %w", key, err)
}
