// Package upload externalizes profile pictures to S3-compatible object storage.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"realform/internal/registration/media"
	"realform/internal/registration/models"
	dErrors "realform/pkg/domain-errors"
)

const DefaultPrefix = "profile-pictures"

// Config describes the bucket and how to reach it.
type Config struct {
	Bucket        string
	Region        string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	UsePathStyle  bool
	PublicBaseURL string
	Prefix        string
}

// ObjectAPI is the subset of the S3 client the uploader needs.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewClient builds an S3 client. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// S3Uploader writes objects under a key prefix and never overwrites an
// existing key.
type S3Uploader struct {
	client  ObjectAPI
	bucket  string
	prefix  string
	baseURL string
	newKey  func() string
}

// Option configures an S3Uploader.
type Option func(*S3Uploader)

// WithKeyGenerator replaces the random object name generator.
func WithKeyGenerator(fn func() string) Option {
	return func(u *S3Uploader) {
		u.newKey = fn
	}
}

// New creates an uploader for cfg.Bucket using client.
func New(client ObjectAPI, cfg Config, opts ...Option) (*S3Uploader, error) {
	if client == nil {
		return nil, errors.New("s3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	u := &S3Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  prefix,
		baseURL: objectBaseURL(cfg),
		newKey:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Upload stores data and returns its key and public URL. Provider failures
// are returned as CodeUploadFailed with the provider error attached.
func (u *S3Uploader) Upload(ctx context.Context, data []byte, contentType string) (*models.StoredObject, error) {
	key := u.prefix + "/" + u.newKey() + media.Extension(contentType)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			err = fmt.Errorf("object %s already exists: %w", key, err)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUploadFailed, "Profile picture upload failed")
	}

	return &models.StoredObject{Key: key, URL: u.URL(key)}, nil
}

// Delete removes the object at key. A missing object is not an error.
func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// URL returns the public address of key.
func (u *S3Uploader) URL(key string) string {
	escaped := make([]string, 0, strings.Count(key, "/")+1)
	for _, part := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return u.baseURL + "/" + strings.Join(escaped, "/")
}

func objectBaseURL(cfg Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "PreconditionFailed"
}
