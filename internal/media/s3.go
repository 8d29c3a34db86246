package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures an S3-compatible store. Credentials fall back to the
// default AWS chain when AccessKeyID is empty.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, e.g. MinIO
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // optional public URL prefix
}

// S3 stores objects in a single bucket.
type S3 struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3 creates an S3 store.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL(cfg.Endpoint, cfg.Bucket, region, cfg.PathStyle)
	}
	return &S3{client: client, bucket: cfg.Bucket, baseURL: baseURL}, nil
}

func defaultBaseURL(endpoint, bucket, region string, pathStyle bool) string {
	if endpoint == "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	u, err := url.Parse(endpoint)
	if err != nil || pathStyle {
		return joinURL(endpoint, bucket)
	}
	u.Host = bucket + "." + u.Host
	return u.String()
}

// Put uploads r. Existing keys are refused.
func (s *S3) Put(ctx context.Context, key string, r io.Reader, contentType string) (Object, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err == nil {
		return Object{}, fmt.Errorf("%s: %w", key, ErrExists)
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return Object{}, fmt.Errorf("checking %s: %w", key, err)
	}

	// The SDK signs the payload, which needs a seekable body over plain HTTP.
	body, size, err := seekable(r)
	if err != nil {
		return Object{}, fmt.Errorf("reading %s: %w", key, err)
	}

	input := &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Object{}, fmt.Errorf("putting %s: %w", key, err)
	}
	return Object{Key: key, URL: s.URL(key), Size: size, ContentType: contentType}, nil
}

// Delete removes the object.
func (s *S3) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// URL returns the object's public URL.
func (s *S3) URL(key string) string {
	return joinURL(s.baseURL, key)
}

func seekable(r io.Reader) (io.ReadSeeker, int64, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		size, err := rs.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, err
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, 0, err
		}
		return rs, size, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}
