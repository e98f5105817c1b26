package render

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures an S3Store.
type S3Options struct {
	Bucket          string
	Region          string
	Prefix          string // object key prefix, e.g. "banners"
	Endpoint        string // custom endpoint for S3-compatible stores
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL is prepended to object keys to form artifact URLs.
	// Defaults to the virtual-hosted bucket URL.
	PublicBaseURL string
}

type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads artifacts to a bucket.
type S3Store struct {
	client  s3PutAPI
	bucket  string
	prefix  string
	baseURL string
}

// NewS3Store loads AWS configuration and creates the store.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return newS3Store(client, opts), nil
}

func newS3Store(client s3PutAPI, opts S3Options) *S3Store {
	base := opts.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
	}
	return &S3Store{
		client:  client,
		bucket:  opts.Bucket,
		prefix:  strings.Trim(opts.Prefix, "/"),
		baseURL: strings.TrimRight(base, "/"),
	}
}

// Put uploads data as <prefix>/<id><ext>.
func (s *S3Store) Put(ctx context.Context, id, contentType string, data []byte) (Artifact, error) {
	key := path.Join(s.prefix, id+extension(contentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}

	return Artifact{
		ID:          id,
		Path:        key,
		URL:         s.baseURL + "/" + key,
		ContentType: contentType,
		Data:        data,
	}, nil
}

var _ ArtifactStore = (*S3Store)(nil)
