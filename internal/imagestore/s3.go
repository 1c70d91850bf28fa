// internal/imagestore/s3.go
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3Store struct {
	client objectGetter
	bucket string
	prefix string
}

func init() {
	Register("s3", createS3Store)
}

func createS3Store(ctx context.Context, cfg Config) (Store, error) {
	c := cfg.S3
	if c.Bucket == "" {
		return nil, fmt.Errorf("image_store.s3.bucket is required for s3 store")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}
	if c.AccessKey != "" && c.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = c.PathStyle
	})
	return newS3Store(client, c.Bucket, c.Prefix), nil
}

func newS3Store(client objectGetter, bucket, prefix string) *s3Store {
	return &s3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *s3Store) Type() string {
	return "s3"
}

func (s *s3Store) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	if err := CheckPath(relPath); err != nil {
		return nil, err
	}
	key := path.Clean(relPath)
	if s.prefix != "" {
		key = path.Join(s.prefix, key)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		location := "s3://" + s.bucket + "/" + key
		if isS3NotFound(err) {
			return nil, &errs.ImageNotFoundError{Path: location, Err: err}
		}
		return nil, fmt.Errorf("failed to get object %s: %w", location, err)
	}
	return out.Body, nil
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}
