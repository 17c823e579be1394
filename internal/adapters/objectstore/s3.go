// Package objectstore keeps proof files in S3-compatible storage.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"scwatch/internal/adapters/observability"
)

// PutAPI is the slice of the S3 client the store needs.
type PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Store struct {
	api    PutAPI
	bucket string
	public string
}

// New builds an S3 client from the default credential chain. A non-empty
// endpoint switches to path-style addressing for localstack/minio.
func New(ctx context.Context, bucket, region, endpoint, publicBase string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, bucket, publicURLBase(bucket, region, endpoint, publicBase)), nil
}

func NewWithClient(api PutAPI, bucket, publicBase string) *Store {
	return &Store{api: api, bucket: bucket, public: strings.TrimRight(publicBase, "/")}
}

func publicURLBase(bucket, region, endpoint, publicBase string) string {
	switch {
	case publicBase != "":
		return publicBase
	case endpoint != "":
		return strings.TrimRight(endpoint, "/") + "/" + bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
}

// Put uploads data under key and returns its public URL.
func (s *Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	start := time.Now()
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String("max-age=3600"),
	})
	status := 200
	if err != nil {
		status = 500
	}
	observability.ObserveExternal("s3", "put_object", status, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return s.URL(key), nil
}

func (s *Store) URL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.public + "/" + strings.Join(parts, "/")
}
